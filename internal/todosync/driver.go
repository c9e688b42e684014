package todosync

import (
	"context"
	"sync"
)

// Driver runs the state machine outside a UI loop: it applies events one at
// a time, executes the resulting effects synchronously and feeds their
// outcomes back in. Events dispatched while it is busy (including from inside
// an effect, e.g. the auth notification fired by sign-out) are queued.
type Driver struct {
	ctx  context.Context
	exec Executor

	mu       sync.Mutex
	state    State
	queue    []Event
	draining bool
	mounted  bool
	observe  func(State)

	unsubscribe func()
	closeOnce   sync.Once
}

func NewDriver(ctx context.Context, exec Executor) *Driver {
	return &Driver{ctx: ctx, exec: exec, state: NewState(), mounted: true}
}

// Attach records the auth subscription so Close can release it.
func (d *Driver) Attach(unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsubscribe = unsubscribe
}

// Observe registers fn to be called with every new state.
func (d *Driver) Observe(fn func(State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observe = fn
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dispatch applies ev and everything it causes. Once Close has been called
// events and late effect results are discarded.
func (d *Driver) Dispatch(ev Event) {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true

	for len(d.queue) > 0 && d.mounted {
		next := d.queue[0]
		d.queue = d.queue[1:]

		var effects []Effect
		d.state, effects = Transition(d.state, next)
		observe, snapshot := d.observe, d.state
		d.mu.Unlock()

		if observe != nil {
			observe(snapshot)
		}
		for _, eff := range effects {
			result := d.exec.Execute(d.ctx, eff)

			d.mu.Lock()
			if d.mounted && result != nil {
				d.queue = append(d.queue, result)
			}
			d.mu.Unlock()
		}
		d.mu.Lock()
	}
	d.queue = nil
	d.draining = false
	d.mu.Unlock()
}

// Close unmounts the driver and releases the auth subscription exactly once.
func (d *Driver) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.mounted = false
		unsubscribe := d.unsubscribe
		d.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	})
}
