// Package todosync keeps the visible todo list in step with the current
// session. Transition is a pure state machine; effects it returns are run
// by Execute (or a Driver) and their outcomes are fed back as events.
package todosync

import (
	"strings"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

// User-facing error texts. Details go to the log.
const (
	MsgFetchFailed   = "Failed to fetch to-dos."
	MsgAddFailed     = "Failed to add to-do."
	MsgDeleteFailed  = "Failed to delete to-do."
	MsgSignOutFailed = "Failed to sign out."
)

// State is everything the shell renders. The zero value is not valid; use
// NewState.
type State struct {
	Session model.Session
	// Rev changes every time Session is replaced; it identifies a snapshot.
	Rev     uint64
	Loading bool
	Items   []model.Todo
	Err     string
	Input   string

	fetching  bool
	fetchRev  uint64 // snapshot the in-flight fetch is for
	syncedRev uint64 // last snapshot whose items were applied
	pendingOp op
}

type op int

const (
	opNone op = iota
	opAdd
	opDelete
	opSignOut
)

// NewState is the app-start state: session pending, loading.
func NewState() State {
	return State{Session: model.PendingSession(), Loading: true, Items: []model.Todo{}}
}

// Busy reports whether a fetch or an operation result is outstanding.
func (s State) Busy() bool { return s.fetching || s.pendingOp != opNone }

// ---------------------------------------------------
// Events
// ---------------------------------------------------

type Event interface{ isEvent() }

// SessionResolved is the answer to the startup session query.
type SessionResolved struct {
	Session model.Session
	Err     error
}

// AuthChanged is a backend auth-state notification.
type AuthChanged struct {
	Event   backend.AuthEvent
	Session model.Session
}

// retrigger re-evaluates the trigger rule without changing anything else.
type retrigger struct{}

// Refresh asks for a re-fetch of the current snapshot.
type Refresh struct{}

type FetchDone struct {
	Rev   uint64
	Items []model.Todo
	Err   error
}

type InputChanged struct{ Text string }

// AddRequested submits the current input text.
type AddRequested struct{}

type AddDone struct {
	Rev  uint64
	Todo model.Todo
	Err  error
}

type DeleteRequested struct{ ID int64 }

type DeleteDone struct {
	Rev uint64
	ID  int64
	Err error
}

type SignOutRequested struct{}

type SignOutDone struct{ Err error }

func (SessionResolved) isEvent()  {}
func (AuthChanged) isEvent()      {}
func (retrigger) isEvent()        {}
func (Refresh) isEvent()          {}
func (FetchDone) isEvent()        {}
func (InputChanged) isEvent()     {}
func (AddRequested) isEvent()     {}
func (AddDone) isEvent()          {}
func (DeleteRequested) isEvent()  {}
func (DeleteDone) isEvent()       {}
func (SignOutRequested) isEvent() {}
func (SignOutDone) isEvent()      {}

// ---------------------------------------------------
// Effects
// ---------------------------------------------------

type Effect interface{ isEffect() }

type Fetch struct {
	Rev    uint64
	UserID string
}

type Insert struct {
	Rev    uint64
	Task   string
	UserID string
}

type Delete struct {
	Rev    uint64
	ID     int64
	UserID string
}

type SignOut struct{}

func (Fetch) isEffect()   {}
func (Insert) isEffect()  {}
func (Delete) isEffect()  {}
func (SignOut) isEffect() {}

// ---------------------------------------------------
// Transition
// ---------------------------------------------------

// Transition applies ev to s and returns the effects to perform. It never
// blocks and never touches the backend.
func Transition(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case SessionResolved:
		// A notification may already have answered; keep the newer value.
		if s.Session.Resolved() {
			return s, nil
		}
		sess := e.Session
		if e.Err != nil || !sess.Resolved() {
			sess = model.AbsentSession()
		}
		s = replaceSession(s, sess)
		s.Loading = true
		return trigger(s)

	case AuthChanged:
		sess := e.Session
		if !sess.Resolved() {
			sess = model.AbsentSession()
		}
		s = replaceSession(s, sess)
		s.Loading = true
		return trigger(s)

	case retrigger:
		return trigger(s)

	case Refresh:
		if s.Loading {
			return s, nil
		}
		s.Loading = true
		return trigger(s)

	case FetchDone:
		if !s.fetching || e.Rev != s.fetchRev {
			return s, nil // stale
		}
		s.fetching = false
		if e.Rev != s.Rev {
			// the session moved on while this fetch ran
			return trigger(s)
		}
		if e.Err != nil {
			s.Err = MsgFetchFailed
		} else {
			s.Items = model.FilterOwned(e.Items, s.Session.UserID())
		}
		s.syncedRev = s.Rev
		s.Loading = false
		return s, nil

	case InputChanged:
		s.Input = e.Text
		return s, nil

	case AddRequested:
		task := strings.TrimSpace(s.Input)
		if task == "" || !s.Session.Present() || s.Loading {
			return s, nil
		}
		s.Loading, s.Err, s.pendingOp = true, "", opAdd
		return s, []Effect{Insert{Rev: s.Rev, Task: task, UserID: s.Session.UserID()}}

	case AddDone:
		if s.pendingOp != opAdd {
			return s, nil
		}
		s.pendingOp = opNone
		if e.Err != nil {
			s.Err = MsgAddFailed
		} else {
			if e.Rev == s.Rev && model.OwnedBy(s.Session.UserID())(e.Todo) {
				s.Items = append(cloneItems(s.Items), e.Todo)
			}
			s.Input = ""
		}
		return settle(s)

	case DeleteRequested:
		if !s.Session.Present() || s.Loading {
			return s, nil
		}
		s.Loading, s.Err, s.pendingOp = true, "", opDelete
		return s, []Effect{Delete{Rev: s.Rev, ID: e.ID, UserID: s.Session.UserID()}}

	case DeleteDone:
		if s.pendingOp != opDelete {
			return s, nil
		}
		s.pendingOp = opNone
		if e.Err != nil {
			s.Err = MsgDeleteFailed
		} else if e.Rev == s.Rev {
			s.Items = removeByID(s.Items, e.ID)
		}
		return settle(s)

	case SignOutRequested:
		if !s.Session.Present() || s.Loading {
			return s, nil
		}
		s.Loading, s.Err, s.pendingOp = true, "", opSignOut
		return s, []Effect{SignOut{}}

	case SignOutDone:
		if s.pendingOp != opSignOut {
			return s, nil
		}
		s.pendingOp = opNone
		s.Input = ""
		if e.Err != nil {
			s.Err = MsgSignOutFailed
			return settle(s)
		}
		if s.Session.Present() {
			s = replaceSession(s, model.AbsentSession())
		}
		return trigger(s)
	}
	return s, nil
}

// trigger is the synchronization rule: when loading with a resolved session
// and nothing in flight for this snapshot, fetch (present) or clear (absent).
func trigger(s State) (State, []Effect) {
	if !s.Loading || !s.Session.Resolved() {
		return s, nil
	}
	if s.fetching || s.pendingOp != opNone {
		// an outstanding fetch re-triggers on completion if the rev moved;
		// an outstanding operation settles through settle
		return s, nil
	}
	if !s.Session.Present() {
		s.Items = []model.Todo{}
		s.syncedRev = s.Rev
		s.Loading = false
		return s, nil
	}
	s.fetching, s.fetchRev, s.Err = true, s.Rev, ""
	return s, []Effect{Fetch{Rev: s.Rev, UserID: s.Session.UserID()}}
}

// settle ends an operation. If the session changed while it ran, the
// re-fetch that change asked for happens now.
func settle(s State) (State, []Effect) {
	if s.syncedRev != s.Rev {
		return trigger(s)
	}
	s.Loading = false
	return s, nil
}

func replaceSession(s State, sess model.Session) State {
	s.Session = sess
	s.Rev++
	if !sess.Present() {
		// no stale cross-user rows, not even for one render
		s.Items = []model.Todo{}
	}
	return s
}

func removeByID(items []model.Todo, id int64) []model.Todo {
	out := make([]model.Todo, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func cloneItems(items []model.Todo) []model.Todo {
	out := make([]model.Todo, len(items), len(items)+1)
	copy(out, items)
	return out
}
