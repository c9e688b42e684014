// Package authstate keeps the in-process session shared by backend adapters:
// the current value, its persisted copy, and the listeners notified when it
// changes.
package authstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/credstore"
	"github.com/Makepad-fr/tada/internal/model"
)

type Hub struct {
	log   zerolog.Logger
	creds *credstore.Store

	mu        sync.Mutex
	current   model.Session
	loaded    bool
	listeners map[int]backend.AuthListener
	nextID    int
}

// New builds a hub. creds may be nil for a purely in-memory session.
func New(creds *credstore.Store, log zerolog.Logger) *Hub {
	return &Hub{
		log:       log,
		creds:     creds,
		current:   model.AbsentSession(),
		listeners: make(map[int]backend.AuthListener),
	}
}

// Stored returns the current session, loading the persisted copy the first
// time it is asked for.
func (h *Hub) Stored() (model.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return h.current, nil
	}
	sess, err := h.loadLocked()
	if err != nil {
		return model.AbsentSession(), err
	}
	h.current, h.loaded = sess, true
	return sess, nil
}

func (h *Hub) loadLocked() (model.Session, error) {
	if h.creds == nil {
		return model.AbsentSession(), nil
	}
	c, err := h.creds.Load()
	if err != nil {
		return model.AbsentSession(), err
	}
	if c == nil {
		return model.AbsentSession(), nil
	}
	return c.Session(), nil
}

// Set replaces the session, persists it and notifies listeners with ev.
func (h *Hub) Set(ev backend.AuthEvent, sess model.Session) {
	h.mu.Lock()
	h.current, h.loaded = sess, true
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	h.persist(sess)
	for _, fn := range listeners {
		fn(ev, sess)
	}
}

// Clear signs the hub out and notifies listeners with EventSignedOut.
func (h *Hub) Clear() {
	h.Set(backend.EventSignedOut, model.AbsentSession())
}

func (h *Hub) persist(sess model.Session) {
	if h.creds == nil {
		return
	}
	var err error
	if sess.Present() {
		err = h.creds.Save(sess)
	} else {
		err = h.creds.Delete()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to persist session")
	}
}

func (h *Hub) Subscribe(fn backend.AuthListener) backend.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return &subscription{hub: h, id: id}
}

func (h *Hub) snapshotLocked() []backend.AuthListener {
	out := make([]backend.AuthListener, 0, len(h.listeners))
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Watch reloads the persisted session whenever another process changes it
// and notifies listeners if the signed-in identity or token differs. It
// blocks until ctx is done.
func (h *Hub) Watch(ctx context.Context) error {
	if h.creds == nil {
		<-ctx.Done()
		return nil
	}
	return h.creds.Watch(ctx, h.log, h.reload)
}

func (h *Hub) reload() {
	h.mu.Lock()
	next, err := h.loadLocked()
	if err != nil {
		h.mu.Unlock()
		h.log.Warn().Err(err).Msg("failed to reload credentials")
		return
	}
	prev := h.current
	if prev.Phase == next.Phase && prev.AccessToken == next.AccessToken {
		h.mu.Unlock()
		return
	}
	h.current, h.loaded = next, true
	listeners := h.snapshotLocked()
	h.mu.Unlock()

	ev := backend.EventSignedIn
	switch {
	case !next.Present():
		ev = backend.EventSignedOut
	case prev.Present() && prev.UserID() == next.UserID():
		ev = backend.EventTokenRefreshed
	}
	h.log.Info().Str("event", string(ev)).Msg("session changed by another process")
	for _, fn := range listeners {
		fn(ev, next)
	}
}

type subscription struct {
	hub  *Hub
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.listeners, s.id)
		s.hub.mu.Unlock()
	})
}
