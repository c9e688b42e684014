// Package session tracks the signed-in session and turns backend auth
// notifications into synchronizer events.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todosync"
)

type Store struct {
	auth backend.Auth
	log  zerolog.Logger

	mu      sync.Mutex
	current model.Session
}

func New(auth backend.Auth, log zerolog.Logger) *Store {
	return &Store{auth: auth, log: log, current: model.PendingSession()}
}

// Current is the last session the store observed.
func (s *Store) Current() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) set(sess model.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// GetInitialSession asks the backend once. Failures resolve to absent so the
// app can still show the sign-in form.
func (s *Store) GetInitialSession(ctx context.Context) todosync.SessionResolved {
	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get session")
		sess = model.AbsentSession()
	}
	if !sess.Resolved() {
		sess = model.AbsentSession()
	}
	s.mu.Lock()
	// a notification that arrived first wins
	if !s.current.Resolved() {
		s.current = sess
	}
	s.mu.Unlock()
	s.log.Debug().Str("phase", sess.Phase.String()).Msg("initial session")
	return todosync.SessionResolved{Session: sess, Err: err}
}

// Subscribe forwards every auth notification to onChange. The returned func
// unsubscribes; extra calls are no-ops.
func (s *Store) Subscribe(onChange func(todosync.Event)) (unsubscribe func()) {
	sub := s.auth.OnAuthStateChange(func(ev backend.AuthEvent, sess model.Session) {
		if !sess.Present() {
			sess = model.AbsentSession()
		}
		s.set(sess)
		s.log.Info().
			Str("event", string(ev)).
			Str("user_id", sess.UserID()).
			Msg("auth state changed")
		onChange(todosync.AuthChanged{Event: ev, Session: sess})
	})
	var once sync.Once
	return func() { once.Do(sub.Unsubscribe) }
}

// SignOut leaves the session untouched when the backend refuses.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn().Err(err).Str("user_id", s.Current().UserID()).Msg("sign out refused")
		return err
	}
	s.set(model.AbsentSession())
	return nil
}
