// Package backend describes the hosted auth/database service tada talks to.
// Concrete adapters live in the supabase and local subpackages.
package backend

import (
	"context"
	"errors"

	"github.com/Makepad-fr/tada/internal/model"
)

var (
	ErrNotConfigured      = errors.New("backend is not configured")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrNotFound           = errors.New("row not found")
)

// AuthEvent names an auth-state notification.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthListener receives every auth-state change. The session is absent for
// EventSignedOut and present otherwise.
type AuthListener func(AuthEvent, model.Session)

type Subscription interface {
	Unsubscribe()
}

type Auth interface {
	// GetSession returns the current session, absent when signed out.
	GetSession(ctx context.Context) (model.Session, error)
	OnAuthStateChange(fn AuthListener) Subscription
	SignUp(ctx context.Context, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// ListQuery selects rows from todos. An empty UserID leaves visibility to
// the backend's own policy.
type ListQuery struct {
	UserID string
}

type Todos interface {
	// ListTodos returns rows ordered by created_at ascending.
	ListTodos(ctx context.Context, q ListQuery) ([]model.Todo, error)
	InsertTodo(ctx context.Context, task, userID string) (model.Todo, error)
	DeleteTodo(ctx context.Context, id int64, userID string) error
}

type Backend interface {
	Auth
	Todos
}
