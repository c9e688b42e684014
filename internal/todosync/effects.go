package todosync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
)

// SignOuter performs the sign-out effect. session.Store satisfies it.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Executor runs effects against the backend and reports each outcome as the
// matching *Done event. Failures are logged in full here; the state only
// carries the short message.
type Executor struct {
	Todos backend.Todos
	Auth  SignOuter
	Log   zerolog.Logger
}

func (x Executor) Execute(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case Fetch:
		items, err := x.Todos.ListTodos(ctx, backend.ListQuery{UserID: e.UserID})
		if err != nil {
			x.Log.Error().Err(err).Str("user_id", e.UserID).Msg("failed to fetch todos")
		}
		return FetchDone{Rev: e.Rev, Items: items, Err: err}

	case Insert:
		row, err := x.Todos.InsertTodo(ctx, e.Task, e.UserID)
		if err != nil {
			x.Log.Error().Err(err).Str("user_id", e.UserID).Msg("failed to add todo")
		}
		return AddDone{Rev: e.Rev, Todo: row, Err: err}

	case Delete:
		err := x.Todos.DeleteTodo(ctx, e.ID, e.UserID)
		if err != nil {
			x.Log.Error().Err(err).Int64("id", e.ID).Msg("failed to delete todo")
		}
		return DeleteDone{Rev: e.Rev, ID: e.ID, Err: err}

	case SignOut:
		err := x.Auth.SignOut(ctx)
		if err != nil {
			x.Log.Error().Err(err).Msg("failed to sign out")
		} else {
			x.Log.Info().Msg("signed out")
		}
		return SignOutDone{Err: err}
	}
	return nil
}
