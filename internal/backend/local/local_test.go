package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/credstore"
	"github.com/Makepad-fr/tada/internal/model"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	dir := t.TempDir()
	b, err := Open(Config{Path: filepath.Join(dir, "tada.db")}, credstore.New(dir, ""), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func signedIn(t *testing.T, b *Backend) model.Session {
	t.Helper()
	sess, err := b.GetSession(context.Background())
	require.NoError(t, err)
	require.True(t, sess.Present())
	return sess
}

func TestBackend_SignUpSignInSignOut(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	var events []backend.AuthEvent
	b.OnAuthStateChange(func(ev backend.AuthEvent, _ model.Session) { events = append(events, ev) })

	sess, err := b.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAbsent, sess.Phase)

	require.NoError(t, b.SignUp(ctx, "U1@example.com", "hunter22"))
	sess = signedIn(t, b)
	assert.Equal(t, "u1@example.com", sess.User.Email)

	assert.ErrorIs(t, b.SignUp(ctx, "u1@example.com", "other"), backend.ErrUserExists)

	require.NoError(t, b.SignOut(ctx))
	sess, err = b.GetSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Present())

	assert.ErrorIs(t, b.SignInWithPassword(ctx, "u1@example.com", "wrong"), backend.ErrInvalidCredentials)
	assert.ErrorIs(t, b.SignInWithPassword(ctx, "nobody@example.com", "x"), backend.ErrInvalidCredentials)
	require.NoError(t, b.SignInWithPassword(ctx, "u1@example.com", "hunter22"))
	signedIn(t, b)

	assert.Equal(t, []backend.AuthEvent{
		backend.EventSignedIn,
		backend.EventSignedOut,
		backend.EventSignedIn,
	}, events)
}

func TestBackend_TodosScopedToUser(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	// anonymous callers see nothing
	rows, err := b.ListTodos(ctx, backend.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, b.SignUp(ctx, "a@example.com", "pw-a"))
	a := signedIn(t, b)
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	first, err := b.InsertTodo(ctx, "Buy milk", a.UserID())
	require.NoError(t, err)
	_, err = b.InsertTodo(ctx, "Walk dog", a.UserID())
	require.NoError(t, err)

	_, err = b.InsertTodo(ctx, "Not mine", "someone-else")
	assert.ErrorIs(t, err, backend.ErrNotSignedIn)

	rows, err = b.ListTodos(ctx, backend.ListQuery{UserID: a.UserID()})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Buy milk", rows[0].Task)
	assert.Equal(t, "Walk dog", rows[1].Task)
	assert.True(t, rows[0].CreatedAt.Before(rows[1].CreatedAt))

	require.NoError(t, b.SignUp(ctx, "b@example.com", "pw-b"))
	bs := signedIn(t, b)
	rows, err = b.ListTodos(ctx, backend.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	// b cannot delete a's row; silently affects nothing
	require.NoError(t, b.DeleteTodo(ctx, first.ID, a.UserID()))
	require.NoError(t, b.DeleteTodo(ctx, first.ID, bs.UserID()))

	require.NoError(t, b.SignInWithPassword(ctx, "a@example.com", "pw-a"))
	rows, err = b.ListTodos(ctx, backend.ListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, b.DeleteTodo(ctx, first.ID, a.UserID()))
	rows, err = b.ListTodos(ctx, backend.ListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Walk dog", rows[0].Task)
}

func TestBackend_ListOrderedByCreation(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	require.NoError(t, b.SignUp(ctx, "a@example.com", "pw-a"))
	a := signedIn(t, b)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		task string
		at   time.Time
	}{
		{"first", base},
		{"second", base.Add(100 * time.Millisecond)},
		{"third", base.Add(120 * time.Millisecond)},
		{"fourth", base.Add(time.Second)},
	} {
		at := tc.at
		b.now = func() time.Time { return at }
		_, err := b.InsertTodo(ctx, tc.task, a.UserID())
		require.NoError(t, err)
	}

	rows, err := b.ListTodos(ctx, backend.ListQuery{})
	require.NoError(t, err)
	var tasks []string
	for _, r := range rows {
		tasks = append(tasks, r.Task)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, tasks)
	assert.True(t, rows[1].CreatedAt.Equal(base.Add(100*time.Millisecond)))
}

func TestBackend_SecretPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tada.db")
	creds := credstore.New(dir, "")

	b, err := Open(Config{Path: path}, creds, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.SignUp(context.Background(), "a@example.com", "pw"))
	require.NoError(t, b.Close())

	// a reopened backend still accepts the persisted token
	b2, err := Open(Config{Path: path}, credstore.New(dir, ""), zerolog.Nop())
	require.NoError(t, err)
	defer b2.Close()
	sess, err := b2.GetSession(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Present())
}
