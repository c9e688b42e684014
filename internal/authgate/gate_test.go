package authgate

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/backendtest"
	"github.com/Makepad-fr/tada/internal/backend/supabase"
)

func TestGate_SignUpThenSignIn(t *testing.T) {
	fake := backendtest.New()
	g := New(fake, zerolog.Nop())
	ctx := context.Background()

	v := g.SignUp(ctx, "a@example.com", "secret123")
	assert.Equal(t, View{Message: MsgSignUpOK}, v)
	assert.Equal(t, v, g.View())

	v = g.SignIn(ctx, "a@example.com", "secret123")
	assert.Equal(t, MsgSignInOK, v.Message)
	assert.False(t, v.Failed)
	assert.False(t, v.Busy)
}

func TestGate_Failures(t *testing.T) {
	fake := backendtest.New()
	fake.AddUser("a@example.com", "secret123")
	g := New(fake, zerolog.Nop())
	ctx := context.Background()

	v := g.SignUp(ctx, "a@example.com", "other")
	assert.True(t, v.Failed)
	assert.Equal(t, "Sign-up error: user already registered", v.Message)

	v = g.SignIn(ctx, "a@example.com", "wrong")
	assert.True(t, v.Failed)
	assert.Equal(t, "Sign-in error: invalid login credentials", v.Message)
}

func TestGate_RejectsBadEmailWithoutRequest(t *testing.T) {
	fake := backendtest.New()
	g := New(fake, zerolog.Nop())

	for _, email := range []string{"", "not-an-email", "a@"} {
		v := g.SignIn(context.Background(), email, "pw")
		assert.True(t, v.Failed, email)
		assert.Equal(t, "Sign-in error: invalid email address", v.Message)
	}
	assert.Zero(t, fake.CallCount("sign_in"))
}

type scriptedAuth struct {
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *scriptedAuth) SignUp(context.Context, string, string) error { return s.err }

func (s *scriptedAuth) SignInWithPassword(context.Context, string, string) error {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	return s.err
}

func TestGate_ServiceWording(t *testing.T) {
	auth := &scriptedAuth{err: fmt.Errorf("sign in: %w", &supabase.APIError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"})}
	g := New(auth, zerolog.Nop())
	v := g.SignIn(context.Background(), "a@example.com", "pw")
	assert.Equal(t, "Sign-in error: Invalid login credentials", v.Message)
}

func TestGate_BusyWhileRequestRuns(t *testing.T) {
	auth := &scriptedAuth{started: make(chan struct{}), release: make(chan struct{})}
	g := New(auth, zerolog.Nop())

	done := make(chan View)
	go func() { done <- g.SignIn(context.Background(), "a@example.com", "pw") }()
	<-auth.started

	assert.True(t, g.View().Busy)
	assert.Empty(t, g.View().Message)
	// a second submit while busy is not sent
	assert.True(t, g.SignUp(context.Background(), "a@example.com", "pw").Busy)

	close(auth.release)
	v := <-done
	require.False(t, v.Busy)
	assert.Equal(t, MsgSignInOK, v.Message)
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "backend is not configured", Detail(fmt.Errorf("list: %w", backend.ErrNotConfigured)))
	assert.Equal(t, "boom", Detail(fmt.Errorf("boom")))
}
