// Package authgate is the signed-out entry point: email/password sign-in
// and sign-up with a single status message.
package authgate

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
)

const (
	MsgSignUpOK = "Sign-up succeeded! Check your email to confirm your account."
	MsgSignInOK = "Signed in successfully!"

	signUpErrPrefix = "Sign-up error: "
	signInErrPrefix = "Sign-in error: "
)

var ErrInvalidEmail = errors.New("invalid email address")

var validate = validator.New()

type credentials struct {
	Email string `validate:"email"`
}

// Authenticator is the part of backend.Auth the gate needs.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) error
}

// View is what the gate shows under its form.
type View struct {
	Busy    bool
	Message string
	Failed  bool
}

type Gate struct {
	auth Authenticator
	log  zerolog.Logger

	mu   sync.Mutex
	view View
}

func New(auth Authenticator, log zerolog.Logger) *Gate {
	return &Gate{auth: auth, log: log}
}

func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// SignUp registers a new account. The session, if the service grants one
// right away, arrives through the auth notification, not through here.
func (g *Gate) SignUp(ctx context.Context, email, password string) View {
	return g.run("sign_up", email, func() error {
		return g.auth.SignUp(ctx, email, password)
	}, MsgSignUpOK, signUpErrPrefix)
}

func (g *Gate) SignIn(ctx context.Context, email, password string) View {
	return g.run("sign_in", email, func() error {
		return g.auth.SignInWithPassword(ctx, email, password)
	}, MsgSignInOK, signInErrPrefix)
}

func (g *Gate) run(op, email string, call func() error, okMsg, errPrefix string) View {
	g.mu.Lock()
	if g.view.Busy {
		v := g.view
		g.mu.Unlock()
		return v
	}
	g.view = View{Busy: true}
	g.mu.Unlock()

	err := validate.Struct(credentials{Email: email})
	if err != nil {
		err = ErrInvalidEmail
	} else {
		err = call()
	}

	v := View{Message: okMsg}
	if err != nil {
		g.log.Warn().Err(err).Str("op", op).Msg("authentication failed")
		v = View{Message: errPrefix + Detail(err), Failed: true}
	} else {
		g.log.Info().Str("op", op).Msg("authentication succeeded")
	}

	g.mu.Lock()
	g.view = v
	g.mu.Unlock()
	return v
}

// Detail turns a backend error into the text shown after the prefix.
func Detail(err error) string {
	var d interface{ Detail() string }
	if errors.As(err, &d) {
		return d.Detail()
	}
	for _, known := range []error{
		ErrInvalidEmail,
		backend.ErrInvalidCredentials,
		backend.ErrUserExists,
		backend.ErrNotConfigured,
		backend.ErrNotSignedIn,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
