package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/token"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is a GoTrue session. Sign-up without auto-confirm returns the
// bare user instead, which lands in the embedded fields.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
	gotrueUser
}

func (r tokenResponse) session(now time.Time) (model.Session, bool) {
	if r.AccessToken == "" {
		return model.Session{}, false
	}
	var exp *time.Time
	switch {
	case r.ExpiresAt > 0:
		t := time.Unix(r.ExpiresAt, 0)
		exp = &t
	case r.ExpiresIn > 0:
		t := now.Add(time.Duration(r.ExpiresIn) * time.Second)
		exp = &t
	}
	var user model.User
	if r.User != nil {
		user = model.User{ID: r.User.ID, Email: r.User.Email}
	} else if fromJWT, err := token.SessionFrom(r.AccessToken); err == nil {
		user = fromJWT.User
	}
	if user.ID == "" {
		return model.Session{}, false
	}
	return model.PresentSession(user, r.AccessToken, r.RefreshToken, exp), true
}

func (c *Client) GetSession(ctx context.Context) (model.Session, error) {
	if !c.configured() {
		return model.AbsentSession(), backend.ErrNotConfigured
	}
	sess, err := c.hub.Stored()
	if err != nil {
		return model.AbsentSession(), fmt.Errorf("get session: %w", err)
	}
	if !sess.Present() || !sess.Expired(c.now()) {
		return sess, nil
	}
	return c.renew(ctx, sess)
}

// renew trades the refresh token for a new session and announces it as
// TOKEN_REFRESHED. A refresh the server rejects signs the user out.
func (c *Client) renew(ctx context.Context, sess model.Session) (model.Session, error) {
	if sess.RefreshToken == "" {
		c.log.Info().Msg("stored session expired")
		c.hub.Clear()
		return model.AbsentSession(), nil
	}
	refreshed, err := c.refresh(ctx, sess.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.log.Warn().Err(err).Msg("refresh rejected, signing out")
			c.hub.Clear()
			return model.AbsentSession(), nil
		}
		return model.AbsentSession(), fmt.Errorf("refresh session: %w", err)
	}
	c.hub.Set(backend.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &resp)
	if err != nil {
		return model.Session{}, err
	}
	sess, ok := resp.session(c.now())
	if !ok {
		return model.Session{}, errors.New("refresh returned no session")
	}
	return sess, nil
}

func (c *Client) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	return c.hub.Subscribe(fn)
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	// Projects with email auto-confirm sign the user straight in.
	if sess, ok := resp.session(c.now()); ok {
		c.hub.Set(backend.EventSignedIn, sess)
		return nil
	}
	c.log.Info().Str("user_id", resp.ID).Msg("sign-up awaiting email confirmation")
	return nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	sess, ok := resp.session(c.now())
	if !ok {
		return errors.New("sign in: response carried no session")
	}
	c.hub.Set(backend.EventSignedIn, sess)
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	sess, err := c.hub.Stored()
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if sess.Present() {
		err := c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			bearer: sess.AccessToken,
		}, nil)
		if err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	c.hub.Clear()
	return nil
}
