package model

import "time"

// Phase is where a session is in its lifecycle.
type Phase int

const (
	SessionPending Phase = iota // not yet resolved by the backend
	SessionAbsent
	SessionPresent
)

func (p Phase) String() string {
	switch p {
	case SessionPending:
		return "pending"
	case SessionAbsent:
		return "absent"
	case SessionPresent:
		return "present"
	}
	return "unknown"
}

// User is the authenticated identity behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the current authentication state. Only a present session
// carries a user and tokens.
type Session struct {
	Phase        Phase      `json:"-"`
	User         User       `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func PendingSession() Session { return Session{Phase: SessionPending} }

func AbsentSession() Session { return Session{Phase: SessionAbsent} }

// PresentSession builds a signed-in session.
func PresentSession(user User, accessToken, refreshToken string, expiresAt *time.Time) Session {
	return Session{
		Phase:        SessionPresent,
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

func (s Session) Present() bool  { return s.Phase == SessionPresent }
func (s Session) Resolved() bool { return s.Phase != SessionPending }

// UserID is empty unless the session is present.
func (s Session) UserID() string {
	if !s.Present() {
		return ""
	}
	return s.User.ID
}

// Expired reports whether the access token is past its expiry at now.
// Sessions without a known expiry never expire locally.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
