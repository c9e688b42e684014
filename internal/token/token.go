// Package token decodes and issues the JWT access tokens carried by sessions.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Makepad-fr/tada/internal/model"
)

var ErrMalformed = errors.New("malformed token")

// Claims is the subset of GoTrue access-token claims tada reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// StripBearer removes a leading "Bearer " prefix, case-insensitively.
func StripBearer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// Decode parses claims without verifying the signature. The backend is the
// one that verifies; tada only needs to know who the token is for.
func Decode(raw string) (*Claims, error) {
	raw = StripBearer(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, ErrMalformed
	}
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &c, nil
}

// SessionFrom builds a present session from an access token alone.
func SessionFrom(raw string) (model.Session, error) {
	c, err := Decode(raw)
	if err != nil {
		return model.Session{}, err
	}
	if c.Subject == "" {
		return model.Session{}, fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	var exp *time.Time
	if c.ExpiresAt != nil {
		t := c.ExpiresAt.Time
		exp = &t
	}
	return model.PresentSession(model.User{ID: c.Subject, Email: c.Email}, StripBearer(raw), "", exp), nil
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user plus its expiry.
func (i *Issuer) Issue(user model.User) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	c := Claims{
		Email: user.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and expiry.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(StripBearer(raw), &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
