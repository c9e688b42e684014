// Package credstore persists the signed-in session between tada runs.
package credstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/token"
)

const (
	FileName = "credentials.json"
	EnvToken = "TADA_TOKEN"

	SourceEnv  = "env"
	SourceFile = "file"
)

type Credentials struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	User         model.User `json:"user"`
	Source       string     `json:"source"`     // "env" | "file"
	CreatedAt    time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt    *time.Time `json:"expires_at"` // optional (JWT or server-provided)
}

// Session turns stored credentials back into a present session.
func (c Credentials) Session() model.Session {
	return model.PresentSession(c.User, c.Token, c.RefreshToken, c.ExpiresAt)
}

type Store struct {
	file     jsonstore.File
	envToken string
}

// New stores credentials under dir. envToken, when non-empty, overrides the
// file and makes the store read-only.
func New(dir, envToken string) *Store {
	return &Store{
		file:     jsonstore.New(filepath.Join(dir, FileName), 0o600),
		envToken: strings.TrimSpace(envToken),
	}
}

func (s *Store) Path() string { return s.file.Path }

// FromEnv reports whether credentials come from TADA_TOKEN.
func (s *Store) FromEnv() bool { return s.envToken != "" }

// Load returns nil, nil when nobody is signed in.
func (s *Store) Load() (*Credentials, error) {
	// 1) env override
	if s.envToken != "" {
		sess, err := token.SessionFrom(s.envToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvToken, err)
		}
		return &Credentials{
			Token:     sess.AccessToken,
			User:      sess.User,
			Source:    SourceEnv,
			ExpiresAt: sess.ExpiresAt,
		}, nil
	}

	// 2) file
	var c Credentials
	found, err := s.file.Load(&c)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if !found || strings.TrimSpace(c.Token) == "" {
		return nil, nil // not logged in
	}
	c.Token = token.StripBearer(c.Token)
	return &c, nil
}

func (s *Store) Save(sess model.Session) error {
	if s.envToken != "" {
		return nil
	}
	if !sess.Present() || strings.TrimSpace(sess.AccessToken) == "" {
		return fmt.Errorf("empty token")
	}
	c := Credentials{
		Token:        token.StripBearer(sess.AccessToken),
		RefreshToken: sess.RefreshToken,
		User:         sess.User,
		Source:       SourceFile,
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    sess.ExpiresAt,
	}
	if err := s.file.Save(c); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) Delete() error {
	if s.envToken != "" {
		return nil
	}
	return s.file.Remove()
}

// Watch calls onChange whenever the credentials file is written or removed,
// for example by `tada auth signin` in another terminal. It blocks until ctx
// is done. The parent directory is watched because Save replaces the file.
func (s *Store) Watch(ctx context.Context, log zerolog.Logger, onChange func()) error {
	if s.envToken != "" {
		<-ctx.Done()
		return nil
	}
	dir := filepath.Dir(s.file.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != FileName {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				log.Debug().Str("op", ev.Op.String()).Msg("credentials file changed")
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("credentials watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
