// Package local is an offline stand-in for the hosted service. It keeps users
// and todos in SQLite, hashes passwords with bcrypt, issues HS256 access
// tokens, and restricts every row operation to the token's user the way the
// hosted row-level security policy does.
package local

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/authstate"
	"github.com/Makepad-fr/tada/internal/credstore"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/token"
)

const (
	tokenIssuer = "tada-local"
	tokenTTL    = 24 * time.Hour

	// fixed width so text order in SQLite is time order
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Config struct {
	Path string
	// Secret signs access tokens. Empty means a random secret kept in the db.
	Secret string
}

type Backend struct {
	db     *sql.DB
	hub    *authstate.Hub
	tokens *token.Issuer
	log    zerolog.Logger
	now    func() time.Time
}

var _ backend.Backend = (*Backend)(nil)

func Open(cfg Config, creds *credstore.Store, log zerolog.Logger) (*Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("local db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps the single-writer file simple
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	log = log.With().Str("backend", "local").Logger()
	b := &Backend{db: db, hub: authstate.New(creds, log), log: log, now: time.Now}
	if err := b.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	secret, err := b.signingSecret(cfg.Secret)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	b.tokens = token.NewIssuer(secret, tokenIssuer, tokenTTL)
	return b, nil
}

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Hub() *authstate.Hub { return b.hub }

func (b *Backend) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todos (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		task         TEXT NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, created_at);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *Backend) signingSecret(configured string) ([]byte, error) {
	if s := strings.TrimSpace(configured); s != "" {
		return []byte(s), nil
	}
	var stored string
	err := b.db.QueryRow(`SELECT value FROM meta WHERE key = 'jwt_secret'`).Scan(&stored)
	if err == nil {
		return []byte(stored), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read jwt secret: %w", err)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	stored = hex.EncodeToString(buf)
	if _, err := b.db.Exec(`INSERT INTO meta (key, value) VALUES ('jwt_secret', ?)`, stored); err != nil {
		return nil, fmt.Errorf("store jwt secret: %w", err)
	}
	return []byte(stored), nil
}

// authorize resolves the caller from the current session's token. Anonymous
// callers get "" and see no rows.
func (b *Backend) authorize() (string, error) {
	sess, err := b.hub.Stored()
	if err != nil {
		return "", err
	}
	if !sess.Present() {
		return "", nil
	}
	claims, err := b.tokens.Verify(sess.AccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", backend.ErrNotSignedIn, err)
	}
	return claims.Subject, nil
}

// ---------------------------------------------------
// Auth
// ---------------------------------------------------

func (b *Backend) GetSession(ctx context.Context) (model.Session, error) {
	sess, err := b.hub.Stored()
	if err != nil {
		return model.AbsentSession(), fmt.Errorf("get session: %w", err)
	}
	if !sess.Present() {
		return sess, nil
	}
	if _, err := b.tokens.Verify(sess.AccessToken); err != nil {
		b.log.Info().Err(err).Msg("stored session is no longer valid")
		b.hub.Clear()
		return model.AbsentSession(), nil
	}
	return sess, nil
}

func (b *Backend) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	return b.hub.Subscribe(fn)
}

// SignUp registers and signs the user in, like a project with email
// auto-confirm enabled.
func (b *Backend) SignUp(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("sign up: %w", backend.ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := model.User{ID: uuid.NewString(), Email: email}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, string(hash), b.now().UTC().Format(timeLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("sign up: %w", backend.ErrUserExists)
		}
		return fmt.Errorf("sign up: %w", err)
	}
	return b.startSession(user)
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		user model.User
		hash string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sign in: %w", backend.ErrInvalidCredentials)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("sign in: %w", backend.ErrInvalidCredentials)
	}
	return b.startSession(user)
}

func (b *Backend) startSession(user model.User) error {
	raw, exp, err := b.tokens.Issue(user)
	if err != nil {
		return err
	}
	b.hub.Set(backend.EventSignedIn, model.PresentSession(user, raw, "", &exp))
	return nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	b.hub.Clear()
	return nil
}

// ---------------------------------------------------
// Todos
// ---------------------------------------------------

func (b *Backend) ListTodos(ctx context.Context, q backend.ListQuery) ([]model.Todo, error) {
	caller, err := b.authorize()
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	out := []model.Todo{}
	if caller == "" || (q.UserID != "" && q.UserID != caller) {
		return out, nil
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, task, is_completed, user_id, created_at FROM todos
		 WHERE user_id = ? ORDER BY created_at ASC, id ASC`, caller)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("list todos: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return out, nil
}

func (b *Backend) InsertTodo(ctx context.Context, task, userID string) (model.Todo, error) {
	caller, err := b.authorize()
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	if caller == "" || caller != userID {
		return model.Todo{}, fmt.Errorf("insert todo: %w", backend.ErrNotSignedIn)
	}
	created := b.now().UTC()
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO todos (task, user_id, created_at) VALUES (?, ?, ?)`,
		task, userID, created.Format(timeLayout))
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return model.Todo{ID: id, Task: task, UserID: userID, CreatedAt: created}, nil
}

// DeleteTodo deletes nothing, without error, when the row is not the
// caller's, matching what a row-level security policy does.
func (b *Backend) DeleteTodo(ctx context.Context, id int64, userID string) error {
	caller, err := b.authorize()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if caller == "" || caller != userID {
		return nil
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (model.Todo, error) {
	var (
		t       model.Todo
		done    int
		created string
	)
	if err := s.Scan(&t.ID, &t.Task, &done, &t.UserID, &created); err != nil {
		return model.Todo{}, err
	}
	t.IsCompleted = done != 0
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		// rows written before the fixed-width layout
		ts, err = time.Parse(time.RFC3339Nano, created)
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("parse created_at: %w", err)
	}
	t.CreatedAt = ts
	return t, nil
}
