// Package backendtest provides an in-memory backend.Backend for tests.
package backendtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

var ErrInjected = errors.New("injected failure")

// Fake stores rows in memory and enforces ownership like the hosted policy.
// Set the Fail* fields to make the next calls of that kind fail.
type Fake struct {
	mu        sync.Mutex
	session   model.Session
	users     map[string]string // email -> password
	rows      []model.Todo
	nextID    int64
	clock     time.Time
	listeners map[int]backend.AuthListener
	nextSub   int

	FailGetSession bool
	FailList       bool
	FailInsert     bool
	FailDelete     bool
	FailSignOut    bool
	FailSignIn     bool

	Calls map[string]int
}

var _ backend.Backend = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		session:   model.AbsentSession(),
		users:     map[string]string{},
		nextID:    1,
		clock:     time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		listeners: map[int]backend.AuthListener{},
		Calls:     map[string]int{},
	}
}

// AddUser registers credentials without signing in.
func (f *Fake) AddUser(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = password
}

// Seed inserts a row directly, bypassing ownership checks.
func (f *Fake) Seed(task, userID string) model.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(task, userID)
}

func (f *Fake) insertLocked(task, userID string) model.Todo {
	f.clock = f.clock.Add(time.Minute)
	row := model.Todo{ID: f.nextID, Task: task, UserID: userID, CreatedAt: f.clock}
	f.nextID++
	f.rows = append(f.rows, row)
	return row
}

// Rows returns every stored row regardless of owner.
func (f *Fake) Rows() []model.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Todo(nil), f.rows...)
}

func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// UserFor is the id the fake assigns to email.
func UserFor(email string) model.User {
	return model.User{ID: "user-" + email, Email: email}
}

// Emit sets the session and notifies listeners, as the hosted service does
// on any auth change.
func (f *Fake) Emit(ev backend.AuthEvent, sess model.Session) {
	f.mu.Lock()
	f.session = sess
	ls := make([]backend.AuthListener, 0, len(f.listeners))
	for i := 0; i < f.nextSub; i++ {
		if fn, ok := f.listeners[i]; ok {
			ls = append(ls, fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range ls {
		fn(ev, sess)
	}
}

func (f *Fake) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *Fake) count(op string) {
	f.mu.Lock()
	f.Calls[op]++
	f.mu.Unlock()
}

func (f *Fake) GetSession(ctx context.Context) (model.Session, error) {
	f.count("get_session")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailGetSession {
		return model.AbsentSession(), ErrInjected
	}
	return f.session, nil
}

func (f *Fake) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.listeners[id] = fn
	return subscription{f: f, id: id}
}

type subscription struct {
	f  *Fake
	id int
}

func (s subscription) Unsubscribe() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.Calls["unsubscribe"]++
	delete(s.f.listeners, s.id)
}

func (f *Fake) SignUp(ctx context.Context, email, password string) error {
	f.count("sign_up")
	f.mu.Lock()
	if _, ok := f.users[email]; ok {
		f.mu.Unlock()
		return backend.ErrUserExists
	}
	f.users[email] = password
	f.mu.Unlock()
	return nil
}

func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) error {
	f.count("sign_in")
	f.mu.Lock()
	pw, ok := f.users[email]
	fail := f.FailSignIn
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	if !ok || pw != password {
		return backend.ErrInvalidCredentials
	}
	user := UserFor(email)
	f.Emit(backend.EventSignedIn, model.PresentSession(user, "token-"+user.ID, "", nil))
	return nil
}

func (f *Fake) SignOut(ctx context.Context) error {
	f.count("sign_out")
	f.mu.Lock()
	fail := f.FailSignOut
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	f.Emit(backend.EventSignedOut, model.AbsentSession())
	return nil
}

func (f *Fake) caller() string {
	return f.session.UserID()
}

func (f *Fake) ListTodos(ctx context.Context, q backend.ListQuery) ([]model.Todo, error) {
	f.count("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailList {
		return nil, ErrInjected
	}
	out := []model.Todo{}
	for _, r := range f.rows {
		if r.UserID != f.caller() {
			continue
		}
		if q.UserID != "" && r.UserID != q.UserID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *Fake) InsertTodo(ctx context.Context, task, userID string) (model.Todo, error) {
	f.count("insert")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailInsert {
		return model.Todo{}, ErrInjected
	}
	if userID == "" || userID != f.caller() {
		return model.Todo{}, backend.ErrNotSignedIn
	}
	return f.insertLocked(task, userID), nil
}

func (f *Fake) DeleteTodo(ctx context.Context, id int64, userID string) error {
	f.count("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete {
		return ErrInjected
	}
	if userID != f.caller() {
		return nil
	}
	out := f.rows[:0]
	for _, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			continue
		}
		out = append(out, r)
	}
	f.rows = out
	return nil
}
