package todosync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

var errBoom = errors.New("boom")

func userSession(id string) model.Session {
	return model.PresentSession(model.User{ID: id, Email: id + "@example.com"}, "tok-"+id, "", nil)
}

func row(id int64, task, user string) model.Todo {
	return model.Todo{ID: id, Task: task, UserID: user, CreatedAt: time.Unix(id, 0)}
}

// step applies ev and fails the test unless exactly want effects come out.
func step(t *testing.T, s State, ev Event, want int) (State, []Effect) {
	t.Helper()
	s, effs := Transition(s, ev)
	require.Len(t, effs, want, "effects after %T", ev)
	return s, effs
}

// signedInWith gets a state to "signed in as user, items loaded".
func signedInWith(t *testing.T, user string, items ...model.Todo) State {
	t.Helper()
	s, effs := step(t, NewState(), SessionResolved{Session: userSession(user)}, 1)
	f := effs[0].(Fetch)
	s, _ = step(t, s, FetchDone{Rev: f.Rev, Items: items}, 0)
	require.False(t, s.Loading)
	return s
}

func TestTransition_PendingResolvesAbsent(t *testing.T) {
	s := NewState()
	assert.True(t, s.Loading)
	assert.Equal(t, model.SessionPending, s.Session.Phase)

	// pending session: the trigger must not fire
	s, _ = step(t, s, retrigger{}, 0)
	assert.True(t, s.Loading)

	s, _ = step(t, s, SessionResolved{Session: model.AbsentSession()}, 0)
	assert.Equal(t, model.SessionAbsent, s.Session.Phase)
	assert.Empty(t, s.Items)
	assert.False(t, s.Loading)
}

func TestTransition_SessionQueryErrorResolvesAbsent(t *testing.T) {
	s, _ := step(t, NewState(), SessionResolved{Err: errBoom}, 0)
	assert.Equal(t, model.SessionAbsent, s.Session.Phase)
	assert.False(t, s.Loading)
}

func TestTransition_SignInFetchesUserRows(t *testing.T) {
	s, _ := step(t, NewState(), SessionResolved{Session: model.AbsentSession()}, 0)

	s, effs := step(t, s, AuthChanged{Event: backend.EventSignedIn, Session: userSession("u1")}, 1)
	assert.True(t, s.Loading)
	f, ok := effs[0].(Fetch)
	require.True(t, ok)
	assert.Equal(t, "u1", f.UserID)

	s, _ = step(t, s, FetchDone{Rev: f.Rev, Items: []model.Todo{row(1, "a", "u1"), row(2, "b", "u2"), row(3, "c", "u1")}}, 0)
	assert.False(t, s.Loading)
	require.Len(t, s.Items, 2)
	for _, it := range s.Items {
		assert.Equal(t, "u1", it.UserID)
	}
}

func TestTransition_TriggerIsIdempotent(t *testing.T) {
	s, _ := step(t, NewState(), SessionResolved{Session: userSession("u1")}, 1)
	s, _ = step(t, s, retrigger{}, 0)
	s, _ = step(t, s, retrigger{}, 0)
	assert.True(t, s.Loading)
}

func TestTransition_StaleFetchIsDiscarded(t *testing.T) {
	s, effs := step(t, NewState(), SessionResolved{Session: userSession("u1")}, 1)
	first := effs[0].(Fetch)

	// user switches while u1's fetch is in flight: no duplicate fetch yet
	s, _ = step(t, s, AuthChanged{Event: backend.EventSignedIn, Session: userSession("u2")}, 0)
	assert.Empty(t, s.Items)

	// u1's answer comes back: not applied, re-fetch for u2 instead
	s, effs = step(t, s, FetchDone{Rev: first.Rev, Items: []model.Todo{row(1, "a", "u1")}}, 1)
	assert.Empty(t, s.Items)
	assert.True(t, s.Loading)
	second := effs[0].(Fetch)
	assert.Equal(t, "u2", second.UserID)
	assert.NotEqual(t, first.Rev, second.Rev)

	// a duplicate of the stale answer is ignored outright
	s, _ = step(t, s, FetchDone{Rev: first.Rev, Items: []model.Todo{row(1, "a", "u1")}}, 0)
	assert.True(t, s.Loading)

	s, _ = step(t, s, FetchDone{Rev: second.Rev, Items: []model.Todo{row(2, "b", "u2")}}, 0)
	assert.False(t, s.Loading)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "u2", s.Items[0].UserID)
}

func TestTransition_FetchErrorStillStopsLoading(t *testing.T) {
	s, effs := step(t, NewState(), SessionResolved{Session: userSession("u1")}, 1)
	s, _ = step(t, s, FetchDone{Rev: effs[0].(Fetch).Rev, Err: errBoom}, 0)
	assert.False(t, s.Loading)
	assert.Equal(t, MsgFetchFailed, s.Err)

	// the next attempt clears the slot
	s, _ = step(t, s, Refresh{}, 1)
	assert.Empty(t, s.Err)
}

func TestTransition_AddAppends(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "first", "u1"))
	s, _ = step(t, s, InputChanged{Text: "  Buy milk "}, 0)

	s, effs := step(t, s, AddRequested{}, 1)
	assert.True(t, s.Loading)
	ins := effs[0].(Insert)
	assert.Equal(t, "Buy milk", ins.Task)
	assert.Equal(t, "u1", ins.UserID)

	// controls are disabled while loading
	s, _ = step(t, s, AddRequested{}, 0)
	s, _ = step(t, s, DeleteRequested{ID: 1}, 0)
	s, _ = step(t, s, SignOutRequested{}, 0)

	s, _ = step(t, s, AddDone{Rev: ins.Rev, Todo: row(2, "Buy milk", "u1")}, 0)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Input)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "first", s.Items[0].Task)
	assert.Equal(t, "Buy milk", s.Items[1].Task)
	assert.Equal(t, "u1", s.Items[1].UserID)
}

func TestTransition_AddRejectedLocally(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "first", "u1"))
	for _, text := range []string{"", "   ", "\t\n"} {
		s, _ = step(t, s, InputChanged{Text: text}, 0)
		s, _ = step(t, s, AddRequested{}, 0)
		assert.Len(t, s.Items, 1)
		assert.Empty(t, s.Err)
		assert.False(t, s.Loading)
	}

	absent, _ := step(t, NewState(), SessionResolved{Session: model.AbsentSession()}, 0)
	absent, _ = step(t, absent, InputChanged{Text: "Buy milk"}, 0)
	absent, _ = step(t, absent, AddRequested{}, 0)
	assert.Empty(t, absent.Err)
}

func TestTransition_AddFailureKeepsItems(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "first", "u1"))
	s, _ = step(t, s, InputChanged{Text: "Buy milk"}, 0)
	s, effs := step(t, s, AddRequested{}, 1)
	s, _ = step(t, s, AddDone{Rev: effs[0].(Insert).Rev, Err: errBoom}, 0)

	assert.False(t, s.Loading)
	assert.Equal(t, MsgAddFailed, s.Err)
	assert.Equal(t, "Buy milk", s.Input)
	require.Len(t, s.Items, 1)
}

func TestTransition_AddResultNotOwnedIsDropped(t *testing.T) {
	s := signedInWith(t, "u1")
	s, _ = step(t, s, InputChanged{Text: "x"}, 0)
	s, effs := step(t, s, AddRequested{}, 1)
	s, _ = step(t, s, AddDone{Rev: effs[0].(Insert).Rev, Todo: row(9, "x", "u2")}, 0)
	assert.Empty(t, s.Items)
}

func TestTransition_DeleteRemovesOnlyThatItem(t *testing.T) {
	items := []model.Todo{row(1, "a", "u1"), row(2, "b", "u1"), row(3, "c", "u1")}
	for _, target := range []int64{1, 2, 3} {
		s := signedInWith(t, "u1", items...)
		s, effs := step(t, s, DeleteRequested{ID: target}, 1)
		del := effs[0].(Delete)
		assert.Equal(t, target, del.ID)
		assert.Equal(t, "u1", del.UserID)

		s, _ = step(t, s, DeleteDone{Rev: del.Rev, ID: target}, 0)
		assert.False(t, s.Loading)
		require.Len(t, s.Items, 2)
		for _, it := range s.Items {
			assert.NotEqual(t, target, it.ID)
		}
	}
}

func TestTransition_DeleteFailureKeepsItems(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "a", "u1"))
	s, effs := step(t, s, DeleteRequested{ID: 1}, 1)
	s, _ = step(t, s, DeleteDone{Rev: effs[0].(Delete).Rev, ID: 1, Err: errBoom}, 0)
	assert.Equal(t, MsgDeleteFailed, s.Err)
	assert.Len(t, s.Items, 1)
	assert.False(t, s.Loading)
}

func TestTransition_SignOutClearsList(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "a", "u1"))
	s, _ = step(t, s, InputChanged{Text: "draft"}, 0)

	s, effs := step(t, s, SignOutRequested{}, 1)
	assert.IsType(t, SignOut{}, effs[0])
	assert.True(t, s.Loading)

	// the backend's own notification usually lands before the result
	s, _ = step(t, s, AuthChanged{Event: backend.EventSignedOut, Session: model.AbsentSession()}, 0)
	assert.Empty(t, s.Items)

	s, _ = step(t, s, SignOutDone{}, 0)
	assert.Equal(t, model.SessionAbsent, s.Session.Phase)
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Input)
	assert.False(t, s.Loading)
}

func TestTransition_SignOutWithoutNotification(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "a", "u1"))
	s, _ = step(t, s, SignOutRequested{}, 1)
	s, _ = step(t, s, SignOutDone{}, 0)
	assert.Equal(t, model.SessionAbsent, s.Session.Phase)
	assert.Empty(t, s.Items)
	assert.False(t, s.Loading)
}

func TestTransition_SignOutFailure(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "a", "u1"))
	s, _ = step(t, s, InputChanged{Text: "draft"}, 0)
	s, _ = step(t, s, SignOutRequested{}, 1)
	s, _ = step(t, s, SignOutDone{Err: errBoom}, 0)

	assert.True(t, s.Session.Present())
	assert.Equal(t, MsgSignOutFailed, s.Err)
	assert.Len(t, s.Items, 1)
	assert.Empty(t, s.Input)
	assert.False(t, s.Loading)
}

func TestTransition_SessionChangeDuringOperation(t *testing.T) {
	s := signedInWith(t, "u1", row(1, "a", "u1"))
	s, _ = step(t, s, InputChanged{Text: "b"}, 0)
	s, effs := step(t, s, AddRequested{}, 1)
	ins := effs[0].(Insert)

	// token refresh while the insert runs: re-fetch waits for the insert
	s, _ = step(t, s, AuthChanged{Event: backend.EventTokenRefreshed, Session: userSession("u1")}, 0)

	s, effs = step(t, s, AddDone{Rev: ins.Rev, Todo: row(2, "b", "u1")}, 1)
	assert.True(t, s.Loading)
	f := effs[0].(Fetch)
	s, _ = step(t, s, FetchDone{Rev: f.Rev, Items: []model.Todo{row(1, "a", "u1"), row(2, "b", "u1")}}, 0)
	assert.False(t, s.Loading)
	assert.Len(t, s.Items, 2)
}

// The list is non-empty only while the latest session is present.
func TestTransition_ListEmptyWheneverAbsent(t *testing.T) {
	events := []AuthChanged{
		{backend.EventSignedIn, userSession("u1")},
		{backend.EventSignedOut, model.AbsentSession()},
		{backend.EventSignedIn, userSession("u2")},
		{backend.EventTokenRefreshed, userSession("u2")},
		{backend.EventSignedOut, model.AbsentSession()},
		{backend.EventSignedOut, model.AbsentSession()},
		{backend.EventSignedIn, userSession("u1")},
	}
	s, _ := step(t, NewState(), SessionResolved{Session: model.AbsentSession()}, 0)
	for _, ev := range events {
		var effs []Effect
		s, effs = Transition(s, ev)
		if !ev.Session.Present() {
			assert.Empty(t, s.Items)
		}
		for _, eff := range effs {
			f := eff.(Fetch)
			s, _ = Transition(s, FetchDone{Rev: f.Rev, Items: []model.Todo{row(1, "x", f.UserID)}})
		}
		if s.Session.Present() {
			assert.NotEmpty(t, s.Items)
		} else {
			assert.Empty(t, s.Items)
		}
	}
}

func TestTransition_InitialAnswerAfterNotification(t *testing.T) {
	s, _ := step(t, NewState(), AuthChanged{Event: backend.EventSignedIn, Session: userSession("u1")}, 1)
	s, _ = step(t, s, SessionResolved{Session: model.AbsentSession()}, 0)
	assert.True(t, s.Session.Present())
}
