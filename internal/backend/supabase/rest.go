package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

type insertRow struct {
	Task   string `json:"task"`
	UserID string `json:"user_id"`
}

// refreshMargin is how close to expiry an access token is renewed before use.
const refreshMargin = 30 * time.Second

// authed sends a PostgREST request as the signed-in user, or with the anon
// key when nobody is. A token about to expire is renewed first; a 401 renews
// once and resends.
func (c *Client) authed(ctx context.Context, req request, out any) error {
	sess, err := c.hub.Stored()
	if err != nil || !sess.Present() {
		return c.do(ctx, req, out)
	}
	if sess.RefreshToken != "" && sess.Expired(c.now().Add(refreshMargin)) {
		fresh, err := c.renew(ctx, sess)
		if err != nil {
			c.log.Warn().Err(err).Msg("token renewal failed, using current token")
		} else {
			sess = fresh
		}
	}
	req.bearer = sess.AccessToken
	err = c.do(ctx, req, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || sess.RefreshToken == "" {
		return err
	}
	fresh, rerr := c.renew(ctx, sess)
	if rerr != nil || !fresh.Present() {
		return err
	}
	req.bearer = fresh.AccessToken
	return c.do(ctx, req, out)
}

func (c *Client) ListTodos(ctx context.Context, q backend.ListQuery) ([]model.Todo, error) {
	query := url.Values{
		"select": {"*"},
		"order":  {"created_at.asc"},
	}
	if q.UserID != "" {
		query.Set("user_id", "eq."+q.UserID)
	}
	var rows []model.Todo
	err := c.authed(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + table,
		query:  query,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if rows == nil {
		rows = []model.Todo{}
	}
	return rows, nil
}

func (c *Client) InsertTodo(ctx context.Context, task, userID string) (model.Todo, error) {
	var rows []model.Todo
	err := c.authed(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		body:   []insertRow{{Task: task, UserID: userID}},
		header: http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	if len(rows) == 0 {
		return model.Todo{}, fmt.Errorf("insert todo: %w", backend.ErrNotFound)
	}
	return rows[0], nil
}

func (c *Client) DeleteTodo(ctx context.Context, id int64, userID string) error {
	err := c.authed(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + table,
		query: url.Values{
			"id":      {"eq." + strconv.FormatInt(id, 10)},
			"user_id": {"eq." + userID},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}
