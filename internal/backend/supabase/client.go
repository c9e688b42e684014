// Package supabase talks to a hosted Supabase project: GoTrue for
// authentication and PostgREST for the todos table.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/authstate"
	"github.com/Makepad-fr/tada/internal/credstore"
)

const table = "todos"

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

type Client struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	hub     *authstate.Hub
	log     zerolog.Logger
	now     func() time.Time
}

var _ backend.Backend = (*Client)(nil)

// New builds a client. A missing URL or key is logged rather than fatal;
// every call then fails with backend.ErrNotConfigured.
func New(cfg Config, creds *credstore.Store, log zerolog.Logger) *Client {
	log = log.With().Str("backend", "supabase").Logger()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		anonKey: strings.TrimSpace(cfg.AnonKey),
		http:    &http.Client{Timeout: timeout},
		hub:     authstate.New(creds, log),
		log:     log,
		now:     time.Now,
	}
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			log.Error().Str("url", raw).Msg("invalid supabase url")
		} else {
			c.base = u
		}
	}
	if c.base == nil || c.anonKey == "" {
		log.Error().Msg("supabase url or anon key is not set")
	}
	return c
}

// Hub exposes the session hub, e.g. to watch for changes made by other
// processes.
func (c *Client) Hub() *authstate.Hub { return c.hub }

func (c *Client) configured() bool { return c.base != nil && c.anonKey != "" }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
	header http.Header
}

// do sends req and decodes a 2xx JSON body into out (if out is non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if !c.configured() {
		return backend.ErrNotConfigured
	}
	u := c.base.JoinPath(req.path)
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	hr.Header.Set("apikey", c.anonKey)
	bearer := req.bearer
	if bearer == "" {
		bearer = c.anonKey
	}
	hr.Header.Set("Authorization", "Bearer "+bearer)
	hr.Header.Set("Accept", "application/json")
	if body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Msg("supabase request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
