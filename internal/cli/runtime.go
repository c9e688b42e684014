package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/authstate"
	"github.com/Makepad-fr/tada/internal/backend/local"
	"github.com/Makepad-fr/tada/internal/backend/supabase"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/credstore"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/todosync"
)

// runtime is what a command needs once config has been read: the logger,
// the instrumented backend and the session hub behind it.
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	creds    *credstore.Store
	backend  backend.Backend
	hub      *authstate.Hub
	registry *prometheus.Registry

	closers []func() error
}

type startOptions struct {
	// logToFile sends the log to the TUI log file instead of stderr.
	logToFile bool
	stderr    io.Writer
}

func start(opt startOptions) (*runtime, error) {
	boot := logging.Default()
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		boot.Error().
			Err(err).
			Msg("failed to read env")
		return nil, err
	}

	rt := &runtime{cfg: cfg, registry: prometheus.NewRegistry()}

	var out io.Writer = opt.stderr
	if opt.logToFile || cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.TUILogPath())
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, f.Close)
		out = f
	}
	rt.log, err = logging.New(cfg.Env, cfg.Log.Level, out)
	if err != nil {
		rt.close()
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingCredentials) {
			rt.close()
			return nil, err
		}
		// requests fail with backend.ErrNotConfigured from here on
		rt.log.Error().Err(err).Msg("backend is not configured")
	}

	rt.creds = credstore.New(cfg.Home, cfg.Token)

	var raw backend.Backend
	switch cfg.Backend {
	case config.BackendLocal:
		b, err := local.Open(local.Config{Path: cfg.Local.DB, Secret: cfg.Local.JWTSecret}, rt.creds, rt.log)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.closers = append(rt.closers, b.Close)
		raw, rt.hub = b, b.Hub()
	default:
		c := supabase.New(supabase.Config{
			URL:     cfg.Supabase.URL,
			AnonKey: cfg.Supabase.AnonKey,
			Timeout: cfg.Supabase.Timeout,
		}, rt.creds, rt.log)
		raw, rt.hub = c, c.Hub()
	}
	rt.backend = backend.Instrument(raw, backend.NewMetrics(rt.registry))

	rt.log.Debug().
		Str("env", cfg.Env).
		Str("backend", cfg.Backend).
		Msg("started")
	return rt, nil
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
	rt.closers = nil
}

// watch forwards credential changes made by other tada processes until ctx
// is done.
func (rt *runtime) watch(ctx context.Context) {
	go func() {
		if err := rt.hub.Watch(ctx); err != nil {
			rt.log.Warn().Err(err).Msg("credentials watch stopped")
		}
	}()
}

// synced runs one synchronization round outside the TUI and returns the
// driver holding the result.
func (rt *runtime) synced(ctx context.Context) *todosync.Driver {
	store := session.New(rt.backend, rt.log)
	d := todosync.NewDriver(ctx, todosync.Executor{Todos: rt.backend, Auth: store, Log: rt.log})
	d.Observe(func(s todosync.State) {
		rt.log.Debug().
			Str("phase", s.Session.Phase.String()).
			Bool("loading", s.Loading).
			Int("items", len(s.Items)).
			Str("error", s.Err).
			Msg("sync state")
	})
	d.Attach(store.Subscribe(d.Dispatch))
	d.Dispatch(store.GetInitialSession(ctx))
	return d
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
