package backend

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Makepad-fr/tada/internal/model"
)

// Metrics counts backend calls by operation and outcome.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the backend collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tada",
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Backend calls by operation and outcome",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tada",
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Backend call latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrument wraps b so every call is recorded in m.
func Instrument(b Backend, m *Metrics) Backend {
	return &instrumented{next: b, m: m}
}

type instrumented struct {
	next Backend
	m    *Metrics
}

func (i *instrumented) GetSession(ctx context.Context) (s model.Session, err error) {
	defer func(start time.Time) { i.m.observe("get_session", start, err) }(time.Now())
	return i.next.GetSession(ctx)
}

func (i *instrumented) OnAuthStateChange(fn AuthListener) Subscription {
	return i.next.OnAuthStateChange(fn)
}

func (i *instrumented) SignUp(ctx context.Context, email, password string) (err error) {
	defer func(start time.Time) { i.m.observe("sign_up", start, err) }(time.Now())
	return i.next.SignUp(ctx, email, password)
}

func (i *instrumented) SignInWithPassword(ctx context.Context, email, password string) (err error) {
	defer func(start time.Time) { i.m.observe("sign_in", start, err) }(time.Now())
	return i.next.SignInWithPassword(ctx, email, password)
}

func (i *instrumented) SignOut(ctx context.Context) (err error) {
	defer func(start time.Time) { i.m.observe("sign_out", start, err) }(time.Now())
	return i.next.SignOut(ctx)
}

func (i *instrumented) ListTodos(ctx context.Context, q ListQuery) (rows []model.Todo, err error) {
	defer func(start time.Time) { i.m.observe("list_todos", start, err) }(time.Now())
	return i.next.ListTodos(ctx, q)
}

func (i *instrumented) InsertTodo(ctx context.Context, task, userID string) (row model.Todo, err error) {
	defer func(start time.Time) { i.m.observe("insert_todo", start, err) }(time.Now())
	return i.next.InsertTodo(ctx, task, userID)
}

func (i *instrumented) DeleteTodo(ctx context.Context, id int64, userID string) (err error) {
	defer func(start time.Time) { i.m.observe("delete_todo", start, err) }(time.Now())
	return i.next.DeleteTodo(ctx, id, userID)
}
