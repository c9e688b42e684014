// Package api exposes the todo rows over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/config"
)

type Handler struct {
	logger zerolog.Logger
	todos  backend.Todos
}

func NewHandler(logger zerolog.Logger, todos backend.Todos) *Handler {
	return &Handler{logger: logger, todos: todos}
}

// NewRouter builds the gin engine. Non-local envs run gin in release mode.
func NewRouter(env string, h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	if env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.accessLog)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/api/todos", h.HandleGetTodos)
	return router
}

// HandleGetTodos returns every row the backend lets the server see, in
// creation order. ?user_id= narrows it to one owner.
func (h *Handler) HandleGetTodos(c *gin.Context) {
	rows, err := h.todos.ListTodos(c.Request.Context(), backend.ListQuery{UserID: c.Query("user_id")})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch todos")
		abort(c, newInternalError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Info().
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Msg("http request")
}
