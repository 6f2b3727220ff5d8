package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/broadcaster"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// SessionMetrics abstracts the observer-session and queue-depth gauges
// for the broadcaster.
type SessionMetrics interface {
	IncObserverSessions(delta float64)
	SetQueueDepth(depth int)
}

// StatsHandler upgrades connections to the Telemetry Broadcaster's
// /ws/stats full-duplex channel.
type StatsHandler struct {
	baseCtx    context.Context
	buffer     domain.Buffer
	counter    domain.CounterStore
	subscriber domain.Subscriber
	batchSize  int
	interval   time.Duration
	logger     *logging.Logger
	upgrader   websocket.Upgrader
	metrics    SessionMetrics
}

// NewStatsHandler creates a new StatsHandler. baseCtx should outlive any
// single HTTP request — it governs session lifetime, not the per-request
// context, which Echo cancels the moment the handler returns.
func NewStatsHandler(
	baseCtx context.Context,
	buffer domain.Buffer,
	counter domain.CounterStore,
	subscriber domain.Subscriber,
	batchSize int,
	interval time.Duration,
	logger *logging.Logger,
) *StatsHandler {
	return &StatsHandler{
		baseCtx:    baseCtx,
		buffer:     buffer,
		counter:    counter,
		subscriber: subscriber,
		batchSize:  batchSize,
		interval:   interval,
		logger:     logger.WithComponent("stats_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// dashboards may be served from a different origin than the api
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WithMetrics attaches the observer-session gauge.
func (h *StatsHandler) WithMetrics(m SessionMetrics) *StatsHandler {
	h.metrics = m
	return h
}

// RegisterRoutes registers the websocket route.
func (h *StatsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/stats", h.Stats)
}

// Stats handles GET /ws/stats, upgrading to a full-duplex connection and
// running one broadcaster.Session for its lifetime.
func (h *StatsHandler) Stats(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err.Error())
		return nil
	}

	// subscribe before the first stats frame so no publication is missed
	// during the hand-off.
	sub, err := h.subscriber.Subscribe(context.Background())
	if err != nil {
		h.logger.Error("subscription failed", "error", err.Error())
		_ = conn.Close()
		return nil
	}

	sessionID := uuid.New().String()
	session := broadcaster.NewSession(
		sessionID,
		conn,
		h.buffer,
		h.counter,
		sub,
		h.batchSize,
		h.interval,
		h.logger,
	)

	if h.metrics != nil {
		h.metrics.IncObserverSessions(1)
		session.WithMetrics(h.metrics)
	}

	go func() {
		session.Run(h.baseCtx)
		if h.metrics != nil {
			h.metrics.IncObserverSessions(-1)
		}
	}()

	return nil
}
