package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for route registration.
type RouterConfig struct {
	Messages *MessagesHandler
	Queue    *QueueHandler
	Health   *HealthHandler
	Stats    *StatsHandler
	Buffer   domain.Buffer
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
}

// RegisterRoutes sets up all API routes on the server.
func RegisterRoutes(e *echo.Echo, config RouterConfig) {
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			config.Metrics.Registry,
			promhttp.HandlerOpts{
				Registry:          config.Metrics.Registry,
				EnableOpenMetrics: true,
			},
		)))

		e.Use(metrics.Middleware(config.Metrics))
	}

	if config.Health != nil {
		config.Health.RegisterRoutes(e)
	}

	if config.Messages != nil {
		config.Messages.RegisterRoutes(e)
	}

	if config.Queue != nil {
		config.Queue.RegisterRoutes(e)
	}

	if config.Stats != nil {
		config.Stats.RegisterRoutes(e)
	}

	metricsEnabled := config.Metrics != nil
	config.Logger.Info("api routes registered",
		"metrics_enabled", metricsEnabled,
		"routes", []string{
			"POST /messages",
			"GET /messages",
			"POST /simulate",
			"GET /queue/status",
			"DELETE /reset",
			"GET /ws/stats",
			"GET /health",
		},
	)
}
