package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
)

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Buffer      string `json:"buffer"`
	QueueLength int    `json:"queue_length"`
}

// HealthHandler reports buffer connectivity and queue length.
type HealthHandler struct {
	buffer domain.Buffer
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(buffer domain.Buffer) *HealthHandler {
	return &HealthHandler{buffer: buffer}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health handles GET /health.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	length, err := h.buffer.Len(ctx)
	if err != nil {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:      "degraded",
			Buffer:      "disconnected",
			QueueLength: 0,
		})
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Buffer:      "connected",
		QueueLength: length,
	})
}
