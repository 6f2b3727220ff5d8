package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sidselothcodes/ingestpipe/internal/application"
)

// QueueHandler handles queue status and administrative reset.
type QueueHandler struct {
	queueStatus *application.QueueStatusUseCase
	reset       *application.ResetUseCase
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(queueStatus *application.QueueStatusUseCase, reset *application.ResetUseCase) *QueueHandler {
	return &QueueHandler{queueStatus: queueStatus, reset: reset}
}

// RegisterRoutes registers queue routes.
func (h *QueueHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/queue/status", h.Status)
	e.DELETE("/reset", h.Reset)
}

type queueStatusResponse struct {
	BufferLength     int    `json:"buffer_length"`
	WorkerBufferSize int    `json:"worker_buffer_size"`
	BatchStartTime   string `json:"batch_start_time"`
}

// Status handles GET /queue/status.
func (h *QueueHandler) Status(c echo.Context) error {
	output, err := h.queueStatus.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}

	batchStartTime := ""
	if !output.BatchStartTime.IsZero() {
		batchStartTime = output.BatchStartTime.UTC().Format(time.RFC3339)
	}

	return c.JSON(http.StatusOK, queueStatusResponse{
		BufferLength:     output.BufferLength,
		WorkerBufferSize: output.WorkerBufferSize,
		BatchStartTime:   batchStartTime,
	})
}

type resetResponse struct {
	DeletedMessages int64 `json:"deleted_messages"`
	ClearedQueue    int   `json:"cleared_queue"`
}

// Reset handles DELETE /reset.
func (h *QueueHandler) Reset(c echo.Context) error {
	output, err := h.reset.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, resetResponse{
		DeletedMessages: output.DeletedMessages,
		ClearedQueue:    output.ClearedQueue,
	})
}
