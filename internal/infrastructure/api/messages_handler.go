package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sidselothcodes/ingestpipe/internal/application"
)

// MessagesHandler handles message ingestion, simulation, and retrieval.
type MessagesHandler struct {
	ingest   *application.IngestUseCase
	simulate *application.SimulateUseCase
	retrieve *application.RetrieveUseCase
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(
	ingest *application.IngestUseCase,
	simulate *application.SimulateUseCase,
	retrieve *application.RetrieveUseCase,
) *MessagesHandler {
	return &MessagesHandler{
		ingest:   ingest,
		simulate: simulate,
		retrieve: retrieve,
	}
}

// RegisterRoutes registers message routes.
func (h *MessagesHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/messages", h.Enqueue)
	e.GET("/messages", h.Retrieve)
	e.POST("/simulate", h.Simulate)
}

// enqueueRequest is the POST /messages body.
type enqueueRequest struct {
	UserID    int64      `json:"user_id"`
	ChannelID int64      `json:"channel_id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type enqueueResponse struct {
	TrackingID string    `json:"tracking_id"`
	QueuedAt   time.Time `json:"queued_at"`
}

// Enqueue handles POST /messages.
func (h *MessagesHandler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := h.ingest.Execute(c.Request().Context(), application.IngestInput{
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		Content:   req.Content,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusAccepted, enqueueResponse{
		TrackingID: output.TrackingID,
		QueuedAt:   output.QueuedAt,
	})
}

type simulateRequest struct {
	Count int `json:"count"`
}

type simulateResponse struct {
	TrackingIDs             []string `json:"tracking_ids"`
	Count                   int      `json:"count"`
	ExpectedCompleteBatches int      `json:"expected_complete_batches"`
	ExpectedRemainingQueued int      `json:"expected_remaining_queued"`
}

// Simulate handles POST /simulate.
func (h *MessagesHandler) Simulate(c echo.Context) error {
	var req simulateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := h.simulate.Execute(c.Request().Context(), application.SimulateInput{Count: req.Count})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusAccepted, simulateResponse{
		TrackingIDs:             output.TrackingIDs,
		Count:                   output.Count,
		ExpectedCompleteBatches: output.ExpectedCompleteBatches,
		ExpectedRemainingQueued: output.ExpectedRemainingQueued,
	})
}

type persistedRowResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ChannelID  int64     `json:"channel_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Retrieve handles GET /messages?limit=N.
func (h *MessagesHandler) Retrieve(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}

	rows, err := h.retrieve.Execute(c.Request().Context(), application.RetrieveInput{Limit: limit})
	if err != nil {
		return mapDomainError(err)
	}

	resp := make([]persistedRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = persistedRowResponse{
			ID:         row.ID,
			UserID:     int64(row.UserID),
			ChannelID:  int64(row.ChannelID),
			Content:    row.Content,
			CreatedAt:  row.CreatedAt,
			InsertedAt: row.InsertedAt,
		}
	}

	return c.JSON(http.StatusOK, resp)
}
