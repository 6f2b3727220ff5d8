package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// IngestInput contains the data needed to enqueue a single message.
type IngestInput struct {
	UserID    int64
	ChannelID int64
	Content   string
	CreatedAt *time.Time
}

// IngestOutput is returned to the producer on acceptance.
type IngestOutput struct {
	TrackingID string
	QueuedAt   time.Time
}

// IngestMetrics abstracts the ingested-message counter so the use case
// stays decoupled from the metrics package.
type IngestMetrics interface {
	RecordMessagesIngested(n int)
}

// IngestUseCase appends one message to the buffer.
type IngestUseCase struct {
	buffer  domain.Buffer
	logger  *logging.Logger
	metrics IngestMetrics
}

// NewIngestUseCase creates a new IngestUseCase.
func NewIngestUseCase(buffer domain.Buffer, logger *logging.Logger) *IngestUseCase {
	return &IngestUseCase{
		buffer: buffer,
		logger: logger.WithComponent("ingest"),
	}
}

// WithMetrics attaches the ingested-message counter.
func (uc *IngestUseCase) WithMetrics(m IngestMetrics) *IngestUseCase {
	uc.metrics = m
	return uc
}

// Execute validates and enqueues one message.
func (uc *IngestUseCase) Execute(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	userID, err := domain.NewUserID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	channelID, err := domain.NewChannelID(input.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	msg, err := domain.NewMessage(userID, channelID, input.Content, input.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	record, err := msg.EncodeBufferRecord()
	if err != nil {
		return nil, fmt.Errorf("%w: encoding message: %v", domain.ErrInvalidPayload, err)
	}

	if err := uc.buffer.Append(ctx, record); err != nil {
		uc.logger.Error("enqueue failed",
			"tracking_id", msg.TrackingID().String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	uc.logger.Debug("message enqueued",
		"tracking_id", msg.TrackingID().String(),
		"user_id", input.UserID,
		"channel_id", input.ChannelID,
	)

	if uc.metrics != nil {
		uc.metrics.RecordMessagesIngested(1)
	}

	return &IngestOutput{
		TrackingID: msg.TrackingID().String(),
		QueuedAt:   msg.QueuedAt(),
	}, nil
}
