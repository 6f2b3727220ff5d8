package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// QueueStatusOutput reports the buffer length and staging-area size.
type QueueStatusOutput struct {
	BufferLength     int
	WorkerBufferSize int
	BatchStartTime   time.Time
}

// QueueStatusUseCase reports the current handoff state between the buffer
// and the Batch Coordinator's staging area.
type QueueStatusUseCase struct {
	buffer  domain.Buffer
	counter domain.CounterStore
	logger  *logging.Logger
}

// NewQueueStatusUseCase creates a new QueueStatusUseCase.
func NewQueueStatusUseCase(buffer domain.Buffer, counter domain.CounterStore, logger *logging.Logger) *QueueStatusUseCase {
	return &QueueStatusUseCase{
		buffer:  buffer,
		counter: counter,
		logger:  logger.WithComponent("queue_status"),
	}
}

// Execute reports buffer_length, worker_buffer_size, and batch_start_time.
func (uc *QueueStatusUseCase) Execute(ctx context.Context) (*QueueStatusOutput, error) {
	length, err := uc.buffer.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	counters, err := uc.counter.ReadCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	return &QueueStatusOutput{
		BufferLength:     length,
		WorkerBufferSize: counters.WorkerBufferSize,
		BatchStartTime:   counters.BatchStartTime,
	}, nil
}
