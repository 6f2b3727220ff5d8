package domain

import (
	"context"
	"time"
)

// MessageRepository is the relational store boundary: the Batch
// Coordinator's only write path, and the Ingestion Endpoint's only read
// path.
type MessageRepository interface {
	// SaveBatch bulk-commits a batch atomically. The store assigns id and
	// inserted_at. Returns ErrCommitFailed (wrapped) on transaction failure.
	SaveBatch(ctx context.Context, messages []*Message) error

	// FindRecent returns the last limit rows ordered by inserted_at desc.
	FindRecent(ctx context.Context, limit int) ([]PersistedRow, error)

	// Reset truncates the table, returning the number of rows removed.
	Reset(ctx context.Context) (int64, error)

	// HealthCheck verifies connectivity to the store.
	HealthCheck(ctx context.Context) error
}

// Buffer is the Metrics Store's append-mostly list used as the handoff
// between the Ingestion Endpoint and the Batch Coordinator. Append is
// multi-writer; Pop is single-reader and destructive.
type Buffer interface {
	// Append pushes one encoded record to the tail of the buffer.
	Append(ctx context.Context, record []byte) error

	// AppendMany pushes multiple encoded records as a single logical burst.
	AppendMany(ctx context.Context, records [][]byte) error

	// Pop blocks for up to timeout waiting for one record, destructively
	// removing it from the head. Returns (nil, nil) on timeout with no
	// record available, which is what lets the coordinator's read loop
	// serve the time trigger even with no further arrivals.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)

	// PushFront re-queues a record at the head, used when a commit fails
	// and messages must go back to the front of the line.
	PushFront(ctx context.Context, records [][]byte) error

	// Len returns the current buffer length.
	Len(ctx context.Context) (int, error)

	// Drain empties the buffer, returning the number of entries removed.
	Drain(ctx context.Context) (int, error)
}

// CounterStore is the Metrics Store's scalar counter set. Single-writer
// per key (the Batch Coordinator); reads tolerate staleness up to one
// broadcaster tick.
type CounterStore interface {
	// ReadCounters returns the full counter set. A missing key reads as
	// its zero value.
	ReadCounters(ctx context.Context) (Counters, error)

	// IncrMessagesAndBatches atomically increments total_messages by
	// batchSize and total_batches by 1.
	IncrMessagesAndBatches(ctx context.Context, batchSize int) error

	// SetCurrentRPS overwrites the current_rps counter.
	SetCurrentRPS(ctx context.Context, rps float64) error

	// SetWorkerBufferSize overwrites the worker_buffer_size counter.
	SetWorkerBufferSize(ctx context.Context, size int) error

	// SetBatchStartTime overwrites the batch_start_time counter. A zero
	// time.Time clears it.
	SetBatchStartTime(ctx context.Context, t time.Time) error
}

// Publisher is the pub/sub boundary for persistence events. Best-effort:
// late subscribers never receive historical events.
type Publisher interface {
	Publish(ctx context.Context, event PersistenceEvent) error
}

// Subscription is a live handle to the persistence event stream, owned by
// one Telemetry Broadcaster session for its lifetime.
type Subscription interface {
	// Events delivers published PersistenceEvents until the subscription
	// is closed.
	Events() <-chan PersistenceEvent
	Close() error
}

// Subscriber opens a fresh Subscription. Each broadcaster session calls
// this once, on connect, before sending its first stats_update frame.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// MetricsStore composes the full external Metrics Store contract: buffer,
// counters, and pub/sub in one process-external service.
type MetricsStore interface {
	Buffer
	CounterStore
	Publisher
	Subscriber
	HealthCheck(ctx context.Context) error
}
