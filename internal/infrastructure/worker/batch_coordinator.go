// Package worker implements the single consumer of the shared buffer: a
// batch-accumulation loop built around an anchored, non-resetting flush
// timer rather than a fixed-period ticker.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// idlePollInterval bounds how long Pop blocks while staging is empty, so
// the loop still observes ctx cancellation promptly.
const idlePollInterval = 2 * time.Second

// commitRetryBackoff is the pause between a batch's first and second
// commit attempt, giving a transient store hiccup a moment to clear.
const commitRetryBackoff = 200 * time.Millisecond

// shutdownFlushTimeout bounds the final commit issued while draining on
// shutdown, which must run against a fresh context since the loop's own
// ctx is already cancelled by the time the drain flush fires.
const shutdownFlushTimeout = 5 * time.Second

// MetricsRecorder abstracts prometheus metrics for the coordinator. keeps
// the worker decoupled from the metrics package.
type MetricsRecorder interface {
	RecordBatchCommitted(size int, durationSeconds float64)
	RecordCommitFailure()
	RecordBatchDropped()
	SetWorkerBufferSize(size int)
	SetCurrentRPS(rps float64)
}

// BatchCoordinatorConfig holds the dual-trigger thresholds.
type BatchCoordinatorConfig struct {
	// Size is the volume trigger: flush as soon as staging holds this many.
	Size int
	// Timeout is the time trigger: flush once the oldest staged message has
	// aged this long, measured from when staging went empty-to-non-empty,
	// and never reset by later arrivals.
	Timeout time.Duration
	// RPSWindow is the width of the RPS estimator's sliding window.
	RPSWindow time.Duration
}

// DefaultBatchCoordinatorConfig returns sensible defaults.
func DefaultBatchCoordinatorConfig() BatchCoordinatorConfig {
	return BatchCoordinatorConfig{
		Size:      50,
		Timeout:   30 * time.Second,
		RPSWindow: 10 * time.Second,
	}
}

// BatchCoordinator is the single consumer of the shared buffer. It stages
// popped messages in memory, flushes on whichever trigger fires first, and
// commits the flushed batch to the relational store.
type BatchCoordinator struct {
	buffer  domain.Buffer
	counter domain.CounterStore
	pub     domain.Publisher
	repo    domain.MessageRepository
	config  BatchCoordinatorConfig
	logger  *logging.Logger
	metrics MetricsRecorder

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
	cancel   context.CancelFunc

	rps *rpsEstimator
}

// NewBatchCoordinator creates a new BatchCoordinator.
func NewBatchCoordinator(
	buffer domain.Buffer,
	counter domain.CounterStore,
	pub domain.Publisher,
	repo domain.MessageRepository,
	config BatchCoordinatorConfig,
	logger *logging.Logger,
) *BatchCoordinator {
	return &BatchCoordinator{
		buffer:  buffer,
		counter: counter,
		pub:     pub,
		repo:    repo,
		config:  config,
		logger:  logger.WithComponent("batch_coordinator"),
		stopped: make(chan struct{}),
		rps:     newRPSEstimator(config.RPSWindow),
	}
}

// WithMetrics sets the metrics recorder for observability.
func (c *BatchCoordinator) WithMetrics(m MetricsRecorder) *BatchCoordinator {
	c.metrics = m
	return c
}

// Start begins the coordinator's single consumer loop.
func (c *BatchCoordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.logger.Info("batch coordinator starting",
		"batch_size", c.config.Size,
		"batch_timeout", c.config.Timeout.String(),
	)

	c.wg.Add(1)
	go c.run(ctx)
}

// Stop gracefully shuts down the coordinator, flushing any staged messages.
func (c *BatchCoordinator) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("batch coordinator stopping")
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		close(c.stopped)
		c.logger.Info("batch coordinator stopped")
	})
}

// Stopped returns a channel that closes once the coordinator has drained.
func (c *BatchCoordinator) Stopped() <-chan struct{} {
	return c.stopped
}

func (c *BatchCoordinator) run(ctx context.Context) {
	defer c.wg.Done()

	staging := make([]*domain.Message, 0, c.config.Size)
	var batchStart time.Time

	flush := func(trigger string) {
		if len(staging) == 0 {
			return
		}
		batch := staging
		staging = make([]*domain.Message, 0, c.config.Size)
		batchStart = time.Time{}

		// the loop's ctx is already cancelled by the time a shutdown drain
		// flush fires; committing against it would fail immediately and
		// drop the final batch, so give it a fresh, bounded context instead.
		commitCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			commitCtx, cancel = context.WithTimeout(context.Background(), shutdownFlushTimeout)
			defer cancel()
		}

		_ = c.counter.SetBatchStartTime(commitCtx, batchStart)
		_ = c.counter.SetWorkerBufferSize(commitCtx, 0)
		if c.metrics != nil {
			c.metrics.SetWorkerBufferSize(0)
		}
		c.commit(commitCtx, batch, trigger)
	}

	for {
		select {
		case <-ctx.Done():
			flush("shutdown")
			return
		default:
		}

		waitFor := idlePollInterval
		if !batchStart.IsZero() {
			remaining := c.config.Timeout - time.Since(batchStart)
			if remaining <= 0 {
				flush("time")
				continue
			}
			waitFor = remaining
		}

		raw, err := c.buffer.Pop(ctx, waitFor)
		if err != nil {
			if ctx.Err() != nil {
				flush("shutdown")
				return
			}
			c.logger.Error("buffer pop failed", "error", err.Error())
			time.Sleep(time.Second)
			continue
		}

		if raw == nil {
			// timeout: either the time trigger fired (staging non-empty) or
			// we were just polling an empty buffer while idle.
			if !batchStart.IsZero() {
				flush("time")
			}
			continue
		}

		msg, err := domain.DecodeBufferRecord(raw)
		if err != nil {
			c.logger.MalformedBufferEntry(err.Error())
			continue
		}

		if len(staging) == 0 {
			batchStart = time.Now()
			_ = c.counter.SetBatchStartTime(ctx, batchStart)
		}
		staging = append(staging, msg)

		_ = c.counter.SetWorkerBufferSize(ctx, len(staging))
		if c.metrics != nil {
			c.metrics.SetWorkerBufferSize(len(staging))
		}

		if len(staging) >= c.config.Size {
			flush("volume")
		}
	}
}

// commit persists a flushed batch, retrying once on failure before
// re-queuing it at the head of the buffer.
func (c *BatchCoordinator) commit(ctx context.Context, batch []*domain.Message, trigger string) {
	batchID := domain.NewBatchID()
	start := time.Now()

	err := c.repo.SaveBatch(ctx, batch)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordCommitFailure()
		}
		c.logger.CommitFailed(batchID.String(), len(batch), 1, err)

		select {
		case <-time.After(commitRetryBackoff):
		case <-ctx.Done():
		}

		err = c.repo.SaveBatch(ctx, batch)
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordCommitFailure()
		}
		c.logger.CommitFailed(batchID.String(), len(batch), 2, err)

		records := make([][]byte, 0, len(batch))
		for _, m := range batch {
			enc, encErr := m.EncodeBufferRecord()
			if encErr != nil {
				continue
			}
			records = append(records, enc)
		}

		if requeueErr := c.buffer.PushFront(ctx, records); requeueErr != nil {
			ids := make([]string, len(batch))
			for i, m := range batch {
				ids[i] = m.TrackingID().String()
			}
			if c.metrics != nil {
				c.metrics.RecordBatchDropped()
			}
			c.logger.BatchDropped(batchID.String(), ids, requeueErr)
		}
		return
	}

	duration := time.Since(start)

	if err := c.counter.IncrMessagesAndBatches(ctx, len(batch)); err != nil {
		c.logger.Error("updating counters after commit failed", "error", err.Error())
	}

	rps := c.rps.observe(time.Now(), len(batch))
	if err := c.counter.SetCurrentRPS(ctx, rps); err != nil {
		c.logger.Error("updating rps counter failed", "error", err.Error())
	}

	if c.metrics != nil {
		c.metrics.RecordBatchCommitted(len(batch), duration.Seconds())
		c.metrics.SetCurrentRPS(rps)
	}

	ids := make([]domain.TrackingID, len(batch))
	for i, m := range batch {
		ids[i] = m.TrackingID()
	}
	event := domain.PersistenceEvent{
		BatchID:   batchID,
		IDs:       ids,
		BatchSize: len(batch),
		Timestamp: time.Now().UTC(),
	}

	if err := c.pub.Publish(ctx, event); err != nil {
		// commit already happened: log and continue.
		c.logger.Error("publishing persistence event failed", "error", err.Error())
	}

	c.logger.BatchFlushed(batchID.String(), len(batch), duration.Milliseconds(), trigger)
}

// rpsEstimator maintains an O(1) sliding-window count of committed
// messages, replacing any per-message timestamp list.
type rpsEstimator struct {
	mu     sync.Mutex
	window time.Duration

	bucketStart time.Time
	bucketCount int64

	prevBucketStart time.Time
	prevBucketCount int64
}

func newRPSEstimator(window time.Duration) *rpsEstimator {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &rpsEstimator{window: window}
}

// observe records n newly-committed messages at instant t and returns the
// current rolling rate.
func (e *rpsEstimator) observe(t time.Time, n int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bucketStart.IsZero() {
		e.bucketStart = t
	}

	if t.Sub(e.bucketStart) >= e.window {
		e.prevBucketStart = e.bucketStart
		e.prevBucketCount = e.bucketCount
		e.bucketStart = t
		e.bucketCount = 0
	}

	e.bucketCount += int64(n)

	return e.rateLocked(t)
}

func (e *rpsEstimator) rateLocked(t time.Time) float64 {
	elapsedCurrent := t.Sub(e.bucketStart).Seconds()
	if elapsedCurrent <= 0 {
		elapsedCurrent = 0.001
	}

	if e.prevBucketStart.IsZero() {
		return float64(e.bucketCount) / elapsedCurrent
	}

	// weight the previous bucket by how much of the window it still covers
	weight := 1 - (elapsedCurrent / e.window.Seconds())
	if weight < 0 {
		weight = 0
	}

	weightedCount := float64(e.bucketCount) + float64(e.prevBucketCount)*weight
	return weightedCount / e.window.Seconds()
}
