package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
)

// fakeBuffer is a channel-backed stand-in for the Metrics Store's buffer
// list, blocking on Pop the way Redis BLPOP does.
type fakeBuffer struct {
	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}

	// onPushFront, when set, is called with every batch re-queued via
	// PushFront, before the records become visible to Pop.
	onPushFront func(records [][]byte)
}

func newFakeBuffer() *fakeBuffer {
	return &fakeBuffer{notify: make(chan struct{}, 1)}
}

func (b *fakeBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *fakeBuffer) Append(_ context.Context, record []byte) error {
	b.mu.Lock()
	b.queue = append(b.queue, record)
	b.mu.Unlock()
	b.signal()
	return nil
}

func (b *fakeBuffer) AppendMany(_ context.Context, records [][]byte) error {
	b.mu.Lock()
	b.queue = append(b.queue, records...)
	b.mu.Unlock()
	b.signal()
	return nil
}

func (b *fakeBuffer) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	deadline := time.After(timeout)
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			head := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return head, nil
		}
		b.mu.Unlock()

		select {
		case <-b.notify:
			continue
		case <-deadline:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *fakeBuffer) PushFront(_ context.Context, records [][]byte) error {
	if b.onPushFront != nil {
		b.onPushFront(records)
	}
	b.mu.Lock()
	b.queue = append(append([][]byte{}, records...), b.queue...)
	b.mu.Unlock()
	b.signal()
	return nil
}

func (b *fakeBuffer) Len(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue), nil
}

func (b *fakeBuffer) Drain(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queue)
	b.queue = nil
	return n, nil
}

// fakeCounterStore is an in-memory stand-in for the scalar counter set.
type fakeCounterStore struct {
	mu       sync.Mutex
	counters domain.Counters
}

func (c *fakeCounterStore) ReadCounters(_ context.Context) (domain.Counters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters, nil
}

func (c *fakeCounterStore) IncrMessagesAndBatches(_ context.Context, batchSize int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.TotalMessages += int64(batchSize)
	c.counters.TotalBatches++
	return nil
}

func (c *fakeCounterStore) SetCurrentRPS(_ context.Context, rps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.CurrentRPS = rps
	return nil
}

func (c *fakeCounterStore) SetWorkerBufferSize(_ context.Context, size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.WorkerBufferSize = size
	return nil
}

func (c *fakeCounterStore) SetBatchStartTime(_ context.Context, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.BatchStartTime = t
	return nil
}

func (c *fakeCounterStore) snapshot() domain.Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// fakePublisher records every persistence event published.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.PersistenceEvent
}

func (p *fakePublisher) Publish(_ context.Context, event domain.PersistenceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) snapshot() []domain.PersistenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.PersistenceEvent, len(p.events))
	copy(out, p.events)
	return out
}

// fakeRepository records SaveBatch calls and can be configured to fail the
// first N attempts before succeeding, or to fail permanently.
type fakeRepository struct {
	mu         sync.Mutex
	batches    [][]*domain.Message
	attempts   int
	failCount  int
	failAlways bool
}

var errFakeCommitFailed = domain.ErrCommitFailed

func (r *fakeRepository) SaveBatch(_ context.Context, messages []*domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.failAlways {
		return errFakeCommitFailed
	}
	if r.failCount > 0 {
		r.failCount--
		return errFakeCommitFailed
	}
	r.batches = append(r.batches, messages)
	return nil
}

func (r *fakeRepository) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *fakeRepository) FindRecent(_ context.Context, _ int) ([]domain.PersistedRow, error) {
	return nil, nil
}

func (r *fakeRepository) Reset(_ context.Context) (int64, error) { return 0, nil }

func (r *fakeRepository) HealthCheck(_ context.Context) error { return nil }

func (r *fakeRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *fakeRepository) lastBatch() []*domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}
