package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
)

// fakeBuffer is an in-memory stand-in for the Metrics Store's buffer list,
// used to exercise the use cases without a real Redis instance.
type fakeBuffer struct {
	mu      sync.Mutex
	entries [][]byte

	appendErr error
	drainErr  error
	lenErr    error
}

func (b *fakeBuffer) Append(_ context.Context, record []byte) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, record)
	return nil
}

func (b *fakeBuffer) AppendMany(_ context.Context, records [][]byte) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, records...)
	return nil
}

func (b *fakeBuffer) Pop(_ context.Context, _ time.Duration) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return nil, nil
	}
	head := b.entries[0]
	b.entries = b.entries[1:]
	return head, nil
}

func (b *fakeBuffer) PushFront(_ context.Context, records [][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(append([][]byte{}, records...), b.entries...)
	return nil
}

func (b *fakeBuffer) Len(_ context.Context) (int, error) {
	if b.lenErr != nil {
		return 0, b.lenErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries), nil
}

func (b *fakeBuffer) Drain(_ context.Context) (int, error) {
	if b.drainErr != nil {
		return 0, b.drainErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = nil
	return n, nil
}

// fakeRepository is an in-memory stand-in for the relational store.
type fakeRepository struct {
	mu   sync.Mutex
	rows []domain.PersistedRow

	// lastLimit is the limit passed to the most recent FindRecent call.
	lastLimit int

	findRecentErr error
	resetErr      error
}

func (r *fakeRepository) SaveBatch(_ context.Context, messages []*domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range messages {
		r.rows = append(r.rows, domain.PersistedRow{
			ID:         int64(len(r.rows) + 1),
			UserID:     m.UserID(),
			ChannelID:  m.ChannelID(),
			Content:    m.Content(),
			CreatedAt:  m.CreatedAt(),
			InsertedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (r *fakeRepository) FindRecent(_ context.Context, limit int) ([]domain.PersistedRow, error) {
	if r.findRecentErr != nil {
		return nil, r.findRecentErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	if limit > len(r.rows) {
		limit = len(r.rows)
	}
	out := make([]domain.PersistedRow, limit)
	copy(out, r.rows[len(r.rows)-limit:])
	return out, nil
}

func (r *fakeRepository) Reset(_ context.Context) (int64, error) {
	if r.resetErr != nil {
		return 0, r.resetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.rows))
	r.rows = nil
	return n, nil
}

func (r *fakeRepository) HealthCheck(_ context.Context) error { return nil }

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

var errFakeUnavailable = errors.New("fake: unavailable")
