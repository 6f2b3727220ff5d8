package broadcaster_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
)

// fakeConn is an in-memory stand-in for *websocket.Conn, recording every
// outbound frame and letting tests trigger a read error on demand to
// simulate client disconnect.
type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error

	readErrCh chan error
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{readErrCh: make(chan error, 1)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	err := <-c.readErrCh
	return 0, nil, err
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	cp := append([]byte{}, data...)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetReadLimit(int64)               {}
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		select {
		case c.readErrCh <- errors.New("connection closed"):
		default:
		}
	})
	return nil
}

// disconnect simulates the client dropping the connection.
func (c *fakeConn) disconnect() {
	select {
	case c.readErrCh <- errors.New("client disconnected"):
	default:
	}
}

func (c *fakeConn) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// fakeSubscription is a manually-driven domain.Subscription.
type fakeSubscription struct {
	events chan domain.PersistenceEvent
	closed chan struct{}
	once   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		events: make(chan domain.PersistenceEvent, 8),
		closed: make(chan struct{}),
	}
}

func (s *fakeSubscription) Events() <-chan domain.PersistenceEvent { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// fakeBuffer only ever needs Len for the broadcaster's stats snapshot.
type fakeBuffer struct {
	length int
	lenErr error
}

func (b *fakeBuffer) Append(context.Context, []byte) error          { return nil }
func (b *fakeBuffer) AppendMany(context.Context, [][]byte) error     { return nil }
func (b *fakeBuffer) Pop(context.Context, time.Duration) ([]byte, error) {
	return nil, nil
}
func (b *fakeBuffer) PushFront(context.Context, [][]byte) error { return nil }
func (b *fakeBuffer) Len(context.Context) (int, error) {
	if b.lenErr != nil {
		return 0, b.lenErr
	}
	return b.length, nil
}
func (b *fakeBuffer) Drain(context.Context) (int, error) { return 0, nil }

// fakeCounterStore only ever needs ReadCounters for the broadcaster.
type fakeCounterStore struct {
	counters domain.Counters
}

func (c *fakeCounterStore) ReadCounters(context.Context) (domain.Counters, error) {
	return c.counters, nil
}
func (c *fakeCounterStore) IncrMessagesAndBatches(context.Context, int) error { return nil }
func (c *fakeCounterStore) SetCurrentRPS(context.Context, float64) error     { return nil }
func (c *fakeCounterStore) SetWorkerBufferSize(context.Context, int) error   { return nil }
func (c *fakeCounterStore) SetBatchStartTime(context.Context, time.Time) error {
	return nil
}
