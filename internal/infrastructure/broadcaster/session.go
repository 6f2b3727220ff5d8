// Package broadcaster implements one Session per connected observer,
// multiplexing a periodic stats snapshot and the live persistence-event
// stream onto a single full-duplex websocket connection. Each session owns
// its own pub/sub subscription rather than sharing one hub-wide feed.
package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Conn is the subset of *websocket.Conn a Session needs. Narrowed to an
// interface so tests can substitute a fake transport.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// StatsFrame is the periodic snapshot frame.
type StatsFrame struct {
	Type                 string  `json:"type"`
	TotalMessages        int64   `json:"total_messages"`
	CurrentRPS           float64 `json:"current_rps"`
	QueueDepth           int     `json:"queue_depth"`
	TotalBatches         int64   `json:"total_batches"`
	AvgBatchSize         float64 `json:"avg_batch_size"`
	BatchThreshold       int     `json:"batch_threshold"`
	BatchProgress        int     `json:"batch_progress"`
	BatchProgressPercent float64 `json:"batch_progress_percent"`
	Timestamp            string  `json:"timestamp"`
}

// BatchPersistedFrame is forwarded promptly on every persistence event
//; never coalesced with stats frames.
type BatchPersistedFrame struct {
	Type            string   `json:"type"`
	BatchID         string   `json:"batch_id"`
	IDs             []string `json:"ids"`
	BatchSize       int      `json:"batch_size"`
	WorkerTimestamp string   `json:"worker_timestamp"`
}

// QueueDepthMetrics abstracts the combined queue-depth gauge so the
// session stays decoupled from the metrics package.
type QueueDepthMetrics interface {
	SetQueueDepth(depth int)
}

// Session owns one observer's connection, subscription, and periodic
// timer for its lifetime.
type Session struct {
	conn    Conn
	buffer  domain.Buffer
	counter domain.CounterStore
	sub     domain.Subscription

	batchSize int
	interval  time.Duration

	logger  *logging.Logger
	id      string
	metrics QueueDepthMetrics
}

// WithMetrics attaches the queue-depth gauge, updated on every stats tick.
func (s *Session) WithMetrics(m QueueDepthMetrics) *Session {
	s.metrics = m
	return s
}

// NewSession creates a Session. The caller must already have subscribed
// before the first stats frame is sent.
func NewSession(
	id string,
	conn Conn,
	buffer domain.Buffer,
	counter domain.CounterStore,
	sub domain.Subscription,
	batchSize int,
	interval time.Duration,
	logger *logging.Logger,
) *Session {
	return &Session{
		conn:      conn,
		buffer:    buffer,
		counter:   counter,
		sub:       sub,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger.WithComponent("broadcaster_session"),
		id:        id,
	}
}

// Run drives the session until the client disconnects, a write stalls
// past its deadline, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		_ = s.sub.Close()
		_ = s.conn.Close()
	}()

	go s.readPump(cancel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.ObserverTerminated(s.id, domain.ErrObserverWriteStalled.Error())
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.ObserverTerminated(s.id, domain.ErrObserverWriteStalled.Error())
				return
			}

		case <-ticker.C:
			frame, err := s.buildStatsFrame(ctx)
			if err != nil {
				s.logger.Warn("stats snapshot failed", "session_id", s.id, "error", err.Error())
				continue
			}
			if s.metrics != nil {
				s.metrics.SetQueueDepth(frame.QueueDepth)
			}
			if !s.write(frame) {
				s.logger.ObserverTerminated(s.id, domain.ErrObserverWriteStalled.Error())
				return
			}

		case event, ok := <-s.sub.Events():
			if !ok {
				s.logger.ObserverTerminated(s.id, "subscription closed")
				return
			}
			frame := buildBatchPersistedFrame(event)
			if !s.write(frame) {
				s.logger.ObserverTerminated(s.id, domain.ErrObserverWriteStalled.Error())
				return
			}
		}
	}
}

// readPump only exists to detect client disconnects and service pong
// keepalive; the protocol is server-push only.
func (s *Session) readPump(cancel context.CancelFunc) {
	defer cancel()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write marshals and sends a frame within the write deadline. Returns
// false if the deadline was exceeded or the connection rejected the
// write, meaning the caller must terminate the session.
func (s *Session) write(frame any) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("encoding frame failed", "session_id", s.id, "error", err.Error())
		return false
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}
	return true
}

func (s *Session) buildStatsFrame(ctx context.Context) (StatsFrame, error) {
	counters, err := s.counter.ReadCounters(ctx)
	if err != nil {
		return StatsFrame{}, err
	}

	bufferLen, err := s.buffer.Len(ctx)
	if err != nil {
		return StatsFrame{}, err
	}

	avgBatchSize := float64(0)
	if counters.TotalBatches > 0 {
		avgBatchSize = float64(counters.TotalMessages) / float64(counters.TotalBatches)
	}

	progressPercent := float64(0)
	if s.batchSize > 0 {
		progressPercent = 100 * float64(counters.WorkerBufferSize) / float64(s.batchSize)
	}

	return StatsFrame{
		Type:                 "stats_update",
		TotalMessages:        counters.TotalMessages,
		CurrentRPS:           counters.CurrentRPS,
		QueueDepth:           bufferLen + counters.WorkerBufferSize,
		TotalBatches:         counters.TotalBatches,
		AvgBatchSize:         avgBatchSize,
		BatchThreshold:       s.batchSize,
		BatchProgress:        counters.WorkerBufferSize,
		BatchProgressPercent: progressPercent,
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func buildBatchPersistedFrame(event domain.PersistenceEvent) BatchPersistedFrame {
	ids := make([]string, len(event.IDs))
	for i, id := range event.IDs {
		ids[i] = id.String()
	}

	return BatchPersistedFrame{
		Type:            "batch_persisted",
		BatchID:         event.BatchID.String(),
		IDs:             ids,
		BatchSize:       event.BatchSize,
		WorkerTimestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
}
