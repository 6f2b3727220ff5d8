// Package cache implements the shared Metrics Store on top of Redis: the
// pending_messages list, the scalar counter set, and the
// batch_notifications pub/sub channel all live on one redis.Client.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// Redis keys for the Metrics Store.
const (
	KeyPendingMessages  = "pending_messages"
	KeyTotalMessages    = "total_messages"
	KeyTotalBatches     = "total_batches"
	KeyCurrentRPS       = "current_rps"
	KeyWorkerBufferSize = "worker_buffer_size"
	KeyBatchStartTime   = "batch_start_time"
	ChannelNotifications = "batch_notifications"

	defaultConnectTimeout = 10 * time.Second
)

var ErrRedisNotConnected = errors.New("metrics store: redis not connected")

// Config holds connection parameters for the Redis-backed Metrics Store.
type Config struct {
	Host string
	Port string
}

// Addr returns the host:port address go-redis expects.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RedisMetricsStore implements domain.MetricsStore over go-redis/v9.
type RedisMetricsStore struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisMetricsStore dials Redis. Pool sizing is generous enough for
// concurrent producers plus one coordinator plus many broadcaster sessions.
func NewRedisMetricsStore(cfg Config, logger *logging.Logger) *RedisMetricsStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		DialTimeout:  defaultConnectTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	return &RedisMetricsStore{
		client: client,
		logger: logger.WithComponent("metrics_store"),
	}
}

// Connect verifies connectivity.
func (s *RedisMetricsStore) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("metrics store ping failed: %w", err)
	}
	s.logger.Info("metrics store connected")
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisMetricsStore) Close() error {
	return s.client.Close()
}

// HealthCheck verifies Redis is responding.
func (s *RedisMetricsStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// --- Buffer ---

// Append pushes one encoded record to the tail of the buffer.
func (s *RedisMetricsStore) Append(ctx context.Context, record []byte) error {
	if err := s.client.RPush(ctx, KeyPendingMessages, record).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// AppendMany pushes multiple records in one pipelined round trip so a
// simulated burst lands on the buffer as a single logical operation.
func (s *RedisMetricsStore) AppendMany(ctx context.Context, records [][]byte) error {
	if len(records) == 0 {
		return nil
	}

	args := make([]any, len(records))
	for i, r := range records {
		args[i] = r
	}

	if err := s.client.RPush(ctx, KeyPendingMessages, args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Pop blocks up to timeout for one record. Returns (nil, nil) on timeout.
func (s *RedisMetricsStore) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := s.client.BLPop(ctx, timeout, KeyPendingMessages).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, domain.ErrMalformedBufferEntry
	}
	return []byte(result[1]), nil
}

// PushFront re-queues records at the head, most-recent-first so that
// iterating LPush preserves the original relative order at the front.
func (s *RedisMetricsStore) PushFront(ctx context.Context, records [][]byte) error {
	if len(records) == 0 {
		return nil
	}

	// LPUSH inserts each argument at the head in turn, reversing order.
	// Push in reverse so the resulting head order matches original order.
	args := make([]any, len(records))
	for i, r := range records {
		args[len(records)-1-i] = r
	}

	if err := s.client.LPush(ctx, KeyPendingMessages, args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Len returns the current buffer length.
func (s *RedisMetricsStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, KeyPendingMessages).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return int(n), nil
}

// Drain empties the buffer and reports how many entries were removed.
func (s *RedisMetricsStore) Drain(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, KeyPendingMessages).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.client.Del(ctx, KeyPendingMessages).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return int(n), nil
}

// --- CounterStore ---

// ReadCounters fetches the whole counter set in one round trip. Missing
// keys read as zero.
func (s *RedisMetricsStore) ReadCounters(ctx context.Context) (domain.Counters, error) {
	vals, err := s.client.MGet(ctx,
		KeyTotalMessages, KeyTotalBatches, KeyCurrentRPS, KeyWorkerBufferSize, KeyBatchStartTime,
	).Result()
	if err != nil {
		return domain.Counters{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	c := domain.Counters{}
	c.TotalMessages = parseInt64(vals[0])
	c.TotalBatches = parseInt64(vals[1])
	c.CurrentRPS = parseFloat(vals[2])
	c.WorkerBufferSize = int(parseInt64(vals[3]))

	if epoch := parseFloat(vals[4]); epoch > 0 {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		c.BatchStartTime = time.Unix(sec, nsec).UTC()
	}

	return c, nil
}

// IncrMessagesAndBatches atomically bumps both counters via a pipeline.
func (s *RedisMetricsStore) IncrMessagesAndBatches(ctx context.Context, batchSize int) error {
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, KeyTotalMessages, int64(batchSize))
		pipe.Incr(ctx, KeyTotalBatches)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// SetCurrentRPS overwrites current_rps. A plain SET, not INCRBYFLOAT: the
// estimator replaces the value each window rather than accumulating it.
func (s *RedisMetricsStore) SetCurrentRPS(ctx context.Context, rps float64) error {
	if err := s.client.Set(ctx, KeyCurrentRPS, strconv.FormatFloat(rps, 'f', -1, 64), 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// SetWorkerBufferSize overwrites worker_buffer_size.
func (s *RedisMetricsStore) SetWorkerBufferSize(ctx context.Context, size int) error {
	if err := s.client.Set(ctx, KeyWorkerBufferSize, size, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// SetBatchStartTime overwrites batch_start_time. A zero time clears it to
// the empty sentinel by deleting the key.
func (s *RedisMetricsStore) SetBatchStartTime(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		if err := s.client.Del(ctx, KeyBatchStartTime).Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return nil
	}

	epoch := float64(t.UnixNano()) / float64(time.Second)
	if err := s.client.Set(ctx, KeyBatchStartTime, strconv.FormatFloat(epoch, 'f', -1, 64), 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// --- Publisher / Subscriber ---

type wireEvent struct {
	BatchID   string   `json:"batch_id"`
	IDs       []string `json:"ids"`
	BatchSize int      `json:"batch_size"`
	Timestamp time.Time `json:"timestamp"`
}

// Publish serializes and publishes a PersistenceEvent. Failure here is
// logged and swallowed by the caller.
func (s *RedisMetricsStore) Publish(ctx context.Context, event domain.PersistenceEvent) error {
	ids := make([]string, len(event.IDs))
	for i, id := range event.IDs {
		ids[i] = id.String()
	}

	payload, err := json.Marshal(wireEvent{
		BatchID:   event.BatchID.String(),
		IDs:       ids,
		BatchSize: event.BatchSize,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("encoding persistence event: %w", err)
	}

	if err := s.client.Publish(ctx, ChannelNotifications, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// redisSubscription adapts a *redis.PubSub to domain.Subscription.
type redisSubscription struct {
	pubsub *redis.PubSub
	events chan domain.PersistenceEvent
	done   chan struct{}
}

// Subscribe opens a fresh subscription to batch_notifications. Each
// broadcaster session owns exactly one of these for its lifetime.
func (s *RedisMetricsStore) Subscribe(ctx context.Context) (domain.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, ChannelNotifications)

	// block until the subscribe is acknowledged so no publication is
	// missed during the hand-off.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan domain.PersistenceEvent, 16),
		done:   make(chan struct{}),
	}

	go sub.pump(s.logger)

	return sub, nil
}

func (sub *redisSubscription) pump(logger *logging.Logger) {
	defer close(sub.events)

	ch := sub.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var w wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &w); err != nil {
				logger.Warn("discarding malformed persistence event", "error", err.Error())
				continue
			}

			ids := make([]domain.TrackingID, 0, len(w.IDs))
			for _, raw := range w.IDs {
				id, err := domain.ParseTrackingID(raw)
				if err != nil {
					continue
				}
				ids = append(ids, id)
			}

			batchID, err := domain.ParseBatchID(w.BatchID)
			if err != nil {
				logger.Warn("discarding persistence event with empty batch id")
				continue
			}

			event := domain.PersistenceEvent{
				BatchID:   batchID,
				IDs:       ids,
				BatchSize: w.BatchSize,
				Timestamp: w.Timestamp,
			}

			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
		case <-sub.done:
			return
		}
	}
}

// Events returns the channel of delivered persistence events.
func (sub *redisSubscription) Events() <-chan domain.PersistenceEvent {
	return sub.events
}

// Close cancels the subscription.
func (sub *redisSubscription) Close() error {
	select {
	case <-sub.done:
	default:
		close(sub.done)
	}
	return sub.pubsub.Close()
}

func parseInt64(v any) int64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(v any) float64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
