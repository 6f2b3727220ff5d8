package application

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// MaxSimulateCount is the upper bound on a single simulate-bulk request.
const MaxSimulateCount = 10000

// SimulateConfig controls the producer pool used to build synthetic
// messages.
type SimulateConfig struct {
	Workers int
}

// DefaultSimulateConfig sizes the producer pool to the host.
func DefaultSimulateConfig() SimulateConfig {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 16 {
		workers = 16
	}
	return SimulateConfig{Workers: workers}
}

// SimulateInput is the Simulate-bulk request body.
type SimulateInput struct {
	Count int
}

// SimulateOutput is returned once every synthetic message has been
// appended to the buffer.
type SimulateOutput struct {
	TrackingIDs             []string
	Count                   int
	ExpectedCompleteBatches int
	ExpectedRemainingQueued int
}

// SimulateUseCase generates synthetic messages and appends them to the
// buffer as a single logical burst.
type SimulateUseCase struct {
	buffer    domain.Buffer
	batchSize int
	config    SimulateConfig
	logger    *logging.Logger
	metrics   IngestMetrics
}

// WithMetrics attaches the ingested-message counter.
func (uc *SimulateUseCase) WithMetrics(m IngestMetrics) *SimulateUseCase {
	uc.metrics = m
	return uc
}

// NewSimulateUseCase creates a new SimulateUseCase. batchSize is the
// Batch Coordinator's configured volume threshold, used to compute the
// expected_complete_batches/expected_remaining_queued hints.
func NewSimulateUseCase(buffer domain.Buffer, batchSize int, config SimulateConfig, logger *logging.Logger) *SimulateUseCase {
	if config.Workers <= 0 {
		config = DefaultSimulateConfig()
	}
	return &SimulateUseCase{
		buffer:    buffer,
		batchSize: batchSize,
		config:    config,
		logger:    logger.WithComponent("simulate"),
	}
}

// Execute builds count synthetic messages concurrently across a small
// producer pool and appends all of them to the buffer in one burst.
func (uc *SimulateUseCase) Execute(ctx context.Context, input SimulateInput) (*SimulateOutput, error) {
	if input.Count < 1 || input.Count > MaxSimulateCount {
		return nil, fmt.Errorf("%w: count must be in [1, %d]", domain.ErrInvalidPayload, MaxSimulateCount)
	}

	records := make([][]byte, input.Count)
	trackingIDs := make([]string, input.Count)

	indexCh := make(chan int, input.Count)
	for i := 0; i < input.Count; i++ {
		indexCh <- i
	}
	close(indexCh)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	worker := func() {
		defer wg.Done()
		for i := range indexCh {
			userID, _ := domain.NewUserID(int64(i%1000 + 1))
			channelID, _ := domain.NewChannelID(int64(i%50 + 1))

			msg, err := domain.NewMessage(userID, channelID, fmt.Sprintf("simulated message %d", i), nil)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			record, err := msg.EncodeBufferRecord()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			records[i] = record
			trackingIDs[i] = msg.TrackingID().String()
		}
	}

	for w := 0; w < uc.config.Workers; w++ {
		wg.Add(1)
		go worker()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("%w: generating synthetic messages: %v", domain.ErrInvalidPayload, firstErr)
	}

	if err := uc.buffer.AppendMany(ctx, records); err != nil {
		uc.logger.Error("bulk enqueue failed", "count", input.Count, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	threshold := uc.batchSize
	if threshold <= 0 {
		threshold = 1
	}

	uc.logger.Info("simulated burst enqueued", "count", input.Count)

	if uc.metrics != nil {
		uc.metrics.RecordMessagesIngested(input.Count)
	}

	return &SimulateOutput{
		TrackingIDs:             trackingIDs,
		Count:                   input.Count,
		ExpectedCompleteBatches: input.Count / threshold,
		ExpectedRemainingQueued: input.Count % threshold,
	}, nil
}
