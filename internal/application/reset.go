package application

import (
	"context"
	"fmt"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

// ResetOutput reports what Administrative-reset cleared.
type ResetOutput struct {
	DeletedMessages int64
	ClearedQueue    int
}

// ResetUseCase truncates the persisted table and drains the buffer. It
// deliberately leaves total_messages/total_batches untouched.
type ResetUseCase struct {
	repo   domain.MessageRepository
	buffer domain.Buffer
	logger *logging.Logger
}

// NewResetUseCase creates a new ResetUseCase.
func NewResetUseCase(repo domain.MessageRepository, buffer domain.Buffer, logger *logging.Logger) *ResetUseCase {
	return &ResetUseCase{
		repo:   repo,
		buffer: buffer,
		logger: logger.WithComponent("reset"),
	}
}

// Execute truncates the messages table and drains the buffer list. It does
// not reach the Batch Coordinator's staging area: messages already staged
// there are not discarded and are still committed on the coordinator's
// next flush, after the truncate.
func (uc *ResetUseCase) Execute(ctx context.Context) (*ResetOutput, error) {
	deleted, err := uc.repo.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	cleared, err := uc.buffer.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	uc.logger.Info("administrative reset completed",
		"deleted_messages", deleted,
		"cleared_queue", cleared,
	)

	return &ResetOutput{
		DeletedMessages: deleted,
		ClearedQueue:    cleared,
	}, nil
}
