package application

import (
	"context"
	"fmt"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

const (
	// DefaultRetrieveLimit is used when the caller supplies no limit.
	DefaultRetrieveLimit = 50
	// MaxRetrieveLimit bounds the largest limit a caller may request.
	MaxRetrieveLimit = 500
)

// RetrieveInput is the Retrieve-recent request.
type RetrieveInput struct {
	Limit int
}

// RetrieveUseCase reads back the most recently persisted rows.
type RetrieveUseCase struct {
	repo   domain.MessageRepository
	logger *logging.Logger
}

// NewRetrieveUseCase creates a new RetrieveUseCase.
func NewRetrieveUseCase(repo domain.MessageRepository, logger *logging.Logger) *RetrieveUseCase {
	return &RetrieveUseCase{
		repo:   repo,
		logger: logger.WithComponent("retrieve"),
	}
}

// Execute returns the last N persisted rows ordered by inserted_at desc.
func (uc *RetrieveUseCase) Execute(ctx context.Context, input RetrieveInput) ([]domain.PersistedRow, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}
	if limit > MaxRetrieveLimit {
		limit = MaxRetrieveLimit
	}

	rows, err := uc.repo.FindRecent(ctx, limit)
	if err != nil {
		uc.logger.Error("retrieve failed", "limit", limit, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return rows, nil
}
