package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sidselothcodes/ingestpipe/internal/application"
	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

func TestRetrieveUseCase_Execute_DefaultLimit(t *testing.T) {
	repo := &fakeRepository{}
	userID, _ := domain.NewUserID(1)
	channelID, _ := domain.NewChannelID(1)
	for i := 0; i < 5; i++ {
		msg, err := domain.NewMessage(userID, channelID, "seed", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := repo.SaveBatch(context.Background(), []*domain.Message{msg}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	uc := application.NewRetrieveUseCase(repo, logging.New())

	rows, err := uc.Execute(context.Background(), application.RetrieveInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d", len(rows))
	}
}

func TestRetrieveUseCase_Execute_ClampsToMax(t *testing.T) {
	repo := &fakeRepository{}
	uc := application.NewRetrieveUseCase(repo, logging.New())

	// Execute must not error and must cap the request before it reaches
	// the store.
	_, err := uc.Execute(context.Background(), application.RetrieveInput{Limit: application.MaxRetrieveLimit + 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != application.MaxRetrieveLimit {
		t.Errorf("expected limit clamped to %d, got %d", application.MaxRetrieveLimit, repo.lastLimit)
	}
}

func TestRetrieveUseCase_Execute_StoreUnavailable(t *testing.T) {
	repo := &fakeRepository{findRecentErr: errFakeUnavailable}
	uc := application.NewRetrieveUseCase(repo, logging.New())

	_, err := uc.Execute(context.Background(), application.RetrieveInput{Limit: 10})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
