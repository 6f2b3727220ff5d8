package application_test

import (
	"context"
	"testing"

	"github.com/sidselothcodes/ingestpipe/internal/application"
	"github.com/sidselothcodes/ingestpipe/internal/domain"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
)

func TestResetUseCase_Execute_TruncatesAndDrains(t *testing.T) {
	repo := &fakeRepository{}
	userID, _ := domain.NewUserID(1)
	channelID, _ := domain.NewChannelID(1)
	for i := 0; i < 10; i++ {
		msg, _ := domain.NewMessage(userID, channelID, "seed", nil)
		_ = repo.SaveBatch(context.Background(), []*domain.Message{msg})
	}

	buffer := &fakeBuffer{}
	for i := 0; i < 5; i++ {
		_ = buffer.Append(context.Background(), []byte("entry"))
	}

	uc := application.NewResetUseCase(repo, buffer, logging.New())

	out, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DeletedMessages != 10 {
		t.Errorf("expected 10 deleted messages, got %d", out.DeletedMessages)
	}
	if out.ClearedQueue != 5 {
		t.Errorf("expected 5 cleared queue entries, got %d", out.ClearedQueue)
	}

	rows, err := repo.FindRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty table after reset, got %d rows", len(rows))
	}
}

func TestResetUseCase_Execute_StoreUnavailable(t *testing.T) {
	repo := &fakeRepository{resetErr: errFakeUnavailable}
	buffer := &fakeBuffer{}
	uc := application.NewResetUseCase(repo, buffer, logging.New())

	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected error when store reset fails")
	}
}
