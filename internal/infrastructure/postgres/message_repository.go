// Package postgres implements the relational store boundary over pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sidselothcodes/ingestpipe/internal/domain"
)

// MessageRepository implements domain.MessageRepository using Postgres.
type MessageRepository struct {
	pool   *pgxpool.Pool
	schema string
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool, schema string) *MessageRepository {
	return &MessageRepository{pool: pool, schema: schema}
}

// SaveBatch bulk-commits a batch in a single transaction, using CopyFrom
// for the insert itself. The store assigns id and inserted_at.
func (r *MessageRepository) SaveBatch(ctx context.Context, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrCommitFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows := make([][]any, len(messages))
	for i, m := range messages {
		rows[i] = []any{
			int64(m.UserID()),
			int64(m.ChannelID()),
			m.Content(),
			m.CreatedAt(),
		}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{r.schema, "messages"},
		[]string{"user_id", "channel_id", "content", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", domain.ErrCommitFailed, err)
	}

	return nil
}

// FindRecent returns the last limit rows ordered by inserted_at desc.
func (r *MessageRepository) FindRecent(ctx context.Context, limit int) ([]domain.PersistedRow, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, channel_id, content, created_at, inserted_at
		FROM %s.messages
		ORDER BY inserted_at DESC
		LIMIT $1
	`, r.schema)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var result []domain.PersistedRow
	for rows.Next() {
		var (
			id         int64
			userID     int64
			channelID  int64
			content    string
			createdAt  time.Time
			insertedAt time.Time
		)

		if err := rows.Scan(&id, &userID, &channelID, &content, &createdAt, &insertedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		result = append(result, domain.PersistedRow{
			ID:         id,
			UserID:     domain.UserID(userID),
			ChannelID:  domain.ChannelID(channelID),
			Content:    content,
			CreatedAt:  createdAt,
			InsertedAt: insertedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return result, nil
}

// Reset truncates the messages table and reports the number of rows
// removed.
func (r *MessageRepository) Reset(ctx context.Context) (int64, error) {
	var count int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s.messages`, r.schema)
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting rows: %v", domain.ErrStoreUnavailable, err)
	}

	truncateQuery := fmt.Sprintf(`TRUNCATE TABLE %s.messages RESTART IDENTITY`, r.schema)
	if _, err := r.pool.Exec(ctx, truncateQuery); err != nil {
		return 0, fmt.Errorf("%w: truncating table: %v", domain.ErrStoreUnavailable, err)
	}

	return count, nil
}

// HealthCheck verifies connectivity to the relational store.
func (r *MessageRepository) HealthCheck(ctx context.Context) error {
	var result int
	err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&result)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
