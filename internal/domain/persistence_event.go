package domain

import "time"

// PersistenceEvent is published on the pub/sub channel once a batch has
// committed to the relational store. Ephemeral: it is never retained past
// fan-out.
type PersistenceEvent struct {
	BatchID   BatchID
	IDs       []TrackingID
	BatchSize int
	Timestamp time.Time
}

// PersistedRow is one row as stored in the relational table.
type PersistedRow struct {
	ID         int64
	UserID     UserID
	ChannelID  ChannelID
	Content    string
	CreatedAt  time.Time
	InsertedAt time.Time
}

// Counters mirrors the Metrics Store's scalar counter set.
type Counters struct {
	TotalMessages    int64
	TotalBatches     int64
	CurrentRPS       float64
	WorkerBufferSize int
	// BatchStartTime is the instant the oldest currently-staged message
	// entered an empty staging area, or the zero value if staging is empty.
	BatchStartTime time.Time
}
