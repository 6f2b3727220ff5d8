package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TrackingID is the opaque, collision-resistant identifier assigned to a
// Message at ingest. It is the sole correlation key between the producer's
// HTTP response and any later batch_persisted notification.
type TrackingID struct {
	value string
}

// NewTrackingID generates a fresh, collision-resistant tracking id.
func NewTrackingID() TrackingID {
	return TrackingID{value: uuid.New().String()}
}

// ParseTrackingID wraps an existing string as a TrackingID.
// used when reconstructing a Message read back from the buffer.
func ParseTrackingID(s string) (TrackingID, error) {
	if s == "" {
		return TrackingID{}, errors.New("tracking id cannot be empty")
	}
	return TrackingID{value: s}, nil
}

// String returns the wire representation of the tracking id.
func (id TrackingID) String() string {
	return id.value
}

// IsZero reports whether the TrackingID was never assigned.
func (id TrackingID) IsZero() bool {
	return id.value == ""
}

// BatchID identifies one committed batch. Generated fresh per commit and
// never reused.
type BatchID struct {
	value string
}

// NewBatchID generates a fresh batch id.
func NewBatchID() BatchID {
	return BatchID{value: uuid.New().String()}
}

// ParseBatchID wraps an existing string as a BatchID.
// used when decoding a persistence event off the pub/sub channel.
func ParseBatchID(s string) (BatchID, error) {
	if s == "" {
		return BatchID{}, errors.New("batch id cannot be empty")
	}
	return BatchID{value: s}, nil
}

// String returns the wire representation of the batch id.
func (id BatchID) String() string {
	return id.value
}

// UserID is the producer-supplied numeric user identifier carried on a
// Message.
type UserID int64

// ChannelID is the producer-supplied numeric channel identifier.
type ChannelID int64

var (
	ErrUserIDInvalid    = errors.New("user_id must be a positive integer")
	ErrChannelIDInvalid = errors.New("channel_id must be a positive integer")
)

// NewUserID validates and wraps a raw user id.
func NewUserID(v int64) (UserID, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrUserIDInvalid, v)
	}
	return UserID(v), nil
}

// NewChannelID validates and wraps a raw channel id.
func NewChannelID(v int64) (ChannelID, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrChannelIDInvalid, v)
	}
	return ChannelID(v), nil
}
