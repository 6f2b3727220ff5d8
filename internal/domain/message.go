package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Message is a single producer-submitted record. Immutable once enqueued;
// the tracking id is the only thing that ties it to a later persisted row
// or batch_persisted event.
type Message struct {
	trackingID TrackingID
	userID     UserID
	channelID  ChannelID
	content    string
	createdAt  time.Time
	queuedAt   time.Time
}

var (
	ErrMessageContentEmpty = errors.New("message must have content")
)

// NewMessage builds a new Message, assigning a fresh TrackingID and
// stamping createdAt if the caller did not supply one. content must be
// non-empty.
func NewMessage(userID UserID, channelID ChannelID, content string, createdAt *time.Time) (*Message, error) {
	if content == "" {
		return nil, ErrMessageContentEmpty
	}

	stamp := time.Now().UTC()
	if createdAt != nil {
		stamp = createdAt.UTC()
	}

	now := time.Now().UTC()
	return &Message{
		trackingID: NewTrackingID(),
		userID:     userID,
		channelID:  channelID,
		content:    content,
		createdAt:  stamp,
		queuedAt:   now,
	}, nil
}

// ReconstructMessage rebuilds a Message from a decoded buffer entry.
// Used when the Batch Coordinator pops a record off the buffer. Does not
// re-validate, since the entry was already validated at ingest.
func ReconstructMessage(trackingID TrackingID, userID UserID, channelID ChannelID, content string, createdAt, queuedAt time.Time) *Message {
	return &Message{
		trackingID: trackingID,
		userID:     userID,
		channelID:  channelID,
		content:    content,
		createdAt:  createdAt,
		queuedAt:   queuedAt,
	}
}

// TrackingID returns the message's unique correlation id.
func (m *Message) TrackingID() TrackingID { return m.trackingID }

// UserID returns the producer-supplied user id.
func (m *Message) UserID() UserID { return m.userID }

// ChannelID returns the producer-supplied channel id.
func (m *Message) ChannelID() ChannelID { return m.channelID }

// Content returns the message body.
func (m *Message) Content() string { return m.content }

// CreatedAt returns the instant the message was logically created
// (producer-supplied or stamped at ingest).
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// QueuedAt returns the instant the message was appended to the buffer.
func (m *Message) QueuedAt() time.Time { return m.queuedAt }

// bufferRecord is the self-describing wire shape a Message is encoded to
// before being appended to the buffer list.
type bufferRecord struct {
	TrackingID string    `json:"tracking_id"`
	UserID     int64     `json:"user_id"`
	ChannelID  int64     `json:"channel_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	QueuedAt   time.Time `json:"queued_at"`
}

// EncodeBufferRecord serializes the Message for appending to the buffer.
func (m *Message) EncodeBufferRecord() ([]byte, error) {
	return json.Marshal(bufferRecord{
		TrackingID: m.trackingID.String(),
		UserID:     int64(m.userID),
		ChannelID:  int64(m.channelID),
		Content:    m.content,
		CreatedAt:  m.createdAt,
		QueuedAt:   m.queuedAt,
	})
}

// DecodeBufferRecord parses a raw buffer entry back into a Message.
// Returns ErrMalformedBufferEntry on any decode failure so the coordinator
// can discard it without disturbing the flush timer.
func DecodeBufferRecord(raw []byte) (*Message, error) {
	var rec bufferRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrMalformedBufferEntry
	}
	if rec.TrackingID == "" || rec.UserID <= 0 || rec.ChannelID <= 0 || rec.Content == "" {
		return nil, ErrMalformedBufferEntry
	}

	trackingID, err := ParseTrackingID(rec.TrackingID)
	if err != nil {
		return nil, ErrMalformedBufferEntry
	}

	return ReconstructMessage(trackingID, UserID(rec.UserID), ChannelID(rec.ChannelID), rec.Content, rec.CreatedAt, rec.QueuedAt), nil
}
