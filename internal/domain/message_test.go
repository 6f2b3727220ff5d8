package domain

import (
	"testing"
	"time"
)

func mustUserID(t *testing.T, v int64) UserID {
	t.Helper()
	id, err := NewUserID(v)
	if err != nil {
		t.Fatalf("unexpected error creating user id: %v", err)
	}
	return id
}

func mustChannelID(t *testing.T, v int64) ChannelID {
	t.Helper()
	id, err := NewChannelID(v)
	if err != nil {
		t.Fatalf("unexpected error creating channel id: %v", err)
	}
	return id
}

func TestNewMessage_ValidInput(t *testing.T) {
	userID := mustUserID(t, 7)
	channelID := mustChannelID(t, 3)

	msg, err := NewMessage(userID, channelID, "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.UserID() != userID {
		t.Errorf("expected user id %d, got %d", userID, msg.UserID())
	}
	if msg.ChannelID() != channelID {
		t.Errorf("expected channel id %d, got %d", channelID, msg.ChannelID())
	}
	if msg.Content() != "hello" {
		t.Errorf("expected content %q, got %q", "hello", msg.Content())
	}
	if msg.TrackingID().IsZero() {
		t.Error("expected non-zero tracking id")
	}
	if msg.CreatedAt().IsZero() {
		t.Error("expected created_at to be stamped")
	}
}

func TestNewMessage_EmptyContent(t *testing.T) {
	_, err := NewMessage(mustUserID(t, 1), mustChannelID(t, 1), "", nil)
	if err != ErrMessageContentEmpty {
		t.Errorf("expected ErrMessageContentEmpty, got %v", err)
	}
}

func TestNewMessage_ExplicitCreatedAt(t *testing.T) {
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := NewMessage(mustUserID(t, 1), mustChannelID(t, 1), "hi", &stamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.CreatedAt().Equal(stamp) {
		t.Errorf("expected created_at %v, got %v", stamp, msg.CreatedAt())
	}
}

func TestNewMessage_DistinctTrackingIDs(t *testing.T) {
	a, err := NewMessage(mustUserID(t, 1), mustChannelID(t, 1), "one", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewMessage(mustUserID(t, 1), mustChannelID(t, 1), "two", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.TrackingID().String() == b.TrackingID().String() {
		t.Error("expected distinct tracking ids for separate messages")
	}
}

func TestMessage_EncodeDecodeBufferRecord_RoundTrip(t *testing.T) {
	original, err := NewMessage(mustUserID(t, 42), mustChannelID(t, 9), "round trip", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, err := original.EncodeBufferRecord()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeBufferRecord(record)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.TrackingID() != original.TrackingID() {
		t.Errorf("tracking id mismatch: got %s, want %s", decoded.TrackingID(), original.TrackingID())
	}
	if decoded.UserID() != original.UserID() {
		t.Errorf("user id mismatch: got %d, want %d", decoded.UserID(), original.UserID())
	}
	if decoded.ChannelID() != original.ChannelID() {
		t.Errorf("channel id mismatch: got %d, want %d", decoded.ChannelID(), original.ChannelID())
	}
	if decoded.Content() != original.Content() {
		t.Errorf("content mismatch: got %q, want %q", decoded.Content(), original.Content())
	}
	if !decoded.CreatedAt().Equal(original.CreatedAt()) {
		t.Errorf("created_at mismatch: got %v, want %v", decoded.CreatedAt(), original.CreatedAt())
	}
}

func TestDecodeBufferRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("not json at all")},
		{"empty object", []byte(`{}`)},
		{"missing content", []byte(`{"tracking_id":"abc","user_id":1,"channel_id":1}`)},
		{"zero user id", []byte(`{"tracking_id":"abc","user_id":0,"channel_id":1,"content":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBufferRecord(tt.raw)
			if err != ErrMalformedBufferEntry {
				t.Errorf("expected ErrMalformedBufferEntry, got %v", err)
			}
		})
	}
}
