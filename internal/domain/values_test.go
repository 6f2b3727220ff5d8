package domain

import "testing"

func TestNewUserID_Validation(t *testing.T) {
	tests := []struct {
		name    string
		value   int64
		wantErr bool
	}{
		{"positive", 1, false},
		{"large", 1 << 40, false},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewUserID(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if int64(id) != tt.value {
					t.Errorf("expected %d, got %d", tt.value, id)
				}
			}
		})
	}
}

func TestNewChannelID_Validation(t *testing.T) {
	tests := []struct {
		name    string
		value   int64
		wantErr bool
	}{
		{"positive", 1, false},
		{"zero", 0, true},
		{"negative", -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChannelID(tt.value)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTrackingID_NewIsNeverZero(t *testing.T) {
	id := NewTrackingID()
	if id.IsZero() {
		t.Error("expected freshly generated tracking id to be non-zero")
	}
}

func TestParseTrackingID_Empty(t *testing.T) {
	_, err := ParseTrackingID("")
	if err == nil {
		t.Error("expected error parsing empty tracking id")
	}
}

func TestParseTrackingID_RoundTrip(t *testing.T) {
	id, err := ParseTrackingID("abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "abc-123" {
		t.Errorf("expected %q, got %q", "abc-123", id.String())
	}
}

func TestBatchID_FreshIDsAreDistinct(t *testing.T) {
	a := NewBatchID()
	b := NewBatchID()
	if a.String() == b.String() {
		t.Error("expected distinct batch ids")
	}
}

func TestParseBatchID_Empty(t *testing.T) {
	_, err := ParseBatchID("")
	if err == nil {
		t.Error("expected error parsing empty batch id")
	}
}
