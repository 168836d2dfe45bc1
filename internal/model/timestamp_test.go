package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T10:11:12.345678", time.Date(2025, 1, 2, 10, 11, 12, 345678000, time.Local)},
		{"2025-01-02T10:11:12", time.Date(2025, 1, 2, 10, 11, 12, 0, time.Local)},
		{"2025-01-02 10:11:12", time.Date(2025, 1, 2, 10, 11, 12, 0, time.Local)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local)},
		{"2025-01-02T10:11:12Z", time.Date(2025, 1, 2, 10, 11, 12, 0, time.UTC)},
		{"2025-01-02T10:11:12.5+02:00", time.Date(2025, 1, 2, 8, 11, 12, 500000000, time.UTC)},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for free text")
	}
}

func TestFactDecodesNaiveTimestamp(t *testing.T) {
	var f Fact
	data := `{"timestamp": "2025-01-02T10:11:12.345678", "fact": "likes tea", "category": "preference", "importance": "high"}`
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		t.Fatal(err)
	}
	if f.Content != "likes tea" || f.Category != "preference" || f.Timestamp.Year() != 2025 {
		t.Errorf("got %+v", f)
	}

	// Written form stays RFC 3339 and reads back unchanged.
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	var back Fact
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Timestamp.Equal(f.Timestamp) || back.Content != f.Content {
		t.Errorf("round trip: %+v vs %+v", back, f)
	}
}

func TestOwnerDecodesLastAccess(t *testing.T) {
	var o OwnerProfile
	data := `{"name": "Chandan", "auth_phrase": "unlock agent chandan", "created": "2024-01-01", "last_access": "2025-01-02T10:11:00.123456"}`
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		t.Fatal(err)
	}
	if o.LastAccess == nil || o.LastAccess.Minute() != 11 {
		t.Errorf("last access = %v", o.LastAccess)
	}
	if o.AuthPhrase != "unlock agent chandan" {
		t.Errorf("phrase = %q", o.AuthPhrase)
	}

	var none OwnerProfile
	if err := json.Unmarshal([]byte(`{"name": "x", "last_access": null}`), &none); err != nil {
		t.Fatal(err)
	}
	if none.LastAccess != nil {
		t.Errorf("expected nil last access, got %v", none.LastAccess)
	}

	if err := json.Unmarshal([]byte(`{"last_access": "soon"}`), &none); err == nil {
		t.Error("expected error for bad timestamp")
	}
}

func TestTurnDecodesNaiveTimestamp(t *testing.T) {
	var c ConversationTurn
	data := `{"timestamp": "2025-01-02T10:15:00", "user": "hi", "agent": "hello", "session_id": "20250102_10"}`
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatal(err)
	}
	if c.Assistant != "hello" || c.SessionID != "20250102_10" || c.Timestamp.Hour() != 10 {
		t.Errorf("got %+v", c)
	}
}
