package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Layouts accepted by ParseTimestamp after RFC 3339. Zone-less forms are
// what Python's datetime.isoformat() writes for naive local times.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses an RFC 3339 time or a zone-less ISO 8601 time. A
// zone-less value is read in the local zone. An empty string yields the
// zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// looseTime decodes any form ParseTimestamp accepts.
type looseTime time.Time

func (t *looseTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = looseTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = looseTime(parsed)
	return nil
}

func (f *Fact) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string    `json:"id"`
		Timestamp  looseTime `json:"timestamp"`
		Content    string    `json:"fact"`
		Category   string    `json:"category"`
		Importance string    `json:"importance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Fact{
		ID:         raw.ID,
		Timestamp:  time.Time(raw.Timestamp),
		Content:    raw.Content,
		Category:   raw.Category,
		Importance: raw.Importance,
	}
	return nil
}

func (c *ConversationTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string    `json:"id"`
		Timestamp looseTime `json:"timestamp"`
		User      string    `json:"user"`
		Assistant string    `json:"agent"`
		SessionID string    `json:"session_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ConversationTurn{
		ID:        raw.ID,
		Timestamp: time.Time(raw.Timestamp),
		User:      raw.User,
		Assistant: raw.Assistant,
		SessionID: raw.SessionID,
	}
	return nil
}

func (o *OwnerProfile) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string            `json:"name"`
		AuthPhrase  string            `json:"auth_phrase"`
		AuthPhrases []string          `json:"auth_phrases"`
		WakeWords   []string          `json:"wake_words"`
		Preferences map[string]string `json:"preferences"`
		LastAccess  *looseTime        `json:"last_access"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = OwnerProfile{
		Name:        raw.Name,
		AuthPhrase:  raw.AuthPhrase,
		AuthPhrases: raw.AuthPhrases,
		WakeWords:   raw.WakeWords,
		Preferences: raw.Preferences,
	}
	if raw.LastAccess != nil && !time.Time(*raw.LastAccess).IsZero() {
		t := time.Time(*raw.LastAccess)
		o.LastAccess = &t
	}
	return nil
}
