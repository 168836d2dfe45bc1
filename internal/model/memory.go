// Package model defines the core assistant data types.
package model

import "time"

// Default values applied when a fact is stored without them.
const (
	DefaultCategory   = "general"
	DefaultImportance = "high"
)

// Fact is a statement the owner asked the assistant to remember.
type Fact struct {
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Content    string    `json:"fact"`
	Category   string    `json:"category"`
	Importance string    `json:"importance"`
}

// ConversationTurn is one user/assistant exchange.
type ConversationTurn struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Assistant string    `json:"agent"`
	SessionID string    `json:"session_id"`
}

// SessionIDFor derives the coarse (hourly) session identifier for a turn.
func SessionIDFor(t time.Time) string {
	return t.Format("20060102_15")
}

// ValidCategories lists the categories the CLI offers; any non-empty
// category is accepted by the store.
var ValidCategories = map[string]bool{
	"general":    true,
	"preference": true,
	"personal":   true,
	"work":       true,
	"file":       true,
}
