package memory

import (
	"context"
	"strings"

	"github.com/rcliao/sorma/internal/model"
)

// Hit types returned by Search.
const (
	HitFact         = "fact"
	HitConversation = "conversation"
)

// SearchHit is one match from Search. Exactly one of Fact or Turn is set.
type SearchHit struct {
	Type    string                  `json:"type"`
	Content string                  `json:"content"`
	Fact    *model.Fact             `json:"fact,omitempty"`
	Turn    *model.ConversationTurn `json:"conversation,omitempty"`
}

// Search returns facts whose content contains query, then turns where
// either side contains it. Matching is case-insensitive; each group keeps
// insertion order. A blank query matches nothing.
func (s *Store) Search(ctx context.Context, query string) []SearchHit {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var hits []SearchHit
	for _, f := range s.Facts(ctx) {
		if strings.Contains(strings.ToLower(f.Content), needle) {
			hits = append(hits, SearchHit{Type: HitFact, Content: f.Content, Fact: &f})
		}
	}
	for _, t := range s.RecentConversations(ctx, 0) {
		if strings.Contains(strings.ToLower(t.User), needle) ||
			strings.Contains(strings.ToLower(t.Assistant), needle) {
			hits = append(hits, SearchHit{
				Type:    HitConversation,
				Content: "User: " + t.User + "\nAssistant: " + t.Assistant,
				Turn:    &t,
			})
		}
	}
	return hits
}
