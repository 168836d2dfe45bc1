package memory

import (
	"context"
	"strings"
)

// Context window sizes used when building the prompt block.
const (
	DefaultContextLimit = 5
	contextTurns        = 3
	contextFacts        = 5
)

// ContextForPrompt builds the memory block fed into the model's system
// prompt: the last three of the last limit turns, then the last five facts.
// It returns "" when both logs are empty.
func (s *Store) ContextForPrompt(ctx context.Context, limit int) string {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	var lines []string

	turns := s.RecentConversations(ctx, limit)
	if len(turns) > 0 {
		lines = append(lines, "Recent conversations:")
		for _, t := range tail(turns, contextTurns) {
			lines = append(lines, "User: "+t.User, "You: "+t.Assistant)
		}
	}

	facts := s.Facts(ctx)
	if len(facts) > 0 {
		lines = append(lines, "\nImportant facts you should remember:")
		for _, f := range tail(facts, contextFacts) {
			lines = append(lines, "- "+f.Content)
		}
	}

	return strings.Join(lines, "\n")
}
