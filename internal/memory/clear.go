package memory

import (
	"context"
	"fmt"
)

// Scope selects which log Clear truncates.
type Scope string

const (
	ScopeShort Scope = "short"
	ScopeLong  Scope = "long"
	ScopeAll   Scope = "all"
)

// ParseScope validates a scope string. An empty string means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeShort, ScopeLong, ScopeAll:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

// Clear truncates the logs selected by scope.
//
// ScopeAll clears conversations before facts and stops at the first failed
// write. A failure on the facts write therefore leaves conversations
// cleared and facts untouched.
func (s *Store) Clear(ctx context.Context, scope Scope) error {
	if _, err := ParseScope(string(scope)); err != nil {
		return err
	}
	if scope == "" {
		scope = ScopeAll
	}

	if scope == ScopeShort || scope == ScopeAll {
		s.turnsMu.Lock()
		err := s.saveConversations(ctx, "clear", nil)
		s.turnsMu.Unlock()
		if err != nil {
			return err
		}
	}
	if scope == ScopeLong || scope == ScopeAll {
		s.factsMu.Lock()
		err := s.saveFacts(ctx, "clear", nil)
		s.factsMu.Unlock()
		if err != nil {
			return err
		}
	}

	s.logger.Info("memory: cleared", "scope", string(scope))
	return nil
}
