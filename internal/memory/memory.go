// Package memory implements the assistant's two-tier memory: a capped
// short-term log of conversation turns and a long-term log of facts.
//
// Every operation reads the whole collection, changes it and writes it back.
// Each collection has its own mutex so concurrent callers are serialized
// per collection instead of racing on the read-modify-write.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/sorma/internal/model"
	"github.com/rcliao/sorma/internal/store"
)

// DefaultShortTermLimit is the number of turns kept when no limit is set.
const DefaultShortTermLimit = 50

var (
	// ErrStorage matches any *StorageError via errors.Is.
	ErrStorage = errors.New("storage error")

	// ErrEmptyFact is returned when asked to remember blank text.
	ErrEmptyFact = errors.New("fact content is empty")

	// ErrInvalidScope is returned by ParseScope and Clear for unknown scopes.
	ErrInvalidScope = errors.New("invalid memory scope (valid: short, long, all)")
)

// StorageError reports a failed write of a persisted collection.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Config tunes a Store. Zero values select defaults.
type Config struct {
	ShortTermLimit int // default DefaultShortTermLimit
	LongTermLimit  int // 0 means unlimited
	Logger         *slog.Logger
	Now            func() time.Time

	// OnWriteError is called with the collection name whenever a save fails.
	OnWriteError func(collection string)
}

// Store is the memory store.
type Store struct {
	backend store.Backend
	cfg     Config
	logger  *slog.Logger

	factsMu sync.Mutex
	turnsMu sync.Mutex
}

// New returns a Store persisting through backend.
func New(backend store.Backend, cfg Config) *Store {
	if cfg.ShortTermLimit <= 0 {
		cfg.ShortTermLimit = DefaultShortTermLimit
	}
	if cfg.LongTermLimit < 0 {
		cfg.LongTermLimit = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, cfg: cfg, logger: logger}
}

// ShortTermLimit returns the configured conversation cap.
func (s *Store) ShortTermLimit() int { return s.cfg.ShortTermLimit }

// RememberFact appends a fact. An empty category becomes "general".
func (s *Store) RememberFact(ctx context.Context, text, category string) (model.Fact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Fact{}, ErrEmptyFact
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = model.DefaultCategory
	}

	s.factsMu.Lock()
	defer s.factsMu.Unlock()

	facts := s.loadFacts(ctx)
	fact := model.Fact{
		ID:         ulid.Make().String(),
		Timestamp:  s.cfg.Now(),
		Content:    text,
		Category:   category,
		Importance: model.DefaultImportance,
	}
	facts = append(facts, fact)
	if limit := s.cfg.LongTermLimit; limit > 0 && len(facts) > limit {
		facts = facts[len(facts)-limit:]
	}

	if err := s.saveFacts(ctx, "remember", facts); err != nil {
		return model.Fact{}, err
	}
	return fact, nil
}

// ForgetFact removes every fact whose content contains keyword,
// case-insensitively, and returns how many were removed. A blank keyword
// removes nothing.
func (s *Store) ForgetFact(ctx context.Context, keyword string) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return 0, nil
	}

	s.factsMu.Lock()
	defer s.factsMu.Unlock()

	facts := s.loadFacts(ctx)
	kept := facts[:0:0]
	for _, f := range facts {
		if !strings.Contains(strings.ToLower(f.Content), needle) {
			kept = append(kept, f)
		}
	}

	removed := len(facts) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveFacts(ctx, "forget", kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Facts returns all facts in insertion order.
func (s *Store) Facts(ctx context.Context) []model.Fact {
	s.factsMu.Lock()
	defer s.factsMu.Unlock()
	return s.loadFacts(ctx)
}

// AddConversation appends a turn and evicts the oldest turns beyond the
// short-term cap.
func (s *Store) AddConversation(ctx context.Context, user, assistant string) (model.ConversationTurn, error) {
	s.turnsMu.Lock()
	defer s.turnsMu.Unlock()

	now := s.cfg.Now()
	turn := model.ConversationTurn{
		ID:        ulid.Make().String(),
		Timestamp: now,
		User:      user,
		Assistant: assistant,
		SessionID: model.SessionIDFor(now),
	}

	turns := append(s.loadConversations(ctx), turn)
	if over := len(turns) - s.cfg.ShortTermLimit; over > 0 {
		turns = turns[over:]
	}

	if err := s.saveConversations(ctx, "add", turns); err != nil {
		return model.ConversationTurn{}, err
	}
	return turn, nil
}

// RecentConversations returns the last limit turns, oldest first.
// A limit <= 0 returns every stored turn.
func (s *Store) RecentConversations(ctx context.Context, limit int) []model.ConversationTurn {
	s.turnsMu.Lock()
	defer s.turnsMu.Unlock()
	return tail(s.loadConversations(ctx), limit)
}

// Stats summarizes the collection sizes.
type Stats struct {
	ShortTermCount int `json:"short_term_count"`
	LongTermCount  int `json:"long_term_count"`
	Total          int `json:"total_memory_items"`
}

// Stats returns the current collection sizes.
func (s *Store) Stats(ctx context.Context) Stats {
	short := len(s.RecentConversations(ctx, 0))
	long := len(s.Facts(ctx))
	return Stats{ShortTermCount: short, LongTermCount: long, Total: short + long}
}

func (s *Store) loadFacts(ctx context.Context) []model.Fact {
	facts, err := s.backend.LoadFacts(ctx)
	if err != nil {
		s.logger.Warn("memory: facts unreadable, treating as empty", "error", err)
		return nil
	}
	return facts
}

func (s *Store) loadConversations(ctx context.Context) []model.ConversationTurn {
	turns, err := s.backend.LoadConversations(ctx)
	if err != nil {
		s.logger.Warn("memory: conversations unreadable, treating as empty", "error", err)
		return nil
	}
	return turns
}

func (s *Store) saveFacts(ctx context.Context, op string, facts []model.Fact) error {
	if err := s.backend.SaveFacts(ctx, facts); err != nil {
		return s.writeFailed(op, store.CollectionFacts, err)
	}
	return nil
}

func (s *Store) saveConversations(ctx context.Context, op string, turns []model.ConversationTurn) error {
	if err := s.backend.SaveConversations(ctx, turns); err != nil {
		return s.writeFailed(op, store.CollectionConversations, err)
	}
	return nil
}

func (s *Store) writeFailed(op, collection string, err error) error {
	s.logger.Error("memory: write failed", "op", op, "collection", collection, "error", err)
	if s.cfg.OnWriteError != nil {
		s.cfg.OnWriteError(collection)
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}
