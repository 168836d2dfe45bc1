package memory

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/sorma/internal/model"
)

// ImportFacts appends facts produced by an export. Facts whose ID is
// already stored, or whose content is blank, are skipped. Missing IDs,
// timestamps, categories and importance are filled in. It returns how many
// imported facts are stored once the long-term limit has been applied.
func (s *Store) ImportFacts(ctx context.Context, facts []model.Fact) (int, error) {
	s.factsMu.Lock()
	defer s.factsMu.Unlock()

	existing := s.loadFacts(ctx)
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		if f.ID != "" {
			seen[f.ID] = true
		}
	}

	imported := make(map[string]bool)
	for _, f := range facts {
		f.Content = strings.TrimSpace(f.Content)
		if f.Content == "" || (f.ID != "" && seen[f.ID]) {
			continue
		}
		if f.ID == "" {
			f.ID = ulid.Make().String()
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = s.cfg.Now()
		}
		if f.Category == "" {
			f.Category = model.DefaultCategory
		}
		if f.Importance == "" {
			f.Importance = model.DefaultImportance
		}
		seen[f.ID] = true
		imported[f.ID] = true
		existing = append(existing, f)
	}
	if len(imported) == 0 {
		return 0, nil
	}
	if limit := s.cfg.LongTermLimit; limit > 0 && len(existing) > limit {
		existing = existing[len(existing)-limit:]
	}
	if err := s.saveFacts(ctx, "import", existing); err != nil {
		return 0, err
	}

	kept := 0
	for _, f := range existing {
		if imported[f.ID] {
			kept++
		}
	}
	return kept, nil
}
