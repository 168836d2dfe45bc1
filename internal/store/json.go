package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/rcliao/sorma/internal/model"
)

// File names used by JSONBackend.
const (
	longTermFile  = "long_term.json"
	shortTermFile = "short_term.json"
	ownerFile     = "owner.json"
)

// JSONBackend keeps each collection in its own JSON document under a
// directory. Writes go through a temp file and rename so a crash never
// leaves a half-written document behind.
type JSONBackend struct {
	dir string
}

// NewJSONBackend creates the directory if needed and returns a backend
// rooted at it.
func NewJSONBackend(dir string) (*JSONBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONBackend{dir: dir}, nil
}

// Dir returns the directory holding the documents.
func (b *JSONBackend) Dir() string { return b.dir }

func (b *JSONBackend) LoadFacts(ctx context.Context) ([]model.Fact, error) {
	var facts []model.Fact
	if err := b.read(longTermFile, &facts); err != nil {
		return nil, err
	}
	return facts, nil
}

func (b *JSONBackend) SaveFacts(ctx context.Context, facts []model.Fact) error {
	if facts == nil {
		facts = []model.Fact{}
	}
	return b.write(longTermFile, facts)
}

func (b *JSONBackend) LoadConversations(ctx context.Context) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	if err := b.read(shortTermFile, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (b *JSONBackend) SaveConversations(ctx context.Context, turns []model.ConversationTurn) error {
	if turns == nil {
		turns = []model.ConversationTurn{}
	}
	return b.write(shortTermFile, turns)
}

func (b *JSONBackend) LoadOwner(ctx context.Context) (*model.OwnerProfile, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, ownerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	var owner model.OwnerProfile
	if err := json.Unmarshal(data, &owner); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, ownerFile, err)
	}
	return &owner, nil
}

func (b *JSONBackend) SaveOwner(ctx context.Context, owner *model.OwnerProfile) error {
	return b.write(ownerFile, owner)
}

func (b *JSONBackend) Close() error { return nil }

// read decodes a document into v. A missing file leaves v untouched.
func (b *JSONBackend) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

func (b *JSONBackend) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(b.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
