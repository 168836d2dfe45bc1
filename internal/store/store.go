// Package store persists the assistant's collections: facts, conversation
// turns and the owner profile. Each collection is loaded and saved as a
// whole document.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rcliao/sorma/internal/model"
)

// Collection names, shared by every backend.
const (
	CollectionFacts         = "facts"
	CollectionConversations = "conversations"
	CollectionOwner         = "owner_profile"
)

// ErrOwnerNotFound is returned by LoadOwner when no profile has been saved.
var ErrOwnerNotFound = errors.New("owner profile not found")

// ErrCorrupt marks a collection whose persisted form could not be decoded.
var ErrCorrupt = errors.New("corrupt collection")

// Backend defines the persistence interface.
type Backend interface {
	// LoadFacts returns all facts in insertion order.
	LoadFacts(ctx context.Context) ([]model.Fact, error)

	// SaveFacts replaces the fact collection.
	SaveFacts(ctx context.Context, facts []model.Fact) error

	// LoadConversations returns all turns in insertion order.
	LoadConversations(ctx context.Context) ([]model.ConversationTurn, error)

	// SaveConversations replaces the conversation collection.
	SaveConversations(ctx context.Context, turns []model.ConversationTurn) error

	// LoadOwner returns the owner profile or ErrOwnerNotFound.
	LoadOwner(ctx context.Context) (*model.OwnerProfile, error)

	// SaveOwner replaces the owner profile.
	SaveOwner(ctx context.Context, owner *model.OwnerProfile) error

	// Close releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Kind        string // json | sqlite | redis
	DataDir     string
	RedisAddr   string
	RedisPrefix string
}

// Open returns the backend named by opts.Kind.
func Open(opts Options) (Backend, error) {
	switch opts.Kind {
	case "", "sqlite":
		return NewSQLiteBackend(filepath.Join(opts.DataDir, "sorma.db"))
	case "json":
		return NewJSONBackend(opts.DataDir)
	case "redis":
		return NewRedisBackend(opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: json, sqlite, redis)", opts.Kind)
	}
}
