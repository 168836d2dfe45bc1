// Package auth gates assistant access behind the owner's phrases and
// tracks per-session authorization.
//
// Matching is plain case-insensitive substring search over the owner's
// authorization phrases, name tokens and wake words. It is a convenience
// gate, not authentication.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/sorma/internal/model"
	"github.com/rcliao/sorma/internal/store"
)

// ProfileStore loads and saves the persisted owner profile.
type ProfileStore interface {
	LoadOwner(ctx context.Context) (*model.OwnerProfile, error)
	SaveOwner(ctx context.Context, owner *model.OwnerProfile) error
}

// Gate decides whether input may reach the assistant.
//
// A Gate without a profile is in the "no profile" state and denies every
// input.
type Gate struct {
	mu      sync.RWMutex
	profile *model.OwnerProfile
	saver   ProfileStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewGate returns a gate for profile, which may be nil. The profile may
// carry phrases that are not persisted (a config overlay); saver only ever
// receives the stored document. saver may be nil, in which case
// RecordAccess only updates the in-memory profile.
func NewGate(profile *model.OwnerProfile, saver ProfileStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		profile: profile.Clone(),
		saver:   saver,
		logger:  logger,
		now:     time.Now,
	}
}

// HasProfile reports whether an owner profile is loaded.
func (g *Gate) HasProfile() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile != nil
}

// Owner returns a copy of the loaded profile, or nil.
func (g *Gate) Owner() *model.OwnerProfile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile.Clone()
}

// OwnerName returns the owner's name, or "Owner" when none is loaded.
func (g *Gate) OwnerName() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.profile == nil || g.profile.Name == "" {
		return "Owner"
	}
	return g.profile.Name
}

// SetProfile swaps the profile, keeping the stored last-access time when
// the new one has none.
func (g *Gate) SetProfile(profile *model.OwnerProfile) {
	next := profile.Clone()
	g.mu.Lock()
	defer g.mu.Unlock()
	if next != nil && next.LastAccess == nil && g.profile != nil {
		next.LastAccess = g.profile.LastAccess
	}
	g.profile = next
}

// IsAuthorized reports whether input contains an accepted phrase, a token
// of the owner's name, or a wake word.
func (g *Gate) IsAuthorized(input string) bool {
	g.mu.RLock()
	profile := g.profile
	g.mu.RUnlock()

	if profile == nil {
		return false
	}

	lower := strings.ToLower(input)
	for _, group := range [][]string{profile.Phrases(), profile.NameTokens(), profile.Wake()} {
		for _, s := range group {
			if strings.Contains(lower, s) {
				return true
			}
		}
	}
	return false
}

// IsUnlockPhrase reports whether input is exactly one of the accepted
// phrases, ignoring case and surrounding space.
func (g *Gate) IsUnlockPhrase(input string) bool {
	g.mu.RLock()
	profile := g.profile
	g.mu.RUnlock()

	if profile == nil {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, p := range profile.Phrases() {
		if lower == p {
			return true
		}
	}
	return false
}

// RecordAccess stamps the profile with the current time and persists the
// stamp onto the stored profile, leaving its other fields as stored. When
// no profile is stored the access is kept in memory only. Persistence
// failures are logged and otherwise ignored.
func (g *Gate) RecordAccess(ctx context.Context) {
	g.mu.Lock()
	if g.profile == nil {
		g.mu.Unlock()
		return
	}
	now := g.now()
	g.profile.LastAccess = &now
	g.mu.Unlock()

	if g.saver == nil {
		return
	}
	stored, err := g.saver.LoadOwner(ctx)
	switch {
	case errors.Is(err, store.ErrOwnerNotFound):
		g.logger.Debug("auth: no stored profile, access not persisted")
		return
	case err != nil:
		g.logger.Warn("auth: failed to record access", "error", err)
		return
	}
	stored.LastAccess = &now
	if err := g.saver.SaveOwner(ctx, stored); err != nil {
		g.logger.Warn("auth: failed to record access", "error", err)
	}
}

// UnauthorizedResponse is the denial message shown to callers.
func (g *Gate) UnauthorizedResponse() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	name := "my owner"
	if g.profile != nil && g.profile.Name != "" {
		name = g.profile.Name
	}
	return fmt.Sprintf("Sorry, I only respond to %s. Please use the correct authorization phrase.", name)
}
