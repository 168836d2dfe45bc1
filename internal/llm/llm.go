// Package llm talks to the language-model backends: a local Ollama server
// and the Anthropic cloud API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Kind names which backend produced a reply.
type Kind string

const (
	KindLocal Kind = "local"
	KindCloud Kind = "cloud"
	KindNone  Kind = "none"
)

// ErrNoBackend is returned when no backend is available.
var ErrNoBackend = errors.New("no AI models available")

// NoBackendReply is the text returned with KindNone.
const NoBackendReply = "No AI models available. Please check Ollama or the cloud API key."

// Backend generates text from a prompt.
type Backend interface {
	Kind() Kind
	Model() string
	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Result is a generated reply.
type Result struct {
	Text    string `json:"text"`
	Backend Kind   `json:"backend_used"`
	Model   string `json:"model,omitempty"`
}

// Selector tries backends in preference order.
type Selector struct {
	backends []Backend
	logger   *slog.Logger
}

// NewSelector returns a selector trying backends in the given order.
// Nil entries are skipped.
func NewSelector(logger *slog.Logger, backends ...Backend) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{logger: logger}
	for _, b := range backends {
		if b != nil {
			s.backends = append(s.backends, b)
		}
	}
	return s
}

// Backends returns the configured backends in preference order.
func (s *Selector) Backends() []Backend {
	return append([]Backend(nil), s.backends...)
}

// Generate asks each available backend in turn and returns the first
// success. When nothing answers it returns a KindNone result with
// NoBackendReply and an error wrapping ErrNoBackend.
func (s *Selector) Generate(ctx context.Context, prompt, system string) (Result, error) {
	var errs []error
	for _, b := range s.backends {
		if !b.Available(ctx) {
			s.logger.Debug("llm: backend unavailable", "backend", b.Kind(), "model", b.Model())
			continue
		}
		text, err := b.Generate(ctx, prompt, system)
		if err != nil {
			s.logger.Warn("llm: generate failed", "backend", b.Kind(), "model", b.Model(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Kind(), err))
			continue
		}
		return Result{Text: text, Backend: b.Kind(), Model: b.Model()}, nil
	}

	err := ErrNoBackend
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
	}
	return Result{Text: NoBackendReply, Backend: KindNone}, err
}

// Availability reports each backend's availability keyed by kind.
func (s *Selector) Availability(ctx context.Context) map[Kind]bool {
	out := map[Kind]bool{KindLocal: false, KindCloud: false}
	for _, b := range s.backends {
		out[b.Kind()] = b.Available(ctx)
	}
	return out
}
