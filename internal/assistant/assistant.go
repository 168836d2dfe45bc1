// Package assistant coordinates one request: authorization, command
// routing, memory and the model backends.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/command"
	"github.com/rcliao/sorma/internal/llm"
	"github.com/rcliao/sorma/internal/memory"
	"github.com/rcliao/sorma/internal/metrics"
)

// Kinds recorded for inputs that are not router commands.
const (
	KindChat = "chat"
	KindFile = "process_file"
)

const (
	filePrefix  = "process file:"
	recallLimit = 10
)

// Models generates replies and reports backend availability.
// *llm.Selector implements it.
type Models interface {
	Generate(ctx context.Context, prompt, system string) (llm.Result, error)
	Availability(ctx context.Context) map[llm.Kind]bool
}

// Options wires an Assistant.
type Options struct {
	Memory       *memory.Store
	Gate         *auth.Gate
	Router       *command.Router // default command.NewRouter()
	Models       Models
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ContextLimit int // turns considered for the prompt context
}

// Assistant processes user input for any number of sessions.
type Assistant struct {
	mem          *memory.Store
	gate         *auth.Gate
	router       *command.Router
	models       Models
	metrics      *metrics.Metrics
	logger       *slog.Logger
	contextLimit int
}

// Reply is the outcome of one input.
type Reply struct {
	Text    string   `json:"response"`
	Denied  bool     `json:"denied,omitempty"`
	Command string   `json:"command,omitempty"`
	Backend llm.Kind `json:"backend_used,omitempty"`
	Model   string   `json:"model,omitempty"`
}

// New returns an Assistant. Memory, Gate and Models are required.
func New(opts Options) *Assistant {
	if opts.Router == nil {
		opts.Router = command.NewRouter()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = memory.DefaultContextLimit
	}
	return &Assistant{
		mem:          opts.Memory,
		gate:         opts.Gate,
		router:       opts.Router,
		models:       opts.Models,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		contextLimit: opts.ContextLimit,
	}
}

// Gate returns the authorization gate.
func (a *Assistant) Gate() *auth.Gate { return a.gate }

// Memory returns the memory store.
func (a *Assistant) Memory() *memory.Store { return a.mem }

// Process handles one input for sess. An inactive session is activated
// when the input authorizes; otherwise the reply is a denial. An input
// that is exactly an authorization phrase only unlocks and greets.
func (a *Assistant) Process(ctx context.Context, sess *auth.Session, input string) Reply {
	if sess == nil {
		sess = auth.NewSession()
	}
	input = strings.TrimSpace(input)

	if !sess.Active() {
		if !a.gate.IsAuthorized(input) {
			a.metrics.RecordAuth(false)
			a.logger.Info("assistant: access denied", "session", sess.ID)
			return Reply{Text: a.gate.UnauthorizedResponse(), Denied: true}
		}
		sess.Activate()
		a.gate.RecordAccess(ctx)
		a.metrics.RecordAuth(true)
		a.logger.Info("assistant: session authorized", "session", sess.ID)

		if a.gate.IsUnlockPhrase(input) {
			return Reply{Text: fmt.Sprintf("Access granted. Hello, %s! How can I help you today?", a.gate.OwnerName())}
		}
	}

	if input == "" {
		return Reply{Text: `Say something, or type "help" to see what I can do.`}
	}

	if cmd, ok := a.router.Classify(input); ok {
		a.metrics.RecordCommand(string(cmd.Kind))
		return Reply{Text: a.handleCommand(ctx, cmd), Command: string(cmd.Kind)}
	}

	if len(input) >= len(filePrefix) && strings.EqualFold(input[:len(filePrefix)], filePrefix) {
		a.metrics.RecordCommand(KindFile)
		reply := a.ProcessFile(ctx, strings.TrimSpace(input[len(filePrefix):]))
		reply.Command = KindFile
		return reply
	}

	a.metrics.RecordCommand(KindChat)
	return a.chat(ctx, input)
}

func (a *Assistant) handleCommand(ctx context.Context, cmd command.Command) string {
	switch cmd.Kind {
	case command.Remember:
		if _, err := a.mem.RememberFact(ctx, cmd.Content, ""); err != nil {
			return a.memoryFailure("remember that", err)
		}
		return "Remembered: " + cmd.Content

	case command.Forget:
		n, err := a.mem.ForgetFact(ctx, cmd.Content)
		if err != nil {
			return a.memoryFailure("forget that", err)
		}
		if n == 0 {
			return fmt.Sprintf("No facts found containing '%s'", cmd.Content)
		}
		return fmt.Sprintf("Forgot %d fact(s) containing '%s'", n, cmd.Content)

	case command.Recall:
		return a.recall(ctx)

	case command.ClearMemory:
		if err := a.mem.Clear(ctx, memory.ScopeAll); err != nil {
			return a.memoryFailure("clear memory", err)
		}
		return "Cleared all memory"

	case command.Status:
		return a.Status(ctx).String()

	case command.Help:
		return HelpText
	}
	return "Unknown command."
}

func (a *Assistant) recall(ctx context.Context) string {
	facts := a.mem.Facts(ctx)
	if len(facts) == 0 {
		return "I don't remember any facts yet."
	}
	if len(facts) > recallLimit {
		facts = facts[len(facts)-recallLimit:]
	}
	var b strings.Builder
	b.WriteString("Here's what I remember:\n\n")
	for i, f := range facts {
		fmt.Fprintf(&b, "%d. %s (stored: %s)\n", i+1, f.Content, f.Timestamp.Format(time.DateOnly))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assistant) chat(ctx context.Context, input string) Reply {
	system := llm.SystemPrompt(a.gate.OwnerName(), a.mem.ContextForPrompt(ctx, a.contextLimit))

	res, err := a.models.Generate(ctx, input, system)
	a.metrics.RecordGeneration(string(res.Backend))
	if err != nil {
		a.logger.Warn("assistant: no model reply", "error", err)
		return Reply{Text: res.Text, Backend: res.Backend}
	}

	if _, err := a.mem.AddConversation(ctx, input, res.Text); err != nil {
		a.logger.Warn("assistant: conversation not saved", "error", err)
	}
	return Reply{Text: res.Text, Backend: res.Backend, Model: res.Model}
}

func (a *Assistant) memoryFailure(action string, err error) string {
	if errors.Is(err, memory.ErrStorage) {
		return fmt.Sprintf("I couldn't %s: memory storage is not available.", action)
	}
	return fmt.Sprintf("I couldn't %s: %v", action, err)
}

// HelpText lists the built-in commands.
const HelpText = `COMMANDS:
- remember [fact]                  remember something
- forget [keyword]                 forget facts containing keyword
- recall / what do you remember    show remembered facts
- clear memory                     clear all memory
- status                           show system status
- help                             show this help

FILES:
- process file: [path]             summarize a txt, md, log, json, csv or html file

EXAMPLES:
- remember my favorite color is blue
- process file: ~/notes/meeting.md
- what do you remember about my preferences?

You can also just chat; the conversation is remembered.`
