package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultCloudModel     = "claude-3-5-haiku-latest"
	DefaultCloudMaxTokens = 1000
)

// CloudConfig configures the Anthropic backend.
type CloudConfig struct {
	APIKey    string // falls back to $ANTHROPIC_API_KEY
	Model     string
	MaxTokens int64
	BaseURL   string

	// Options are appended to the client options, mainly for tests.
	Options []option.RequestOption
}

// Cloud generates text with the Anthropic Messages API.
type Cloud struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	hasKey    bool
}

// NewCloud returns a cloud backend. Without an API key the backend reports
// itself unavailable.
func NewCloud(cfg CloudConfig) *Cloud {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCloudModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultCloudMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.Options...)

	return &Cloud{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		hasKey:    key != "",
	}
}

func (c *Cloud) Kind() Kind    { return KindCloud }
func (c *Cloud) Model() string { return c.model }

// Available reports whether an API key is configured. No request is made.
func (c *Cloud) Available(context.Context) bool { return c.hasKey }

// Generate sends a single-turn message and returns the concatenated text blocks.
func (c *Cloud) Generate(ctx context.Context, prompt, system string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("anthropic: response has no text content")
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
