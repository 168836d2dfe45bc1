package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/sorma/internal/llm"
)

// GenerateCode asks a model for code in language solving task. extra is
// optional context appended to the request.
func (a *Assistant) GenerateCode(ctx context.Context, language, task, extra string) (llm.Result, error) {
	language = orDefault(language, "python")
	prompt := fmt.Sprintf("Generate %s code for: %s", language, task)
	if strings.TrimSpace(extra) != "" {
		prompt += "\nContext: " + extra
	}
	system := fmt.Sprintf("You are an expert %s programmer. Provide clean, well-commented code.", language)
	return a.generate(ctx, prompt, system)
}

// ExplainCode asks a model to explain code.
func (a *Assistant) ExplainCode(ctx context.Context, code, language string) (llm.Result, error) {
	prompt := fmt.Sprintf("Explain this %s code:\n%s", orDefault(language, "python"), code)
	return a.generate(ctx, prompt, "You are a code instructor. Explain code clearly and concisely.")
}

// Translate asks a model to translate text into target.
func (a *Assistant) Translate(ctx context.Context, text, target string) (llm.Result, error) {
	target = orDefault(target, "English")
	prompt := fmt.Sprintf("Translate this text to %s:\n%s", target, text)
	system := fmt.Sprintf("You are a professional translator. Translate accurately to %s.", target)
	return a.generate(ctx, prompt, system)
}

func (a *Assistant) generate(ctx context.Context, prompt, system string) (llm.Result, error) {
	res, err := a.models.Generate(ctx, prompt, system)
	a.metrics.RecordGeneration(string(res.Backend))
	return res, err
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
