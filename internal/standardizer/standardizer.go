// Package standardizer is the optional LLM adapter that pre-standardizes
// cleaned markup before canonicalization. It is strictly best-effort: any
// failure — unreachable service, timeout, empty or suspicious answer —
// degrades to "no result" and the pipeline continues with heuristic
// correction only.
package standardizer

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"equation-ocr/internal/logger"
)

const defaultTimeout = 5 * time.Second

// systemPrompt keeps the model conservative: rewrite only, no solving, no
// commentary. Answers that ignore this are rejected by looksLikeMarkup.
const systemPrompt = `You normalize OCR output of mathematical formulas.

Rules:
- Input is a single LaTeX-like expression produced by an OCR model. It may contain recognition errors.
- Output ONLY the corrected expression, on one line, with no explanation, no markdown fences, no quotes.
- Fix obvious OCR errors (broken commands, split tokens, confused characters). Do not solve, simplify, or evaluate.
- If the input already looks correct, return it unchanged.`

// Config holds LLM connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Standardizer forwards text to the chat model. Safe for concurrent use.
type Standardizer struct {
	model   *openai.ChatModel
	timeout time.Duration
}

// New creates a Standardizer. A construction failure is returned so the
// caller can decide to run without the adapter; it is never fatal to the
// service.
func New(ctx context.Context, cfg Config) (*Standardizer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	model, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Standardizer{model: model, timeout: timeout}, nil
}

// Standardize implements pipeline.Standardizer. ok is false whenever the
// model produced nothing usable; it never returns an error.
func (s *Standardizer) Standardize(ctx context.Context, text string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(text),
	})
	if err != nil {
		logger.Warn("standardizer call failed, degrading to heuristic correction", logger.Err(err))
		return "", false
	}

	out := sanitizeAnswer(resp.Content)
	if out == "" || !looksLikeMarkup(out) {
		logger.Debug("standardizer answer rejected", logger.Int("len", len(out)))
		return "", false
	}
	return out, true
}

// sanitizeAnswer strips the decoration chat models add despite instructions:
// code fences, surrounding quotes, a leading "latex" language tag.
func sanitizeAnswer(answer string) string {
	out := strings.TrimSpace(answer)
	out = strings.TrimPrefix(out, "```latex")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.Trim(out, "`\"' \n")
	if idx := strings.IndexByte(out, '\n'); idx != -1 {
		out = out[:idx]
	}
	return strings.TrimSpace(out)
}

// looksLikeMarkup rejects prose answers: a usable standardization is short,
// single-line, and contains no sentence-like word runs.
func looksLikeMarkup(out string) bool {
	if len(out) > 300 {
		return false
	}
	words := 0
	for _, f := range strings.Fields(out) {
		if len(f) > 3 && isAlphabetic(f) {
			words++
		}
	}
	return words < 4
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
