// Package pipeline chains the repair stages into the full normalization
// flow: structural cleaning, optional LLM standardization, tiered
// canonicalization, and confidence scoring. Every stage is total; the
// pipeline never fails a request.
package pipeline

import (
	"context"

	"equation-ocr/internal/canonical"
	"equation-ocr/internal/cleaner"
	"equation-ocr/internal/logger"
	"equation-ocr/internal/metrics"
)

// Standardizer is the optional text-to-text pre-standardization collaborator.
// Implementations must not return errors to the pipeline: when the model is
// unavailable or declines, ok is false and the pipeline degrades to
// heuristic-only correction.
type Standardizer interface {
	Standardize(ctx context.Context, text string) (out string, ok bool)
}

// Result is the terminal output for one recognition, immutable after
// construction.
type Result struct {
	// Latex is the cleaned recognizer output.
	Latex string
	// Raw is the least-corrected candidate handed to the first tier.
	Raw string
	// Refined is the most-corrected candidate any tier attempted.
	Refined string
	// Expression is the canonical expression; always bracket-balanced.
	Expression string
	// Validated is true iff a parser collaborator accepted Expression verbatim.
	Validated bool
	// Confidence is in [0, 1].
	Confidence float64
	// Tier names the tier that produced the terminal state.
	Tier canonical.Tier
	// LLMUsed reports whether the standardizer supplied the primary candidate.
	LLMUsed bool
}

// Pipeline wires the stages together. The zero value is not usable; use New.
type Pipeline struct {
	canon        *canonical.Canonicalizer
	standardizer Standardizer
}

// New creates a Pipeline. standardizer may be nil when the LLM adapter is
// not configured.
func New(canon *canonical.Canonicalizer, standardizer Standardizer) *Pipeline {
	return &Pipeline{canon: canon, standardizer: standardizer}
}

// Process runs the full normalization flow over raw recognizer markup. It is
// synchronous, CPU-bound except for the parser and standardizer calls, and
// safe for concurrent use across requests.
func (p *Pipeline) Process(ctx context.Context, rawMarkup string) *Result {
	cleaned := cleaner.Clean(rawMarkup)

	candidate := cleaned
	llmUsed := false
	switch {
	case p.standardizer == nil || cleaned == "":
		metrics.StandardizerUse.WithLabelValues("disabled").Inc()
	default:
		if out, ok := p.standardizer.Standardize(ctx, cleaned); ok && out != "" {
			logger.Debug("standardizer substituted primary candidate",
				logger.Int("inLen", len(cleaned)),
				logger.Int("outLen", len(out)))
			candidate = cleaner.Clean(out)
			llmUsed = true
			metrics.StandardizerUse.WithLabelValues("used").Inc()
		} else {
			metrics.StandardizerUse.WithLabelValues("declined").Inc()
		}
	}

	canonResult := p.canon.Canonicalize(ctx, candidate)

	confidence := canonical.EstimateConfidence(candidate)
	if llmUsed {
		confidence = canonical.StandardizerTrust
	}
	confidence = canonical.AdjustConfidence(confidence, canonResult.Validated)

	expression := canonResult.Expression
	if !canonResult.Validated {
		// Terminal failure still reports the best-effort cleaned string.
		expression = cleaner.BalanceBrackets(candidate)
	}

	logger.Info("pipeline result",
		logger.String("tier", string(canonResult.Tier)),
		logger.Bool("validated", canonResult.Validated),
		logger.Float64("confidence", confidence),
		logger.Bool("llmUsed", llmUsed))

	return &Result{
		Latex:      cleaned,
		Raw:        candidate,
		Refined:    canonResult.Refined,
		Expression: expression,
		Validated:  canonResult.Validated,
		Confidence: confidence,
		Tier:       canonResult.Tier,
		LLMUsed:    llmUsed,
	}
}
