// Package canonical turns cleaned markup into a canonical expression through
// a tiered validation state machine. Tiers escalate from least to most
// destructive so correct input is never mangled by aggressive cleanup, while
// garbage still yields a best-effort string instead of a hard failure.
//
// Parser collaborators are injected as interfaces; parse failures drive tier
// transitions and are never surfaced as errors.
package canonical

import (
	"context"
	"regexp"
	"strings"

	"equation-ocr/internal/cleaner"
	"equation-ocr/internal/corrector"
	"equation-ocr/internal/logger"
)

// Expression is the parsed result returned by a parser collaborator.
type Expression struct {
	// Rendering is the collaborator's string form of the expression.
	Rendering string
	// LHS and RHS are set when the expression is an equation.
	LHS, RHS   string
	IsEquation bool
}

// StructuredParser understands LaTeX-like equation syntax: superscripts,
// fractions, escaped function names.
type StructuredParser interface {
	ParseLaTeX(ctx context.Context, text string) (*Expression, error)
}

// GenericParser understands plain infix algebraic syntax only. It treats
// syntactically-detected unknown function calls as opaque function symbols
// rather than failing.
type GenericParser interface {
	ParseExpression(ctx context.Context, text string) (*Expression, error)
}

// Tier names one escalation level of the state machine.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierHeuristic   Tier = "heuristic"
	TierDeepClean   Tier = "deep-clean"
	TierRawFallback Tier = "raw-fallback"
)

// Attempt records one tier's parse attempt for observability.
type Attempt struct {
	Tier  Tier
	Input string
	Err   error
}

// Result is the terminal state of the canonicalizer.
type Result struct {
	// Expression always has balanced brackets. When Validated is true it is
	// the exact string a parser collaborator accepted.
	Expression string
	Validated  bool
	// Tier is the tier that produced the terminal state.
	Tier Tier
	// Refined is the most-corrected candidate that was attempted.
	Refined string
	// Attempts lists every tier tried, in order.
	Attempts []Attempt
}

// Canonicalizer runs the four-tier validation state machine.
type Canonicalizer struct {
	structured StructuredParser
	generic    GenericParser
}

// New creates a Canonicalizer with the given parser collaborators.
func New(structured StructuredParser, generic GenericParser) *Canonicalizer {
	return &Canonicalizer{structured: structured, generic: generic}
}

// Canonicalize drives the state machine over the cleaned input. Exactly one
// terminal state is reached; no tier is retried or revisited. Every tier
// input is bracket-balanced before it is handed to a parser, so the terminal
// expression always satisfies the balance invariant.
func (c *Canonicalizer) Canonicalize(ctx context.Context, cleaned string) *Result {
	result := &Result{}

	// Tier 1: hand the cleaned string directly to the structured parser.
	primary := cleaner.BalanceBrackets(cleaned)
	result.Refined = primary
	if expr, err := c.structured.ParseLaTeX(ctx, primary); err == nil {
		return c.succeed(result, TierPrimary, primary, renderExpression(expr))
	} else {
		result.Attempts = append(result.Attempts, Attempt{TierPrimary, primary, err})
		logger.Debug("primary tier failed", logger.Err(err))
	}

	// Tier 2: heuristic corrections on the original cleaned string, then
	// retry the structured parser.
	corrected := cleaner.BalanceBrackets(corrector.Correct(cleaned))
	result.Refined = corrected
	if expr, err := c.structured.ParseLaTeX(ctx, corrected); err == nil {
		return c.succeed(result, TierHeuristic, corrected, renderExpression(expr))
	} else {
		result.Attempts = append(result.Attempts, Attempt{TierHeuristic, corrected, err})
		logger.Debug("heuristic tier failed", logger.Err(err))
	}

	// Tier 3: aggressive strip, then the permissive generic parser.
	stripped := cleaner.BalanceBrackets(DeepClean(corrected))
	result.Refined = stripped
	if expr, err := c.generic.ParseExpression(ctx, stripped); err == nil {
		return c.succeed(result, TierDeepClean, stripped, renderExpression(expr))
	} else {
		result.Attempts = append(result.Attempts, Attempt{TierDeepClean, stripped, err})
		logger.Debug("deep-clean tier failed", logger.Err(err))
	}

	// Tier 4: the generic parser on the original cleaned string, bracket
	// balancing only. Whatever happens here is terminal.
	raw := cleaner.BalanceBrackets(cleaned)
	if expr, err := c.generic.ParseExpression(ctx, raw); err == nil {
		return c.succeed(result, TierRawFallback, raw, renderExpression(expr))
	} else {
		result.Attempts = append(result.Attempts, Attempt{TierRawFallback, raw, err})
	}

	result.Tier = TierRawFallback
	result.Expression = raw
	result.Validated = false
	logger.Debug("all tiers exhausted, returning unvalidated cleanup",
		logger.Int("attempts", len(result.Attempts)))
	return result
}

func (c *Canonicalizer) succeed(result *Result, tier Tier, input, rendering string) *Result {
	result.Tier = tier
	result.Validated = true
	result.Expression = cleaner.BalanceBrackets(rendering)
	logger.Debug("canonicalization succeeded",
		logger.String("tier", string(tier)),
		logger.Int("inputLen", len(input)))
	return result
}

var (
	subscriptArtifactRe = regexp.MustCompile(`_\{?([a-zA-Z0-9]+)\}?`)
	mathitArtifactRe    = regexp.MustCompile(`\\mathit\{([^{}]*)\}`)
	escapeCommandRe     = regexp.MustCompile(`\\[a-zA-Z]+`)
	digitRunRe          = regexp.MustCompile(`([0-9])\s+([0-9])`)
)

// renderExpression reformats a collaborator expression into the canonical
// calculator-safe form: ** becomes ^, subscript artifacts are flattened into
// the identifier (p_{h} -> ph), and equations render as "lhs = rhs" instead
// of an opaque equality object.
func renderExpression(expr *Expression) string {
	var out string
	if expr.IsEquation {
		out = expr.LHS + " = " + expr.RHS
	} else {
		out = expr.Rendering
	}
	out = strings.ReplaceAll(out, "**", "^")
	out = mathitArtifactRe.ReplaceAllString(out, "$1")
	out = subscriptArtifactRe.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

// deepCleanFunctions are command names kept (unescaped) through the
// aggressive strip so the generic parser still sees their calls.
var deepCleanFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "sec": true, "csc": true,
	"cot": true, "log": true, "ln": true, "exp": true, "sqrt": true,
	"arcsin": true, "arccos": true, "arctan": true,
	"sinh": true, "cosh": true, "tanh": true, "pi": true,
}

// deepCleanAllowed is the whitelist of characters that survive the deep
// clean: plain infix mathematics only.
func deepCleanAllowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	}
	switch r {
	case '+', '-', '*', '/', '^', '=', '.', '(', ')', ',', ' ':
		return true
	}
	return false
}

// DeepClean is the most destructive repair: every escape command is stripped
// (known function names keep their bare form), all bracket kinds become
// parentheses, non-mathematical characters are dropped, and split digit runs
// are rejoined. The output targets the generic infix parser, not the
// structured one.
func DeepClean(text string) string {
	text = escapeCommandRe.ReplaceAllStringFunc(text, func(cmd string) string {
		name := strings.ToLower(cmd[1:])
		if deepCleanFunctions[name] {
			return name
		}
		return " "
	})

	replacer := strings.NewReplacer("{", "(", "}", ")", "[", "(", "]", ")")
	text = replacer.Replace(text)

	var sb strings.Builder
	for _, r := range text {
		if deepCleanAllowed(r) {
			sb.WriteRune(r)
		}
	}
	text = sb.String()

	for i := 0; i < 4; i++ {
		next := digitRunRe.ReplaceAllString(text, "$1$2")
		if next == text {
			break
		}
		text = next
	}
	return cleaner.CollapseWhitespace(text)
}
