// Package corrector fixes common OCR substitution errors in structurally
// cleaned markup: character confusions, missing escapes, fragmented tokens,
// and operator noise.
//
// The corrections live in an explicit ordered rule table (see rules.go).
// Order is significant — later rules assume the normalization done by
// earlier ones — so the table, not scattered ad hoc logic, is the unit of
// review and test coverage. Every rule is a pure total transform.
package corrector

import (
	"strings"

	"equation-ocr/internal/logger"
)

// Rule is one unit of transformation in the correction table.
type Rule struct {
	// Name identifies the rule in tests and debug logs.
	Name string
	// Apply is a pure function of its input string.
	Apply func(string) string
}

// Correct applies the full rule table in order and returns the corrected
// string. It never fails; unrecognized input passes through shaped only by
// whatever rules happen to match.
func Correct(text string) string {
	if text == "" {
		return ""
	}
	out := text
	for _, rule := range Rules {
		next := rule.Apply(out)
		if next != out {
			logger.Debug("correction rule applied", logger.String("rule", rule.Name))
			out = next
		}
	}
	return out
}

// unwrapCommand removes every occurrence of command{...} from text using a
// brace-aware scan, keeping the wrapped content. Nested braces inside the
// group are handled correctly, which a naive first-closing-brace scan is not.
func unwrapCommand(text, command string) string {
	for {
		idx := strings.Index(text, command+"{")
		if idx == -1 {
			return text
		}
		open := idx + len(command)
		depth := 0
		closeIdx := -1
		for i := open; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					closeIdx = i
				}
			}
			if closeIdx != -1 {
				break
			}
		}
		if closeIdx == -1 {
			// Unterminated group: drop the command token and its dangling
			// brace, keep the tail.
			return text[:idx] + text[open+1:]
		}
		text = text[:idx] + text[open+1:closeIdx] + text[closeIdx+1:]
	}
}
