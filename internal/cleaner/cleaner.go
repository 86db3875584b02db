// Package cleaner repairs the structural damage in raw recognizer output:
// wrapper environments, multi-line fragments, hallucinated annotations, and
// unbalanced delimiters. Every function here is total — garbage in, a
// best-effort single line of markup out, never an error.
package cleaner

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"equation-ocr/internal/logger"
)

// wrapperEnvs are array-like environments the recognizer hallucinates around
// single equations. The alignment specifier ({l}, {c}, ...) that may follow
// \begin{...} is removed with the marker.
var wrapperEnvs = []string{"array", "aligned", "gathered", "matrix"}

// hallucinationPatterns are substrings known to be recognizer noise, removed
// outright. "\mathrm{Tie" is a truncated text annotation the model emits on
// near-blank regions.
var hallucinationPatterns = []string{
	`\mathrm{Tie`,
	`\operatorname{Tie`,
}

// emptyWrappers are decorative wrapper fragments that carry no content.
var emptyWrappers = []string{
	`{{\mathrm{}}}`,
	`{\mathrm{}}`,
	`\mathrm{}`,
	`\text{}`,
}

// congruenceOps are equality-like operators normalized to "=" so downstream
// parsers see an equation rather than a relation they cannot represent.
var congruenceOps = []string{`\cong`, `\simeq`, `\approx`, `\sim`}

// styleWrappers maps text-styling commands to their unwrap policy: true keeps
// the wrapped content, false discards the wrapper and the wrapped text.
// \mathit is deliberately absent — it marks multi-character identifiers as
// atomic tokens for the structured parser and must survive cleaning.
var styleWrappers = []struct {
	command     string
	keepContent bool
}{
	{`\mathbf`, true},
	{`\mathrm`, true},
	{`\mathsf`, true},
	{`\boldsymbol`, true},
	{`\bold`, true},
	{`\textrm`, false},
	{`\text`, false},
}

// delimiterCommands normalizes \left / \right sizing commands to plain
// delimiters.
var delimiterCommands = [][2]string{
	{`\left(`, "("}, {`\right)`, ")"},
	{`\left[`, "["}, {`\right]`, "]"},
	{`\left\{`, "{"}, {`\right\}`, "}"},
	{`\left|`, "|"}, {`\right|`, "|"},
	{`\left.`, ""}, {`\right.`, ""},
}

var (
	subscriptRe  = regexp.MustCompile(`_\{([a-zA-Z0-9]+)\}`)
	alignSpecRe  = regexp.MustCompile(`^\{[lcr|]+\}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean turns raw recognizer markup into a single trimmed line. It is
// idempotent for input without row breaks or wrapper environments; on
// pathological nested noise it converges within two passes.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	// Fold unicode lookalikes (fullwidth digits, the U+2212 minus) to their
	// ASCII compatibility forms before any pattern matching.
	text = norm.NFKC.String(text)

	text = stripWrapperEnvironments(text)
	text = pickBestLine(text)
	text = removeHallucinations(text)
	text = normalizeCongruence(text)
	text = unwrapStyleCommands(text)
	text = normalizeDelimiterCommands(text)
	text = protectSubscripts(text)
	text = substituteSuperscriptStar(text)
	text = unwrapOuterDoubleBraces(text)

	cleaned := strings.TrimSpace(text)
	if cleaned != strings.TrimSpace(raw) {
		logger.Debug("structural clean changed input",
			logger.Int("rawLen", len(raw)),
			logger.Int("cleanLen", len(cleaned)))
	}
	return cleaned
}

// stripWrapperEnvironments removes \begin{env}/\end{env} markers for the
// known wrapper environments, together with a braced alignment specifier
// immediately following the begin marker.
func stripWrapperEnvironments(text string) string {
	for _, env := range wrapperEnvs {
		begin := `\begin{` + env + `}`
		end := `\end{` + env + `}`

		for {
			idx := strings.Index(text, begin)
			if idx == -1 {
				break
			}
			rest := text[idx+len(begin):]
			rest = alignSpecRe.ReplaceAllString(rest, "")
			text = text[:idx] + rest
		}
		text = strings.ReplaceAll(text, end, "")
	}
	return text
}

// pickBestLine splits on LaTeX row breaks and selects the segment most
// likely to be the actual equation. Scoring: +5 for an equality-like
// operator, -5 for a short bracketed text annotation (a hallucination
// signature), -5 for segments under 3 characters. Ties go to the first
// occurrence.
func pickBestLine(text string) string {
	if !strings.Contains(text, `\\`) {
		return text
	}

	var lines []string
	for _, part := range strings.Split(text, `\\`) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	best := lines[0]
	maxScore := scoreLine(lines[0])
	for _, line := range lines[1:] {
		if score := scoreLine(line); score > maxScore {
			maxScore = score
			best = line
		}
	}
	logger.Debug("selected best line from multi-line output",
		logger.Int("candidates", len(lines)),
		logger.Int("score", maxScore))
	return best
}

func scoreLine(line string) int {
	score := 0
	if strings.Contains(line, "=") || containsAny(line, congruenceOps) {
		score += 5
	}
	if (strings.Contains(line, `\mathrm`) || strings.Contains(line, `\text`)) && len(line) < 20 {
		score -= 5
	}
	if len(line) < 3 {
		score -= 5
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// removeHallucinations deletes known noise substrings and collapses empty
// decorative wrappers.
func removeHallucinations(text string) string {
	for _, p := range hallucinationPatterns {
		text = strings.ReplaceAll(text, p, "")
	}
	for _, w := range emptyWrappers {
		text = strings.ReplaceAll(text, w, "")
	}
	return text
}

// normalizeCongruence rewrites congruence and approximation operators to "=".
func normalizeCongruence(text string) string {
	for _, op := range congruenceOps {
		text = strings.ReplaceAll(text, op, "=")
	}
	return text
}

// unwrapStyleCommands removes text-styling wrappers. Wrappers marked
// keepContent lose only the command token; annotation wrappers lose the
// wrapped text as well. The scan is brace-aware so nested braces inside the
// wrapped content are handled correctly.
func unwrapStyleCommands(text string) string {
	for _, w := range styleWrappers {
		for {
			idx := strings.Index(text, w.command+"{")
			if idx == -1 {
				// Bare command token without braces: drop the token only.
				text = strings.ReplaceAll(text, w.command+" ", "")
				break
			}
			open := idx + len(w.command)
			close := matchingBrace(text, open)
			if close == -1 {
				// Truncated wrapper; drop the command token and its dangling
				// brace, keep the rest.
				text = text[:idx] + text[open+1:]
				continue
			}
			inner := text[open+1 : close]
			if w.keepContent {
				text = text[:idx] + inner + text[close+1:]
			} else {
				text = text[:idx] + text[close+1:]
			}
		}
	}
	return text
}

// matchingBrace returns the index of the brace closing the one at open, or
// -1 if the group is unterminated.
func matchingBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeDelimiterCommands replaces \left / \right sizing commands with
// plain delimiters.
func normalizeDelimiterCommands(text string) string {
	for _, pair := range delimiterCommands {
		text = strings.ReplaceAll(text, pair[0], pair[1])
	}
	return text
}

// protectSubscripts wraps braced subscript content in \mathit so the
// structured parser treats p_{h} as one identifier instead of splitting it
// into a product of single letters.
func protectSubscripts(text string) string {
	return subscriptRe.ReplaceAllString(text, `_{\mathit{$1}}`)
}

// substituteSuperscriptStar rewrites the ^* decoration, which structured
// parsers reject, into a star-suffixed subscript identifier.
func substituteSuperscriptStar(text string) string {
	text = strings.ReplaceAll(text, `^{*}`, `_{\mathit{star}}`)
	text = strings.ReplaceAll(text, `^*`, `_{\mathit{star}}`)
	return text
}

// unwrapOuterDoubleBraces removes one level of a doubled brace pair that
// spans the entire string.
func unwrapOuterDoubleBraces(text string) string {
	if !strings.HasPrefix(text, "{{") || !strings.HasSuffix(text, "}}") || len(text) < 4 {
		return text
	}
	// Only unwrap when both outer pairs actually span the whole string.
	if matchingBrace(text, 0) == len(text)-1 && matchingBrace(text, 1) == len(text)-2 {
		return text[1 : len(text)-1]
	}
	return text
}

// CollapseWhitespace reduces whitespace runs to single spaces and trims.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
