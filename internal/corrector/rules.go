package corrector

import (
	"regexp"
	"strings"
)

// functionNames is the fixed set of function names that receive escape
// prefixes and argument normalization. Longer names come first so that
// whole-word matching never truncates (arcsin before sin).
var functionNames = []string{
	"arcsin", "arccos", "arctan",
	"sinh", "cosh", "tanh",
	"sin", "cos", "tan", "sec", "csc", "cot",
	"log", "ln", "exp", "sqrt", "lim",
}

// greekNames are the bare words promoted to escaped Greek letters.
var greekNames = []string{
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
	"iota", "kappa", "lambda", "mu", "nu", "xi", "pi", "rho", "sigma",
	"tau", "upsilon", "phi", "chi", "psi", "omega",
}

var greekSet = func() map[string]bool {
	m := make(map[string]bool, len(greekNames))
	for _, n := range greekNames {
		m[n] = true
	}
	return m
}()

var (
	smallSpaceRe = regexp.MustCompile(`\\[,;:!]|\\quad\b|\\qquad\b|\\ `)

	doubleBraceRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

	wordTokenRe = regexp.MustCompile(`\\?[A-Za-z]+`)

	zeroAfterDigitRe  = regexp.MustCompile(`([0-9])[oO]`)
	zeroBeforeDigitRe = regexp.MustCompile(`[oO]([0-9])`)

	timesSymbolRe  = regexp.MustCompile(`\\times\b|\\cdot\b|\\ast\b|[×·⋅]`)
	xBetweenNumsRe = regexp.MustCompile(`([0-9])\s+[xX]\s+([0-9])`)
	xBetweenVarsRe = regexp.MustCompile(`\b([a-wyzA-WYZ])\s+x\s+([a-wyzA-WYZ])\b`)

	digitPairRe   = regexp.MustCompile(`([0-9])\s+([0-9])`)
	decimalMarkRe = regexp.MustCompile(`([0-9])[,;:]([0-9])`)

	naturalLogRe = regexp.MustCompile(`\b[1I]n\s*\(`)

	differentialRe = regexp.MustCompile(`([0-9A-Za-z)])\s+d([a-z])\b`)

	asciiArrowRe = regexp.MustCompile(`-\s*>`)

	nestedParenRe = regexp.MustCompile(`\(\(([^()]*)\)\)`)

	bracedCommandRe = regexp.MustCompile(`\{(\\[a-zA-Z]+)\}`)

	commandSpaceDelimRe = regexp.MustCompile(`(\\[a-zA-Z]+)\s+([([])`)
	whitespaceRunRe     = regexp.MustCompile(`\s+`)
)

// fragmentRules maps letter-by-letter fragmented spellings to their symbols.
// Built once from the function and Greek tables: "s i n" (any case, any
// single-space separation) collapses to \sin.
var fragmentRules = func() []struct {
	re  *regexp.Regexp
	out string
} {
	names := append(append([]string{}, functionNames...), "pi")
	var rules []struct {
		re  *regexp.Regexp
		out string
	}
	for _, name := range names {
		if len(name) < 2 {
			continue
		}
		letters := strings.Split(name, "")
		pattern := `(?i)\b` + strings.Join(letters, `\s+`) + `\b`
		rules = append(rules, struct {
			re  *regexp.Regexp
			out string
		}{regexp.MustCompile(pattern), `\` + name})
	}
	return rules
}()

// functionEscapeRes insert missing escape prefixes on bare function names,
// case-insensitively, whole words only. Matching is done on word tokens so
// already-escaped names are left alone.
var functionSet = func() map[string]bool {
	m := make(map[string]bool, len(functionNames))
	for _, n := range functionNames {
		m[n] = true
	}
	return m
}()

// functionBraceRules convert \sin{...} style arguments to parentheses for
// the call-like functions. \sqrt keeps its braced argument: it is markup,
// not a call, and the structured parser requires the braces.
var functionBraceRules = func() []struct {
	re   *regexp.Regexp
	repl string
} {
	var rules []struct {
		re   *regexp.Regexp
		repl string
	}
	for _, name := range functionNames {
		if name == "sqrt" || name == "lim" {
			continue
		}
		rules = append(rules, struct {
			re   *regexp.Regexp
			repl string
		}{regexp.MustCompile(`\\` + name + `\{([^{}]*)\}`), `\` + name + `($1)`})
	}
	return rules
}()

// Rules is the ordered correction table. Order matters: escape insertion
// runs before spacing cleanup, digit joining runs after the o/O
// disambiguation that can create new digits, and so on. Tests cover each
// rule with at least one input/output pair.
var Rules = []Rule{
	{
		// \, \; \: \! \quad and backslash-space are spacing noise from the
		// recognizer; collapse all of them to a single space.
		Name: "whitespace-noise",
		Apply: func(s string) string {
			return smallSpaceRe.ReplaceAllString(s, " ")
		},
	},
	{
		// Unwrap decorative wrappers that survived structural cleaning,
		// brace-aware so nested groups stay intact. \mathit is preserved —
		// it protects multi-character identifiers.
		Name: "decorative-unwrap",
		Apply: func(s string) string {
			for _, cmd := range []string{`\mathbf`, `\mathrm`, `\mathsf`, `\boldsymbol`, `\bold`, `\operatorname`} {
				s = unwrapCommand(s, cmd)
			}
			return s
		},
	},
	{
		// Collapse {{x}} to {x}, then turn leftover grouping braces into
		// parentheses. Braces directly after ^ _ } or a letter are markup
		// arguments (superscripts, \frac, command tails) and are kept.
		Name: "brace-normalize",
		Apply: func(s string) string {
			for i := 0; i < 3; i++ {
				next := doubleBraceRe.ReplaceAllString(s, `{$1}`)
				if next == s {
					break
				}
				s = next
			}
			return bracesToParens(s)
		},
	},
	{
		// Letter-by-letter fragmented spellings ("s i n", "p i") collapse
		// to their escaped symbols.
		Name: "fragment-join",
		Apply: func(s string) string {
			for _, fr := range fragmentRules {
				s = fr.re.ReplaceAllString(s, fr.out)
			}
			return s
		},
	},
	{
		// Bare Greek letter names get their escape prefix and are
		// lowercased: Lambda -> \lambda. Already-escaped names pass through.
		Name: "greek-escape",
		Apply: func(s string) string {
			return wordTokenRe.ReplaceAllStringFunc(s, func(tok string) string {
				if strings.HasPrefix(tok, `\`) {
					return tok
				}
				if lower := strings.ToLower(tok); greekSet[lower] {
					return `\` + lower
				}
				return tok
			})
		},
	},
	{
		// The recognizer systematically reads the variable x as the Greek
		// letter chi; map it back.
		Name: "chi-to-x",
		Apply: func(s string) string {
			return strings.ReplaceAll(s, `\chi`, "x")
		},
	},
	{
		// A bare o/O adjacent to digits is the digit zero.
		Name: "o-to-zero",
		Apply: func(s string) string {
			s = zeroAfterDigitRe.ReplaceAllString(s, "${1}0")
			return zeroBeforeDigitRe.ReplaceAllString(s, "0$1")
		},
	},
	{
		// Multiplication-like symbols normalize to *. A bare letter x
		// between two digits or two single-letter variables, with
		// whitespace around it, is a multiplication sign. Known trade-off:
		// this can misread a genuine variable x in "a x b"; the whitespace
		// requirement keeps the false-positive rate low.
		Name: "multiplication-normalize",
		Apply: func(s string) string {
			s = timesSymbolRe.ReplaceAllString(s, "*")
			s = xBetweenNumsRe.ReplaceAllString(s, "$1 * $2")
			return xBetweenVarsRe.ReplaceAllString(s, "$1 * $2")
		},
	},
	{
		// Join whitespace-split digits into multi-digit numbers. Joining
		// creates new adjacent pairs, so run a fixed number of passes.
		// Comma/semicolon/colon between digits is a decimal point.
		Name: "digit-join",
		Apply: func(s string) string {
			for i := 0; i < 4; i++ {
				next := digitPairRe.ReplaceAllString(s, "$1$2")
				if next == s {
					break
				}
				s = next
			}
			return decimalMarkRe.ReplaceAllString(s, "$1.$2")
		},
	},
	{
		// Insert missing escape prefixes on bare function names,
		// case-insensitive, whole words only.
		Name: "function-escape",
		Apply: func(s string) string {
			return wordTokenRe.ReplaceAllStringFunc(s, func(tok string) string {
				if strings.HasPrefix(tok, `\`) {
					return tok
				}
				if lower := strings.ToLower(tok); functionSet[lower] {
					return `\` + lower
				}
				return tok
			})
		},
	},
	{
		// "1n(" and "In(" are the natural log; the recognizer confuses the
		// lowercase l with 1 and I.
		Name: "natural-log",
		Apply: func(s string) string {
			return naturalLogRe.ReplaceAllString(s, `\ln(`)
		},
	},
	{
		// Mark single-letter differentials in integrals: "f(x) dx" gets the
		// thin-space differential marker the structured parser expects.
		Name: "differential-marker",
		Apply: func(s string) string {
			if !strings.Contains(s, `\int`) {
				return s
			}
			return differentialRe.ReplaceAllString(s, `$1 \, d$2`)
		},
	},
	{
		// Limit notation cleanup: drop \limits and rewrite ASCII arrows.
		Name: "limit-cleanup",
		Apply: func(s string) string {
			s = strings.ReplaceAll(s, `\limits`, "")
			return asciiArrowRe.ReplaceAllString(s, `\to `)
		},
	},
	{
		// Collapse redundant nested parentheses: ((x)) -> (x). Fixed
		// iteration count, collapsing can expose new pairs.
		Name: "nested-paren-collapse",
		Apply: func(s string) string {
			for i := 0; i < 3; i++ {
				next := nestedParenRe.ReplaceAllString(s, "($1)")
				if next == s {
					break
				}
				s = next
			}
			return s
		},
	},
	{
		// \sin{x} -> \sin(x) for call-like functions, and {\alpha} -> \alpha
		// for braces wrapping a single escaped command.
		Name: "function-argument",
		Apply: func(s string) string {
			for _, fb := range functionBraceRules {
				s = fb.re.ReplaceAllString(s, fb.repl)
			}
			return bracedCommandRe.ReplaceAllString(s, "$1")
		},
	},
	{
		// Final whitespace normalization; also drop the space between an
		// escaped command and its opening delimiter so "\sin (x)" reads as
		// a call.
		Name: "whitespace-final",
		Apply: func(s string) string {
			s = commandSpaceDelimRe.ReplaceAllString(s, "$1$2")
			return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(s, " "))
		},
	},
}

// bracesToParens converts grouping braces to parentheses while leaving
// markup-argument braces (preceded by ^ _ } or a letter) untouched. Both
// braces of a pair are rewritten together so balance is preserved.
func bracesToParens(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] != '{' {
			continue
		}
		if i > 0 {
			p := b[i-1]
			if p == '^' || p == '_' || p == '}' ||
				(p >= 'a' && p <= 'z') || (p >= 'A' && p <= 'Z') {
				continue
			}
		}
		closeIdx := matchingBraceAt(b, i)
		if closeIdx == -1 {
			continue
		}
		b[i] = '('
		b[closeIdx] = ')'
	}
	return string(b)
}

func matchingBraceAt(b []byte, open int) int {
	depth := 0
	for i := open; i < len(b); i++ {
		switch b[i] {
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
