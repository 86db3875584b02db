package cleaner

import "strings"

// bracket pairs handled by the balancer. Angle brackets and LaTeX sizing
// commands are out of scope — sizing commands are normalized away before
// balancing runs.
var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}
var openerFor = map[byte]byte{')': '(', ']': '[', '}': '{'}

// BalanceBrackets repairs unmatched delimiters so that every bracket kind
// has equal open and close counts. Already-balanced input passes through
// unchanged.
//
// Pass 1 walks left to right with a stack of open delimiters and deletes
// orphan closers — a closer with no matching opener is removed rather than
// repaired, because inserting a synthetic opener at an earlier, unknown
// position is more likely to fabricate wrong structure. Pass 2 re-scans and
// appends closers for any openers still on the stack, innermost first, which
// restores valid nesting without touching balanced regions.
//
// This is structural repair only: the result is balanced, not necessarily
// valid mathematics.
func BalanceBrackets(text string) string {
	if text == "" {
		return text
	}

	// Pass 1: drop orphan closers.
	var stack []byte
	var orphans []int
	for i := 0; i < len(text); i++ {
		c := text[i]
		if _, ok := closerFor[c]; ok {
			stack = append(stack, c)
			continue
		}
		opener, ok := openerFor[c]
		if !ok {
			continue
		}
		if len(stack) > 0 && stack[len(stack)-1] == opener {
			stack = stack[:len(stack)-1]
		} else {
			orphans = append(orphans, i)
		}
	}
	if len(orphans) > 0 {
		b := []byte(text)
		for i := len(orphans) - 1; i >= 0; i-- {
			pos := orphans[i]
			b = append(b[:pos], b[pos+1:]...)
		}
		text = string(b)
	}

	// Pass 2: close remaining openers. The stack is rebuilt because the
	// deletions above shift positions.
	stack = stack[:0]
	for i := 0; i < len(text); i++ {
		c := text[i]
		if _, ok := closerFor[c]; ok {
			stack = append(stack, c)
		} else if opener, ok := openerFor[c]; ok && len(stack) > 0 && stack[len(stack)-1] == opener {
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(closerFor[stack[i]])
	}
	return sb.String()
}

// Balanced reports whether each bracket kind has equal open and close counts.
func Balanced(text string) bool {
	for opener, closer := range closerFor {
		if strings.Count(text, string(opener)) != strings.Count(text, string(closer)) {
			return false
		}
	}
	return true
}
