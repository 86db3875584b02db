package cleaner

import "testing"

func TestBalanceBrackets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already balanced", "(a+b)", "(a+b)"},
		{"balanced markup untouched", `\frac{27}{128}`, `\frac{27}{128}`},
		{"orphan closer deleted", "a)b", "ab"},
		{"missing closer appended", "(a", "(a)"},
		{"nested openers closed innermost first", "{a(b", "{a(b)}"},
		{"partial nesting completed", "((a)", "((a))"},
		{"leading closer then opener", ")(", "()"},
		{"mixed kinds", "a}b{c", "ab{c}"},
		{"square brackets", "[x", "[x]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceBrackets(tt.in)
			if got != tt.want {
				t.Errorf("BalanceBrackets(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBalanceBracketsAlwaysBalances(t *testing.T) {
	inputs := []string{
		"", "(", ")", "((((", "))))", ")(", "}{", "][",
		`\frac{27}{128}(r-r^{*)^{-2}`,
		"a{b(c[d",
		"x))}}]]",
		"((a+b)*(c-d)",
	}
	for _, in := range inputs {
		out := BalanceBrackets(in)
		if !Balanced(out) {
			t.Errorf("BalanceBrackets(%q) = %q is not balanced", in, out)
		}
	}
}

func TestBalancedPassesThrough(t *testing.T) {
	inputs := []string{"(a+b)", "{x}", "[y]", "f(g(x))", `\frac{a}{b}`}
	for _, in := range inputs {
		if got := BalanceBrackets(in); got != in {
			t.Errorf("BalanceBrackets(%q) = %q, want unchanged", in, got)
		}
	}
}
