package cleaner

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only",
			in:   "   \n\t  ",
			want: "",
		},
		{
			name: "array wrapper stripped with alignment spec",
			in:   `\begin{array}{l}x=1\end{array}`,
			want: "x=1",
		},
		{
			name: "aligned wrapper stripped",
			in:   `\begin{aligned}a=b\end{aligned}`,
			want: "a=b",
		},
		{
			name: "best line wins by equality operator",
			in:   `y \\ x = 1`,
			want: "x = 1",
		},
		{
			name: "tied lines keep first",
			in:   `a+b \\ c+d`,
			want: "a+b",
		},
		{
			name: "short annotation line loses to equation",
			in:   `E=mc^{2} \\ \mathrm{Tie`,
			want: "E=mc^{2}",
		},
		{
			name: "hallucinated annotation removed",
			in:   `x+1 \operatorname{Tie`,
			want: "x+1",
		},
		{
			name: "congruence becomes equality",
			in:   `a \simeq b`,
			want: "a = b",
		},
		{
			name: "bold wrapper keeps content",
			in:   `\mathbf{v} = 0`,
			want: "v = 0",
		},
		{
			name: "text annotation dropped entirely",
			in:   `x=1\text{ where x is real}`,
			want: "x=1",
		},
		{
			name: "sizing delimiters normalized",
			in:   `\left(\frac{a}{b}\right)`,
			want: `(\frac{a}{b})`,
		},
		{
			name: "subscript identifier protected",
			in:   `p_{h}(r)`,
			want: `p_{\mathit{h}}(r)`,
		},
		{
			name: "superscript star becomes star subscript",
			in:   `r^{*}`,
			want: `r_{\mathit{star}}`,
		},
		{
			name: "bare superscript star",
			in:   `r^*`,
			want: `r_{\mathit{star}}`,
		},
		{
			name: "outer double braces unwrapped once",
			in:   `{{x+1}}`,
			want: `{x+1}`,
		},
		{
			name: "non-spanning double braces untouched",
			in:   `{{a}}+{{b}}`,
			want: `{{a}}+{{b}}`,
		},
		{
			name: "mathit preserved",
			in:   `\mathit{abc}`,
			want: `\mathit{abc}`,
		},
		{
			name: "congruence equation end to end",
			in:   `\chi(p_{h}(r)-0,0)\cong\frac{27}{128}(r-r^{*})^{-2}`,
			want: `\chi(p_{\mathit{h}}(r)-0,0)=\frac{27}{128}(r-r_{\mathit{star}})^{-2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"x=1",
		`\begin{array}{l}x=1\end{array}`,
		`\chi(p_{h}(r)-0,0)\cong\frac{27}{128}(r-r^{*})^{-2}`,
		`\left(\frac{a}{b}\right)`,
		`\mathbf{v} = 0`,
		`{{x+1}}`,
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a \t b\n c  "); got != "a b c" {
		t.Errorf("CollapseWhitespace = %q, want %q", got, "a b c")
	}
}
