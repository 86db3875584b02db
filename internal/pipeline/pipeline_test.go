package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"equation-ocr/internal/canonical"
)

type fakeParser struct {
	acceptStructured bool
	acceptGeneric    bool
}

func (f *fakeParser) ParseLaTeX(_ context.Context, text string) (*canonical.Expression, error) {
	if f.acceptStructured {
		return &canonical.Expression{Rendering: text}, nil
	}
	return nil, errors.New("parse rejected")
}

func (f *fakeParser) ParseExpression(_ context.Context, text string) (*canonical.Expression, error) {
	if f.acceptGeneric {
		return &canonical.Expression{Rendering: text}, nil
	}
	return nil, errors.New("parse rejected")
}

type fakeStandardizer struct {
	out    string
	ok     bool
	called bool
}

func (f *fakeStandardizer) Standardize(_ context.Context, text string) (string, bool) {
	f.called = true
	return f.out, f.ok
}

func TestProcessValidated(t *testing.T) {
	parser := &fakeParser{acceptStructured: true}
	p := New(canonical.New(parser, parser), nil)

	result := p.Process(context.Background(), "x+1")

	if !result.Validated {
		t.Fatal("expected validated result")
	}
	if result.Tier != canonical.TierPrimary {
		t.Errorf("tier = %q, want %q", result.Tier, canonical.TierPrimary)
	}
	if result.Expression != "x+1" {
		t.Errorf("expression = %q, want x+1", result.Expression)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", result.Confidence)
	}
	if result.LLMUsed {
		t.Error("LLMUsed = true without a standardizer")
	}
}

func TestProcessUnvalidated(t *testing.T) {
	parser := &fakeParser{}
	p := New(canonical.New(parser, parser), nil)

	result := p.Process(context.Background(), "garbage(((")

	if result.Validated {
		t.Fatal("expected unvalidated result")
	}
	if result.Expression != "garbage((()))" {
		t.Errorf("expression = %q, want balanced cleanup", result.Expression)
	}
	if result.Confidence >= 0.9 {
		t.Errorf("confidence = %v, want below base for unvalidated garbage", result.Confidence)
	}
}

func TestProcessWithStandardizer(t *testing.T) {
	parser := &fakeParser{acceptStructured: true}
	std := &fakeStandardizer{out: "y = 2", ok: true}
	p := New(canonical.New(parser, parser), std)

	result := p.Process(context.Background(), "y=Z")

	if !std.called {
		t.Fatal("standardizer not consulted")
	}
	if !result.LLMUsed {
		t.Error("LLMUsed = false, want true")
	}
	if result.Raw != "y = 2" {
		t.Errorf("raw candidate = %q, want standardized text", result.Raw)
	}
	if result.Latex != "y=Z" {
		t.Errorf("latex = %q, want original cleaned text", result.Latex)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want standardizer trust plus validation bonus clamped to 1.0", result.Confidence)
	}
}

func TestProcessStandardizerDeclines(t *testing.T) {
	parser := &fakeParser{acceptStructured: true}
	std := &fakeStandardizer{ok: false}
	p := New(canonical.New(parser, parser), std)

	result := p.Process(context.Background(), "x+1")

	if result.LLMUsed {
		t.Error("LLMUsed = true after standardizer declined")
	}
	if result.Raw != "x+1" {
		t.Errorf("raw candidate = %q, want cleaned input", result.Raw)
	}
}

// chiParser rejects anything still containing the chi escape, forcing the
// heuristic tier to run its substitution rules.
type chiParser struct{ fakeParser }

func (p *chiParser) ParseLaTeX(_ context.Context, text string) (*canonical.Expression, error) {
	if strings.Contains(text, `\chi`) {
		return nil, errors.New("parse rejected")
	}
	return &canonical.Expression{Rendering: text}, nil
}

func TestProcessCongruenceRegression(t *testing.T) {
	parser := &chiParser{}
	p := New(canonical.New(parser, &parser.fakeParser), nil)

	result := p.Process(context.Background(), `\chi(p_{h}(r)-0,0)\cong\frac{27}{128}(r-r^{*})^{-2}`)

	if !result.Validated {
		t.Fatal("expected validated result")
	}
	if result.Tier != canonical.TierHeuristic {
		t.Errorf("tier = %q, want %q", result.Tier, canonical.TierHeuristic)
	}
	want := `x(ph(r)-0.0)=\frac{27}{128}(r-rstar)^{-2}`
	if result.Expression != want {
		t.Errorf("expression = %q, want %q", result.Expression, want)
	}
	if !strings.Contains(result.Expression, "27}{128") {
		t.Error("fraction 27/128 lost during correction")
	}
	if !strings.Contains(result.Expression, "star") {
		t.Error("star-derived identifier lost during correction")
	}
}

func TestProcessWrapperWithStrayCloser(t *testing.T) {
	parser := &fakeParser{acceptStructured: true}
	p := New(canonical.New(parser, parser), nil)

	result := p.Process(context.Background(), `\begin{array}{l}x^{2} + 2x + 1}\end{array}`)

	if !result.Validated || result.Tier != canonical.TierPrimary {
		t.Fatalf("got tier %q validated %v, want primary validated", result.Tier, result.Validated)
	}
	if result.Expression != "x^{2} + 2x + 1" {
		t.Errorf("expression = %q, want wrapper and orphan closer removed", result.Expression)
	}
}

func TestProcessEmptyInputSkipsStandardizer(t *testing.T) {
	parser := &fakeParser{}
	std := &fakeStandardizer{out: "x", ok: true}
	p := New(canonical.New(parser, parser), std)

	result := p.Process(context.Background(), "   ")

	if std.called {
		t.Error("standardizer consulted for empty input")
	}
	if result.Validated {
		t.Error("empty input must not validate")
	}
}
