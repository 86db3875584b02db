package mathbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseLaTeX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse/latex" {
			t.Errorf("path = %q, want /parse/latex", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		var req parseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Expression != "x^{2}" {
			t.Errorf("expression = %q, want x^{2}", req.Expression)
		}
		json.NewEncoder(w).Encode(parseResponse{Result: "x**2"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	expr, err := c.ParseLaTeX(context.Background(), "x^{2}")
	if err != nil {
		t.Fatalf("ParseLaTeX failed: %v", err)
	}
	if expr.Rendering != "x**2" {
		t.Errorf("rendering = %q, want x**2", expr.Rendering)
	}
	if expr.IsEquation {
		t.Error("expected non-equation expression")
	}
}

func TestParseExpressionEquation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse/expression" {
			t.Errorf("path = %q, want /parse/expression", r.URL.Path)
		}
		json.NewEncoder(w).Encode(parseResponse{
			Result:   "Eq(x, 2)",
			LHS:      "x",
			RHS:      "2",
			Equation: true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	expr, err := c.ParseExpression(context.Background(), "x = 2")
	if err != nil {
		t.Fatalf("ParseExpression failed: %v", err)
	}
	if !expr.IsEquation || expr.LHS != "x" || expr.RHS != "2" {
		t.Errorf("unexpected expression: %+v", expr)
	}
}

func TestParseRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(parseResponse{Error: "unexpected token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ParseLaTeX(context.Background(), "garbage")
	if err == nil {
		t.Fatal("expected error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if parseErr.Reason != "unexpected token" {
		t.Errorf("reason = %q, want %q", parseErr.Reason, "unexpected token")
	}
}

func TestParseErrorBodyWithOKStatus(t *testing.T) {
	// Some bridge versions answer 200 with an error field; that is still a
	// rejection, not a transport failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(parseResponse{Error: "could not parse"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ParseExpression(context.Background(), "x")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParseUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ParseLaTeX(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Error("transport failure must not be a ParseError")
	}
}

func TestParseContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.ParseLaTeX(ctx, "x"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
