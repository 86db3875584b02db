// Package mathbridge is the HTTP client for the symbolic-math bridge
// service, the external collaborator providing both parser tiers: the
// structured LaTeX parser and the permissive generic infix parser. The
// bridge also exposes simplify/solve/verify endpoints for the downstream
// evaluator; this service only consumes the two parse endpoints.
package mathbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"equation-ocr/internal/canonical"
	"equation-ocr/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP client timeout for parser calls.
	DefaultTimeout = 10 * time.Second

	parseLaTeXPath      = "/parse/latex"
	parseExpressionPath = "/parse/expression"
)

// Client talks to the bridge service. It implements both
// canonical.StructuredParser and canonical.GenericParser.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a bridge client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Expression string `json:"expression"`
}

type parseResponse struct {
	Result   string `json:"result"`
	LHS      string `json:"lhs,omitempty"`
	RHS      string `json:"rhs,omitempty"`
	Equation bool   `json:"equation,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ParseError is a parser rejection: the bridge was reachable and answered,
// but the expression did not parse. It drives tier escalation and is never a
// request-level failure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse rejected: " + e.Reason
}

// ParseLaTeX hands text to the structured-markup parser.
func (c *Client) ParseLaTeX(ctx context.Context, text string) (*canonical.Expression, error) {
	return c.parse(ctx, parseLaTeXPath, text)
}

// ParseExpression hands text to the generic infix parser. The bridge detects
// unknown function calls syntactically and treats them as opaque function
// symbols rather than rejecting.
func (c *Client) ParseExpression(ctx context.Context, text string) (*canonical.Expression, error) {
	return c.parse(ctx, parseExpressionPath, text)
}

func (c *Client) parse(ctx context.Context, path, text string) (*canonical.Expression, error) {
	body, err := json.Marshal(parseRequest{Expression: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("bridge request failed", logger.String("path", path), logger.Err(err))
		return nil, fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	var parsed parseResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid bridge response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		reason := parsed.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &ParseError{Reason: reason}
	}

	expr := &canonical.Expression{
		Rendering:  parsed.Result,
		LHS:        parsed.LHS,
		RHS:        parsed.RHS,
		IsEquation: parsed.Equation || (parsed.LHS != "" && parsed.RHS != ""),
	}
	return expr, nil
}
