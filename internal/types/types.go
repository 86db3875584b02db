// Package types defines core data types and error codes for the equation OCR service.
package types

import "net/http"

// RecognizeRequest is the body of a POST /recognize call.
type RecognizeRequest struct {
	// Image is the base64-encoded image data.
	Image string `json:"image"`
	// Format is an optional hint like "png" or "jpeg". Decoding sniffs the
	// actual format, so this is informational only.
	Format string `json:"format,omitempty"`
}

// RecognizeResponse is the success body of a POST /recognize call.
type RecognizeResponse struct {
	// Expression is the canonical expression when validated, otherwise the
	// best-effort cleaned LaTeX.
	Expression string `json:"expression"`
	// Latex is the cleaned recognizer output before canonicalization.
	Latex string `json:"latex"`
	// CanonicalExpression is the refined (most-corrected) candidate.
	CanonicalExpression string `json:"canonical_expression"`
	// RawExpression is the least-corrected candidate, reported for observability.
	RawExpression string `json:"raw_expression,omitempty"`
	// Validated is true iff a parser collaborator accepted Expression verbatim.
	Validated bool `json:"validated"`
	// Confidence is the heuristic recognition confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// ProcessingTimeMs is the end-to-end request processing time.
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	// LLMUsed reports whether the optional standardizer supplied the primary candidate.
	LLMUsed bool `json:"llm_used,omitempty"`
}

// ErrorResponse is the error body for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of a GET /health call.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	ModelLoaded bool   `json:"model_loaded"`
}

// ErrorCode classifies request failures. Only model-level failures and
// malformed input are user visible; parser failures inside the pipeline are
// an expected outcome and never carry one of these codes.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidImage   ErrorCode = "INVALID_IMAGE"
	ErrPreprocess     ErrorCode = "PREPROCESS_ERROR"
	ErrModelNotReady  ErrorCode = "MODEL_NOT_READY"
	ErrTimeout        ErrorCode = "RECOGNITION_TIMEOUT"
	ErrRecognition    ErrorCode = "RECOGNITION_ERROR"
	ErrEmptyResult    ErrorCode = "EMPTY_RESULT"
	ErrConfig         ErrorCode = "CONFIG_ERROR"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatus maps an error code to the response status for that failure class.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidRequest, ErrInvalidImage, ErrPreprocess, ErrEmptyResult:
		return http.StatusBadRequest
	case ErrModelNotReady:
		return http.StatusServiceUnavailable
	case ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the application error carrying a classification code.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError.
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details.
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
