// Package config provides environment-driven configuration for the equation
// OCR service. Values come from the process environment (optionally seeded
// from a .env file) with the OCR_ prefix, e.g. OCR_LISTEN_ADDR.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"equation-ocr/internal/types"
)

const envPrefix = "ocr"

// Config holds the full service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":5002"`

	// ModelDir is the directory holding the exported OCR model files
	// (encoder.onnx, decoder.onnx, vocab.json).
	ModelDir string `envconfig:"MODEL_DIR" default:"models"`
	// OnnxLibraryPath points at the onnxruntime shared library. Empty means
	// the platform default lookup.
	OnnxLibraryPath string `envconfig:"ONNX_LIBRARY_PATH"`
	// RecognizeTimeout bounds a single OCR model invocation. The model is the
	// one long-running call in the request path; on expiry the request fails
	// with RECOGNITION_TIMEOUT rather than hanging.
	RecognizeTimeout time.Duration `envconfig:"RECOGNIZE_TIMEOUT" default:"30s"`
	// ModelConcurrency is the number of OCR inferences allowed to run at
	// once. The text pipeline itself has no concurrency limit.
	ModelConcurrency int `envconfig:"MODEL_CONCURRENCY" default:"1"`

	// BridgeURL is the base URL of the symbolic-math bridge service that
	// provides the structured-markup and generic expression parsers.
	BridgeURL string `envconfig:"BRIDGE_URL" default:"http://127.0.0.1:5001"`
	// BridgeTimeout bounds a single parser call.
	BridgeTimeout time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"10s"`

	// LLMEnabled turns the optional text standardizer on. When the
	// standardizer is unreachable the pipeline degrades to heuristic-only
	// correction; it never fails a request.
	LLMEnabled bool          `envconfig:"LLM_ENABLED" default:"false"`
	LLMAPIKey  string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL string        `envconfig:"LLM_BASE_URL"`
	LLMModel   string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"5s"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFile is the log file path in addition to console output; empty
	// disables file output.
	LogFile string `envconfig:"LOG_FILE" default:"equation-ocr.log"`

	// CORSOrigins lists allowed origins for browser clients; empty allows all.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to process environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants that envconfig defaults cannot express.
func (c *Config) Validate() error {
	if c.RecognizeTimeout <= 0 {
		return types.NewAppError(types.ErrConfig,
			fmt.Sprintf("recognize timeout must be positive, got %s", c.RecognizeTimeout), nil)
	}
	if c.BridgeTimeout <= 0 {
		return types.NewAppError(types.ErrConfig,
			fmt.Sprintf("bridge timeout must be positive, got %s", c.BridgeTimeout), nil)
	}
	if c.ModelConcurrency < 1 {
		return types.NewAppError(types.ErrConfig,
			fmt.Sprintf("model concurrency must be at least 1, got %d", c.ModelConcurrency), nil)
	}
	if c.LLMEnabled && c.LLMAPIKey == "" {
		return types.NewAppError(types.ErrConfig, "LLM standardizer enabled but no API key configured", nil)
	}
	return nil
}
