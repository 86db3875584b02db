// Command ocr-service runs the equation OCR HTTP service: it recognizes
// printed mathematical formulas in images with a local ONNX model and
// normalizes the recognized markup into a canonical expression.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"equation-ocr/internal/canonical"
	"equation-ocr/internal/config"
	"equation-ocr/internal/logger"
	"equation-ocr/internal/mathbridge"
	"equation-ocr/internal/pipeline"
	"equation-ocr/internal/recognizer"
	"equation-ocr/internal/server"
	"equation-ocr/internal/standardizer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ocr-service:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(&logger.Config{
		LogFilePath:   cfg.LogFile,
		Level:         logger.ParseLevel(cfg.LogLevel),
		EnableConsole: true,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := recognizer.Load(recognizer.Config{
		ModelDir:        cfg.ModelDir,
		OnnxLibraryPath: cfg.OnnxLibraryPath,
		Timeout:         cfg.RecognizeTimeout,
		Concurrency:     cfg.ModelConcurrency,
	})
	defer model.Close()

	bridge := mathbridge.NewClient(cfg.BridgeURL, cfg.BridgeTimeout)

	var std pipeline.Standardizer
	if cfg.LLMEnabled {
		s, err := standardizer.New(ctx, standardizer.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			// The standardizer is best-effort end to end; run without it.
			logger.Warn("standardizer unavailable, continuing without it", logger.Err(err))
		} else {
			std = s
			logger.Info("standardizer enabled", logger.String("model", cfg.LLMModel))
		}
	}

	pl := pipeline.New(canonical.New(bridge, bridge), std)

	srv := server.New(model, pl, server.Options{CORSOrigins: cfg.CORSOrigins})
	return srv.Run(ctx, cfg.ListenAddr)
}
