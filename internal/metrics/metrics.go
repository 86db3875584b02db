// Package metrics exposes prometheus collectors for the recognition service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecognitionRequests counts recognition requests by outcome: "ok",
	// "client_error", "server_error".
	RecognitionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equation_ocr",
		Name:      "recognition_requests_total",
		Help:      "Recognition requests by outcome.",
	}, []string{"outcome"})

	// TierOutcomes counts terminal canonicalization tiers by validation
	// outcome; an exhausted escalation shows up as tier "raw-fallback" with
	// validated "false".
	TierOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equation_ocr",
		Name:      "canonicalization_tier_total",
		Help:      "Terminal canonicalization tier per request.",
	}, []string{"tier", "validated"})

	// RecognitionDuration observes end-to-end request processing time.
	RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "equation_ocr",
		Name:      "recognition_duration_seconds",
		Help:      "End-to-end recognition latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// ModelDuration observes the OCR model invocation alone.
	ModelDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "equation_ocr",
		Name:      "model_inference_duration_seconds",
		Help:      "OCR model inference latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// StandardizerUse counts standardizer outcomes: "used", "declined",
	// "disabled".
	StandardizerUse = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equation_ocr",
		Name:      "standardizer_total",
		Help:      "Standardizer adapter outcomes.",
	}, []string{"outcome"})
)
