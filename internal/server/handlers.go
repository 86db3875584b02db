package server

import (
	"encoding/base64"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"equation-ocr/internal/logger"
	"equation-ocr/internal/metrics"
	"equation-ocr/internal/recognizer"
	"equation-ocr/internal/types"
)

const serviceName = "equation-ocr"

// handleHealth reports readiness. The service answers even while the model is
// loading or failed to load, so orchestration can distinguish "down" from
// "up but not ready".
func (s *Server) handleHealth(c *gin.Context) {
	ready := s.recognizer.Ready()
	status := "healthy"
	if !ready {
		status = "degraded"
		if err := s.recognizer.LoadError(); err != nil {
			logger.Debug("health probe while model unavailable", logger.Err(err))
		}
	}
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:      status,
		Service:     serviceName,
		ModelLoaded: ready,
	})
}

// handleRecognize runs one image through the model and the normalization
// pipeline. Pipeline outcomes are never errors: a garbage recognition still
// returns 200 with validated=false and a low confidence.
func (s *Server) handleRecognize(c *gin.Context) {
	start := time.Now()

	var req types.RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.countOutcome(http.StatusBadRequest)
		respondError(c, types.NewAppErrorWithDetails(types.ErrInvalidRequest,
			"invalid request body", err.Error(), err))
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		s.countOutcome(http.StatusBadRequest)
		respondError(c, types.NewAppError(types.ErrInvalidRequest,
			"missing image field", nil))
		return
	}
	if !recognizer.FormatSupported(req.Format) {
		s.countOutcome(http.StatusBadRequest)
		respondError(c, types.NewAppErrorWithDetails(types.ErrInvalidRequest,
			"unsupported image format", req.Format, nil))
		return
	}

	imageData, err := decodeImageField(req.Image)
	if err != nil {
		s.countOutcome(http.StatusBadRequest)
		respondError(c, types.NewAppErrorWithDetails(types.ErrInvalidImage,
			"image is not valid base64", err.Error(), err))
		return
	}

	modelStart := time.Now()
	rawLatex, err := s.recognizer.Recognize(c.Request.Context(), imageData)
	metrics.ModelDuration.Observe(time.Since(modelStart).Seconds())
	if err != nil {
		s.countErrorOutcome(err)
		respondError(c, err)
		return
	}
	if strings.TrimSpace(rawLatex) == "" {
		s.countOutcome(http.StatusBadRequest)
		respondError(c, types.NewAppError(types.ErrEmptyResult,
			"no expression recognized in image", nil))
		return
	}

	result := s.pipeline.Process(c.Request.Context(), rawLatex)

	elapsed := time.Since(start)
	metrics.RecognitionDuration.Observe(elapsed.Seconds())
	metrics.TierOutcomes.WithLabelValues(string(result.Tier), boolLabel(result.Validated)).Inc()
	s.countOutcome(http.StatusOK)

	c.JSON(http.StatusOK, types.RecognizeResponse{
		Expression:          result.Expression,
		Latex:               result.Latex,
		CanonicalExpression: result.Refined,
		RawExpression:       result.Raw,
		Validated:           result.Validated,
		Confidence:          round3(result.Confidence),
		ProcessingTimeMs:    round3(float64(elapsed) / float64(time.Millisecond)),
		LLMUsed:             result.LLMUsed,
	})
}

// decodeImageField accepts standard and URL-safe base64, with or without
// padding, and tolerates a data URL prefix.
func decodeImageField(encoded string) ([]byte, error) {
	payload := encoded
	if idx := strings.Index(payload, ";base64,"); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(";base64,"):]
	}
	payload = strings.TrimSpace(payload)

	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	if data, err := base64.URLEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(payload)
}

func (s *Server) countOutcome(status int) {
	metrics.RecognitionRequests.WithLabelValues(outcomeLabel(status)).Inc()
}

func (s *Server) countErrorOutcome(err error) {
	status := http.StatusInternalServerError
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.Code.HTTPStatus()
	}
	s.countOutcome(status)
}

func outcomeLabel(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return "ok"
	case status < http.StatusInternalServerError:
		return "client_error"
	default:
		return "server_error"
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
