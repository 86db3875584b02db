// Package server provides the HTTP boundary of the recognition service. All
// error classification lives here and in the collaborator adapters; the text
// pipeline itself never fails.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equation-ocr/internal/logger"
	"equation-ocr/internal/pipeline"
	"equation-ocr/internal/types"
)

// Recognizer is the OCR model collaborator as the server consumes it.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
	Ready() bool
	LoadError() error
}

// Server holds the HTTP engine and its collaborators.
type Server struct {
	engine     *gin.Engine
	recognizer Recognizer
	pipeline   *pipeline.Pipeline
}

// Options configures the server.
type Options struct {
	// CORSOrigins lists allowed origins; empty allows all.
	CORSOrigins []string
}

// New assembles the router. The recognizer and pipeline are injected so
// handler tests can run with fakes.
func New(recognizer Recognizer, pl *pipeline.Pipeline, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLog())

	corsCfg := cors.DefaultConfig()
	if len(opts.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = opts.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	engine.Use(cors.New(corsCfg))

	s := &Server{
		engine:     engine,
		recognizer: recognizer,
		pipeline:   pl,
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/recognize", s.handleRecognize)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestID tags every request with a correlation id, echoed in the
// X-Request-ID header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLog logs one line per request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			logger.String("id", c.GetString("requestID")),
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)))
	}
}

// respondError writes the error body with the status for its failure class.
func respondError(c *gin.Context, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		appErr = types.NewAppError(types.ErrInternal, "internal error", err)
	}
	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", err,
			logger.String("id", c.GetString("requestID")),
			logger.String("code", string(appErr.Code)))
	} else {
		logger.Warn("request rejected",
			logger.String("id", c.GetString("requestID")),
			logger.String("code", string(appErr.Code)),
			logger.Err(err))
	}
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: appErr.Error()})
}
