// Package recognizer runs the local image-to-LaTeX OCR model. The model is
// a pix2tex-style ONNX export: a convolutional encoder over the prepared
// image and an autoregressive decoder producing LaTeX token ids, decoded
// greedily against an embedded vocabulary.
//
// Model state is loaded once at startup and is read-only afterwards;
// readiness is observable so requests arriving before the model is ready
// fail fast instead of blocking.
package recognizer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"equation-ocr/internal/logger"
	"equation-ocr/internal/types"
)

const (
	encoderFile = "encoder.onnx"
	decoderFile = "decoder.onnx"
	vocabFile   = "vocab.json"

	// maxSequenceLength bounds the autoregressive decode loop.
	maxSequenceLength = 512
)

// Config holds recognizer settings.
type Config struct {
	// ModelDir contains encoder.onnx, decoder.onnx and vocab.json.
	ModelDir string
	// OnnxLibraryPath overrides the onnxruntime shared library location.
	OnnxLibraryPath string
	// Timeout bounds one model invocation.
	Timeout time.Duration
	// Concurrency is the number of inferences allowed to run at once.
	// Model inference holds large buffers, so this is typically 1; the
	// surrounding text pipeline is unaffected by this limit.
	Concurrency int
}

// Model is the OCR service object. Construct it once at process start with
// Load and inject it into request handlers.
type Model struct {
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	vocab   *Vocab

	timeout time.Duration
	sem     chan struct{}
	inferFn func(*ImageTensor) (string, error)

	ready   bool
	loadErr error
}

// Load initializes the ONNX runtime and loads the model. Load failures are
// recorded rather than returned: the service starts, reports not-ready on
// /health, and rejects recognition requests with MODEL_NOT_READY.
func Load(cfg Config) *Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	m := &Model{
		timeout: cfg.Timeout,
		sem:     make(chan struct{}, cfg.Concurrency),
	}
	m.inferFn = m.infer

	if err := m.load(cfg); err != nil {
		m.loadErr = err
		logger.Error("OCR model load failed", err, logger.String("modelDir", cfg.ModelDir))
		return m
	}

	m.ready = true
	logger.Info("OCR model loaded",
		logger.String("modelDir", cfg.ModelDir),
		logger.Int("vocabSize", m.vocab.Size()))
	return m
}

func (m *Model) load(cfg Config) error {
	if cfg.OnnxLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.OnnxLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}

	vocab, err := LoadVocab(filepath.Join(cfg.ModelDir, vocabFile))
	if err != nil {
		return fmt.Errorf("failed to load vocabulary: %w", err)
	}
	m.vocab = vocab

	encoder, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.ModelDir, encoderFile),
		[]string{"image"}, []string{"memory"}, nil)
	if err != nil {
		return fmt.Errorf("failed to load encoder session: %w", err)
	}
	m.encoder = encoder

	decoder, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.ModelDir, decoderFile),
		[]string{"tokens", "memory"}, []string{"logits"}, nil)
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("failed to load decoder session: %w", err)
	}
	m.decoder = decoder

	return nil
}

// Ready reports whether the model is loaded and accepting work.
func (m *Model) Ready() bool {
	return m.ready
}

// LoadError returns the startup load error, if any.
func (m *Model) LoadError() error {
	return m.loadErr
}

// Close releases the ONNX sessions.
func (m *Model) Close() error {
	if m.encoder != nil {
		m.encoder.Destroy()
	}
	if m.decoder != nil {
		m.decoder.Destroy()
	}
	return nil
}

// Recognize decodes and prepares the image bytes and runs the model,
// returning the raw LaTeX string. The invocation is bounded by the
// configured timeout; on expiry it fails with RECOGNITION_TIMEOUT so the
// request never hangs on a wedged inference.
func (m *Model) Recognize(ctx context.Context, imageData []byte) (string, error) {
	if !m.ready {
		return "", types.NewAppError(types.ErrModelNotReady, "OCR model is not loaded", m.loadErr)
	}

	tensor, err := PrepareImage(imageData)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Inference is serialized through the semaphore; waiting counts against
	// the deadline. The slot is released by the inference goroutine itself,
	// not by this request: a timed-out request returns while the inference
	// is still running, and freeing the slot here would let a second
	// inference start alongside it.
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return "", types.NewAppError(types.ErrTimeout, "OCR recognition timed out waiting for model", ctx.Err())
	}

	type inferResult struct {
		latex string
		err   error
	}
	done := make(chan inferResult, 1)
	go func() {
		defer func() { <-m.sem }()
		latex, err := m.inferFn(tensor)
		done <- inferResult{latex, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", types.NewAppError(types.ErrRecognition, "OCR recognition failed", r.err)
		}
		return r.latex, nil
	case <-ctx.Done():
		return "", types.NewAppError(types.ErrTimeout, "OCR recognition timed out", ctx.Err())
	}
}

// infer runs the encoder once and the decoder autoregressively with greedy
// token selection.
func (m *Model) infer(input *ImageTensor) (string, error) {
	imageTensor, err := ort.NewTensor(ort.NewShape(1, 1, int64(input.Height), int64(input.Width)), input.Pixels)
	if err != nil {
		return "", fmt.Errorf("failed to create image tensor: %w", err)
	}
	defer imageTensor.Destroy()

	encOutputs := []ort.Value{nil}
	if err := m.encoder.Run([]ort.Value{imageTensor}, encOutputs); err != nil {
		return "", fmt.Errorf("encoder inference failed: %w", err)
	}
	memory := encOutputs[0]
	defer memory.Destroy()

	tokens := []int64{m.vocab.BOS()}
	for len(tokens) < maxSequenceLength {
		tokenTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tokens))), append([]int64{}, tokens...))
		if err != nil {
			return "", fmt.Errorf("failed to create token tensor: %w", err)
		}

		decOutputs := []ort.Value{nil}
		err = m.decoder.Run([]ort.Value{tokenTensor, memory}, decOutputs)
		tokenTensor.Destroy()
		if err != nil {
			return "", fmt.Errorf("decoder inference failed: %w", err)
		}

		logits, ok := decOutputs[0].(*ort.Tensor[float32])
		if !ok {
			decOutputs[0].Destroy()
			return "", fmt.Errorf("decoder returned unexpected output type")
		}
		next := argmaxLastStep(logits.GetData(), len(tokens), m.vocab.Size())
		logits.Destroy()

		if next == m.vocab.EOS() {
			break
		}
		tokens = append(tokens, next)
	}

	return m.vocab.Decode(tokens[1:]), nil
}

// argmaxLastStep finds the highest-scoring token id in the final decode
// position of a [1, seqLen, vocabSize] logits buffer.
func argmaxLastStep(logits []float32, seqLen, vocabSize int) int64 {
	offset := (seqLen - 1) * vocabSize
	if offset < 0 || offset+vocabSize > len(logits) {
		return 0
	}
	best := 0
	bestScore := logits[offset]
	for i := 1; i < vocabSize; i++ {
		if logits[offset+i] > bestScore {
			bestScore = logits[offset+i]
			best = i
		}
	}
	return int64(best)
}
