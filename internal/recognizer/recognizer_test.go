package recognizer

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"equation-ocr/internal/types"
)

func TestRecognizeNotReady(t *testing.T) {
	m := &Model{sem: make(chan struct{}, 1), timeout: time.Second}

	_, err := m.Recognize(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := appErrCode(t, err); code != types.ErrModelNotReady {
		t.Errorf("code = %q, want %q", code, types.ErrModelNotReady)
	}
}

// A timed-out request must not free the inference slot while its inference is
// still running; the concurrency bound holds until the inference itself
// finishes.
func TestRecognizeTimeoutKeepsConcurrencyBound(t *testing.T) {
	release := make(chan struct{})
	var starts int32
	m := &Model{
		timeout: 50 * time.Millisecond,
		sem:     make(chan struct{}, 1),
		ready:   true,
	}
	m.inferFn = func(*ImageTensor) (string, error) {
		atomic.AddInt32(&starts, 1)
		<-release
		return "x", nil
	}
	img := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 4, 4)))

	_, err := m.Recognize(context.Background(), img)
	if code := appErrCode(t, err); code != types.ErrTimeout {
		t.Fatalf("first request code = %q, want %q", code, types.ErrTimeout)
	}

	// The stuck inference still holds the slot: the next request times out
	// waiting and no second inference starts.
	_, err = m.Recognize(context.Background(), img)
	if code := appErrCode(t, err); code != types.ErrTimeout {
		t.Fatalf("second request code = %q, want %q", code, types.ErrTimeout)
	}
	if n := atomic.LoadInt32(&starts); n != 1 {
		t.Fatalf("inference started %d times with one slot held, want 1", n)
	}

	close(release)

	latex, err := m.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("request after release failed: %v", err)
	}
	if latex != "x" {
		t.Errorf("latex = %q, want x", latex)
	}
	if n := atomic.LoadInt32(&starts); n != 2 {
		t.Errorf("inference started %d times, want 2", n)
	}
}
