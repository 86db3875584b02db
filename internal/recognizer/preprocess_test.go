package recognizer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"equation-ocr/internal/types"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func appErrCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error type = %T, want *types.AppError", err)
	}
	return appErr.Code
}

func TestPrepareImageEmpty(t *testing.T) {
	_, err := PrepareImage(nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := appErrCode(t, err); code != types.ErrInvalidImage {
		t.Errorf("code = %q, want %q", code, types.ErrInvalidImage)
	}
}

func TestPrepareImageGarbage(t *testing.T) {
	_, err := PrepareImage([]byte("not an image"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := appErrCode(t, err); code != types.ErrInvalidImage {
		t.Errorf("code = %q, want %q", code, types.ErrInvalidImage)
	}
}

func TestPrepareImageDegenerate(t *testing.T) {
	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	_, err := PrepareImage(data)
	if err == nil {
		t.Fatal("expected error for 1x1 image")
	}
	if code := appErrCode(t, err); code != types.ErrPreprocess {
		t.Errorf("code = %q, want %q", code, types.ErrPreprocess)
	}
}

func TestPrepareImageShape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}

	tensor, err := PrepareImage(encodePNG(t, img))
	if err != nil {
		t.Fatalf("PrepareImage failed: %v", err)
	}
	if tensor.Width != inputWidth || tensor.Height != inputHeight {
		t.Errorf("tensor size = %dx%d, want %dx%d", tensor.Width, tensor.Height, inputWidth, inputHeight)
	}
	if len(tensor.Pixels) != inputWidth*inputHeight {
		t.Errorf("pixel count = %d, want %d", len(tensor.Pixels), inputWidth*inputHeight)
	}
	for i, p := range tensor.Pixels {
		if p < -1 || p > 1 {
			t.Fatalf("pixel %d = %v, out of [-1, 1]", i, p)
		}
	}
}

func TestPrepareImageContrast(t *testing.T) {
	// Black content on white must span the normalized range.
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x >= 10 && x < 30 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	tensor, err := PrepareImage(encodePNG(t, img))
	if err != nil {
		t.Fatalf("PrepareImage failed: %v", err)
	}
	minPix, maxPix := tensor.Pixels[0], tensor.Pixels[0]
	for _, p := range tensor.Pixels {
		if p < minPix {
			minPix = p
		}
		if p > maxPix {
			maxPix = p
		}
	}
	if minPix > -0.9 {
		t.Errorf("min pixel = %v, want near -1 for black content", minPix)
	}
	if maxPix < 0.9 {
		t.Errorf("max pixel = %v, want near 1 for white padding", maxPix)
	}
}

func TestPrepareImageTransparentFlattens(t *testing.T) {
	// A fully transparent image must composite to white, not black.
	tensor, err := PrepareImage(encodePNG(t, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	if err != nil {
		t.Fatalf("PrepareImage failed: %v", err)
	}
	for i, p := range tensor.Pixels {
		if p < 0.9 {
			t.Fatalf("pixel %d = %v, want near 1 after white compositing", i, p)
		}
	}
}

func TestFormatSupported(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"", true},
		{"png", true},
		{"PNG", true},
		{"jpg", true},
		{"jpeg", true},
		{"gif", true},
		{"tiff", false},
		{"webp", false},
	}
	for _, tt := range tests {
		if got := FormatSupported(tt.format); got != tt.want {
			t.Errorf("FormatSupported(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestArgmaxLastStep(t *testing.T) {
	tests := []struct {
		name   string
		logits []float32
		seqLen int
		vocab  int
		want   int64
	}{
		{"single step", []float32{0.1, 0.9, 0.2}, 1, 3, 1},
		{"last step of two", []float32{9, 0, 0, 0, 0, 7}, 2, 3, 2},
		{"out of range", []float32{1, 2}, 3, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argmaxLastStep(tt.logits, tt.seqLen, tt.vocab); got != tt.want {
				t.Errorf("argmaxLastStep = %d, want %d", got, tt.want)
			}
		})
	}
}
