package recognizer

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// Register decoders for the formats the recognizer accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"

	"equation-ocr/internal/types"
)

// Model input dimensions. Images are scaled to fit and padded with white,
// preserving aspect ratio.
const (
	inputWidth  = 672
	inputHeight = 192
)

// ImageTensor is a prepared single-channel float32 image in NCHW layout.
type ImageTensor struct {
	Width  int
	Height int
	// Pixels holds Height*Width normalized values in [-1, 1].
	Pixels []float32
}

// PrepareImage decodes raw image bytes and prepares them for the model:
// palette and alpha images are composited onto a white background, the
// result is scaled into the fixed input size with white padding, converted
// to grayscale and normalized.
//
// Decode failures map to INVALID_IMAGE; an image that decodes but yields an
// empty or degenerate pixel buffer maps to PREPROCESS_ERROR with the
// user-facing corrupted-or-unsupported wording, since that is what a broken
// alpha channel or truncated file looks like at this stage.
func PrepareImage(data []byte) (*ImageTensor, error) {
	if len(data) == 0 {
		return nil, types.NewAppError(types.ErrInvalidImage, "image data is empty", nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidImage,
			"invalid image data", err.Error(), err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < 2 || bounds.Dy() < 2 {
		return nil, types.NewAppError(types.ErrPreprocess,
			"image preprocessing failed: the image may be corrupted or unsupported", nil)
	}

	flattened, err := flattenOntoWhite(img)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrPreprocess,
			"image preprocessing failed: the image may be corrupted or unsupported",
			fmt.Sprintf("format=%s: %v", format, err), err)
	}

	return toTensor(fitToInput(flattened)), nil
}

// flattenOntoWhite composites the image onto a white background. This
// handles palette, grayscale-alpha and RGBA inputs uniformly: the model
// expects opaque content on white, and transparent regions otherwise decode
// as black.
func flattenOntoWhite(img image.Image) (image.Image, error) {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	out := dc.Image()
	if out == nil || out.Bounds().Empty() {
		return nil, fmt.Errorf("compositing produced an empty pixel buffer")
	}
	return out, nil
}

// fitToInput scales the image to fit the model input size, preserving
// aspect ratio, centered on a white canvas.
func fitToInput(img image.Image) image.Image {
	b := img.Bounds()
	scale := minFloat(float64(inputWidth)/float64(b.Dx()), float64(inputHeight)/float64(b.Dy()))
	if scale > 1 {
		scale = 1
	}
	w := float64(b.Dx()) * scale
	h := float64(b.Dy()) * scale

	dc := gg.NewContext(inputWidth, inputHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.Push()
	dc.Translate((inputWidth-w)/2, (inputHeight-h)/2)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
	return dc.Image()
}

// toTensor converts to single-channel float32, normalized to [-1, 1].
func toTensor(img image.Image) *ImageTensor {
	b := img.Bounds()
	pixels := make([]float32, b.Dx()*b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			// Luma from 16-bit channels.
			gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bb)) / 65535.0
			pixels[i] = float32(gray*2 - 1)
			i++
		}
	}
	return &ImageTensor{Width: b.Dx(), Height: b.Dy(), Pixels: pixels}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// FormatSupported reports whether a client-declared format hint names a
// format this recognizer can decode. Unknown hints are not an error; the
// decoder sniffs the actual format.
func FormatSupported(format string) bool {
	switch strings.ToLower(format) {
	case "", "png", "jpg", "jpeg", "gif":
		return true
	}
	return false
}
