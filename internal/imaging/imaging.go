// Package imaging turns raw uploaded bytes into the fixed-shape tensor the
// palm classifier was trained on.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// Side and Channels fix the model input contract: NHWC [1,224,224,3].
	Side     = 224
	Channels = 3

	// maxDecodePixels caps the full decode so an oversized upload cannot
	// amplify into hundreds of megabytes of raster memory.
	maxDecodePixels = 40_000_000
)

var (
	ErrDecode   = errors.New("imaging: not a decodable image")
	ErrTooLarge = errors.New("imaging: image dimensions exceed decode budget")
)

// Tensor is a single-batch NHWC float32 tensor with values in [0,1].
// Each instance is owned by the pipeline invocation that created it.
type Tensor struct {
	Data []float32
}

func (t *Tensor) Shape() []int64 {
	return []int64{1, Side, Side, Channels}
}

// Preprocess decodes an image in any registered encoding (JPEG, PNG, GIF,
// WebP, BMP), scales it with bilinear filtering so the short side reaches
// 224, center-crops to 224x224 and normalizes channel values to [0,1].
// Alpha is discarded; grayscale sources replicate their single channel to
// all three (stdlib RGBA() already yields R=G=B for them). The input slice
// is not retained.
func Preprocess(data []byte) (*Tensor, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxDecodePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	scaled, crop := coverFit(img)

	out := &Tensor{Data: make([]float32, Side*Side*Channels)}
	i := 0
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			r, g, b, _ := scaled.At(crop.Min.X+x, crop.Min.Y+y).RGBA()
			// RGBA returns 16-bit channel values, so /65535 lands in [0,1].
			out.Data[i] = float32(r) / 65535.0
			out.Data[i+1] = float32(g) / 65535.0
			out.Data[i+2] = float32(b) / 65535.0
			i += Channels
		}
	}
	return out, nil
}

// coverFit scales the image so it fully covers the 224x224 target box and
// returns the scaled image plus the centered crop window inside it.
func coverFit(img image.Image) (image.Image, image.Rectangle) {
	b := img.Bounds()
	var w, h uint
	if b.Dx() < b.Dy() {
		w = Side
	} else {
		h = Side
	}
	scaled := resize.Resize(w, h, img, resize.Bilinear)

	sb := scaled.Bounds()
	x0 := sb.Min.X + (sb.Dx()-Side)/2
	y0 := sb.Min.Y + (sb.Dy()-Side)/2
	return scaled, image.Rect(x0, y0, x0+Side, y0+Side)
}
