package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func requireValidTensor(t *testing.T, tensor *Tensor) {
	t.Helper()
	req := require.New(t)
	req.Equal([]int64{1, Side, Side, Channels}, tensor.Shape())
	req.Len(tensor.Data, Side*Side*Channels)
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %v at index %d outside [0,1]", v, i)
		}
	}
}

func TestPreprocessShapes(t *testing.T) {
	sizes := []struct{ w, h int }{
		{224, 224}, // exact
		{640, 480}, // landscape
		{100, 300}, // tall, upscaled
		{300, 100}, // wide, upscaled
		{50, 50},   // small square
		{1, 1},     // degenerate
	}
	for _, s := range sizes {
		tensor, err := Preprocess(encodePNG(t, gradientRGBA(s.w, s.h)))
		require.NoError(t, err, "%dx%d", s.w, s.h)
		requireValidTensor(t, tensor)
	}
}

func TestPreprocessJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradientRGBA(320, 240), nil))

	tensor, err := Preprocess(buf.Bytes())
	require.NoError(t, err)
	requireValidTensor(t, tensor)
}

func TestPreprocessGrayscaleReplicatesChannels(t *testing.T) {
	req := require.New(t)

	img := image.NewGray(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}

	tensor, err := Preprocess(encodePNG(t, img))
	req.NoError(err)
	requireValidTensor(t, tensor)

	for i := 0; i < len(tensor.Data); i += Channels {
		req.Equal(tensor.Data[i], tensor.Data[i+1])
		req.Equal(tensor.Data[i], tensor.Data[i+2])
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 120, B: 40, A: uint8(x % 256)})
		}
	}

	tensor, err := Preprocess(encodePNG(t, img))
	require.NoError(t, err)
	requireValidTensor(t, tensor)
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	req := require.New(t)

	for _, data := range [][]byte{
		nil,
		{},
		[]byte("definitely not an image"),
		bytes.Repeat([]byte{0xff}, 512),
	} {
		_, err := Preprocess(data)
		req.ErrorIs(err, ErrDecode)
	}
}

// pngHeader builds a syntactically valid PNG signature plus IHDR chunk for
// the given dimensions, enough for DecodeConfig to report them.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})

	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:], w)
	binary.BigEndian.PutUint32(data[4:], h)
	data[8] = 8 // bit depth
	data[9] = 2 // truecolor

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], 13)
	buf.Write(length[:])

	chunk := append([]byte("IHDR"), data...)
	buf.Write(chunk)

	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk))
	buf.Write(crc[:])
	return buf.Bytes()
}

func TestPreprocessCapsDecodeDimensions(t *testing.T) {
	_, err := Preprocess(pngHeader(20000, 20000))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestPreprocessDoesNotRetainInput(t *testing.T) {
	req := require.New(t)

	data := encodePNG(t, gradientRGBA(64, 64))
	tensor, err := Preprocess(data)
	req.NoError(err)

	snapshot := make([]float32, len(tensor.Data))
	copy(snapshot, tensor.Data)

	// Clobbering the input buffer must not affect the returned tensor.
	for i := range data {
		data[i] = 0
	}
	req.Equal(snapshot, tensor.Data)
}
