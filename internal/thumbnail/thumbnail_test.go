package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(w, h)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), nil))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, gradient(w, h), nil))
	return buf.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, gradient(w, h)))
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, format
}

func TestConvert(t *testing.T) {
	c := NewConverter(Options{})

	tests := []struct {
		name       string
		data       []byte
		wantType   string
		wantFormat string
		wantW      int
		wantH      int
	}{
		{"wide png", encodePNG(t, 800, 400), "image/png", "png", 400, 200},
		{"tall jpeg", encodeJPEG(t, 300, 900), "image/jpeg", "jpeg", 133, 400},
		{"small gif kept", encodeGIF(t, 50, 40), "image/png", "png", 50, 40},
		{"bmp", encodeBMP(t, 1000, 1000), "image/jpeg", "jpeg", 400, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(Input{Filename: "photo", Data: tt.data})
			require.NoError(t, err)
			assert.Equal(t, "photo", got.Filename)
			assert.Equal(t, tt.wantType, got.ContentType)
			assert.Equal(t, tt.wantW, got.Width)
			assert.Equal(t, tt.wantH, got.Height)

			cfg, format := decodeConfig(t, got.Data)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestConvert_CustomMaxDimension(t *testing.T) {
	c := NewConverter(Options{MaxDimension: 64})

	got, err := c.Convert(Input{Filename: "a.png", Data: encodePNG(t, 256, 128)})
	require.NoError(t, err)
	assert.Equal(t, 64, got.Width)
	assert.Equal(t, 32, got.Height)
}

func TestConvert_Corrupt(t *testing.T) {
	c := NewConverter(Options{})

	_, err := c.Convert(Input{Filename: "notes.txt", Data: []byte("hello, not an image")})
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "notes.txt", de.Filename)

	// Valid header, truncated body.
	data := encodePNG(t, 100, 100)
	_, err = c.Convert(Input{Filename: "cut.png", Data: data[:len(data)/2]})
	assert.ErrorAs(t, err, &de)

	_, err = c.Convert(Input{Filename: "empty.jpg"})
	assert.ErrorAs(t, err, &de)
}

func TestConvertAll_OneCorrupt(t *testing.T) {
	c := NewConverter(Options{Workers: 2})

	inputs := []Input{
		{Filename: "a.png", Data: encodePNG(t, 500, 500)},
		{Filename: "b.txt", Data: []byte("garbage")},
		{Filename: "c.jpg", Data: encodeJPEG(t, 20, 20)},
	}
	results := c.ConvertAll(context.Background(), inputs)
	require.Len(t, results, 3)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Nil(t, r.Thumbnail)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Error(t, results[1].Err, "results keep input order")
	assert.Equal(t, "a.png", results[0].Thumbnail.Filename)
	assert.Equal(t, "c.jpg", results[2].Thumbnail.Filename)
}

func TestConvertAll_Cancelled(t *testing.T) {
	c := NewConverter(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.ConvertAll(ctx, []Input{{Filename: "a.png", Data: encodePNG(t, 10, 10)}})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{400, 400, 400, 400, 400},
		{100, 50, 400, 100, 50},
		{800, 400, 400, 400, 200},
		{401, 10, 400, 400, 10},
		{4000, 1, 400, 400, 1},
		{1, 4000, 400, 1, 400},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.limit)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := NewConverter(Options{JPEGQuality: 150}).Options()
	assert.Equal(t, DefaultMaxDimension, o.MaxDimension)
	assert.Equal(t, DefaultJPEGQuality, o.JPEGQuality)
	assert.Equal(t, DefaultWorkers, o.Workers)
}
