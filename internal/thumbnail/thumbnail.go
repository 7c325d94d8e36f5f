// Package thumbnail decodes uploaded images and re-encodes them as bounded
// thumbnails.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	// Registered decoders.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sells-group/county-api/internal/metrics"
)

// Defaults for Options.
const (
	DefaultMaxDimension = 400
	DefaultJPEGQuality  = 85
	DefaultWorkers      = 4

	// maxSourcePixels rejects decompression bombs before decoding.
	maxSourcePixels = 64 << 20
)

// Options tunes conversion.
type Options struct {
	MaxDimension int
	JPEGQuality  int
	Workers      int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Input is one uploaded file.
type Input struct {
	Filename string
	Data     []byte
}

// Thumbnail is an encoded, resized image.
type Thumbnail struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Data        []byte `json:"data"`
}

// Result carries either a thumbnail or the reason the file failed.
type Result struct {
	Thumbnail *Thumbnail
	Err       error
}

// DecodeError reports a file that is not a readable image.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("thumbnail: decode %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Converter resizes images. It is safe for concurrent use.
type Converter struct {
	opts Options
	log  *zap.Logger
}

// NewConverter creates a Converter.
func NewConverter(opts Options) *Converter {
	return &Converter{
		opts: opts.withDefaults(),
		log:  zap.L().With(zap.String("component", "thumbnail")),
	}
}

// Options returns the effective options.
func (c *Converter) Options() Options {
	return c.opts
}

// Convert decodes data, scales it to fit within MaxDimension on both axes
// (never upscaling) and re-encodes it. PNG and GIF sources become PNG,
// everything else JPEG.
func (c *Converter) Convert(in Input) (*Thumbnail, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, &DecodeError{Filename: in.Filename, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, &DecodeError{
			Filename: in.Filename,
			Err:      eris.Errorf("unsupported dimensions %dx%d", cfg.Width, cfg.Height),
		}
	}

	src, _, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return nil, &DecodeError{Filename: in.Filename, Err: err}
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), c.opts.MaxDimension)
	dst := image.Image(src)
	if w != src.Bounds().Dx() || h != src.Bounds().Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	t := &Thumbnail{Filename: in.Filename, Width: w, Height: h}
	switch format {
	case "png", "gif":
		t.ContentType = "image/png"
		err = png.Encode(&buf, dst)
	default:
		t.ContentType = "image/jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.opts.JPEGQuality})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "thumbnail: encode %s", in.Filename)
	}
	t.Data = buf.Bytes()
	return t, nil
}

// ConvertAll converts every input on at most Workers goroutines. Results are
// positional; a failed file never aborts the batch.
func (c *Converter) ConvertAll(ctx context.Context, inputs []Input) []Result {
	start := time.Now()
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return nil
			}
			t, err := c.Convert(in)
			results[i] = Result{Thumbnail: t, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for i, r := range results {
		if r.Err != nil {
			failed++
			metrics.ImagesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			c.log.Debug("image conversion failed",
				zap.String("filename", inputs[i].Filename),
				zap.Error(r.Err),
			)
			continue
		}
		metrics.ImagesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	}

	c.log.Debug("images converted",
		zap.Int("files", len(inputs)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

// fit scales (w, h) down to fit within limit x limit, preserving aspect
// ratio. Images already inside the box are returned unchanged.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, (h*limit+w/2)/w)
	}
	return max(1, (w*limit+h/2)/h), limit
}
