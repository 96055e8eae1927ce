package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	defaultJPEGQuality = 85
	minJPEGQuality     = 60
	defaultMaxPixels   = 100 * 1000 * 1000 // 100 megapixels
)

// ImageOptimizer shrinks or desaturates pages for small e-ink readers.
// It is off unless MaxWidth or Grayscale is set; pages are then copied
// byte for byte.
type ImageOptimizer struct {
	MaxWidth    int
	JPEGQuality int
	Grayscale   bool
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// OptimizedImage holds optimized image data and metadata.
// Warning is set when the input was passed through unchanged because it
// could not be processed; Data is usable either way.
type OptimizedImage struct {
	Data    []byte
	Width   int
	Height  int
	Format  string
	Ext     string // set when the encoding changed the extension
	Changed bool
	Warning string
}

// NewImageOptimizer creates an image optimizer from conversion options.
func NewImageOptimizer(opts ConvertOptions) *ImageOptimizer {
	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	if quality < minJPEGQuality {
		quality = minJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}

	return &ImageOptimizer{
		MaxWidth:    opts.MaxImageWidth,
		JPEGQuality: quality,
		Grayscale:   opts.Grayscale,
		MaxPixels:   defaultMaxPixels,
	}
}

// Enabled reports whether Optimize may change any page.
func (o *ImageOptimizer) Enabled() bool {
	return o != nil && (o.MaxWidth > 0 || o.Grayscale)
}

// Optimize resizes images wider than MaxWidth and applies grayscale.
// The source format is kept, except WebP, which has no encoder and is
// written as PNG. Decode failures pass the input through with a Warning;
// only encoding errors are returned.
func (o *ImageOptimizer) Optimize(name string, input []byte) (OptimizedImage, error) {
	out := OptimizedImage{Data: input}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}
	out.Width, out.Height, out.Format = cfg.Width, cfg.Height, format

	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if o.MaxPixels > 0 && pixels > uint64(o.MaxPixels) {
		out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
		return out, nil
	}

	resize := o.MaxWidth > 0 && cfg.Width > o.MaxWidth
	if !resize && !o.Grayscale {
		return out, nil
	}

	if format == "gif" {
		animated, err := isAnimatedGIF(input)
		if err == nil && animated {
			out.Warning = "animated gif left unchanged"
			return out, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}

	var processed image.Image = src
	if resize {
		processed = imaging.Resize(processed, o.MaxWidth, 0, imaging.Lanczos)
	}
	if o.Grayscale {
		processed = imaging.Grayscale(processed)
	}

	target, err := imaging.FormatFromFilename(name)
	if err != nil {
		// WebP and friends: no encoder available.
		target = imaging.PNG
		out.Ext = ".png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, target,
		imaging.JPEGQuality(o.JPEGQuality),
		imaging.PNGCompressionLevel(png.BestCompression),
	); err != nil {
		return out, fmt.Errorf("%s encode failed: %w", strings.ToLower(target.String()), err)
	}

	out.Data = buf.Bytes()
	out.Width = processed.Bounds().Dx()
	out.Height = processed.Bounds().Dy()
	out.Format = strings.ToLower(target.String())
	out.Changed = true
	if out.Ext != "" && strings.EqualFold(out.Ext, path.Ext(name)) {
		out.Ext = ""
	}
	return out, nil
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}
