// Package imaging validates uploaded product images and normalizes oversized
// ones to the configured resolution before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"strings"

	// Decoders accepted for product images.
	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"storefront-service/internal/config"
)

var (
	ErrMinResolution     = errors.New("resolution of image less than minimum")
	ErrMaxSize           = errors.New("size of the image exceeds the limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var supportedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// NormalizedImage is the outcome of normalization: either the original bytes
// or a JPEG re-encoding under a new name.
type NormalizedImage struct {
	Name    string
	Data    []byte
	Width   int
	Height  int
	Resized bool
}

// Normalizer applies the image policy from config.ImageConfig.
type Normalizer struct {
	cfg config.ImageConfig
}

func NewNormalizer(cfg config.ImageConfig) *Normalizer {
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = 90
	}
	return &Normalizer{cfg: cfg}
}

// ValidateUpload runs the checks of the upload form: format and minimum
// resolution first, then byte size. Oversized resolutions are accepted and
// left to Normalize.
func (n *Normalizer) ValidateUpload(data []byte, filename string) error {
	if _, err := n.inspect(data, filename); err != nil {
		return err
	}
	return n.checkBytes(data)
}

// Normalize is the save path. Images larger than the maximum resolution are
// flattened to RGB, resized to the configured target and re-encoded as JPEG.
// Anything else is returned unchanged.
func (n *Normalizer) Normalize(data []byte, filename string) (NormalizedImage, error) {
	cfg, err := n.inspect(data, filename)
	if err != nil {
		return NormalizedImage{}, err
	}
	if n.cfg.EnforceSizeOnSave {
		if err := n.checkBytes(data); err != nil {
			return NormalizedImage{}, err
		}
	}
	if cfg.Width <= n.cfg.MaxWidth && cfg.Height <= n.cfg.MaxHeight {
		return NormalizedImage{Name: cleanName(filename), Data: data, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, filename, err)
	}
	width, height := n.target()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.cfg.JPEGQuality}); err != nil {
		return NormalizedImage{}, fmt.Errorf("imaging: encode %s: %w", filename, err)
	}
	return NormalizedImage{
		Name:    jpegName(filename),
		Data:    buf.Bytes(),
		Width:   width,
		Height:  height,
		Resized: true,
	}, nil
}

// ProcessUpload is the admin upload path: ValidateUpload followed by Normalize.
func (n *Normalizer) ProcessUpload(data []byte, filename string) (NormalizedImage, error) {
	if err := n.ValidateUpload(data, filename); err != nil {
		return NormalizedImage{}, err
	}
	return n.Normalize(data, filename)
}

func (n *Normalizer) checkBytes(data []byte) error {
	if n.cfg.MaxBytes > 0 && int64(len(data)) > n.cfg.MaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMaxSize, len(data), n.cfg.MaxBytes)
	}
	return nil
}

func (n *Normalizer) inspect(data []byte, filename string) (image.Config, error) {
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), supportedTypes...) {
		return image.Config{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, filename, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, filename, err)
	}
	if cfg.Width < n.cfg.MinWidth || cfg.Height < n.cfg.MinHeight {
		return image.Config{}, fmt.Errorf("%w: %dx%d, minimum %dx%d",
			ErrMinResolution, cfg.Width, cfg.Height, n.cfg.MinWidth, n.cfg.MinHeight)
	}
	return cfg, nil
}

// target is the resolution oversized images are scaled to. "min" reproduces
// the storefront's historical behaviour of shrinking to the minimum size.
func (n *Normalizer) target() (int, int) {
	if n.cfg.ResizeTarget == "max" {
		return n.cfg.MaxWidth, n.cfg.MaxHeight
	}
	return n.cfg.MinWidth, n.cfg.MinHeight
}

func cleanName(filename string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return "image"
	}
	return name
}

func jpegName(filename string) string {
	name := cleanName(filename)
	if base := strings.TrimSuffix(name, filepath.Ext(name)); base != "" {
		name = base
	}
	return name + ".jpg"
}
