package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// Decoders for the formats accepted as source images
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/cuongbtq/thumbnail-service/internal/config"
)

// ErrNotAnImage is returned when the source file is not an image
var ErrNotAnImage = errors.New("source is not an image")

// Codec is the narrow image-library contract used by the Generator
type Codec interface {
	Decode(path string) (image.Image, error)
	Resize(img image.Image, width, height int) image.Image
	Encode(path string, img image.Image) error
}

// ImageCodec decodes common raster formats and encodes JPEG or PNG
type ImageCodec struct {
	Format  string
	Quality int
}

// Decode opens path, checks it is an image and decodes it
func (c ImageCodec) Decode(path string) (image.Image, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, mtype.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Resize scales img to width x height with Catmull-Rom resampling
func (c ImageCodec) Resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Encode writes img to path through a temp file in the same directory
func (c ImageCodec) Encode(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch c.Format {
	case config.FormatPNG:
		err = png.Encode(tmp, img)
	case config.FormatJPEG, "":
		err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: c.Quality})
	default:
		err = fmt.Errorf("unsupported thumbnail format: %q", c.Format)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
