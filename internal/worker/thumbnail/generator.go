package thumbnail

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrInvalidMaxPixel is returned by New when the bound is not positive
var ErrInvalidMaxPixel = errors.New("max pixel must be greater than 0")

// Config holds generator settings
type Config struct {
	Dir      string
	MaxPixel int
}

// Generator turns a source image into a bounded thumbnail on disk
type Generator struct {
	dir      string
	maxPixel int
	codec    Codec
	logger   *slog.Logger
}

// New creates a new Generator
func New(cfg Config, codec Codec, logger *slog.Logger) (*Generator, error) {
	if cfg.MaxPixel <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxPixel, cfg.MaxPixel)
	}

	return &Generator{
		dir:      cfg.Dir,
		maxPixel: cfg.MaxPixel,
		codec:    codec,
		logger:   logger,
	}, nil
}

// Path returns where the thumbnail of sourcePath is written. The result is
// cleaned by filepath.Join, so it equals dir+base only when dir is already
// clean and ends in a separator (a "./thumbs" dir gives "thumbs/x.png").
func (g *Generator) Path(sourcePath string) string {
	return filepath.Join(g.dir, filepath.Base(sourcePath))
}

// Generate decodes sourcePath, shrinks it under the bound and saves it at
// Path(sourcePath). Failures are logged and reported in the Result.
func (g *Generator) Generate(sourcePath string) Result {
	img, err := g.codec.Decode(sourcePath)
	if err != nil {
		return g.fail(sourcePath, err)
	}

	bounds := img.Bounds()
	width, height := ComputeTargetSize(bounds.Dx(), bounds.Dy(), g.maxPixel)
	width, height = max(width, 1), max(height, 1)

	thumb := g.codec.Resize(img, width, height)

	path := g.Path(sourcePath)
	if err := g.codec.Encode(path, thumb); err != nil {
		return g.fail(sourcePath, err)
	}

	g.logger.Info("Thumbnail generated",
		slog.String("source_path", sourcePath),
		slog.String("thumbnail_path", path),
		slog.Int("source_width", bounds.Dx()),
		slog.Int("source_height", bounds.Dy()),
		slog.Int("width", width),
		slog.Int("height", height),
	)

	return Succeeded(path)
}

func (g *Generator) fail(sourcePath string, err error) Result {
	g.logger.Error("Failed to generate thumbnail",
		slog.String("source_path", sourcePath),
		slog.Any("error", err),
	)
	return Failed(err)
}
