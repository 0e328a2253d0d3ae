// Package ocr produces plain text from PDFs and raster images. PDFs prefer
// embedded text; documents without enough of it are treated as scanned and go
// through per-page rasterization plus tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crmkit/deal-consolidator/constants"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang     string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 200
	MaxPages int    // 0 = no limit

	TessdataDir string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractText picks a strategy based on file extension. An empty result is
// not an error; the caller decides what empty text means.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	ext := constants.ExtOf(path)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.extractPDF(ctx, path)
	case constants.IMAGE:
		return e.extractImage(ctx, path)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext, "path", path)
		return "", fmt.Errorf("unsupported extension: %q", ext)
	}
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	txt, err := e.tesseract(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

// tesseract <file> stdout -l <lang>
func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
