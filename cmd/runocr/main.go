package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/crmkit/deal-consolidator/internal/common"
	"github.com/crmkit/deal-consolidator/internal/ocr"
)

// Runs text extraction on a local PDF or image and prints the result.
// Useful for tuning OCR settings without going through the HTTP surface.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <path-to-pdf-or-image>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout)
	defer cancel()

	start := time.Now()
	text, err := extractor.ExtractText(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK", "path", path, "bytes", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	fmt.Println(text)
}
