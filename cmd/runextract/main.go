package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/crmkit/deal-consolidator/constants"
	"github.com/crmkit/deal-consolidator/internal/common"
	"github.com/crmkit/deal-consolidator/internal/llm"
	"github.com/crmkit/deal-consolidator/internal/llm/groq"
	"github.com/crmkit/deal-consolidator/internal/ocr"
)

// Runs the full document path (text extraction, then AI extraction) on one
// local file and prints the resulting records as JSON. No database involved.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <path-to-pdf-or-image>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		logger.Error("GROQ_API_KEY env var is required")
		os.Exit(2)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	client := groq.NewClient(groq.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	octx, ocancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout)
	text, err := extractor.ExtractText(octx, path)
	ocancel()
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	hint := "scanned_image_contract"
	if constants.MapExtToFormat(constants.ExtOf(path)) == constants.PDF {
		hint = "pdf_report_or_contract"
	}

	lctx, lcancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout)
	defer lcancel()

	start := time.Now()
	recs, err := client.ExtractDeals(lctx, llm.ExtractRequest{Text: text, SourceHint: hint})
	if err != nil {
		logger.Error("ai extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("ai extraction OK", "path", path, "deals", len(recs),
		"duration_ms", time.Since(start).Milliseconds())

	out, _ := json.MarshalIndent(recs, "", "  ")
	fmt.Println(string(out))
}
