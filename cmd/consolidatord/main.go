package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crmkit/deal-consolidator/internal/common"
	"github.com/crmkit/deal-consolidator/internal/export"
	"github.com/crmkit/deal-consolidator/internal/llm/groq"
	"github.com/crmkit/deal-consolidator/internal/ocr"
	"github.com/crmkit/deal-consolidator/internal/pipeline"
	"github.com/crmkit/deal-consolidator/internal/repository"
	"github.com/crmkit/deal-consolidator/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return common.WrapError(err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return common.WrapError(err, "opening database pool")
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, cfg.Database.HealthTimeout); err != nil {
		return common.WrapError(err, "database health check")
	}
	if err := repository.InitSchema(ctx, pool); err != nil {
		return common.WrapError(err, "initializing database schema")
	}

	if err := server.EnsureUploadDir(cfg.Server.UploadDir); err != nil {
		return common.WrapError(err, "creating upload directory")
	}

	textExtractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	dealExtractor := groq.NewClient(groq.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	uploads := repository.NewUploadRepository(pool, logger)
	deals := repository.NewDealRepository(pool, logger)

	processor := pipeline.NewProcessor(uploads, deals, textExtractor, dealExtractor, pipeline.Config{
		OCRTimeout: cfg.OCR.Timeout,
		LLMTimeout: cfg.LLM.Timeout,
		Workers:    cfg.Pipeline.Workers,
	}, logger)

	exporter := export.NewService(deals, logger)

	handler := server.NewHandler(processor, uploads, deals, exporter, cfg.Server.UploadDir, logger)
	router := server.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return common.WrapError(err, "http serve")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return common.WrapError(err, "http shutdown")
	}
	fmt.Println("stopped.")
	return nil
}
