package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/bootstrap"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/logging"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: extracttext <file>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, excfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, _ := logging.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", zap.String("path", path), zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := common.WithTimeout(context.Background(), cfg.Ingest.DocumentTimeout)
	defer cancel()

	res := extract.NewExtractor(excfg, logger).Extract(ctx, extract.Document{Filename: filepath.Base(path), Data: data})
	if res.Failed() {
		logger.Error("text extraction failed", zap.String("file", res.Filename), zap.Strings("warnings", res.Warnings), zap.Error(res.Err))
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		zap.String("format", res.Format),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("positions", len(res.Positions)),
		zap.Int("bytes", len(res.Text)),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	fmt.Println(res.Text)
}

// loadConfig reads the same PRICEINTEL_* settings the daemon uses, so the
// OCR, poppler and page-limit options behave identically here.
func loadConfig() (*common.Config, extract.Config, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, extract.Config{}, err
	}
	if err := common.ValidateStruct(cfg.Ingest); err != nil {
		return nil, extract.Config{}, err
	}
	return cfg, bootstrap.ExtractConfig(cfg.Ingest), nil
}
