package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/analyzer"
	"github.com/joseph-ayodele/price-intel/internal/bootstrap"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/llm/backend"
	"github.com/joseph-ayodele/price-intel/internal/logging"
)

// analyze runs extraction and offer analysis on one file without touching the
// database and prints the record as JSON.
func main() {
	region := flag.String("region", "", "region hint")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [-region R] <file>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := common.LoadConfig()
	if err == nil {
		err = cfg.RequireLLM()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, _ := logging.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := common.WithTimeout(context.Background(), cfg.Ingest.DocumentTimeout)
	defer cancel()

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("read file", zap.Error(err))
	}
	res := extract.NewExtractor(bootstrap.ExtractConfig(cfg.Ingest), logger).
		Extract(ctx, extract.Document{Filename: filepath.Base(path), Data: data})
	if res.Failed() {
		logger.Fatal("extraction failed", zap.Error(res.Err))
	}

	gen, closer, err := backend.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Fatal("llm backend", zap.Error(err))
	}
	defer func() { _ = closer.Close() }()

	a := analyzer.NewFromGenerator(analyzer.Config{
		ConfidenceThreshold: cfg.Economics.ConfidenceThreshold,
		MaxInputChars:       cfg.LLM.MaxInputChars,
	}, gen, logger)
	rec, err := a.Analyze(ctx, analyzer.AnalyzeInput{
		SourceDocument: res.Filename,
		Filename:       res.Filename,
		Text:           res.Text,
		RegionHint:     *region,
	})
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rec)
}
