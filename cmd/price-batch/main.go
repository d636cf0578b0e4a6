package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/bootstrap"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/export"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
	"github.com/joseph-ayodele/price-intel/internal/logging"
)

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use an in-memory SQLite database")
		dir        = flag.String("dir", "", "directory with historical offers (required)")
		out        = flag.String("out", "", "output XLSX path (defaults to <dir>/../market.xlsx)")
		region     = flag.String("region", "", "region hint for documents that do not name one")
		skipHidden = flag.Bool("skip-hidden", true, "skip dot files and directories")
		watch      = flag.Bool("watch", false, "keep running and ingest files as they appear in --dir")
		debounce   = flag.Duration("debounce", 2*time.Second, "quiet period before a watched batch is processed")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "market.xlsx")
	}

	_ = godotenv.Load()
	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *inmem {
		cfg.Database.DSN = ":memory:"
		cfg.Database.AutoMigrate = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := batchOptions{dir: *dir, out: *out, region: *region, skipHidden: *skipHidden, watch: *watch, debounce: *debounce}
	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Error("batch.failed", zap.Error(err))
		os.Exit(1)
	}
}

type batchOptions struct {
	dir        string
	out        string
	region     string
	skipHidden bool
	watch      bool
	debounce   time.Duration
}

func run(ctx context.Context, cfg *common.Config, logger *zap.Logger, opts batchOptions) error {
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{RequireLLM: true})
	if err != nil {
		return err
	}
	defer app.Close()

	// subscribe before the initial scan so files landing during it are not missed
	var batches <-chan []extract.Document
	if opts.watch {
		batches, err = ingest.Watch(ctx, ingest.WatchConfig{Root: opts.dir, SkipHidden: opts.skipHidden, Debounce: opts.debounce}, logger)
		if err != nil {
			return err
		}
	}

	docs, stats, err := ingest.LoadDirectory(opts.dir, opts.skipHidden)
	if err != nil {
		return err
	}
	logger.Info("batch.scan.ok", zap.String("dir", opts.dir), zap.Uint32("scanned", stats.Scanned), zap.Uint32("matched", stats.Matched))
	if err := processAndReport(ctx, app, cfg, withoutReport(docs, opts), opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	logger.Info("batch.watch.start", zap.String("dir", opts.dir))
	for docs := range batches {
		docs = withoutReport(docs, opts)
		if len(docs) == 0 {
			continue
		}
		if err := processAndReport(ctx, app, cfg, docs, opts); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("batch.watch.failed", zap.Error(err))
		}
	}
	logger.Info("batch.watch.stop")
	return nil
}

// withoutReport drops the report file itself when --out lives inside --dir.
func withoutReport(docs []extract.Document, opts batchOptions) []extract.Document {
	out := filepath.Clean(opts.out)
	kept := docs[:0]
	for _, d := range docs {
		if filepath.Join(opts.dir, filepath.FromSlash(d.Filename)) == out {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func processAndReport(ctx context.Context, app *bootstrap.App, cfg *common.Config, docs []extract.Document, opts batchOptions) error {
	logger := app.Logger
	var total ingest.BatchResult
	for i, batch := range ingest.Batches(docs, cfg.Ingest.MaxFiles) {
		res, err := app.Ingest.ProcessBatch(ctx, batch, opts.region)
		if err != nil {
			return err
		}
		logger.Info("batch.chunk.done", zap.Int("chunk", i), zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
		total.Files = append(total.Files, res.Files...)
		total.Succeeded += res.Succeeded
		total.Failed += res.Failed
		total.Rejected += res.Rejected
	}

	ix, err := app.Rebuilder.Rebuild(ctx)
	if err != nil {
		return err
	}
	pending, err := app.Workflow.ListPending(ctx)
	if err != nil {
		return err
	}
	xlsx, err := export.Build(ix.Entries(), pending, ix.BuiltAt())
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, xlsx, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	for _, f := range total.Files {
		fmt.Printf("%-40s %s\n", f.Filename, f.String())
	}
	fmt.Printf("\nBatch processing complete!\n")
	fmt.Printf("- Files: %d ok, %d failed, %d rejected\n", total.Succeeded, total.Failed, total.Rejected)
	fmt.Printf("- Market entries: %d\n", ix.Len())
	fmt.Printf("- Pending proposals: %d\n", len(pending))
	fmt.Printf("- Output: %s\n", opts.out)
	return nil
}
