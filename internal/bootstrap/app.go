// Package bootstrap wires configuration into the running components shared by
// the daemon and the CLIs.
package bootstrap

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/analyzer"
	"github.com/joseph-ayodele/price-intel/internal/cache"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/export"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
	"github.com/joseph-ayodele/price-intel/internal/llm/backend"
	"github.com/joseph-ayodele/price-intel/internal/metrics"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
	"github.com/joseph-ayodele/price-intel/internal/repository"
	"github.com/joseph-ayodele/price-intel/internal/workflow"
)

type Options struct {
	// RequireLLM fails startup when no generation backend can be built.
	RequireLLM bool
	// SkipRedis ignores a configured snapshot store.
	SkipRedis bool
}

// App holds every long-lived component. Analyzer and Ingest are nil when no
// generation backend is configured.
type App struct {
	Config    *common.Config
	Logger    *zap.Logger
	DB        *repository.DB
	Store     *repository.Store
	Workflow  *workflow.Service
	Index     *pricing.Holder
	Rebuilder *pricing.Rebuilder
	Analyzer  *analyzer.Analyzer
	Ingest    *ingest.Service
	Reports   *export.Service
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Snapshots *cache.SnapshotStore

	closers []io.Closer
}

func New(ctx context.Context, cfg *common.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Index: &pricing.Holder{}}

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.NewDependencyError("opening database", err)
	}
	a.DB = db
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	a.Store = repository.NewStore(db, logger)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	econ := cfg.Economics.Economics
	a.Workflow = workflow.NewService(a.Store, econ, logger)

	rebuildOpts := []pricing.RebuilderOption{pricing.WithObserver(a.Metrics)}
	if cfg.Redis.Enabled() && !opts.SkipRedis {
		snaps, err := cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			// the index still works without a shared snapshot
			logger.Warn("bootstrap.redis.unavailable", zap.Error(err))
		} else {
			a.Snapshots = snaps
			a.closers = append(a.closers, snaps)
			rebuildOpts = append(rebuildOpts, pricing.WithSnapshotStore(snaps))
		}
	}
	a.Rebuilder = pricing.NewRebuilder(a.Store, a.Index, econ, logger, rebuildOpts...)
	a.Reports = export.NewService(a.Index, a.Store.Proposals(), logger)

	if err := a.wireAnalysis(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wireAnalysis(ctx context.Context, opts Options) error {
	cfg := a.Config
	if err := cfg.RequireLLM(); err != nil {
		if opts.RequireLLM {
			return err
		}
		a.Logger.Warn("bootstrap.llm.disabled", zap.String("reason", err.Error()))
		return nil
	}
	gen, closer, err := backend.New(ctx, cfg.LLM, a.Logger)
	if err != nil {
		if opts.RequireLLM {
			return err
		}
		a.Logger.Warn("bootstrap.llm.disabled", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, closer)

	a.Analyzer = analyzer.NewFromGenerator(analyzer.Config{
		ConfidenceThreshold: cfg.Economics.ConfidenceThreshold,
		MaxInputChars:       cfg.LLM.MaxInputChars,
	}, gen, a.Logger)

	a.Ingest = ingest.NewService(ingest.Config{
		Limits: extract.Limits{
			MaxFileBytes: cfg.Ingest.MaxFileBytes,
			MaxFiles:     cfg.Ingest.MaxFiles,
		},
		Concurrency:     cfg.Ingest.Concurrency,
		DocumentTimeout: cfg.Ingest.DocumentTimeout,
	}, ingest.Deps{
		Extractor: extract.NewExtractor(ExtractConfig(cfg.Ingest), a.Logger),
		Analyzer:  a.Analyzer,
		Documents: a.Store.Documents(),
		Offers:    a.Store.Offers(),
		Proposer:  a.Workflow,
		Observer:  a.Metrics,
	}, a.Logger)
	a.Logger.Info("bootstrap.llm.ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", gen.Model()))
	return nil
}

// LoadIndex publishes a snapshot when one exists, then rebuilds from the
// database. A failed rebuild after a warm start is logged and tolerated.
func (a *App) LoadIndex(ctx context.Context) error {
	warm, err := a.Rebuilder.WarmStart(ctx)
	if err != nil {
		a.Logger.Warn("bootstrap.index.warm_start_failed", zap.Error(err))
	}
	if _, err := a.Rebuilder.Rebuild(ctx); err != nil {
		if warm {
			a.Logger.Warn("bootstrap.index.rebuild_failed", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warn("bootstrap.close.failed", zap.Error(err))
		}
	}
	a.closers = nil
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

// ExtractConfig maps the ingest settings onto the extractor.
func ExtractConfig(c common.IngestConfig) extract.Config {
	return extract.Config{
		Pdftotext:     c.Pdftotext,
		MaxPages:      c.MaxPages,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		Pdftoppm:      c.Pdftoppm,
	}
}
