package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/price-intel/internal/async"
	"github.com/joseph-ayodele/price-intel/internal/bootstrap"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
	"github.com/joseph-ayodele/price-intel/internal/logging"
	"github.com/joseph-ayodele/price-intel/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("priced.exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *zap.Logger) error {
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.LoadIndex(ctx); err != nil {
		return fmt.Errorf("initial index build: %w", err)
	}

	sched, err := bootstrap.ScheduleRebuild(cfg.Schedule.RebuildCron, time.Minute, logger, func(ctx context.Context) error {
		_, err := app.Rebuilder.Rebuild(ctx)
		return err
	})
	if err != nil {
		return err
	}
	defer func() { <-sched.Stop().Done() }()

	deps := server.Deps{
		Index:     app.Index,
		Rebuilder: app.Rebuilder,
		Proposals: app.Workflow,
		Reports:   app.Reports,
		Metrics:   app.Metrics,
		Gatherer:  app.Registry,
		Checks: []server.HealthCheck{{Name: "db", Check: func(ctx context.Context) error {
			return app.DB.HealthCheck(ctx, 0)
		}}},
	}
	if app.Snapshots != nil {
		deps.Checks = append(deps.Checks, server.HealthCheck{Name: "redis", Check: app.Snapshots.Ping})
	}

	var queue *async.ProcessorQueue
	if app.Ingest != nil {
		queue = async.NewProcessorQueue(app.Ingest, logger,
			async.WithWorkers(cfg.Ingest.QueueWorkers),
			async.WithQueueSize(cfg.Ingest.QueueSize),
			async.WithProcessTimeout(cfg.Ingest.DocumentTimeout*time.Duration(cfg.Ingest.MaxFiles)),
			async.WithRetention(cfg.Ingest.JobRetention),
			async.WithOnDone(func(ctx context.Context, res ingest.BatchResult) {
				if res.Succeeded == 0 {
					return
				}
				if _, err := app.Rebuilder.Rebuild(ctx); err != nil {
					logger.Warn("priced.rebuild_after_batch.failed", zap.String("run_id", res.RunID), zap.Error(err))
				}
			}),
		)
		deps.Ingestor = app.Ingest
		deps.Queue = queue
		deps.Assessor = app.Analyzer
	}

	srv := server.New(server.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Economics:      cfg.Economics.Economics,
	}, deps, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcServer *grpc.Server
	errCh := make(chan error, 2)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpc.NewServer()
		hs := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		reflection.Register(grpcServer)
		go func() {
			logger.Info("priced.grpc.listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("priced.http.listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("priced.shutdown")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := common.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("priced.http.shutdown_failed", zap.Error(err))
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return runErr
}
