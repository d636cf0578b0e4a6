// Package server exposes the pricing operations over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/analyzer"
	"github.com/joseph-ayodele/price-intel/internal/async"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
	"github.com/joseph-ayodele/price-intel/internal/metrics"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type BatchIngestor interface {
	ProcessBatch(ctx context.Context, docs []extract.Document, regionHint string) (ingest.BatchResult, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, job async.Job) (string, error)
	Status(id string) (async.JobStatus, bool)
}

type Assessor interface {
	Assess(ctx context.Context, message string, documents []string, actx *analyzer.AssessmentContext) (analyzer.Assessment, error)
}

type IndexRebuilder interface {
	Rebuild(ctx context.Context) (*pricing.Index, error)
}

type ProposalWorkflow interface {
	ListPending(ctx context.Context) ([]entity.PriceUpdateProposal, error)
	ApplyProposal(ctx context.Context, id uuid.UUID, decision constants.Decision) error
}

type ReportWriter interface {
	MarketReportXLSX(ctx context.Context) ([]byte, error)
}

// HealthCheck is one dependency checked by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	MaxUploadBytes int64
	HealthTimeout  time.Duration
	Economics      pricing.Economics
}

// Deps are the collaborators behind the routes. Queue, Assessor and Reports
// may be nil; their routes then answer 404 or 503.
type Deps struct {
	Ingestor  BatchIngestor
	Queue     JobQueue
	Assessor  Assessor
	Index     *pricing.Holder
	Rebuilder IndexRebuilder
	Proposals ProposalWorkflow
	Reports   ReportWriter
	Checks    []HealthCheck
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 60 << 20
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 2 * time.Second
	}
	if deps.Index == nil {
		deps.Index = &pricing.Holder{}
	}
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.recoverer,
		s.deps.Metrics.Middleware,
		s.requestLogger,
	)

	r.Get("/healthz", s.health)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.deps.Gatherer))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.uploadDocuments)
		r.Get("/jobs/{id}", s.jobStatus)
		r.Post("/assessments", s.assess)

		r.Get("/market", s.market)
		r.Post("/market/rebuild", s.rebuild)
		r.Post("/recommendations", s.recommend)

		r.Get("/proposals", s.listProposals)
		r.Post("/proposals/{id}/approve", s.decide(constants.DecisionApprove))
		r.Post("/proposals/{id}/reject", s.decide(constants.DecisionReject))

		r.Get("/reports/market.xlsx", s.marketReport)
	})
	return r
}
