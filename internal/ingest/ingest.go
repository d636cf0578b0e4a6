// Package ingest runs uploaded documents through extraction, analysis,
// persistence and proposal generation, one independent unit per document.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/analyzer"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/workflow"
)

type Documents interface {
	Create(ctx context.Context, d entity.UploadedDocument) error
	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg *string, at time.Time) error
	SetExtraction(ctx context.Context, id uuid.UUID, format, mimeType, text string, at time.Time) error
}

type Offers interface {
	Create(ctx context.Context, rec entity.ExtractedOfferRecord) error
}

type Analyzer interface {
	Analyze(ctx context.Context, in analyzer.AnalyzeInput) (entity.ExtractedOfferRecord, error)
}

type Proposer interface {
	ProposeUpdates(ctx context.Context, in workflow.ProposeInput) (workflow.ProposeResult, error)
}

// Observer is told about every finished document.
type Observer interface {
	ObserveDocument(format string, outcome constants.Outcome, d time.Duration)
}

type Config struct {
	Limits          extract.Limits
	Concurrency     int
	DocumentTimeout time.Duration
}

// Deps are the collaborators of a Service. Proposer and Observer are optional.
type Deps struct {
	Extractor extract.TextExtractor
	Analyzer  Analyzer
	Documents Documents
	Offers    Offers
	Proposer  Proposer
	Observer  Observer
}

type Service struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func NewService(cfg Config, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	return &Service{cfg: cfg, deps: deps, logger: logger, now: time.Now}
}

// FileOutcome is the user-visible result for one uploaded file.
type FileOutcome struct {
	Filename      string            `json:"filename"`
	DocumentID    *uuid.UUID        `json:"document_id,omitempty"`
	ContentHash   string            `json:"content_hash,omitempty"`
	Format        string            `json:"format,omitempty"`
	Outcome       constants.Outcome `json:"outcome"`
	Reason        string            `json:"reason,omitempty"`
	Positions     int               `json:"positions"`
	LowConfidence int               `json:"low_confidence"`
	Proposals     int               `json:"proposals"`
	NewItems      int               `json:"new_items"`
	Duplicates    int               `json:"duplicates"`
	Warning       string            `json:"warning,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
}

// String renders the outcome as "validated-ok" or "<outcome>:<reason>".
func (o FileOutcome) String() string {
	if o.Outcome == constants.OutcomeOK || o.Reason == "" {
		return string(o.Outcome)
	}
	return string(o.Outcome) + ":" + o.Reason
}

func (o FileOutcome) OK() bool { return o.Outcome == constants.OutcomeOK }

type BatchResult struct {
	RunID     string        `json:"run_id"`
	Files     []FileOutcome `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Rejected  int           `json:"rejected"`
}

// ProcessBatch validates docs, then processes the accepted ones with bounded
// concurrency. Per-document failures end up in the result; the returned error
// is reserved for a cancelled context.
func (s *Service) ProcessBatch(ctx context.Context, docs []extract.Document, regionHint string) (BatchResult, error) {
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	log := s.logger.With(zap.String("run_id", runID))

	accepted, rejected := extract.ValidateBatch(docs, s.cfg.Limits)
	log.Info("ingest.batch.start", zap.Int("files", len(docs)), zap.Int("accepted", len(accepted)), zap.Int("rejected", len(rejected)))

	outcomes := make([]FileOutcome, len(accepted))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, d := range accepted {
		g.Go(func() error {
			outcomes[i] = s.processOne(ctx, runID, d, regionHint, log)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{RunID: runID, Files: outcomes}
	for _, o := range outcomes {
		if o.OK() {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	for _, r := range rejected {
		res.Rejected++
		res.Files = append(res.Files, FileOutcome{
			Filename: r.Filename,
			Outcome:  constants.OutcomeValidationFailed,
			Reason:   r.Err.Message,
		})
		s.observe("", constants.OutcomeValidationFailed, 0)
	}

	log.Info("ingest.batch.done", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed), zap.Int("rejected", res.Rejected))
	return res, ctx.Err()
}

func (s *Service) processOne(ctx context.Context, runID string, d extract.Document, regionHint string, log *zap.Logger) (out FileOutcome) {
	start := s.now()
	sum := sha256.Sum256(d.Data)
	hash := hex.EncodeToString(sum[:])
	now := start.UTC()
	doc := entity.UploadedDocument{
		ID:          uuid.New(),
		RunID:       runID,
		Filename:    d.Filename,
		MimeType:    d.MimeType,
		Size:        d.Size(),
		ContentHash: hash,
		Format:      constants.MapExtToFormat(filepath.Ext(d.Filename)),
		Status:      constants.DocumentProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	out = FileOutcome{Filename: d.Filename, ContentHash: hash, Format: doc.Format}
	log = log.With(zap.String("file", d.Filename), zap.String("document_id", doc.ID.String()))
	defer func() {
		took := s.now().Sub(start)
		out.DurationMS = took.Milliseconds()
		s.observe(out.Format, out.Outcome, took)
	}()

	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		log.Error("ingest.document.create_failed", zap.Error(err))
		out.Outcome, out.Reason = constants.OutcomeAnalysisFailed, reason(err, 0)
		return out
	}
	id := doc.ID
	out.DocumentID = &id
	log.Info("ingest.document.start", zap.Int64("size", doc.Size))

	dctx, cancel := common.WithTimeout(ctx, s.cfg.DocumentTimeout)
	defer cancel()

	res := s.deps.Extractor.Extract(dctx, d)
	out.Format = res.Format
	if err := s.deps.Documents.SetExtraction(ctx, id, res.Format, res.MimeType, res.Text, s.now()); err != nil {
		log.Warn("ingest.document.store_text_failed", zap.Error(err))
	}
	if res.Failed() {
		return s.fail(ctx, log, out, constants.OutcomeExtractionFailed, reason(res.Err, s.cfg.DocumentTimeout))
	}

	rec, err := s.deps.Analyzer.Analyze(dctx, analyzer.AnalyzeInput{
		DocumentID:     id,
		SourceDocument: hash,
		Filename:       d.Filename,
		Text:           res.Text,
		RegionHint:     regionHint,
	})
	if err != nil {
		return s.fail(ctx, log, out, constants.OutcomeAnalysisFailed, reason(err, s.cfg.DocumentTimeout))
	}
	out.Positions = len(rec.Positions)
	for _, p := range rec.Positions {
		if p.LowConfidence {
			out.LowConfidence++
		}
	}

	if err := s.deps.Offers.Create(ctx, rec); err != nil {
		return s.fail(ctx, log, out, constants.OutcomeAnalysisFailed, reason(err, 0))
	}
	if err := s.deps.Documents.SetStatus(ctx, id, constants.DocumentCompleted, nil, s.now()); err != nil {
		log.Error("ingest.document.status_failed", zap.Error(err))
	}
	out.Outcome = constants.OutcomeOK

	if s.deps.Proposer != nil {
		pr, err := s.deps.Proposer.ProposeUpdates(ctx, workflow.ProposeInput{
			SourceDocument: hash,
			DocumentID:     &id,
			Region:         rec.Metadata.Region,
			Positions:      rec.Positions,
		})
		out.Proposals, out.NewItems, out.Duplicates = len(pr.Proposals), pr.NewItems, pr.Duplicates
		if err != nil {
			out.Warning = "some proposals were not stored: " + reason(err, 0)
			log.Warn("ingest.document.propose_failed", zap.Error(err))
		}
	}

	log.Info("ingest.document.ok",
		zap.Int("positions", out.Positions),
		zap.Int("low_confidence", out.LowConfidence),
		zap.Int("proposals", out.Proposals),
	)
	return out
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, out FileOutcome, outcome constants.Outcome, why string) FileOutcome {
	out.Outcome, out.Reason = outcome, why
	msg := out.String()
	if out.DocumentID != nil {
		if err := s.deps.Documents.SetStatus(ctx, *out.DocumentID, constants.DocumentFailed, &msg, s.now()); err != nil {
			log.Error("ingest.document.status_failed", zap.Error(err))
		}
	}
	log.Warn("ingest.document.failed", zap.String("outcome", msg))
	return out
}

func (s *Service) observe(format string, outcome constants.Outcome, d time.Duration) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveDocument(format, outcome, d)
	}
}

// reason is the short, user-facing cause of a failure.
func reason(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		if timeout > 0 {
			return fmt.Sprintf("timed out after %s", timeout)
		}
		return "timed out"
	}
	if appErr, ok := common.AsAppError(err); ok {
		msg := appErr.Message
		if appErr.Code == common.CodeExtraction && appErr.Cause != nil {
			msg = appErr.Cause.Error()
		}
		return strings.TrimSpace(msg)
	}
	return err.Error()
}
