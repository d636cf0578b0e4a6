// Package analyzer turns extracted document text into schema-validated offer
// records and lead assessments.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/llm"
	"github.com/joseph-ayodele/price-intel/internal/money"
)

type Config struct {
	// ConfidenceThreshold flags positions below it as LowConfidence.
	ConfidenceThreshold float64
	// MaxInputChars truncates document text before generation. 0 = no limit.
	MaxInputChars   int
	DefaultCurrency string
	ModelName       string
}

type Analyzer struct {
	cfg    Config
	offers llm.StructuredGenerator[llm.OfferFields]
	assess llm.StructuredGenerator[llm.AssessmentFields]
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, offers llm.StructuredGenerator[llm.OfferFields], assess llm.StructuredGenerator[llm.AssessmentFields], logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EUR"
	}
	return &Analyzer{cfg: cfg, offers: offers, assess: assess, logger: logger, now: time.Now}
}

// NewFromGenerator wires both structured generators on one backend.
func NewFromGenerator(cfg Config, gen llm.Generator, logger *zap.Logger) *Analyzer {
	if cfg.ModelName == "" {
		cfg.ModelName = gen.Model()
	}
	return New(cfg,
		llm.NewStructured[llm.OfferFields](gen, logger),
		llm.NewStructured[llm.AssessmentFields](gen, logger),
		logger,
	)
}

type AnalyzeInput struct {
	DocumentID     uuid.UUID
	SourceDocument string
	Filename       string
	Text           string
	RegionHint     string
}

// Analyze reconstructs a historical offer. Line totals are recomputed and
// positions under the confidence threshold are flagged, not dropped. A schema
// failure aborts the whole call.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (entity.ExtractedOfferRecord, error) {
	if strings.TrimSpace(in.Text) == "" {
		return entity.ExtractedOfferRecord{}, common.NewValidationError("document text is empty", common.ErrInvalidInput)
	}

	prompt := llm.BuildOfferPrompt(llm.OfferRequest{
		Text:            in.Text,
		FilenameHint:    in.Filename,
		RegionHint:      in.RegionHint,
		DefaultCurrency: a.cfg.DefaultCurrency,
		MaxInputChars:   a.cfg.MaxInputChars,
	})
	fields, err := a.offers.Generate(ctx, prompt, llm.OfferSchema())
	if err != nil {
		a.logger.Warn("analyzer.analyze.failed", zap.String("file", in.Filename), zap.Error(err))
		return entity.ExtractedOfferRecord{}, err
	}

	rec := a.toRecord(in, fields)
	low := 0
	for _, p := range rec.Positions {
		if p.LowConfidence {
			low++
		}
	}
	a.logger.Info("analyzer.analyze.ok",
		zap.String("file", in.Filename),
		zap.Int("positions", len(rec.Positions)),
		zap.Int("low_confidence", low),
		zap.Float64("total", rec.TotalAmount),
	)
	return rec, nil
}

func (a *Analyzer) toRecord(in AnalyzeInput, f llm.OfferFields) entity.ExtractedOfferRecord {
	rec := entity.ExtractedOfferRecord{
		ID:             uuid.New(),
		DocumentID:     in.DocumentID,
		SourceDocument: in.SourceDocument,
		Title:          strings.TrimSpace(f.Title),
		CustomerName:   strings.TrimSpace(f.CustomerName),
		ProjectType:    strings.TrimSpace(f.ProjectType),
		Currency:       strings.ToUpper(strings.TrimSpace(f.Currency)),
		Metadata: entity.OfferMetadata{
			Region:     strings.TrimSpace(f.Metadata.Region),
			TradeType:  strings.TrimSpace(f.Metadata.TradeType),
			Size:       strings.TrimSpace(f.Metadata.Size),
			Complexity: f.Metadata.Complexity,
		},
		ModelName: a.cfg.ModelName,
		CreatedAt: a.now().UTC(),
	}
	if rec.Currency == "" {
		rec.Currency = a.cfg.DefaultCurrency
	}
	if rec.Metadata.Region == "" {
		rec.Metadata.Region = strings.TrimSpace(in.RegionHint)
	}
	if d, err := time.Parse(time.DateOnly, f.Date); err == nil {
		rec.Date = &d
	}

	positions := make([]entity.OfferPosition, 0, len(f.Positions))
	var sum float64
	for _, p := range f.Positions {
		cat, _ := constants.Canonicalize(p.Category)
		trade := strings.TrimSpace(p.TradeCategory)
		if trade == "" {
			trade = rec.Metadata.TradeType
		}
		pos := entity.OfferPosition{
			Code:          strings.TrimSpace(p.Code),
			Description:   strings.TrimSpace(p.Description),
			Quantity:      p.Quantity,
			Unit:          strings.TrimSpace(p.Unit),
			UnitPrice:     money.Round2(p.UnitPrice),
			Category:      cat,
			TradeCategory: trade,
			WorkType:      strings.TrimSpace(p.WorkType),
			Confidence:    p.Confidence,
		}
		pos.TotalPrice = money.LineTotal(pos.Quantity, pos.UnitPrice)
		pos.LowConfidence = pos.Confidence < a.cfg.ConfidenceThreshold
		sum += pos.TotalPrice
		positions = append(positions, pos)
	}
	rec.Positions = positions

	// the document total is kept as stated; fall back to the position sum
	rec.TotalAmount = money.Round2(f.TotalAmount)
	if rec.TotalAmount == 0 {
		rec.TotalAmount = money.Round2(sum)
	}
	return rec
}
