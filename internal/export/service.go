package export

import (
	"bytes"
	"context"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

const (
	SheetMarket    = "Market Index"
	SheetProposals = "Pending Proposals"
)

// PendingLister is the proposal query the report needs.
type PendingLister interface {
	ListPending(ctx context.Context) ([]entity.PriceUpdateProposal, error)
}

// Service produces XLSX reports over the published market index.
type Service struct {
	index     *pricing.Holder
	proposals PendingLister
	logger    *zap.Logger
}

func NewService(index *pricing.Holder, proposals PendingLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, proposals: proposals, logger: logger}
}

// MarketReportXLSX returns a workbook with the current index and every
// pending proposal.
func (s *Service) MarketReportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	ix := s.index.Load()

	var pending []entity.PriceUpdateProposal
	if s.proposals != nil {
		var err error
		pending, err = s.proposals.ListPending(ctx)
		if err != nil {
			return nil, err
		}
	}

	buf, err := Build(ix.Entries(), pending, ix.BuiltAt())
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		zap.Int("entries", ix.Len()),
		zap.Int("pending", len(pending)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf, nil
}

// Build renders the two report sheets.
func Build(entries []entity.MarketPriceEntry, pending []entity.PriceUpdateProposal, builtAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetMarket); err != nil {
		return nil, common.NewInternalError("xlsx sheet", err)
	}
	if _, err := f.NewSheet(SheetProposals); err != nil {
		return nil, common.NewInternalError("xlsx sheet", err)
	}
	f.SetActiveSheet(0)

	writeMarket(f, entries, builtAt)
	writeProposals(f, pending)

	var out bytes.Buffer
	if _, err := f.WriteTo(&out); err != nil {
		return nil, common.NewInternalError("xlsx write", err)
	}
	return out.Bytes(), nil
}

func writeMarket(f *excelize.File, entries []entity.MarketPriceEntry, builtAt time.Time) {
	headers := []string{"Description", "Unit", "Trade", "Region", "Min", "Avg", "Max", "Confidence", "Sources", "Last Updated", "Key"}
	writeRow(f, SheetMarket, 1, toAny(headers))

	for i, e := range entries {
		writeRow(f, SheetMarket, i+2, []any{
			e.Description,
			e.Unit,
			e.TradeCategory,
			e.Region,
			e.PriceRange.Min,
			e.PriceRange.Avg,
			e.PriceRange.Max,
			e.Confidence,
			e.SourceCount,
			formatTime(e.LastUpdated),
			e.Key,
		})
	}
	// built-at footer below the table
	if !builtAt.IsZero() {
		writeRow(f, SheetMarket, len(entries)+3, []any{"Index built", formatTime(builtAt)})
	}

	_ = f.SetColWidth(SheetMarket, "A", "A", 40)
	_ = f.SetColWidth(SheetMarket, "B", "D", 12)
	_ = f.SetColWidth(SheetMarket, "E", "I", 11)
	_ = f.SetColWidth(SheetMarket, "J", "J", 20)
	_ = f.SetColWidth(SheetMarket, "K", "K", 48)
}

func writeProposals(f *excelize.File, pending []entity.PriceUpdateProposal) {
	headers := []string{"ID", "Type", "Description", "Unit", "Trade", "Old Price", "New Price", "Change %", "Match", "Source", "Created"}
	writeRow(f, SheetProposals, 1, toAny(headers))

	for i, p := range pending {
		writeRow(f, SheetProposals, i+2, []any{
			p.ID.String(),
			string(p.UpdateType),
			truncate(p.Description, 140),
			p.Unit,
			p.TradeCategory,
			optional(p.OldPrice),
			p.NewPrice,
			optional(p.PctChange),
			string(p.MatchMethod),
			p.SourceDocument,
			formatTime(p.CreatedAt),
		})
	}

	_ = f.SetColWidth(SheetProposals, "A", "A", 38)
	_ = f.SetColWidth(SheetProposals, "C", "C", 40)
	_ = f.SetColWidth(SheetProposals, "J", "J", 66)
	_ = f.SetColWidth(SheetProposals, "K", "K", 20)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// optional leaves the cell empty for nil values.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
