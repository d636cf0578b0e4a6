package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type stubPending []entity.PriceUpdateProposal

func (s stubPending) ListPending(context.Context) ([]entity.PriceUpdateProposal, error) {
	return s, nil
}

func TestMarketReportXLSX(t *testing.T) {
	built := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	holder := &pricing.Holder{}
	holder.Store(pricing.NewIndex([]entity.MarketPriceEntry{{
		Key:           "kabel nym 3x1,5|m|elektro",
		Description:   "Kabel NYM 3x1,5",
		Unit:          "m",
		TradeCategory: "Elektro",
		PriceRange:    entity.PriceRange{Min: 42, Max: 48, Avg: 45},
		Confidence:    0.8,
		SourceCount:   3,
		LastUpdated:   built,
	}}, built))

	old := 40.0
	pct := 12.5
	pending := stubPending{{
		ID:             uuid.New(),
		UpdateType:     constants.UpdatePrice,
		Description:    "Steckdose",
		Unit:           "Stk",
		OldPrice:       &old,
		NewPrice:       45,
		PctChange:      &pct,
		MatchMethod:    constants.MatchExact,
		SourceDocument: "hash-1",
		Status:         constants.ProposalPending,
	}, {
		ID:          uuid.New(),
		UpdateType:  constants.UpdateNewItem,
		Description: "Wallbox",
		Unit:        "Stk",
		NewPrice:    890,
		MatchMethod: constants.MatchNone,
	}}

	raw, err := NewService(holder, pending, nil).MarketReportXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMarket, SheetProposals}, f.GetSheetList())

	rows, err := f.GetRows(SheetMarket)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "Description", rows[0][0])
	assert.Equal(t, "Kabel NYM 3x1,5", rows[1][0])
	assert.Equal(t, "45", rows[1][5])
	assert.Equal(t, "Index built", rows[len(rows)-1][0])

	rows, err = f.GetRows(SheetProposals)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "price_update", rows[1][1])
	assert.Equal(t, "12.5", rows[1][7])
	assert.Equal(t, "new_item", rows[2][1])
	assert.Equal(t, "", rows[2][5])
}

func TestBuild_EmptyIndex(t *testing.T) {
	raw, err := Build(nil, nil, time.Time{})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetMarket)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
