package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

var fixedNow = time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

func newTestService(stores *memStores, econ pricing.Economics) *Service {
	s := NewService(stores, econ, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

// socketItem costs 40.00: 14 material + 24 minutes at 65/h.
func socketItem() entity.PriceBookItem {
	return entity.PriceBookItem{
		ID: uuid.New(), Title: "Steckdose setzen", Unit: "Stk", Branch: "Elektro",
		BaseMaterialCost: 14, BaseMinutes: 24, IsActive: true, RegionFactor: 1,
	}
}

func pos(desc string, price, confidence float64) entity.OfferPosition {
	return entity.OfferPosition{Description: desc, Quantity: 1, Unit: "Stk", UnitPrice: price, TradeCategory: "Elektro", Confidence: confidence}
}

func TestProposeUpdates_PriceUpdateOnExactMatch(t *testing.T) {
	item := socketItem()
	stores := newMemStores(item)
	svc := newTestService(stores, pricing.DefaultEconomics())

	res, err := svc.ProposeUpdates(context.Background(), ProposeInput{
		SourceDocument: "hash-1",
		Positions:      []entity.OfferPosition{pos("  STECKDOSE setzen", 45, 0.9)},
	})

	require.NoError(t, err)
	require.Len(t, res.Proposals, 1)
	p := res.Proposals[0]
	assert.Equal(t, constants.UpdatePrice, p.UpdateType)
	assert.Equal(t, constants.MatchExact, p.MatchMethod)
	require.NotNil(t, p.PriceBookItemID)
	assert.Equal(t, item.ID, *p.PriceBookItemID)
	require.NotNil(t, p.OldPrice)
	assert.Equal(t, 40.0, *p.OldPrice)
	assert.Equal(t, 45.0, p.NewPrice)
	require.NotNil(t, p.PctChange)
	assert.Equal(t, 12.5, *p.PctChange)
	assert.Equal(t, constants.ProposalPending, p.Status)
	assert.Len(t, stores.pending(), 1)
}

func TestProposeUpdates_NewItemIsInactive(t *testing.T) {
	stores := newMemStores()
	svc := newTestService(stores, pricing.DefaultEconomics())

	res, err := svc.ProposeUpdates(context.Background(), ProposeInput{
		SourceDocument: "hash-1",
		Region:         "Bayern",
		Positions:      []entity.OfferPosition{pos("Wallbox montieren", 890, 0.8)},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewItems)
	require.Len(t, res.Proposals, 1)
	p := res.Proposals[0]
	assert.Equal(t, constants.UpdateNewItem, p.UpdateType)
	assert.Equal(t, constants.MatchNone, p.MatchMethod)
	assert.Nil(t, p.OldPrice)

	active, _ := stores.Catalog().ListActiveItems(context.Background())
	assert.Empty(t, active)
	item, err := stores.Catalog().GetItem(context.Background(), *p.PriceBookItemID)
	require.NoError(t, err)
	assert.False(t, item.IsActive)
	assert.Equal(t, 890.0, pricing.EffectiveUnitPrice(item, 65))
	assert.Equal(t, "Bayern", item.Region)
}

func TestProposeUpdates_SkipsNonQualifying(t *testing.T) {
	stores := newMemStores(socketItem())
	svc := newTestService(stores, pricing.DefaultEconomics())
	low := pos("Steckdose setzen", 45, 0.95)
	low.LowConfidence = true

	res, err := svc.ProposeUpdates(context.Background(), ProposeInput{
		SourceDocument: "hash-1",
		Positions:      []entity.OfferPosition{pos("Steckdose setzen", 45, 0.5), pos("Steckdose setzen", 0, 0.9), low},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, res.Proposals)
}

func TestProposeUpdates_ReingestNeverDuplicatesOpenProposals(t *testing.T) {
	stores := newMemStores(socketItem())
	svc := newTestService(stores, pricing.DefaultEconomics())
	in := ProposeInput{
		SourceDocument: "hash-1",
		Positions: []entity.OfferPosition{
			pos("Steckdose setzen", 45, 0.9),
			pos("Steckdose setzen", 46, 0.9),
			pos("Wallbox montieren", 890, 0.9),
			pos("Wallbox montieren", 900, 0.9),
		},
	}

	first, err := svc.ProposeUpdates(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, first.Proposals, 2)
	assert.Equal(t, 2, first.Duplicates, "repeats inside one document")

	second, err := svc.ProposeUpdates(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, second.Proposals)
	assert.Equal(t, 4, second.Duplicates)
	assert.Len(t, stores.pending(), 2)

	other, err := svc.ProposeUpdates(context.Background(), ProposeInput{SourceDocument: "hash-2", Positions: in.Positions[:1]})
	require.NoError(t, err)
	assert.Len(t, other.Proposals, 1, "a different document may propose again")
}

func TestProposeUpdates_FailedPositionLeavesNoItem(t *testing.T) {
	stores := newMemStores()
	stores.failOn["Create"] = true
	svc := newTestService(stores, pricing.DefaultEconomics())

	res, err := svc.ProposeUpdates(context.Background(), ProposeInput{
		SourceDocument: "hash-1",
		Positions:      []entity.OfferPosition{pos("Wallbox montieren", 890, 0.9)},
	})

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodePersistence))
	assert.Equal(t, 1, res.Failed)
	items, _ := stores.Catalog().ListItems(context.Background())
	assert.Empty(t, items, "item and proposal roll back together")
}

func TestProposeUpdates_RequiresSourceDocument(t *testing.T) {
	svc := newTestService(newMemStores(), pricing.DefaultEconomics())
	_, err := svc.ProposeUpdates(context.Background(), ProposeInput{})
	assert.True(t, common.IsCode(err, common.CodeValidation))
}

func TestApplyProposal(t *testing.T) {
	ctx := context.Background()
	econ := pricing.DefaultEconomics()

	setup := func(t *testing.T) (*memStores, *Service, entity.PriceUpdateProposal, entity.PriceBookItem) {
		item := socketItem()
		stores := newMemStores(item)
		svc := newTestService(stores, econ)
		res, err := svc.ProposeUpdates(ctx, ProposeInput{SourceDocument: "hash-1", Positions: []entity.OfferPosition{pos("Steckdose setzen", 45, 0.9)}})
		require.NoError(t, err)
		require.Len(t, res.Proposals, 1)
		return stores, svc, res.Proposals[0], item
	}

	t.Run("approve reprices the item", func(t *testing.T) {
		stores, svc, p, item := setup(t)

		require.NoError(t, svc.ApplyProposal(ctx, p.ID, constants.DecisionApprove))

		got, _ := stores.Catalog().GetItem(ctx, item.ID)
		assert.Equal(t, 45.0, pricing.EffectiveUnitPrice(got, econ.HourlyRate))
		assert.InDelta(t, 27.0, got.BaseMinutes, 1e-9, "minutes scale with the price")
		prop, _ := stores.Proposals().Get(ctx, p.ID)
		assert.Equal(t, constants.ProposalApproved, prop.Status)
		require.NotNil(t, prop.ResolvedAt)
		assert.Equal(t, fixedNow, *prop.ResolvedAt)
	})

	t.Run("reject leaves the item", func(t *testing.T) {
		stores, svc, p, item := setup(t)

		require.NoError(t, svc.ApplyProposal(ctx, p.ID, constants.DecisionReject))

		got, _ := stores.Catalog().GetItem(ctx, item.ID)
		assert.Equal(t, item, got)
		prop, _ := stores.Proposals().Get(ctx, p.ID)
		assert.Equal(t, constants.ProposalRejected, prop.Status)
	})

	t.Run("terminal proposals conflict", func(t *testing.T) {
		_, svc, p, _ := setup(t)
		require.NoError(t, svc.ApplyProposal(ctx, p.ID, constants.DecisionReject))

		err := svc.ApplyProposal(ctx, p.ID, constants.DecisionApprove)
		assert.True(t, common.IsCode(err, common.CodeStateConflict))
	})

	t.Run("failure before commit changes nothing", func(t *testing.T) {
		stores, svc, p, item := setup(t)
		stores.failOn["SetStatus"] = true

		err := svc.ApplyProposal(ctx, p.ID, constants.DecisionApprove)

		require.Error(t, err)
		got, _ := stores.Catalog().GetItem(ctx, item.ID)
		assert.Equal(t, item, got)
		prop, _ := stores.Proposals().Get(ctx, p.ID)
		assert.Equal(t, constants.ProposalPending, prop.Status)
	})

	t.Run("approve activates a new item", func(t *testing.T) {
		stores := newMemStores()
		svc := newTestService(stores, econ)
		res, err := svc.ProposeUpdates(ctx, ProposeInput{SourceDocument: "h", Positions: []entity.OfferPosition{pos("Wallbox montieren", 890, 0.9)}})
		require.NoError(t, err)

		require.NoError(t, svc.ApplyProposal(ctx, res.Proposals[0].ID, constants.DecisionApprove))

		active, _ := stores.Catalog().ListActiveItems(ctx)
		require.Len(t, active, 1)
		assert.Equal(t, "Wallbox montieren", active[0].Title)
	})

	t.Run("approved price on a rejected new item activates it", func(t *testing.T) {
		stores := newMemStores()
		svc := newTestService(stores, econ)
		first, err := svc.ProposeUpdates(ctx, ProposeInput{SourceDocument: "doc-a", Positions: []entity.OfferPosition{pos("Kabel ziehen", 12, 0.9)}})
		require.NoError(t, err)
		require.Equal(t, 1, first.NewItems)
		require.NoError(t, svc.ApplyProposal(ctx, first.Proposals[0].ID, constants.DecisionReject))

		second, err := svc.ProposeUpdates(ctx, ProposeInput{SourceDocument: "doc-b", Positions: []entity.OfferPosition{pos("Kabel ziehen", 14, 0.9)}})
		require.NoError(t, err)
		require.Len(t, second.Proposals, 1)
		update := second.Proposals[0]
		assert.Equal(t, constants.UpdatePrice, update.UpdateType)
		assert.Equal(t, *first.Proposals[0].PriceBookItemID, *update.PriceBookItemID)

		require.NoError(t, svc.ApplyProposal(ctx, update.ID, constants.DecisionApprove))

		active, _ := stores.Catalog().ListActiveItems(ctx)
		require.Len(t, active, 1)
		assert.Equal(t, "Kabel ziehen", active[0].Title)
		assert.InDelta(t, 14.0, pricing.EffectiveUnitPrice(active[0], econ.HourlyRate), 1e-9)
	})

	t.Run("unknown id and decision", func(t *testing.T) {
		_, svc, p, _ := setup(t)
		assert.True(t, common.IsCode(svc.ApplyProposal(ctx, uuid.New(), constants.DecisionApprove), common.CodeNotFound))
		assert.True(t, common.IsCode(svc.ApplyProposal(ctx, p.ID, "maybe"), common.CodeValidation))
	})
}

func TestMatcher(t *testing.T) {
	item := socketItem()
	item.Title = "Steckdose setzen inkl. Dose"

	exactOnly := NewMatcher([]entity.PriceBookItem{item}, pricing.DefaultEconomics())
	_, ok := exactOnly.Match("Steckdose setzen inkl Dose", "Stk", "Elektro", "")
	assert.False(t, ok, "fuzzy stage is off by default")

	econ := pricing.DefaultEconomics()
	econ.FuzzyMatching = true
	fuzzy := NewMatcher([]entity.PriceBookItem{item}, econ)

	m, ok := fuzzy.Match("Steckdose setzen inkl Dose", "Stk", "Elektro", "")
	require.True(t, ok)
	assert.Equal(t, constants.MatchFuzzy, m.Method)
	assert.GreaterOrEqual(t, m.Score, econ.FuzzyMinScore)

	_, ok = fuzzy.Match("Steckdose setzen inkl Dose", "m", "Elektro", "")
	assert.False(t, ok, "unit must agree")
	_, ok = fuzzy.Match("Wallbox montieren", "Stk", "Elektro", "")
	assert.False(t, ok)

	m, ok = fuzzy.Match("steckdose setzen inkl. dose", "STK", "elektro", "")
	require.True(t, ok)
	assert.Equal(t, constants.MatchExact, m.Method)
}

func TestReprice_ZeroCostItem(t *testing.T) {
	got := Reprice(entity.PriceBookItem{}, 12.34, 65)
	assert.Equal(t, 12.34, got.BaseMaterialCost)
	assert.Equal(t, 12.34, pricing.EffectiveUnitPrice(got, 65))
}
