package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func offer(region string, at time.Time, positions ...entity.OfferPosition) entity.ExtractedOfferRecord {
	return entity.ExtractedOfferRecord{
		ID:        uuid.New(),
		Positions: positions,
		Metadata:  entity.OfferMetadata{Region: region},
		CreatedAt: at,
	}
}

func socket(price, confidence float64) entity.OfferPosition {
	return entity.OfferPosition{
		Description:   "Steckdose setzen",
		Quantity:      1,
		Unit:          "Stk",
		UnitPrice:     price,
		TradeCategory: "Elektro",
		Confidence:    confidence,
	}
}

func threeSocketOffers() []entity.ExtractedOfferRecord {
	return []entity.ExtractedOfferRecord{
		offer("Bayern", t0, socket(42, 0.9)),
		offer("Bayern", t0.Add(time.Hour), socket(45, 0.8)),
		offer("Bayern", t0.Add(2*time.Hour), socket(48, 0.95)),
	}
}

func TestAggregate_ThreeOffersForOneKey(t *testing.T) {
	entries := Aggregate(nil, threeSocketOffers(), DefaultEconomics())

	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "steckdose setzen|stk|elektro", e.Key)
	assert.Equal(t, entity.PriceRange{Min: 42, Max: 48, Avg: 45}, e.PriceRange)
	assert.Equal(t, 3, e.SourceCount)
	assert.Equal(t, 0.8, e.Confidence)
	assert.Equal(t, "Bayern", e.Region, "shared by all contributors")
	assert.Equal(t, t0.Add(2*time.Hour), e.LastUpdated)
}

func TestAggregate_SourceFilters(t *testing.T) {
	econ := DefaultEconomics()
	low := socket(10, 0.95)
	low.LowConfidence = true

	catalog := []entity.PriceBookItem{
		{Title: "Steckdose  SETZEN", Unit: "stk", Branch: "elektro", BaseMaterialCost: 12, BaseMinutes: 30, IsActive: true, UpdatedAt: t0},
		{Title: "Steckdose setzen", Unit: "Stk", Branch: "Elektro", BaseMaterialCost: 1000, IsActive: false, UpdatedAt: t0},
	}
	records := []entity.ExtractedOfferRecord{
		offer("", t0, socket(45, 0.69), low, socket(0, 0.9), socket(-3, 0.9), socket(50.5, 0.7)),
	}

	entries := Aggregate(catalog, records, econ)

	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, 2, e.SourceCount, "active item plus the 0.7 position")
	assert.Equal(t, 44.5, e.PriceRange.Min, "12 + 30min at 65/h")
	assert.Equal(t, 50.5, e.PriceRange.Max)
	assert.Equal(t, 47.5, e.PriceRange.Avg)
	assert.Equal(t, "Steckdose  SETZEN", e.Description, "first contributor's wording")
}

func TestAggregate_RegionPartition(t *testing.T) {
	records := []entity.ExtractedOfferRecord{
		offer("Bayern", t0, socket(40, 0.9)),
		offer("Hessen", t0, socket(60, 0.9)),
	}

	shared := Aggregate(nil, records, DefaultEconomics())
	require.Len(t, shared, 1)
	assert.Empty(t, shared[0].Region, "contributors disagree")

	econ := DefaultEconomics()
	econ.RegionPartition = true
	split := Aggregate(nil, records, econ)
	require.Len(t, split, 2)
	assert.Equal(t, "steckdose setzen|stk|elektro|bayern", split[0].Key)
	assert.Equal(t, "Bayern", split[0].Region)
	assert.Equal(t, "steckdose setzen|stk|elektro|hessen", split[1].Key)
}

func TestAggregate_SortedAndIdempotent(t *testing.T) {
	cable := func(p float64) entity.OfferPosition {
		return entity.OfferPosition{Description: "Kabel NYM-J 3x1,5", Unit: "m", UnitPrice: p, TradeCategory: "Elektro", Confidence: 0.9}
	}
	records := append(threeSocketOffers(),
		offer("", t0, cable(1.99)),
		offer("", t0, entity.OfferPosition{Description: "Abdeckung", Unit: "Stk", UnitPrice: 3, TradeCategory: "Elektro", Confidence: 0.9}),
	)

	first := Aggregate(nil, records, DefaultEconomics())
	second := Aggregate(nil, records, DefaultEconomics())

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "steckdose setzen|stk|elektro", first[0].Key)
	assert.Equal(t, "abdeckung|stk|elektro", first[1].Key, "ties broken by key")
	assert.Equal(t, "kabel nym-j 3x1,5|m|elektro", first[2].Key)
}

func TestAggregate_RangeInvariant(t *testing.T) {
	prices := []float64{0.004, 0.015, 19.999, 20.001, 7.333, 1e6, 3.14159}
	var records []entity.ExtractedOfferRecord
	for _, p := range prices {
		records = append(records, offer("", t0, socket(p, 0.9)))
	}
	for n := 1; n <= len(records); n++ {
		for _, e := range Aggregate(nil, records[:n], DefaultEconomics()) {
			assert.LessOrEqual(t, e.PriceRange.Min, e.PriceRange.Avg)
			assert.LessOrEqual(t, e.PriceRange.Avg, e.PriceRange.Max)
			assert.GreaterOrEqual(t, e.Confidence, 0.0)
			assert.LessOrEqual(t, e.Confidence, 0.95)
		}
	}
}

func TestConfidence_MonotonicAndCapped(t *testing.T) {
	econ := DefaultEconomics()
	assert.Equal(t, 0.0, Confidence(0, econ))
	assert.Equal(t, 0.6, Confidence(1, econ))
	assert.Equal(t, 0.8, Confidence(3, econ))
	assert.Equal(t, 0.9, Confidence(4, econ))
	assert.Equal(t, 0.95, Confidence(5, econ))
	assert.Equal(t, 0.95, Confidence(500, econ))

	prev := 0.0
	for n := 0; n < 50; n++ {
		c := Confidence(n, econ)
		assert.GreaterOrEqual(t, c, prev, "n=%d", n)
		prev = c
	}
}

func TestRecommend(t *testing.T) {
	econ := DefaultEconomics()
	ix := NewIndex(Aggregate(nil, threeSocketOffers(), econ), t0)
	ptr := func(f float64) *float64 { return &f }

	t.Run("boundary confidence has no margin", func(t *testing.T) {
		rec := Recommend(Target{Description: "Steckdose setzen", Unit: "Stk", TradeCategory: "Elektro"}, ix, econ)

		require.True(t, rec.Found)
		require.NotNil(t, rec.RecommendedPrice)
		assert.Equal(t, 45.0, *rec.RecommendedPrice)
		assert.False(t, rec.SafetyMarginApplied)
		assert.Equal(t, 0.8, rec.Confidence)
		assert.Equal(t, "based on 3 source(s), confidence 80%", rec.Provenance)
		assert.Nil(t, rec.MarketTrend)
	})

	t.Run("unseen key", func(t *testing.T) {
		rec := Recommend(Target{Description: "Wallbox montieren", Unit: "Stk", TradeCategory: "Elektro"}, ix, econ)

		assert.False(t, rec.Found)
		assert.Equal(t, 0.0, rec.Confidence)
		assert.Nil(t, rec.RecommendedPrice)
		assert.Equal(t, MessageNoMarketData, rec.Message)
	})

	t.Run("low confidence gets margin", func(t *testing.T) {
		small := NewIndex(Aggregate(nil, threeSocketOffers()[:2], econ), t0)
		rec := Recommend(Target{Description: "steckdose setzen", Unit: "STK", TradeCategory: "elektro"}, small, econ)

		require.True(t, rec.Found)
		assert.Equal(t, 0.7, rec.Confidence)
		assert.True(t, rec.SafetyMarginApplied)
		assert.Equal(t, 47.85, *rec.RecommendedPrice, "43.50 + 10%")
	})

	t.Run("trend", func(t *testing.T) {
		cases := []struct {
			proposed float64
			want     constants.MarketTrend
		}{
			{47.25, constants.AtMarket},
			{42.75, constants.AtMarket},
			{47.26, constants.AboveMarket},
			{40, constants.BelowMarket},
		}
		for _, tc := range cases {
			rec := Recommend(Target{Description: "Steckdose setzen", Unit: "Stk", TradeCategory: "Elektro", ProposedPrice: ptr(tc.proposed)}, ix, econ)
			require.NotNil(t, rec.MarketTrend, "%v", tc.proposed)
			assert.Equal(t, tc.want, *rec.MarketTrend, "%v", tc.proposed)
		}
	})

	t.Run("nil index", func(t *testing.T) {
		rec := Recommend(Target{Description: "x", Unit: "m"}, nil, econ)
		assert.False(t, rec.Found)
	})
}

func TestHolder_EmptyUntilStored(t *testing.T) {
	var h Holder
	assert.False(t, h.Loaded())
	assert.Equal(t, 0, h.Load().Len())

	h.Store(NewIndex(Aggregate(nil, threeSocketOffers(), DefaultEconomics()), t0))
	assert.True(t, h.Loaded())
	_, ok := h.Load().Lookup("steckdose setzen|stk|elektro")
	assert.True(t, ok)
}

func TestEconomics_YAMLOverlay(t *testing.T) {
	base := DefaultEconomics()

	econ, err := ParseEconomics([]byte("hourly_rate: 72.5\nregion_partition: true\n"), base)
	require.NoError(t, err)
	assert.Equal(t, 72.5, econ.HourlyRate)
	assert.True(t, econ.RegionPartition)
	assert.Equal(t, base.SafetyMarginPct, econ.SafetyMarginPct)

	_, err = ParseEconomics([]byte("hourly_rat: 1\n"), base)
	assert.Error(t, err, "unknown keys are rejected")

	_, err = ParseEconomics([]byte("confidence_cap: 0.99\n"), base)
	assert.Error(t, err)

	econ, err = ParseEconomics(nil, base)
	require.NoError(t, err)
	assert.Equal(t, base, econ)
}

func TestKeyHelpers(t *testing.T) {
	econ := DefaultEconomics()
	assert.Equal(t, "a b|m²|trockenbau", KeyFor("  A\tb ", "M²", "Trockenbau", "Berlin", econ))
	assert.Equal(t, 77.33, EffectiveUnitPrice(entity.PriceBookItem{BaseMaterialCost: 12, BaseMinutes: 60.3}, 65))
}

type fakeSources struct {
	items   []entity.PriceBookItem
	records []entity.ExtractedOfferRecord
	err     error
}

func (f *fakeSources) ListActiveItems(context.Context) ([]entity.PriceBookItem, error) {
	return f.items, f.err
}

func (f *fakeSources) ListCompletedRecords(context.Context) ([]entity.ExtractedOfferRecord, error) {
	return f.records, nil
}

type memSnapshots struct {
	snap  *Snapshot
	saves int
}

func (m *memSnapshots) Save(_ context.Context, s Snapshot) error {
	m.snap = &s
	m.saves++
	return nil
}

func (m *memSnapshots) Load(context.Context) (Snapshot, bool, error) {
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

type countingObserver struct {
	calls   int
	lastErr error
}

func (c *countingObserver) ObserveRebuild(_ time.Duration, _ int, err error) {
	c.calls++
	c.lastErr = err
}

func TestRebuilder(t *testing.T) {
	src := &fakeSources{records: threeSocketOffers()}
	snaps := &memSnapshots{}
	obs := &countingObserver{}
	holder := &Holder{}
	r := NewRebuilder(src, holder, DefaultEconomics(), nil, WithSnapshotStore(snaps), WithObserver(obs))

	ix, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Same(t, ix, holder.Load())
	assert.Equal(t, 1, snaps.saves)
	require.NotNil(t, snaps.snap)
	assert.Len(t, snaps.snap.Entries, 1)

	src.err = errors.New("db down")
	_, err = r.Rebuild(context.Background())
	require.Error(t, err)
	assert.Same(t, ix, holder.Load(), "failed rebuild keeps the previous index")
	assert.Equal(t, 2, obs.calls)
	assert.Error(t, obs.lastErr)

	// a fresh process warms up from the stored snapshot
	other := NewRebuilder(src, &Holder{}, DefaultEconomics(), nil, WithSnapshotStore(snaps))
	used, err := other.WarmStart(context.Background())
	require.NoError(t, err)
	assert.True(t, used)
	_, ok := other.Holder().Load().Lookup("steckdose setzen|stk|elektro")
	assert.True(t, ok)
}
