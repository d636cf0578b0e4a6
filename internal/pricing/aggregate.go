package pricing

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/money"
)

type contribution struct {
	price       float64
	description string
	unit        string
	trade       string
	region      string
	at          time.Time
}

type bucket struct {
	key      string
	contribs []contribution
}

// Aggregate builds the market index entries from active catalog items and
// confident positions of completed offer records. The result is sorted by
// confidence descending, then key ascending, and depends only on its inputs.
func Aggregate(catalog []entity.PriceBookItem, records []entity.ExtractedOfferRecord, econ Economics) []entity.MarketPriceEntry {
	buckets := map[string]*bucket{}
	add := func(key string, c contribution) {
		if !money.IsPrice(c.price) {
			return
		}
		// sub-cent prices round to zero and are dropped with the rest
		if c.price = money.Round2(c.price); c.price <= 0 {
			return
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key}
			buckets[key] = b
		}
		b.contribs = append(b.contribs, c)
	}

	for _, item := range catalog {
		if !item.IsActive {
			continue
		}
		add(ItemKey(item, econ), contribution{
			price:       EffectiveUnitPrice(item, econ.HourlyRate),
			description: item.Title,
			unit:        item.Unit,
			trade:       item.Branch,
			region:      item.Region,
			at:          item.UpdatedAt,
		})
	}

	for _, rec := range records {
		for _, p := range rec.Positions {
			if !Qualifies(p, econ) {
				continue
			}
			add(KeyFor(p.Description, p.Unit, p.TradeCategory, rec.Metadata.Region, econ), contribution{
				price:       p.UnitPrice,
				description: p.Description,
				unit:        p.Unit,
				trade:       p.TradeCategory,
				region:      rec.Metadata.Region,
				at:          rec.CreatedAt,
			})
		}
	}

	entries := make([]entity.MarketPriceEntry, 0, len(buckets))
	for _, b := range buckets {
		if e, ok := b.entry(econ); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Confidence != entries[j].Confidence {
			return entries[i].Confidence > entries[j].Confidence
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Qualifies reports whether an extracted position may feed the index and the workflow.
func Qualifies(p entity.OfferPosition, econ Economics) bool {
	return !p.LowConfidence && p.Confidence >= econ.ConfidenceThreshold && money.IsPrice(p.UnitPrice)
}

func (b *bucket) entry(econ Economics) (entity.MarketPriceEntry, bool) {
	if len(b.contribs) == 0 {
		return entity.MarketPriceEntry{}, false
	}
	first := b.contribs[0]
	prices := make([]float64, 0, len(b.contribs))
	lo, hi := first.price, first.price
	last := first.at
	for _, c := range b.contribs {
		prices = append(prices, c.price)
		lo = min(lo, c.price)
		hi = max(hi, c.price)
		if c.at.After(last) {
			last = c.at
		}
	}

	return entity.MarketPriceEntry{
		Key:           b.key,
		Description:   strings.TrimSpace(first.description),
		Unit:          strings.TrimSpace(first.unit),
		TradeCategory: strings.TrimSpace(first.trade),
		Region:        b.region(econ),
		PriceRange:    entity.PriceRange{Min: lo, Max: hi, Avg: money.Avg(prices)},
		Confidence:    Confidence(len(prices), econ),
		SourceCount:   len(prices),
		LastUpdated:   last.UTC(),
	}, true
}

// region is the bucket's partition region, or the region every contributor shares.
func (b *bucket) region(econ Economics) string {
	first := strings.TrimSpace(b.contribs[0].region)
	if econ.RegionPartition {
		return first
	}
	for _, c := range b.contribs[1:] {
		if NormalizeKey(c.region) != NormalizeKey(first) {
			return ""
		}
	}
	return first
}

// Confidence is min(cap, base + step x n), computed in decimal so that three
// sources give exactly 0.8 with default economics.
func Confidence(sourceCount int, econ Economics) float64 {
	if sourceCount <= 0 {
		return 0
	}
	c := decimal.NewFromFloat(econ.ConfidenceBase).
		Add(decimal.NewFromFloat(econ.ConfidenceStep).Mul(decimal.NewFromInt(int64(sourceCount))))
	capped := decimal.NewFromFloat(econ.ConfidenceCap)
	if c.GreaterThan(capped) {
		c = capped
	}
	return c.InexactFloat64()
}
