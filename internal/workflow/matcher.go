package workflow

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type Match struct {
	Item   entity.PriceBookItem
	Method constants.MatchMethod
	Score  float64
}

// Matcher links extracted positions to catalog items. The exact stage uses
// the market key; the fuzzy stage runs only when enabled and only among items
// with the same unit and branch.
type Matcher struct {
	econ  pricing.Economics
	byKey map[string]int
	items []entity.PriceBookItem
}

func NewMatcher(items []entity.PriceBookItem, econ pricing.Economics) *Matcher {
	m := &Matcher{econ: econ, byKey: make(map[string]int, len(items))}
	for _, it := range items {
		m.Add(it)
	}
	return m
}

// Add makes item matchable. The first item registered under a key wins.
func (m *Matcher) Add(item entity.PriceBookItem) {
	m.items = append(m.items, item)
	key := pricing.ItemKey(item, m.econ)
	if _, ok := m.byKey[key]; !ok {
		m.byKey[key] = len(m.items) - 1
	}
}

func (m *Matcher) Match(description, unit, trade, region string) (Match, bool) {
	key := pricing.KeyFor(description, unit, trade, region, m.econ)
	if i, ok := m.byKey[key]; ok {
		return Match{Item: m.items[i], Method: constants.MatchExact, Score: 1}, true
	}
	if !m.econ.FuzzyMatching {
		return Match{}, false
	}

	title := pricing.NormalizeKey(description)
	best, bestScore := -1, 0.0
	for i, it := range m.items {
		if !m.comparable(it, unit, trade, region) {
			continue
		}
		s := Similarity(title, pricing.NormalizeKey(it.Title))
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < m.econ.FuzzyMinScore {
		return Match{}, false
	}
	return Match{Item: m.items[best], Method: constants.MatchFuzzy, Score: bestScore}, true
}

func (m *Matcher) comparable(it entity.PriceBookItem, unit, trade, region string) bool {
	if pricing.NormalizeKey(it.Unit) != pricing.NormalizeKey(unit) ||
		pricing.NormalizeKey(it.Branch) != pricing.NormalizeKey(trade) {
		return false
	}
	return !m.econ.RegionPartition || pricing.NormalizeKey(it.Region) == pricing.NormalizeKey(region)
}

// Similarity averages token Jaccard overlap and normalized Levenshtein
// similarity of two normalized titles. Result is in [0,1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return (jaccard(tokens(a), tokens(b)) + levenshtein.Similarity(a, b, nil)) / 2
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter, union := 0, len(set)
	seen := map[string]bool{}
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
