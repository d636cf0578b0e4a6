package pricing

import (
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/price-intel/internal/entity"
)

// Index is an immutable snapshot of the market. Readers never see a partial rebuild.
type Index struct {
	entries []entity.MarketPriceEntry
	byKey   map[string]int
	builtAt time.Time
}

func NewIndex(entries []entity.MarketPriceEntry, builtAt time.Time) *Index {
	ix := &Index{
		entries: append([]entity.MarketPriceEntry(nil), entries...),
		byKey:   make(map[string]int, len(entries)),
		builtAt: builtAt.UTC(),
	}
	for i, e := range ix.entries {
		ix.byKey[e.Key] = i
	}
	return ix
}

func (ix *Index) Lookup(key string) (entity.MarketPriceEntry, bool) {
	if ix == nil {
		return entity.MarketPriceEntry{}, false
	}
	i, ok := ix.byKey[key]
	if !ok {
		return entity.MarketPriceEntry{}, false
	}
	return ix.entries[i], true
}

// Entries returns a copy in index order.
func (ix *Index) Entries() []entity.MarketPriceEntry {
	if ix == nil {
		return nil
	}
	return append([]entity.MarketPriceEntry(nil), ix.entries...)
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

func (ix *Index) BuiltAt() time.Time {
	if ix == nil {
		return time.Time{}
	}
	return ix.builtAt
}

// Holder publishes the current Index to concurrent readers.
type Holder struct {
	p atomic.Pointer[Index]
}

// Load returns the current index. It is never nil.
func (h *Holder) Load() *Index {
	if ix := h.p.Load(); ix != nil {
		return ix
	}
	return emptyIndex
}

func (h *Holder) Store(ix *Index) { h.p.Store(ix) }

// Loaded reports whether an index has been published.
func (h *Holder) Loaded() bool { return h.p.Load() != nil }

var emptyIndex = NewIndex(nil, time.Time{})
