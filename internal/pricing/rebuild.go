package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/entity"
)

// Sources supplies the aggregation inputs.
type Sources interface {
	ListActiveItems(ctx context.Context) ([]entity.PriceBookItem, error)
	ListCompletedRecords(ctx context.Context) ([]entity.ExtractedOfferRecord, error)
}

// Snapshot is the serialisable form of an Index.
type Snapshot struct {
	BuiltAt time.Time                 `json:"built_at"`
	Entries []entity.MarketPriceEntry `json:"entries"`
}

// SnapshotStore shares the latest index between processes.
type SnapshotStore interface {
	Save(ctx context.Context, s Snapshot) error
	// Load returns false when no snapshot exists.
	Load(ctx context.Context) (Snapshot, bool, error)
}

// RebuildObserver receives the outcome of every rebuild.
type RebuildObserver interface {
	ObserveRebuild(d time.Duration, entries int, err error)
}

type RebuilderOption func(*Rebuilder)

func WithSnapshotStore(s SnapshotStore) RebuilderOption {
	return func(r *Rebuilder) { r.snapshots = s }
}

func WithObserver(o RebuildObserver) RebuilderOption {
	return func(r *Rebuilder) { r.observer = o }
}

// Rebuilder recomputes the market index from scratch and swaps it into a Holder.
type Rebuilder struct {
	src       Sources
	holder    *Holder
	econ      Economics
	snapshots SnapshotStore
	observer  RebuildObserver
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewRebuilder(src Sources, holder *Holder, econ Economics, logger *zap.Logger, opts ...RebuilderOption) *Rebuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Rebuilder{src: src, holder: holder, econ: econ, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rebuilder) Holder() *Holder { return r.holder }

func (r *Rebuilder) Economics() Economics { return r.econ }

// Rebuild loads all sources, aggregates and publishes a new Index. Concurrent
// calls are serialised; the previous index stays visible until the swap.
// A snapshot failure is logged but does not fail the rebuild.
func (r *Rebuilder) Rebuild(ctx context.Context) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	ix, err := r.build(ctx)
	if r.observer != nil {
		r.observer.ObserveRebuild(r.now().Sub(start), ix.Len(), err)
	}
	if err != nil {
		r.logger.Error("pricing.rebuild.failed", zap.Error(err))
		return nil, err
	}
	r.holder.Store(ix)
	r.logger.Info("pricing.rebuild.ok",
		zap.Int("entries", ix.Len()),
		zap.Duration("took", r.now().Sub(start)),
	)

	if r.snapshots != nil {
		snap := Snapshot{BuiltAt: ix.BuiltAt(), Entries: ix.Entries()}
		if err := r.snapshots.Save(ctx, snap); err != nil {
			r.logger.Warn("pricing.snapshot.save_failed", zap.Error(err))
		}
	}
	return ix, nil
}

func (r *Rebuilder) build(ctx context.Context) (*Index, error) {
	items, err := r.src.ListActiveItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	records, err := r.src.ListCompletedRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offer records: %w", err)
	}
	return NewIndex(Aggregate(items, records, r.econ), r.now()), nil
}

// WarmStart publishes the stored snapshot if no index is loaded yet. It
// reports whether a snapshot was used.
func (r *Rebuilder) WarmStart(ctx context.Context) (bool, error) {
	if r.snapshots == nil || r.holder.Loaded() {
		return false, nil
	}
	snap, ok, err := r.snapshots.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	r.holder.Store(NewIndex(snap.Entries, snap.BuiltAt))
	r.logger.Info("pricing.snapshot.loaded", zap.Int("entries", len(snap.Entries)), zap.Time("built_at", snap.BuiltAt))
	return true, nil
}
