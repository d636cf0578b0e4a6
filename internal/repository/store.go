package repository

import (
	"context"
	"database/sql"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/workflow"
)

// conn runs ent-built statements on either the driver or an open transaction.
type conn struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *zap.Logger
}

func (c conn) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := c.q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c conn) query(ctx context.Context, q entsql.Querier, scan func(*entsql.Rows) error) error {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := c.q.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c conn) count(ctx context.Context, sel *entsql.Selector) (int, error) {
	var n int
	err := c.query(ctx, sel, func(rows *entsql.Rows) error { return rows.Scan(&n) })
	return n, err
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Catalog   *CatalogRepo
	Proposals *ProposalRepo
	Documents *DocumentRepo
	Offers    *OfferRepo
}

func newRepos(c conn) Repos {
	return Repos{
		Catalog:   &CatalogRepo{c},
		Proposals: &ProposalRepo{c},
		Documents: &DocumentRepo{c},
		Offers:    &OfferRepo{c},
	}
}

// Store is the entry point of the persistence layer. It satisfies
// workflow.Stores and pricing.Sources.
type Store struct {
	db     *DB
	repos  Repos
	logger *zap.Logger
}

func NewStore(db *DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := entsql.Dialect(db.Dialect)
	return &Store{db: db, repos: newRepos(conn{q: db.Driver, b: b, logger: logger}), logger: logger}
}

func (s *Store) Catalog() workflow.CatalogStore    { return s.repos.Catalog }
func (s *Store) Proposals() workflow.ProposalStore { return s.repos.Proposals }
func (s *Store) Documents() *DocumentRepo          { return s.repos.Documents }
func (s *Store) Offers() *OfferRepo                { return s.repos.Offers }
func (s *Store) Items() *CatalogRepo               { return s.repos.Catalog }

// Tx runs fn in a transaction. Any error from fn, or a panic, rolls back.
func (s *Store) Tx(ctx context.Context, fn func(Repos) error) (err error) {
	tx, err := s.db.Driver.Tx(ctx)
	if err != nil {
		return common.NewPersistenceError("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepos(conn{q: tx, b: entsql.Dialect(s.db.Dialect), logger: s.logger})); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Error("db.tx.rollback_failed", zap.Error(rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(workflow.CatalogStore, workflow.ProposalStore) error) error {
	return s.Tx(ctx, func(r Repos) error { return fn(r.Catalog, r.Proposals) })
}

func (s *Store) ListActiveItems(ctx context.Context) ([]entity.PriceBookItem, error) {
	return s.repos.Catalog.ListActiveItems(ctx)
}

func (s *Store) ListCompletedRecords(ctx context.Context) ([]entity.ExtractedOfferRecord, error) {
	return s.repos.Offers.ListCompleted(ctx)
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx, 0)
}
