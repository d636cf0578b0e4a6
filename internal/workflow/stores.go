// Package workflow turns extracted positions into human-approvable pricebook
// update proposals and applies the decisions.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

// CatalogStore reads and writes pricebook items. GetItem returns a NOT_FOUND
// AppError for unknown ids.
type CatalogStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (entity.PriceBookItem, error)
	ListActiveItems(ctx context.Context) ([]entity.PriceBookItem, error)
	// ListItems includes inactive items created by pending new_item proposals.
	ListItems(ctx context.Context) ([]entity.PriceBookItem, error)
	MutateItem(ctx context.Context, item entity.PriceBookItem) error
	CreateItem(ctx context.Context, item entity.PriceBookItem) error
}

type ProposalStore interface {
	Create(ctx context.Context, p entity.PriceUpdateProposal) error
	ListPending(ctx context.Context) ([]entity.PriceUpdateProposal, error)
	// SetStatus moves a pending proposal to status. It fails with
	// STATE_CONFLICT when the proposal is no longer pending.
	SetStatus(ctx context.Context, id uuid.UUID, status constants.ProposalStatus, at time.Time) error
	Get(ctx context.Context, id uuid.UUID) (entity.PriceUpdateProposal, error)
	// ExistsOpen reports whether a pending or approved proposal links itemID to sourceDocument.
	ExistsOpen(ctx context.Context, itemID uuid.UUID, sourceDocument string) (bool, error)
}

// TxRunner runs fn in one transaction. fn's stores are bound to it; a
// non-nil return rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(CatalogStore, ProposalStore) error) error
}

// Stores is what the workflow needs from the persistence layer.
type Stores interface {
	TxRunner
	Catalog() CatalogStore
	Proposals() ProposalStore
}
