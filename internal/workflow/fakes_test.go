package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

var errInjected = errors.New("injected failure")

// memState is a copy-on-transaction store. InTx works on a clone and swaps it
// in only when fn succeeds.
type memState struct {
	items     map[uuid.UUID]entity.PriceBookItem
	proposals map[uuid.UUID]entity.PriceUpdateProposal
	order     []uuid.UUID
}

func (s *memState) clone() *memState {
	c := &memState{
		items:     make(map[uuid.UUID]entity.PriceBookItem, len(s.items)),
		proposals: make(map[uuid.UUID]entity.PriceUpdateProposal, len(s.proposals)),
		order:     append([]uuid.UUID(nil), s.order...),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.proposals {
		c.proposals[k] = v
	}
	return c
}

type memStores struct {
	state *memState
	// failOn makes the named store method fail.
	failOn map[string]bool
}

func newMemStores(items ...entity.PriceBookItem) *memStores {
	st := &memState{items: map[uuid.UUID]entity.PriceBookItem{}, proposals: map[uuid.UUID]entity.PriceUpdateProposal{}}
	for _, it := range items {
		st.items[it.ID] = it
		st.order = append(st.order, it.ID)
	}
	return &memStores{state: st, failOn: map[string]bool{}}
}

func (m *memStores) Catalog() CatalogStore    { return &memCatalog{m: m, st: m.state} }
func (m *memStores) Proposals() ProposalStore { return &memProposals{m: m, st: m.state} }

func (m *memStores) InTx(_ context.Context, fn func(CatalogStore, ProposalStore) error) error {
	tx := m.state.clone()
	if err := fn(&memCatalog{m: m, st: tx}, &memProposals{m: m, st: tx}); err != nil {
		return err
	}
	m.state = tx
	return nil
}

func (m *memStores) pending() []entity.PriceUpdateProposal {
	out, _ := m.Proposals().ListPending(context.Background())
	return out
}

type memCatalog struct {
	m  *memStores
	st *memState
}

func (c *memCatalog) GetItem(_ context.Context, id uuid.UUID) (entity.PriceBookItem, error) {
	it, ok := c.st.items[id]
	if !ok {
		return entity.PriceBookItem{}, common.NewNotFoundError("pricebook item not found")
	}
	return it, nil
}

func (c *memCatalog) ListActiveItems(ctx context.Context) ([]entity.PriceBookItem, error) {
	all, _ := c.ListItems(ctx)
	out := all[:0]
	for _, it := range all {
		if it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *memCatalog) ListItems(context.Context) ([]entity.PriceBookItem, error) {
	out := make([]entity.PriceBookItem, 0, len(c.st.order))
	for _, id := range c.st.order {
		if it, ok := c.st.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *memCatalog) MutateItem(_ context.Context, item entity.PriceBookItem) error {
	if c.m.failOn["MutateItem"] {
		return common.NewPersistenceError("mutate item", errInjected)
	}
	c.st.items[item.ID] = item
	return nil
}

func (c *memCatalog) CreateItem(_ context.Context, item entity.PriceBookItem) error {
	if c.m.failOn["CreateItem"] {
		return common.NewPersistenceError("create item", errInjected)
	}
	c.st.items[item.ID] = item
	c.st.order = append(c.st.order, item.ID)
	return nil
}

type memProposals struct {
	m  *memStores
	st *memState
}

func (p *memProposals) Create(_ context.Context, prop entity.PriceUpdateProposal) error {
	if p.m.failOn["Create"] {
		return common.NewPersistenceError("create proposal", errInjected)
	}
	p.st.proposals[prop.ID] = prop
	return nil
}

func (p *memProposals) ListPending(context.Context) ([]entity.PriceUpdateProposal, error) {
	var out []entity.PriceUpdateProposal
	for _, prop := range p.st.proposals {
		if prop.Status == constants.ProposalPending {
			out = append(out, prop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (p *memProposals) SetStatus(_ context.Context, id uuid.UUID, status constants.ProposalStatus, at time.Time) error {
	if p.m.failOn["SetStatus"] {
		return common.NewPersistenceError("set status", errInjected)
	}
	prop, ok := p.st.proposals[id]
	if !ok {
		return common.NewNotFoundError("proposal not found")
	}
	if prop.Status != constants.ProposalPending {
		return common.NewStateConflictError("proposal is not pending")
	}
	prop.Status, prop.UpdatedAt, prop.ResolvedAt = status, at, &at
	p.st.proposals[id] = prop
	return nil
}

func (p *memProposals) Get(_ context.Context, id uuid.UUID) (entity.PriceUpdateProposal, error) {
	prop, ok := p.st.proposals[id]
	if !ok {
		return entity.PriceUpdateProposal{}, common.NewNotFoundError("proposal not found")
	}
	return prop, nil
}

func (p *memProposals) ExistsOpen(_ context.Context, itemID uuid.UUID, src string) (bool, error) {
	for _, prop := range p.st.proposals {
		if prop.PriceBookItemID != nil && *prop.PriceBookItemID == itemID && prop.SourceDocument == src &&
			(prop.Status == constants.ProposalPending || prop.Status == constants.ProposalApproved) {
			return true, nil
		}
	}
	return false, nil
}
