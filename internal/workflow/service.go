package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/money"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type Service struct {
	stores Stores
	econ   pricing.Economics
	logger *zap.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewService(stores Stores, econ pricing.Economics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{stores: stores, econ: econ, logger: logger, now: time.Now, newID: uuid.New}
}

type ProposeInput struct {
	// SourceDocument identifies the document content; repeat uploads share it.
	SourceDocument string `validate:"required"`
	DocumentID     *uuid.UUID
	Region         string
	Positions      []entity.OfferPosition
}

type ProposeResult struct {
	Proposals  []entity.PriceUpdateProposal `json:"proposals"`
	NewItems   int                          `json:"new_items"`
	Skipped    int                          `json:"skipped"`
	Duplicates int                          `json:"duplicates"`
	Failed     int                          `json:"failed"`
}

// ProposeUpdates creates one proposal per qualifying position. Each position
// is written in its own transaction, so a failure affects only that position.
// Dedup hits are counted and logged but are not errors.
func (s *Service) ProposeUpdates(ctx context.Context, in ProposeInput) (ProposeResult, error) {
	var res ProposeResult
	if err := common.ValidateStruct(in); err != nil {
		return res, err
	}

	items, err := s.stores.Catalog().ListItems(ctx)
	if err != nil {
		return res, err
	}
	matcher := NewMatcher(items, s.econ)
	proposed := map[uuid.UUID]bool{}
	var failures []error

	for _, pos := range in.Positions {
		if !pricing.Qualifies(pos, s.econ) {
			res.Skipped++
			continue
		}

		match, ok := matcher.Match(pos.Description, pos.Unit, pos.TradeCategory, in.Region)
		if !ok {
			item, prop, err := s.proposeNewItem(ctx, in, pos)
			if err != nil {
				res.Failed++
				failures = append(failures, err)
				s.logger.Error("workflow.propose.failed", zap.String("description", pos.Description), zap.Error(err))
				continue
			}
			matcher.Add(item)
			proposed[item.ID] = true
			res.NewItems++
			res.Proposals = append(res.Proposals, prop)
			continue
		}

		if proposed[match.Item.ID] {
			res.Duplicates++
			s.logger.Info("workflow.propose.duplicate", zap.String("item_id", match.Item.ID.String()), zap.String("source", in.SourceDocument))
			continue
		}
		prop, err := s.proposePriceUpdate(ctx, in, pos, match)
		switch {
		case common.IsCode(err, common.CodeConflict):
			proposed[match.Item.ID] = true
			res.Duplicates++
			s.logger.Info("workflow.propose.duplicate", zap.String("item_id", match.Item.ID.String()), zap.String("source", in.SourceDocument))
		case err != nil:
			res.Failed++
			failures = append(failures, err)
			s.logger.Error("workflow.propose.failed", zap.String("item_id", match.Item.ID.String()), zap.Error(err))
		default:
			proposed[match.Item.ID] = true
			res.Proposals = append(res.Proposals, prop)
		}
	}

	s.logger.Info("workflow.propose.done",
		zap.String("run_id", common.RunIDFromContext(ctx)),
		zap.String("source", in.SourceDocument),
		zap.Int("proposals", len(res.Proposals)),
		zap.Int("new_items", res.NewItems),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	if len(failures) > 0 {
		return res, common.NewPersistenceError(fmt.Sprintf("%d proposal(s) could not be stored", len(failures)), errors.Join(failures...))
	}
	return res, nil
}

func (s *Service) proposePriceUpdate(ctx context.Context, in ProposeInput, pos entity.OfferPosition, m Match) (entity.PriceUpdateProposal, error) {
	now := s.now().UTC()
	itemID := m.Item.ID
	oldPrice := pricing.EffectiveUnitPrice(m.Item, s.econ.HourlyRate)
	pct := money.PctChange(oldPrice, pos.UnitPrice)
	prop := entity.PriceUpdateProposal{
		ID:              s.newID(),
		PriceBookItemID: &itemID,
		SourceDocument:  in.SourceDocument,
		DocumentID:      in.DocumentID,
		UpdateType:      constants.UpdatePrice,
		OldPrice:        &oldPrice,
		NewPrice:        pos.UnitPrice,
		PctChange:       &pct,
		Status:          constants.ProposalPending,
		Description:     pos.Description,
		Unit:            pos.Unit,
		TradeCategory:   pos.TradeCategory,
		MatchMethod:     m.Method,
		MatchScore:      m.Score,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.stores.InTx(ctx, func(_ CatalogStore, ps ProposalStore) error {
		open, err := ps.ExistsOpen(ctx, itemID, in.SourceDocument)
		if err != nil {
			return err
		}
		if open {
			return common.NewConflictError("proposal already open for item and document", nil)
		}
		return ps.Create(ctx, prop)
	})
	return prop, err
}

func (s *Service) proposeNewItem(ctx context.Context, in ProposeInput, pos entity.OfferPosition) (entity.PriceBookItem, entity.PriceUpdateProposal, error) {
	now := s.now().UTC()
	item := entity.PriceBookItem{
		ID:               s.newID(),
		Title:            strings.TrimSpace(pos.Description),
		Code:             strings.TrimSpace(pos.Code),
		Unit:             strings.TrimSpace(pos.Unit),
		Branch:           strings.TrimSpace(pos.TradeCategory),
		Region:           strings.TrimSpace(in.Region),
		BaseMaterialCost: pos.UnitPrice,
		MarkupPct:        s.econ.MarkupPct,
		OverheadPct:      s.econ.OverheadPct,
		RegionFactor:     1,
		IsActive:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	itemID := item.ID
	prop := entity.PriceUpdateProposal{
		ID:              s.newID(),
		PriceBookItemID: &itemID,
		SourceDocument:  in.SourceDocument,
		DocumentID:      in.DocumentID,
		UpdateType:      constants.UpdateNewItem,
		NewPrice:        pos.UnitPrice,
		Status:          constants.ProposalPending,
		Description:     item.Title,
		Unit:            item.Unit,
		TradeCategory:   item.Branch,
		MatchMethod:     constants.MatchNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.stores.InTx(ctx, func(cs CatalogStore, ps ProposalStore) error {
		if err := cs.CreateItem(ctx, item); err != nil {
			return err
		}
		return ps.Create(ctx, prop)
	})
	return item, prop, err
}

// ApplyProposal records a human decision. Approval mutates the pricebook item
// and flips the proposal in one transaction; rejection only flips the proposal.
// Any approval leaves the item active.
func (s *Service) ApplyProposal(ctx context.Context, id uuid.UUID, decision constants.Decision) error {
	if decision != constants.DecisionApprove && decision != constants.DecisionReject {
		return common.NewValidationError(fmt.Sprintf("unknown decision %q", decision), common.ErrInvalidInput)
	}

	err := s.stores.InTx(ctx, func(cs CatalogStore, ps ProposalStore) error {
		p, err := ps.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != constants.ProposalPending {
			return common.NewStateConflictError(fmt.Sprintf("proposal %s is %s", id, p.Status))
		}
		now := s.now().UTC()

		if decision == constants.DecisionReject {
			return ps.SetStatus(ctx, id, constants.ProposalRejected, now)
		}
		if p.PriceBookItemID == nil {
			return common.NewInternalError("proposal has no pricebook item", nil)
		}
		item, err := cs.GetItem(ctx, *p.PriceBookItemID)
		if err != nil {
			return err
		}
		switch p.UpdateType {
		case constants.UpdatePrice:
			item = Reprice(item, p.NewPrice, s.econ.HourlyRate)
			// an item whose new_item proposal was rejected is still matchable;
			// approving a price for it is what promotes it
			item.IsActive = true
		case constants.UpdateNewItem:
			item.IsActive = true
		default:
			return common.NewInternalError(fmt.Sprintf("unknown update type %q", p.UpdateType), nil)
		}
		item.UpdatedAt = now
		if err := cs.MutateItem(ctx, item); err != nil {
			return err
		}
		return ps.SetStatus(ctx, id, constants.ProposalApproved, now)
	})
	if err != nil {
		s.logger.Warn("workflow.apply.failed", zap.String("proposal_id", id.String()), zap.String("decision", string(decision)), zap.Error(err))
		return err
	}
	s.logger.Info("workflow.apply.ok", zap.String("proposal_id", id.String()), zap.String("decision", string(decision)))
	return nil
}

// ListPending returns proposals awaiting a decision.
func (s *Service) ListPending(ctx context.Context) ([]entity.PriceUpdateProposal, error) {
	return s.stores.Proposals().ListPending(ctx)
}
