package repository

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

const proposalsTable = "price_update_proposals"

var proposalColumns = []string{
	"id", "pricebook_item_id", "source_document", "document_id", "update_type",
	"old_price", "new_price", "pct_change", "status",
	"description", "unit", "trade_category", "match_method", "match_score",
	"created_at", "updated_at", "resolved_at",
}

// ProposalRepo implements workflow.ProposalStore.
type ProposalRepo struct{ conn }

func scanProposal(rows *entsql.Rows) (entity.PriceUpdateProposal, error) {
	var (
		p             entity.PriceUpdateProposal
		id            string
		itemID, docID sql.NullString
		oldPrice, pct sql.NullFloat64
		resolvedAt    sql.NullTime
	)
	err := rows.Scan(&id, &itemID, &p.SourceDocument, &docID, &p.UpdateType,
		&oldPrice, &p.NewPrice, &pct, &p.Status,
		&p.Description, &p.Unit, &p.TradeCategory, &p.MatchMethod, &p.MatchScore,
		&p.CreatedAt, &p.UpdatedAt, &resolvedAt)
	if err != nil {
		return p, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return p, err
	}
	if p.PriceBookItemID, err = parseNullUUID(itemID); err != nil {
		return p, err
	}
	if p.DocumentID, err = parseNullUUID(docID); err != nil {
		return p, err
	}
	p.OldPrice = floatPtr(oldPrice)
	p.PctChange = floatPtr(pct)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		p.ResolvedAt = &t
	}
	return p, nil
}

func (r *ProposalRepo) list(ctx context.Context, sel *entsql.Selector) ([]entity.PriceUpdateProposal, error) {
	var out []entity.PriceUpdateProposal
	err := r.query(ctx, sel, func(rows *entsql.Rows) error {
		p, err := scanProposal(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (r *ProposalRepo) Create(ctx context.Context, p entity.PriceUpdateProposal) error {
	ins := r.b.Insert(proposalsTable).Columns(proposalColumns...).Values(
		p.ID.String(), nullUUID(p.PriceBookItemID), p.SourceDocument, nullUUID(p.DocumentID), string(p.UpdateType),
		nullFloat(p.OldPrice), p.NewPrice, nullFloat(p.PctChange), string(p.Status),
		p.Description, p.Unit, p.TradeCategory, string(p.MatchMethod), p.MatchScore,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(), nullTime(p.ResolvedAt),
	)
	if _, err := r.exec(ctx, ins); err != nil {
		err = persistErr("create proposal", err)
		if !common.IsCode(err, common.CodeConflict) {
			r.logger.Error("db.proposals.create.failed", zap.String("source", p.SourceDocument), zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *ProposalRepo) Get(ctx context.Context, id uuid.UUID) (entity.PriceUpdateProposal, error) {
	sel := r.b.Select(proposalColumns...).From(r.b.Table(proposalsTable)).Where(entsql.EQ("id", id.String()))
	out, err := r.list(ctx, sel)
	if err != nil {
		return entity.PriceUpdateProposal{}, persistErr("get proposal", err)
	}
	if len(out) == 0 {
		return entity.PriceUpdateProposal{}, common.NewNotFoundError("proposal " + id.String() + " not found")
	}
	return out[0], nil
}

func (r *ProposalRepo) ListPending(ctx context.Context) ([]entity.PriceUpdateProposal, error) {
	return r.ListByStatus(ctx, constants.ProposalPending)
}

func (r *ProposalRepo) ListByStatus(ctx context.Context, status constants.ProposalStatus) ([]entity.PriceUpdateProposal, error) {
	sel := r.b.Select(proposalColumns...).From(r.b.Table(proposalsTable)).
		Where(entsql.EQ("status", string(status))).
		OrderBy("created_at", "id")
	out, err := r.list(ctx, sel)
	if err != nil {
		return nil, persistErr("list proposals", err)
	}
	return out, nil
}

// SetStatus only updates pending rows; anything else is a state conflict.
func (r *ProposalRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.ProposalStatus, at time.Time) error {
	at = at.UTC()
	upd := r.b.Update(proposalsTable).
		Set("status", string(status)).
		Set("updated_at", at).
		Set("resolved_at", at).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.EQ("status", string(constants.ProposalPending)),
		))
	n, err := r.exec(ctx, upd)
	if err != nil {
		return persistErr("set proposal status", err)
	}
	if n == 1 {
		return nil
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return common.NewStateConflictError("proposal " + id.String() + " is " + string(current.Status))
}

func (r *ProposalRepo) ExistsOpen(ctx context.Context, itemID uuid.UUID, sourceDocument string) (bool, error) {
	sel := r.b.Select(entsql.Count("*")).From(r.b.Table(proposalsTable)).Where(entsql.And(
		entsql.EQ("pricebook_item_id", itemID.String()),
		entsql.EQ("source_document", sourceDocument),
		entsql.In("status", string(constants.ProposalPending), string(constants.ProposalApproved)),
	))
	n, err := r.count(ctx, sel)
	if err != nil {
		return false, persistErr("check open proposals", err)
	}
	return n > 0, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
