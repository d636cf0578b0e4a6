package repository

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

const itemsTable = "pricebook_items"

var itemColumns = []string{
	"id", "title", "code", "unit", "branch", "region",
	"base_material_cost", "base_minutes", "markup_pct", "overhead_pct", "region_factor",
	"is_active", "created_at", "updated_at",
}

// CatalogRepo implements workflow.CatalogStore.
type CatalogRepo struct{ conn }

func scanItem(rows *entsql.Rows) (entity.PriceBookItem, error) {
	var it entity.PriceBookItem
	var id string
	err := rows.Scan(&id, &it.Title, &it.Code, &it.Unit, &it.Branch, &it.Region,
		&it.BaseMaterialCost, &it.BaseMinutes, &it.MarkupPct, &it.OverheadPct, &it.RegionFactor,
		&it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return it, err
	}
	it.ID, err = uuid.Parse(id)
	return it, err
}

func (r *CatalogRepo) list(ctx context.Context, sel *entsql.Selector) ([]entity.PriceBookItem, error) {
	var out []entity.PriceBookItem
	err := r.query(ctx, sel, func(rows *entsql.Rows) error {
		it, err := scanItem(rows)
		if err != nil {
			return err
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetItem(ctx context.Context, id uuid.UUID) (entity.PriceBookItem, error) {
	sel := r.b.Select(itemColumns...).From(r.b.Table(itemsTable)).Where(entsql.EQ("id", id.String()))
	items, err := r.list(ctx, sel)
	if err != nil {
		return entity.PriceBookItem{}, persistErr("get pricebook item", err)
	}
	if len(items) == 0 {
		return entity.PriceBookItem{}, common.NewNotFoundError("pricebook item " + id.String() + " not found")
	}
	return items[0], nil
}

func (r *CatalogRepo) ListActiveItems(ctx context.Context) ([]entity.PriceBookItem, error) {
	sel := r.b.Select(itemColumns...).From(r.b.Table(itemsTable)).
		Where(entsql.EQ("is_active", true)).
		OrderBy("created_at", "id")
	items, err := r.list(ctx, sel)
	if err != nil {
		r.logger.Error("db.items.list_active.failed", zap.Error(err))
		return nil, persistErr("list active pricebook items", err)
	}
	return items, nil
}

func (r *CatalogRepo) ListItems(ctx context.Context) ([]entity.PriceBookItem, error) {
	sel := r.b.Select(itemColumns...).From(r.b.Table(itemsTable)).OrderBy("created_at", "id")
	items, err := r.list(ctx, sel)
	if err != nil {
		return nil, persistErr("list pricebook items", err)
	}
	return items, nil
}

func (r *CatalogRepo) CreateItem(ctx context.Context, it entity.PriceBookItem) error {
	ins := r.b.Insert(itemsTable).Columns(itemColumns...).Values(
		it.ID.String(), it.Title, it.Code, it.Unit, it.Branch, it.Region,
		it.BaseMaterialCost, it.BaseMinutes, it.MarkupPct, it.OverheadPct, it.RegionFactor,
		it.IsActive, it.CreatedAt.UTC(), it.UpdatedAt.UTC(),
	)
	if _, err := r.exec(ctx, ins); err != nil {
		r.logger.Error("db.items.create.failed", zap.String("title", it.Title), zap.Error(err))
		return persistErr("create pricebook item", err)
	}
	return nil
}

func (r *CatalogRepo) MutateItem(ctx context.Context, it entity.PriceBookItem) error {
	upd := r.b.Update(itemsTable).
		Set("title", it.Title).
		Set("code", it.Code).
		Set("unit", it.Unit).
		Set("branch", it.Branch).
		Set("region", it.Region).
		Set("base_material_cost", it.BaseMaterialCost).
		Set("base_minutes", it.BaseMinutes).
		Set("markup_pct", it.MarkupPct).
		Set("overhead_pct", it.OverheadPct).
		Set("region_factor", it.RegionFactor).
		Set("is_active", it.IsActive).
		Set("updated_at", it.UpdatedAt.UTC()).
		Where(entsql.EQ("id", it.ID.String()))
	n, err := r.exec(ctx, upd)
	if err != nil {
		return persistErr("update pricebook item", err)
	}
	if n == 0 {
		return common.NewNotFoundError("pricebook item " + it.ID.String() + " not found")
	}
	return nil
}

// Counts returns the number of items and of active items.
func (r *CatalogRepo) Counts(ctx context.Context) (total, active int, err error) {
	t := r.b.Table(itemsTable)
	if total, err = r.count(ctx, r.b.Select(entsql.Count("*")).From(t)); err != nil {
		return 0, 0, persistErr("count pricebook items", err)
	}
	if active, err = r.count(ctx, r.b.Select(entsql.Count("*")).From(t).Where(entsql.EQ("is_active", true))); err != nil {
		return 0, 0, persistErr("count active pricebook items", err)
	}
	return total, active, nil
}
