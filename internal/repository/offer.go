package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
)

const offersTable = "extracted_offers"

var offerColumns = []string{
	"id", "document_id", "source_document", "title", "offer_date", "customer_name", "project_type",
	"total_amount", "currency", "positions", "metadata", "model_name", "created_at",
}

// OfferRepo stores extracted offer records. Positions and metadata are kept as JSON.
type OfferRepo struct{ conn }

func scanOffer(rows *entsql.Rows) (entity.ExtractedOfferRecord, error) {
	var (
		rec                 entity.ExtractedOfferRecord
		id, docID           string
		date                sql.NullTime
		positions, metadata string
	)
	err := rows.Scan(&id, &docID, &rec.SourceDocument, &rec.Title, &date, &rec.CustomerName, &rec.ProjectType,
		&rec.TotalAmount, &rec.Currency, &positions, &metadata, &rec.ModelName, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return rec, err
	}
	if rec.DocumentID, err = uuid.Parse(docID); err != nil {
		return rec, err
	}
	if date.Valid {
		d := date.Time
		rec.Date = &d
	}
	if err := json.Unmarshal([]byte(positions), &rec.Positions); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return rec, err
	}
	return rec, nil
}

func (r *OfferRepo) list(ctx context.Context, sel *entsql.Selector) ([]entity.ExtractedOfferRecord, error) {
	var out []entity.ExtractedOfferRecord
	err := r.query(ctx, sel, func(rows *entsql.Rows) error {
		rec, err := scanOffer(rows)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (r *OfferRepo) Create(ctx context.Context, rec entity.ExtractedOfferRecord) error {
	positions := rec.Positions
	if positions == nil {
		positions = []entity.OfferPosition{}
	}
	posJSON, err := json.Marshal(positions)
	if err != nil {
		return common.NewInternalError("encode positions", err)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return common.NewInternalError("encode metadata", err)
	}
	ins := r.b.Insert(offersTable).Columns(offerColumns...).Values(
		rec.ID.String(), rec.DocumentID.String(), rec.SourceDocument, rec.Title, nullTime(rec.Date),
		rec.CustomerName, rec.ProjectType, rec.TotalAmount, rec.Currency,
		string(posJSON), string(metaJSON), rec.ModelName, rec.CreatedAt.UTC(),
	)
	if _, err := r.exec(ctx, ins); err != nil {
		r.logger.Error("db.offers.create.failed", zap.String("document_id", rec.DocumentID.String()), zap.Error(err))
		return persistErr("create offer record", err)
	}
	return nil
}

func (r *OfferRepo) GetByDocument(ctx context.Context, documentID uuid.UUID) (entity.ExtractedOfferRecord, error) {
	sel := r.b.Select(offerColumns...).From(r.b.Table(offersTable)).
		Where(entsql.EQ("document_id", documentID.String())).
		OrderBy(entsql.Desc("created_at")).
		Limit(1)
	out, err := r.list(ctx, sel)
	if err != nil {
		return entity.ExtractedOfferRecord{}, persistErr("get offer record", err)
	}
	if len(out) == 0 {
		return entity.ExtractedOfferRecord{}, common.NewNotFoundError("no offer record for document " + documentID.String())
	}
	return out[0], nil
}

// ListCompleted returns the records whose document finished processing, oldest first.
func (r *OfferRepo) ListCompleted(ctx context.Context) ([]entity.ExtractedOfferRecord, error) {
	o := r.b.Table(offersTable).As("o")
	d := r.b.Table(documentsTable).As("d")
	cols := make([]string, len(offerColumns))
	for i, c := range offerColumns {
		cols[i] = o.C(c)
	}
	sel := r.b.Select(cols...).From(o).
		Join(d).On(o.C("document_id"), d.C("id")).
		Where(entsql.EQ(d.C("status"), string(constants.DocumentCompleted))).
		OrderBy(o.C("created_at"), o.C("id"))
	out, err := r.list(ctx, sel)
	if err != nil {
		return nil, persistErr("list completed offer records", err)
	}
	return out, nil
}
