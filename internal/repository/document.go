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

const documentsTable = "uploaded_documents"

var documentColumns = []string{
	"id", "run_id", "filename", "mime_type", "size", "content_hash", "format",
	"extracted_text", "status", "error_message", "created_at", "updated_at",
}

type DocumentRepo struct{ conn }

func scanDocument(rows *entsql.Rows) (entity.UploadedDocument, error) {
	var (
		d      entity.UploadedDocument
		id     string
		errMsg sql.NullString
	)
	err := rows.Scan(&id, &d.RunID, &d.Filename, &d.MimeType, &d.Size, &d.ContentHash, &d.Format,
		&d.ExtractedText, &d.Status, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	if errMsg.Valid {
		msg := errMsg.String
		d.ErrorMessage = &msg
	}
	d.ID, err = uuid.Parse(id)
	return d, err
}

func (r *DocumentRepo) list(ctx context.Context, sel *entsql.Selector) ([]entity.UploadedDocument, error) {
	var out []entity.UploadedDocument
	err := r.query(ctx, sel, func(rows *entsql.Rows) error {
		d, err := scanDocument(rows)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

func (r *DocumentRepo) Create(ctx context.Context, d entity.UploadedDocument) error {
	ins := r.b.Insert(documentsTable).Columns(documentColumns...).Values(
		d.ID.String(), d.RunID, d.Filename, d.MimeType, d.Size, d.ContentHash, d.Format,
		d.ExtractedText, string(d.Status), nullString(d.ErrorMessage), d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if _, err := r.exec(ctx, ins); err != nil {
		r.logger.Error("db.documents.create.failed", zap.String("file", d.Filename), zap.Error(err))
		return persistErr("create document", err)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, id uuid.UUID) (entity.UploadedDocument, error) {
	sel := r.b.Select(documentColumns...).From(r.b.Table(documentsTable)).Where(entsql.EQ("id", id.String()))
	out, err := r.list(ctx, sel)
	if err != nil {
		return entity.UploadedDocument{}, persistErr("get document", err)
	}
	if len(out) == 0 {
		return entity.UploadedDocument{}, common.NewNotFoundError("document " + id.String() + " not found")
	}
	return out[0], nil
}

// ListByRun returns the documents of one ingestion run in upload order.
func (r *DocumentRepo) ListByRun(ctx context.Context, runID string) ([]entity.UploadedDocument, error) {
	sel := r.b.Select(documentColumns...).From(r.b.Table(documentsTable)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy("created_at", "id")
	out, err := r.list(ctx, sel)
	if err != nil {
		return nil, persistErr("list documents", err)
	}
	return out, nil
}

// SetStatus records a lifecycle transition. errMsg is stored only for failures.
func (r *DocumentRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg *string, at time.Time) error {
	upd := r.b.Update(documentsTable).
		Set("status", string(status)).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", id.String()))
	if errMsg != nil {
		upd = upd.Set("error_message", *errMsg)
	} else {
		upd = upd.SetNull("error_message")
	}
	n, err := r.exec(ctx, upd)
	if err != nil {
		return persistErr("set document status", err)
	}
	if n == 0 {
		return common.NewNotFoundError("document " + id.String() + " not found")
	}
	return nil
}

// SetExtraction stores the detected format and the extracted (or placeholder) text.
func (r *DocumentRepo) SetExtraction(ctx context.Context, id uuid.UUID, format, mimeType, text string, at time.Time) error {
	upd := r.b.Update(documentsTable).
		Set("format", format).
		Set("mime_type", mimeType).
		Set("extracted_text", text).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", id.String()))
	if _, err := r.exec(ctx, upd); err != nil {
		return persistErr("store extracted text", err)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
