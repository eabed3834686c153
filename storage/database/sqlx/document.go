package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kahero/ratiba/core/plan"
)

type documentOverlay struct {
	db *sqlx.DB
}

var _ plan.DocumentOverlay = (*documentOverlay)(nil) // interface compliance check

func NewDocumentOverlay(db *sqlx.DB) *documentOverlay {
	return &documentOverlay{db: db}
}

type documentRow struct {
	ID         string      `db:"id"`
	Title      string      `db:"title"`
	FileName   string      `db:"file_name"`
	FileURL    string      `db:"file_url"`
	FileSize   int64       `db:"file_size"`
	UploadedAt time.Time   `db:"uploaded_at"`
	UploadedBy null.String `db:"uploaded_by"`
	Visible    bool        `db:"visible"`
}

func (o *documentOverlay) VisibleDocuments(ctx context.Context, entityID string, kind plan.ItemKind) ([]plan.Document, error) {
	var rows []documentRow
	err := o.db.SelectContext(ctx, &rows, `
		SELECT id, title, file_name, file_url, file_size, uploaded_at, uploaded_by, visible
		FROM document
		WHERE entity_id = $1 AND entity_kind = $2 AND visible
		ORDER BY uploaded_at`,
		entityID, string(kind),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}

	docs := make([]plan.Document, len(rows))
	for i, row := range rows {
		docs[i] = plan.Document{
			ID:         row.ID,
			Title:      row.Title,
			FileName:   row.FileName,
			FileURL:    row.FileURL,
			FileSize:   row.FileSize,
			UploadedAt: row.UploadedAt,
			UploadedBy: row.UploadedBy.String,
			Visible:    row.Visible,
		}
	}
	return docs, nil
}

// AddDocument persists an uploaded attachment against its owning entity.
func (o *documentOverlay) AddDocument(ctx context.Context, entityID string, kind plan.ItemKind, doc plan.Document) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO document (id, entity_id, entity_kind, title, file_name, file_url, file_size, uploaded_at, uploaded_by, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, entityID, string(kind), doc.Title, doc.FileName, doc.FileURL, doc.FileSize,
		doc.UploadedAt, null.NewString(doc.UploadedBy, doc.UploadedBy != ""), doc.Visible,
	)
	return errors.Wrap(err, "inserting document")
}
