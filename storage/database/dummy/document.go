package dummydb

import (
	"context"

	"github.com/kahero/ratiba/core/plan"
)

type documentOverlay struct {
	db *documentTable
}

var _ plan.DocumentOverlay = (*documentOverlay)(nil) // interface compliance check

func NewDocumentOverlay(db *DB) *documentOverlay {
	return &documentOverlay{db: db.document}
}

func (o *documentOverlay) VisibleDocuments(ctx context.Context, entityID string, kind plan.ItemKind) ([]plan.Document, error) {
	o.db.RLock()
	defer o.db.RUnlock()

	var docs []plan.Document
	for _, d := range o.db.table[entityID] {
		if d.Visible {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (o *documentOverlay) AddDocuments(entityID string, docs ...plan.Document) {
	o.db.Lock()
	defer o.db.Unlock()
	o.db.table[entityID] = append(o.db.table[entityID], docs...)
}
