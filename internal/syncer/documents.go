package syncer

import (
	"fmt"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
)

// toDocuments keys and serializes records. A record lacking its key field
// breaks the API contract and fails the whole batch.
func toDocuments(resource models.Resource, records []models.Record, keyField string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(records))
	for i, r := range records {
		key, err := r.Key(keyField)
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %d: %w", common.ErrProtocol, resource, i, err)
		}
		doc, err := r.Marshal()
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %s: %w", common.ErrDecode, resource, key, err)
		}
		docs = append(docs, models.Document{Key: key, Doc: doc})
	}
	return docs, nil
}
