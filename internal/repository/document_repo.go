package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huddle-app/huddle-backend/internal/models"
)

const upsertDocumentSQL = `
	INSERT INTO documents (collection, id, data)
	VALUES ($1, $2, $3::json)
	ON CONFLICT (collection, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	RETURNING created_at, updated_at
`

type DocumentRepository struct {
	db DBTX
}

func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns pgx.ErrNoRows when the document does not exist.
func (r *DocumentRepository) Get(ctx context.Context, collection, id string) (*models.Record, error) {
	query := `
		SELECT id, data::text, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	record := models.Record{Collection: collection}
	var raw string
	err := r.db.QueryRow(ctx, query, collection, id).
		Scan(&record.ID, &raw, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	data, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	record.Data = data
	return &record, nil
}

func (r *DocumentRepository) Put(ctx context.Context, collection, id string, data *models.Document) (*models.Record, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	record := models.Record{Collection: collection, ID: id, Data: data}
	err = r.db.QueryRow(ctx, upsertDocumentSQL, collection, id, string(encoded)).
		Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PutMirrored writes the same document to every collection in one
// transaction, so the users collection and the role collection never diverge.
func (r *DocumentRepository) PutMirrored(ctx context.Context, id string, data *models.Document, collections ...string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := NewDocumentRepository(tx)
	for _, collection := range collections {
		if _, err := txRepo.Put(ctx, collection, id, data); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// List returns every document of a collection in creation order.
func (r *DocumentRepository) List(ctx context.Context, collection string) ([]models.Record, error) {
	query := `
		SELECT id, data::text, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		record := models.Record{Collection: collection}
		var raw string
		if err := rows.Scan(&record.ID, &raw, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		data, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, record.ID, err)
		}
		record.Data = data
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func decodeDocument(raw string) (*models.Document, error) {
	doc := models.NewDocument()
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

