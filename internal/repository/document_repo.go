package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"deal-fit/internal/domain"
)

const insertPitchDeckQuery = `
	INSERT INTO pitch_decks (record_id, document_id, name, content_type, digest, size_bytes, content, text_content, uploaded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// PgDocumentRepository archiva cada pitch deck subido en la tabla pitch_decks.
type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

func (r *PgDocumentRepository) Save(ctx context.Context, doc domain.ArchivedDocument) error {
	_, err := r.pool.Exec(ctx, insertPitchDeckQuery, insertPitchDeckArgs(uuid.NewString(), doc)...)
	return err
}

// insertPitchDeckArgs sigue el orden de columnas de insertPitchDeckQuery.
func insertPitchDeckArgs(recordID string, doc domain.ArchivedDocument) []any {
	return []any{
		recordID,
		doc.ID,
		doc.Name,
		doc.ContentType,
		doc.Digest,
		doc.Size,
		doc.Data,
		doc.TextContent,
		doc.UploadedAt,
	}
}
