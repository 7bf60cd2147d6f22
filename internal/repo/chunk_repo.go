package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/vectorstore"
)

// ChunkRepo stores chunks and their vectors in Postgres with pgvector.
// Replacement is transactional: concurrent readers see the old chunk set
// until commit, then the new one.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

var _ vectorstore.Store = (*ChunkRepo)(nil)

func (r *ChunkRepo) UpsertChunks(ctx context.Context, companyID, documentID string, chunks []model.Chunk) error {
	if companyID == "" || documentID == "" {
		return fmt.Errorf("%w: company id and document id are required", appErr.ErrInvalid)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", appErr.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE company_id = $1 AND document_id = $2`,
		companyID, documentID); err != nil {
		return fmt.Errorf("%w: delete old chunks: %v", appErr.ErrStoreUnavailable, err)
	}
	const insert = `
		INSERT INTO chunks (company_id, document_id, document_name, chunk_index, total_chunks,
			content, mime_type, embedding, embedding_model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insert,
			companyID,
			documentID,
			chunk.DocumentName,
			chunk.ChunkIndex,
			chunk.TotalChunks,
			chunk.Content,
			chunk.MimeType,
			pgvector.NewVector(chunk.Embedding),
			chunk.EmbeddingModel,
			chunk.CreatedAt,
		); err != nil {
			return fmt.Errorf("%w: insert chunk %d: %v", appErr.ErrStoreUnavailable, chunk.ChunkIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", appErr.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *ChunkRepo) DeleteDocument(ctx context.Context, companyID, documentID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE company_id = $1 AND document_id = $2`,
		companyID, documentID); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", appErr.ErrStoreUnavailable, err)
	}
	return nil
}

// QuerySimilar ranks the tenant's chunks by cosine similarity to the query
// vector. pgvector's <=> operator is cosine distance, so ascending distance
// gives descending similarity; chunk_index then document_id break ties
// deterministically.
func (r *ChunkRepo) QuerySimilar(ctx context.Context, companyID string, queryVector []float32, topK int) ([]model.SimilarityResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", appErr.ErrInvalid)
	}
	const query = `
		SELECT id, company_id, document_id, document_name, chunk_index, total_chunks,
			content, mime_type, embedding_model, created_at,
			1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE company_id = $2
		ORDER BY embedding <=> $1 ASC, chunk_index ASC, document_id ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryVector), companyID, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query similar: %v", appErr.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var results []model.SimilarityResult
	for rows.Next() {
		var item model.SimilarityResult
		if err := rows.Scan(&item.Chunk.ID, &item.Chunk.CompanyID, &item.Chunk.DocumentID,
			&item.Chunk.DocumentName, &item.Chunk.ChunkIndex, &item.Chunk.TotalChunks,
			&item.Chunk.Content, &item.Chunk.MimeType, &item.Chunk.EmbeddingModel,
			&item.Chunk.CreatedAt, &item.Score); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// ListByDocument returns a document's chunks in index order.
func (r *ChunkRepo) ListByDocument(ctx context.Context, companyID, documentID string) ([]model.Chunk, error) {
	const query = `
		SELECT id, company_id, document_id, document_name, chunk_index, total_chunks,
			content, mime_type, embedding, embedding_model, created_at
		FROM chunks
		WHERE company_id = $1 AND document_id = $2
		ORDER BY chunk_index ASC
	`
	rows, err := r.db.QueryContext(ctx, query, companyID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.ID, &chunk.CompanyID, &chunk.DocumentID, &chunk.DocumentName,
			&chunk.ChunkIndex, &chunk.TotalChunks, &chunk.Content, &chunk.MimeType,
			&embedding, &chunk.EmbeddingModel, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
