package repo_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seekerhut/docvault/internal/config"
	"github.com/seekerhut/docvault/internal/db"
	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/repo"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "docvault",
		Password: "docvault_pass",
		DBName:   "docvault_test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func cleanupCompany(t *testing.T, conn *sql.DB, companyID string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM chunks WHERE company_id = $1`, companyID)
		_, _ = conn.Exec(`DELETE FROM documents WHERE company_id = $1`, companyID)
	})
}

func testDoc(companyID, docID string) *model.Document {
	now := time.Now().Unix()
	return &model.Document{
		ID:             docID,
		CompanyID:      companyID,
		Filename:       "note.txt",
		MimeType:       "text/plain",
		SizeBytes:      42,
		SourceLocation: docID + ".txt",
		Status:         model.StatusPending,
		Ctime:          now,
		Mtime:          now,
	}
}

func TestDocumentRepoCRUD(t *testing.T) {
	conn := openTestDB(t)
	company := fmt.Sprintf("crud-%d", time.Now().UnixNano())
	cleanupCompany(t, conn, company)
	docs := repo.NewDocumentRepo(conn)
	ctx := context.Background()

	doc := testDoc(company, "doc1")
	require.NoError(t, docs.Create(ctx, doc))
	require.ErrorIs(t, docs.Create(ctx, doc), appErr.ErrConflict)

	got, err := docs.GetByID(ctx, company, "doc1")
	require.NoError(t, err)
	require.Equal(t, doc.Filename, got.Filename)
	require.Equal(t, model.StatusPending, got.Status)

	_, err = docs.GetByID(ctx, "other-company", "doc1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, docs.UpdateStatus(ctx, company, "doc1", model.StatusEmbedding, time.Now().Unix()))
	got, err = docs.GetByID(ctx, company, "doc1")
	require.NoError(t, err)
	require.Equal(t, model.StatusEmbedding, got.Status)

	require.NoError(t, docs.RecordResult(ctx, company, "doc1", &model.ProcessingResult{
		Status:           model.StatusCompleted,
		ExtractionMethod: "text",
		ContentLength:    120,
		ProcessedAt:      time.Now().Unix(),
	}))
	got, err = docs.GetByID(ctx, company, "doc1")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
	require.Equal(t, "text", got.ExtractionMethod)
	require.Equal(t, 120, got.ContentLength)

	listed, err := docs.ListByCompany(ctx, company)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, docs.Delete(ctx, company, "doc1"))
	require.ErrorIs(t, docs.Delete(ctx, company, "doc1"), appErr.ErrNotFound)
}

func TestDocumentRepoListByStatus(t *testing.T) {
	conn := openTestDB(t)
	company := fmt.Sprintf("status-%d", time.Now().UnixNano())
	cleanupCompany(t, conn, company)
	docs := repo.NewDocumentRepo(conn)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc := testDoc(company, fmt.Sprintf("doc%d", i))
		doc.Mtime = int64(1000 + i)
		require.NoError(t, docs.Create(ctx, doc))
	}
	pending, err := docs.ListByStatus(ctx, model.StatusPending, 100)
	require.NoError(t, err)
	count := 0
	for _, doc := range pending {
		if doc.CompanyID == company {
			count++
		}
	}
	require.Equal(t, 3, count)
}

func testChunks(companyID, docID string, vectors [][]float32) []model.Chunk {
	now := time.Now().Unix()
	chunks := make([]model.Chunk, 0, len(vectors))
	for i, vec := range vectors {
		chunks = append(chunks, model.Chunk{
			CompanyID:      companyID,
			DocumentID:     docID,
			DocumentName:   "note.txt",
			ChunkIndex:     i,
			TotalChunks:    len(vectors),
			Content:        fmt.Sprintf("chunk %d", i),
			MimeType:       "text/plain",
			Embedding:      vec,
			EmbeddingModel: "test-model",
			CreatedAt:      now,
		})
	}
	return chunks
}

func TestChunkRepoUpsertAndQuery(t *testing.T) {
	conn := openTestDB(t)
	company := fmt.Sprintf("chunk-%d", time.Now().UnixNano())
	cleanupCompany(t, conn, company)
	chunks := repo.NewChunkRepo(conn)
	ctx := context.Background()

	require.NoError(t, chunks.UpsertChunks(ctx, company, "doc1", testChunks(company, "doc1", [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	})))

	results, err := chunks.QuerySimilar(ctx, company, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Chunk.ChunkIndex)
	require.InDelta(t, 1.0, results[0].Score, 1e-5)
	require.Greater(t, results[0].Score, results[1].Score)

	// Replacement drops the old chunk set entirely.
	require.NoError(t, chunks.UpsertChunks(ctx, company, "doc1", testChunks(company, "doc1", [][]float32{
		{0, 0, 1},
	})))
	stored, err := chunks.ListByDocument(ctx, company, "doc1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, []float32{0, 0, 1}, stored[0].Embedding)

	require.NoError(t, chunks.DeleteDocument(ctx, company, "doc1"))
	stored, err = chunks.ListByDocument(ctx, company, "doc1")
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestChunkRepoTenantScoped(t *testing.T) {
	conn := openTestDB(t)
	companyA := fmt.Sprintf("tenant-a-%d", time.Now().UnixNano())
	companyB := fmt.Sprintf("tenant-b-%d", time.Now().UnixNano())
	cleanupCompany(t, conn, companyA)
	cleanupCompany(t, conn, companyB)
	chunks := repo.NewChunkRepo(conn)
	ctx := context.Background()

	require.NoError(t, chunks.UpsertChunks(ctx, companyA, "doc1", testChunks(companyA, "doc1", [][]float32{{1, 0, 0}})))

	results, err := chunks.QuerySimilar(ctx, companyB, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEmbeddingCacheRepoRoundtrip(t *testing.T) {
	conn := openTestDB(t)
	cache := repo.NewEmbeddingCacheRepo(conn)
	ctx := context.Background()
	hash := fmt.Sprintf("hash-%d", time.Now().UnixNano())

	_, found, err := cache.Get(ctx, "m", "T", hash)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName:   "m",
		TaskType:    "T",
		ContentHash: hash,
		Embedding:   []float32{0.1, 0.2, 0.3},
		Ctime:       time.Now().Unix(),
	}))
	values, found, err := cache.Get(ctx, "m", "T", hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, values, 3)

	deleted, err := cache.DeleteBefore(ctx, time.Now().Unix()+10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))
}
