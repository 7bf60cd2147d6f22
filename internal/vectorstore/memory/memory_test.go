package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

func chunk(docID string, index int, embedding []float32) model.Chunk {
	return model.Chunk{
		DocumentID: docID,
		ChunkIndex: index,
		Content:    "content",
		Embedding:  embedding,
	}
}

func TestUpsertReplacesWholeChunkSet(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, "acme", "doc1", []model.Chunk{
		chunk("doc1", 0, []float32{1, 0}),
		chunk("doc1", 1, []float32{0, 1}),
		chunk("doc1", 2, []float32{1, 1}),
	}))
	require.Equal(t, 3, s.CountChunks("acme", "doc1"))

	require.NoError(t, s.UpsertChunks(ctx, "acme", "doc1", []model.Chunk{
		chunk("doc1", 0, []float32{1, 0}),
	}))
	require.Equal(t, 1, s.CountChunks("acme", "doc1"))
}

func TestTenantIsolation(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, "acme", "doc1", []model.Chunk{chunk("doc1", 0, []float32{1, 0})}))
	require.NoError(t, s.UpsertChunks(ctx, "globex", "doc2", []model.Chunk{chunk("doc2", 0, []float32{1, 0})}))

	results, err := s.QuerySimilar(ctx, "acme", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc1", results[0].Chunk.DocumentID)

	results, err = s.QuerySimilar(ctx, "initech", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestQuerySimilarOrdersByScore(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, "acme", "doc1", []model.Chunk{
		chunk("doc1", 0, []float32{1, 0}),
		chunk("doc1", 1, []float32{0, 1}),
		chunk("doc1", 2, []float32{0.9, 0.1}),
	}))

	results, err := s.QuerySimilar(ctx, "acme", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Chunk.ChunkIndex)
	require.Equal(t, 2, results[1].Chunk.ChunkIndex)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestQuerySimilarTieBreaksDeterministic(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, "acme", "docB", []model.Chunk{chunk("docB", 0, []float32{1, 0})}))
	require.NoError(t, s.UpsertChunks(ctx, "acme", "docA", []model.Chunk{chunk("docA", 0, []float32{1, 0})}))

	for i := 0; i < 5; i++ {
		results, err := s.QuerySimilar(ctx, "acme", []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		require.Equal(t, "docA", results[0].Chunk.DocumentID)
		require.Equal(t, "docB", results[1].Chunk.DocumentID)
	}
}

func TestQuerySimilarInvalidTopK(t *testing.T) {
	s := NewStorage()
	_, err := s.QuerySimilar(context.Background(), "acme", []float32{1}, 0)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestDeleteDocument(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, "acme", "doc1", []model.Chunk{chunk("doc1", 0, []float32{1, 0})}))
	require.NoError(t, s.DeleteDocument(ctx, "acme", "doc1"))
	require.Equal(t, 0, s.CountChunks("acme", "doc1"))
	require.NoError(t, s.DeleteDocument(ctx, "acme", "missing"))
}

func TestUpsertRequiresIdentity(t *testing.T) {
	s := NewStorage()
	err := s.UpsertChunks(context.Background(), "", "doc1", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
