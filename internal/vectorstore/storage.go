package vectorstore

import (
	"context"
	"math"

	"github.com/seekerhut/docvault/internal/model"
)

// Store persists chunks with their vectors, scoped by tenant. UpsertChunks
// replaces the document's whole chunk set atomically: readers observe the
// old set or the new set, never a mix.
type Store interface {
	UpsertChunks(ctx context.Context, companyID, documentID string, chunks []model.Chunk) error
	DeleteDocument(ctx context.Context, companyID, documentID string) error
	QuerySimilar(ctx context.Context, companyID string, queryVector []float32, topK int) ([]model.SimilarityResult, error)
}

// CosineSimilarity returns a score in [-1, 1]. Mismatched or zero-length
// vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
