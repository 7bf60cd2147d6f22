package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/vectorstore"
)

// Storage is an in-memory chunk store using brute-force cosine scoring.
// Used by tests and single-node deployments with store.type=memory.
type Storage struct {
	mu      sync.RWMutex
	tenants map[string]map[string][]model.Chunk
}

func NewStorage() *Storage {
	return &Storage{tenants: make(map[string]map[string][]model.Chunk)}
}

var _ vectorstore.Store = (*Storage)(nil)

func (s *Storage) UpsertChunks(ctx context.Context, companyID, documentID string, chunks []model.Chunk) error {
	_ = ctx
	if companyID == "" || documentID == "" {
		return fmt.Errorf("%w: company id and document id are required", appErr.ErrInvalid)
	}
	cloned := make([]model.Chunk, len(chunks))
	copy(cloned, chunks)
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.tenants[companyID]
	if docs == nil {
		docs = make(map[string][]model.Chunk)
		s.tenants[companyID] = docs
	}
	docs[documentID] = cloned
	return nil
}

func (s *Storage) DeleteDocument(ctx context.Context, companyID, documentID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if docs := s.tenants[companyID]; docs != nil {
		delete(docs, documentID)
	}
	return nil
}

func (s *Storage) QuerySimilar(ctx context.Context, companyID string, queryVector []float32, topK int) ([]model.SimilarityResult, error) {
	_ = ctx
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", appErr.ErrInvalid)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []model.SimilarityResult
	for _, chunks := range s.tenants[companyID] {
		for _, chunk := range chunks {
			results = append(results, model.SimilarityResult{
				Chunk: chunk,
				Score: vectorstore.CosineSimilarity(queryVector, chunk.Embedding),
			})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.ChunkIndex != results[j].Chunk.ChunkIndex {
			return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// CountChunks reports how many chunks a document currently has. Test hook.
func (s *Storage) CountChunks(companyID, documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[companyID][documentID])
}
