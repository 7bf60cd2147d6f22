package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/ai"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/vectorstore"
)

const defaultPreviewRunes = 200

type SearchResult struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	ChunkIndex     int     `json:"chunk_index"`
	TotalChunks    int     `json:"total_chunks"`
	Content        string  `json:"content"`
	ContentPreview string  `json:"content_preview"`
	Score          float32 `json:"score"`
}

// SearchService answers semantic queries over a tenant's ingested chunks.
type SearchService struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
}

func NewSearchService(embedder ai.IEmbedder, store vectorstore.Store) *SearchService {
	return &SearchService{embedder: embedder, store: store}
}

func (s *SearchService) Search(ctx context.Context, companyID, query string, topK int) ([]SearchResult, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", appErr.ErrInvalid)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", appErr.ErrInvalid)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", appErr.ErrInvalid)
	}
	vector, err := s.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	matches, err := s.store.QuerySimilar(ctx, companyID, vector, topK)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("semantic search",
		zap.String("company_id", companyID),
		zap.Int("top_k", topK),
		zap.Int("matches", len(matches)),
	)
	results := make([]SearchResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, SearchResult{
			DocumentID:     match.Chunk.DocumentID,
			DocumentName:   match.Chunk.DocumentName,
			ChunkIndex:     match.Chunk.ChunkIndex,
			TotalChunks:    match.Chunk.TotalChunks,
			Content:        match.Chunk.Content,
			ContentPreview: preview(match.Chunk.Content, defaultPreviewRunes),
			Score:          match.Score,
		})
	}
	return results, nil
}

func preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
