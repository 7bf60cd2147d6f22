package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/ai"
	"github.com/seekerhut/docvault/internal/chunker"
	"github.com/seekerhut/docvault/internal/extract"
	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/vectorstore"
)

// DocumentStore is the document metadata persistence the orchestrator needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	UpdateStatus(ctx context.Context, companyID, docID string, status model.ProcessingStatus, mtime int64) error
	RecordResult(ctx context.Context, companyID, docID string, result *model.ProcessingResult) error
	GetByID(ctx context.Context, companyID, docID string) (*model.Document, error)
	ListByCompany(ctx context.Context, companyID string) ([]model.Document, error)
	Delete(ctx context.Context, companyID, docID string) error
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType, filename string) (*extract.Result, error)
}

// SourceStore reads back original upload bytes for reprocessing.
type SourceStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type IngestConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Workers      int
}

// IngestService drives one document through the ingestion state machine:
// pending → extracting → chunking → embedding → storing → completed, with
// failed reachable from every step. Embedding and store failures are
// retried with bounded backoff; extraction failures are final for the
// attempt. On failure the document's previous chunk set stays queryable.
type IngestService struct {
	docs      DocumentStore
	chunks    vectorstore.Store
	extractor Extractor
	embedder  ai.IEmbedder
	splitter  *chunker.Chunker
	files     SourceStore
	cfg       IngestConfig
}

func NewIngestService(docs DocumentStore, chunks vectorstore.Store, extractor Extractor,
	embedder ai.IEmbedder, splitter *chunker.Chunker, files SourceStore, cfg IngestConfig) *IngestService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &IngestService{
		docs:      docs,
		chunks:    chunks,
		extractor: extractor,
		embedder:  embedder,
		splitter:  splitter,
		files:     files,
		cfg:       cfg,
	}
}

func (s *IngestService) Process(ctx context.Context, companyID, docID string, data []byte, filename, mimeType string) (*model.ProcessingResult, error) {
	if companyID == "" || docID == "" {
		return nil, fmt.Errorf("%w: company id and document id are required", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("company_id", companyID),
		zap.String("document_id", docID),
		zap.String("filename", filename),
	)

	s.setStatus(ctx, companyID, docID, model.StatusExtracting)
	extracted, err := s.extractor.Extract(ctx, data, mimeType, filename)
	if err != nil {
		logger.Warn("extraction failed", zap.Error(err))
		return s.fail(ctx, companyID, docID, "extract", err)
	}
	text := strings.TrimSpace(extracted.Text)
	if text == "" {
		return s.fail(ctx, companyID, docID, "extract", fmt.Errorf("%w: empty content", appErr.ErrExtractionFailed))
	}
	logger.Info("text extracted",
		zap.String("method", extracted.Method),
		zap.Int("content_length", len(text)),
	)

	s.setStatus(ctx, companyID, docID, model.StatusChunking)
	parts := s.splitter.Chunk(text)
	if len(parts) == 0 {
		return s.fail(ctx, companyID, docID, "chunk", fmt.Errorf("%w: empty content", appErr.ErrExtractionFailed))
	}

	s.setStatus(ctx, companyID, docID, model.StatusEmbedding)
	vectors, err := s.embedWithRetry(ctx, parts)
	if err != nil {
		logger.Error("embedding failed after retries", zap.Error(err))
		return s.failWith(ctx, companyID, docID, extracted.Method, len(text), "embed", err)
	}

	now := time.Now().Unix()
	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, model.Chunk{
			CompanyID:      companyID,
			DocumentID:     docID,
			DocumentName:   filename,
			ChunkIndex:     i,
			TotalChunks:    len(parts),
			Content:        part,
			MimeType:       mimeType,
			Embedding:      vectors[i],
			EmbeddingModel: s.embedder.ModelName(),
			CreatedAt:      now,
		})
	}

	s.setStatus(ctx, companyID, docID, model.StatusStoring)
	if err := s.upsertWithRetry(ctx, companyID, docID, chunks); err != nil {
		logger.Error("chunk upsert failed after retries", zap.Error(err))
		return s.failWith(ctx, companyID, docID, extracted.Method, len(text), "store", err)
	}

	result := &model.ProcessingResult{
		Status:           model.StatusCompleted,
		ExtractionMethod: extracted.Method,
		ContentLength:    len(text),
		TotalChunks:      len(chunks),
		ProcessedAt:      time.Now().Unix(),
	}
	if err := s.docs.RecordResult(ctx, companyID, docID, result); err != nil {
		logger.Warn("failed to record processing result", zap.Error(err))
	}
	logger.Info("document ingested",
		zap.String("method", extracted.Method),
		zap.Int("chunks", len(chunks)),
	)
	return result, nil
}

type ReprocessSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ProcessAll re-runs ingestion for every document of a tenant with a
// bounded worker pool. One document's failure never aborts the others.
func (s *IngestService) ProcessAll(ctx context.Context, companyID string) (*ReprocessSummary, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", appErr.ErrInvalid)
	}
	docs, err := s.docs.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	summary := &ReprocessSummary{Total: len(docs)}
	if len(docs) == 0 {
		return summary, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	queue := make(chan model.Document)
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range queue {
				ok := s.reprocessOne(ctx, doc)
				mu.Lock()
				if ok {
					summary.Succeeded++
				} else {
					summary.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	for _, doc := range docs {
		queue <- doc
	}
	close(queue)
	wg.Wait()
	return summary, nil
}

// Reprocess re-runs ingestion for a single document from its stored source.
func (s *IngestService) Reprocess(ctx context.Context, companyID, docID string) (*model.ProcessingResult, error) {
	doc, err := s.docs.GetByID(ctx, companyID, docID)
	if err != nil {
		return nil, err
	}
	data, err := s.readSource(ctx, doc)
	if err != nil {
		return s.fail(ctx, companyID, docID, "read source", err)
	}
	return s.Process(ctx, companyID, docID, data, doc.Filename, doc.MimeType)
}

// Delete removes a document and its whole chunk set.
func (s *IngestService) Delete(ctx context.Context, companyID, docID string) error {
	if _, err := s.docs.GetByID(ctx, companyID, docID); err != nil {
		return err
	}
	if err := s.chunks.DeleteDocument(ctx, companyID, docID); err != nil {
		return err
	}
	return s.docs.Delete(ctx, companyID, docID)
}

func (s *IngestService) reprocessOne(ctx context.Context, doc model.Document) bool {
	logger := logutil.GetLogger(ctx).With(
		zap.String("company_id", doc.CompanyID),
		zap.String("document_id", doc.ID),
	)
	data, err := s.readSource(ctx, &doc)
	if err != nil {
		logger.Warn("cannot read document source", zap.Error(err))
		_, _ = s.fail(ctx, doc.CompanyID, doc.ID, "read source", err)
		return false
	}
	result, err := s.Process(ctx, doc.CompanyID, doc.ID, data, doc.Filename, doc.MimeType)
	if err != nil {
		return false
	}
	return result.Status == model.StatusCompleted
}

func (s *IngestService) readSource(ctx context.Context, doc *model.Document) ([]byte, error) {
	if s.files == nil {
		return nil, fmt.Errorf("source store not configured")
	}
	if doc.SourceLocation == "" {
		return nil, fmt.Errorf("document has no source location")
	}
	reader, err := s.files.Open(ctx, doc.SourceLocation)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *IngestService) embedWithRetry(ctx context.Context, parts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			select {
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		vectors, err := s.embedder.EmbedBatch(ctx, parts, ai.TaskRetrievalDocument)
		if err == nil {
			if len(vectors) != len(parts) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(parts))
			}
			return vectors, nil
		}
		if errors.Is(err, ai.ErrUnavailable) || errors.Is(err, appErr.ErrEmbeddingUnavailable) {
			lastErr = fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *IngestService) upsertWithRetry(ctx context.Context, companyID, docID string, chunks []model.Chunk) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			select {
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := s.chunks.UpsertChunks(ctx, companyID, docID, chunks)
		if err == nil {
			return nil
		}
		if errors.Is(err, appErr.ErrStoreUnavailable) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (s *IngestService) setStatus(ctx context.Context, companyID, docID string, status model.ProcessingStatus) {
	if err := s.docs.UpdateStatus(ctx, companyID, docID, status, time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("failed to update document status",
			zap.String("document_id", docID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *IngestService) fail(ctx context.Context, companyID, docID, step string, cause error) (*model.ProcessingResult, error) {
	return s.failWith(ctx, companyID, docID, "", 0, step, cause)
}

func (s *IngestService) failWith(ctx context.Context, companyID, docID, method string, contentLength int, step string, cause error) (*model.ProcessingResult, error) {
	result := &model.ProcessingResult{
		Status:           model.StatusFailed,
		ExtractionMethod: method,
		ContentLength:    contentLength,
		ProcessedAt:      time.Now().Unix(),
		Error:            fmt.Sprintf("%s: %v", step, cause),
	}
	if err := s.docs.RecordResult(ctx, companyID, docID, result); err != nil {
		logutil.GetLogger(ctx).Warn("failed to record processing result", zap.Error(err))
	}
	return result, cause
}
