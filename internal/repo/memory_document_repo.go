package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/seekerhut/docvault/internal/model"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

// MemoryDocumentRepo keeps document metadata in-process. It backs the
// memory store mode where no Postgres is configured.
type MemoryDocumentRepo struct {
	mu   sync.RWMutex
	docs map[string]map[string]model.Document
}

func NewMemoryDocumentRepo() *MemoryDocumentRepo {
	return &MemoryDocumentRepo{docs: make(map[string]map[string]model.Document)}
}

func (r *MemoryDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant := r.docs[doc.CompanyID]
	if tenant == nil {
		tenant = make(map[string]model.Document)
		r.docs[doc.CompanyID] = tenant
	}
	if _, exists := tenant[doc.ID]; exists {
		return appErr.ErrConflict
	}
	tenant[doc.ID] = *doc
	return nil
}

func (r *MemoryDocumentRepo) UpdateStatus(ctx context.Context, companyID, docID string, status model.ProcessingStatus, mtime int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[companyID][docID]
	if !ok {
		return appErr.ErrNotFound
	}
	doc.Status = status
	doc.Mtime = mtime
	r.docs[companyID][docID] = doc
	return nil
}

func (r *MemoryDocumentRepo) RecordResult(ctx context.Context, companyID, docID string, result *model.ProcessingResult) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[companyID][docID]
	if !ok {
		return appErr.ErrNotFound
	}
	doc.Status = result.Status
	doc.ExtractionMethod = result.ExtractionMethod
	doc.ContentLength = result.ContentLength
	doc.ProcessingError = result.Error
	doc.ProcessedAt = result.ProcessedAt
	doc.Mtime = result.ProcessedAt
	r.docs[companyID][docID] = doc
	return nil
}

func (r *MemoryDocumentRepo) GetByID(ctx context.Context, companyID, docID string) (*model.Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[companyID][docID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := doc
	return &copied, nil
}

func (r *MemoryDocumentRepo) ListByCompany(ctx context.Context, companyID string) ([]model.Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Document, 0, len(r.docs[companyID]))
	for _, doc := range r.docs[companyID] {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ctime != out[j].Ctime {
			return out[i].Ctime > out[j].Ctime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryDocumentRepo) ListByStatus(ctx context.Context, status model.ProcessingStatus, limit int) ([]model.Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Document
	for _, tenant := range r.docs {
		for _, doc := range tenant {
			if doc.Status == status {
				out = append(out, doc)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mtime != out[j].Mtime {
			return out[i].Mtime < out[j].Mtime
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryDocumentRepo) Delete(ctx context.Context, companyID, docID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[companyID][docID]; !ok {
		return appErr.ErrNotFound
	}
	delete(r.docs[companyID], docID)
	return nil
}
