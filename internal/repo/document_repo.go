package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/seekerhut/docvault/internal/model"
	"github.com/seekerhut/docvault/internal/pkg/dbutil"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

var documentColumns = []string{
	"id", "company_id", "filename", "mime_type", "size_bytes", "source_location",
	"status", "extraction_method", "content_length", "processing_error", "processed_at",
	"ctime", "mtime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                doc.ID,
		"company_id":        doc.CompanyID,
		"filename":          doc.Filename,
		"mime_type":         doc.MimeType,
		"size_bytes":        doc.SizeBytes,
		"source_location":   doc.SourceLocation,
		"status":            string(doc.Status),
		"extraction_method": doc.ExtractionMethod,
		"content_length":    doc.ContentLength,
		"processing_error":  doc.ProcessingError,
		"processed_at":      doc.ProcessedAt,
		"ctime":             doc.Ctime,
		"mtime":             doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, companyID, docID string, status model.ProcessingStatus, mtime int64) error {
	where := map[string]interface{}{
		"id":         docID,
		"company_id": companyID,
	}
	update := map[string]interface{}{
		"status": string(status),
		"mtime":  mtime,
	}
	return r.update(ctx, where, update)
}

// RecordResult stores the final ProcessingResult of an ingestion attempt on
// the document row. The latest result supersedes prior ones.
func (r *DocumentRepo) RecordResult(ctx context.Context, companyID, docID string, result *model.ProcessingResult) error {
	where := map[string]interface{}{
		"id":         docID,
		"company_id": companyID,
	}
	update := map[string]interface{}{
		"status":            string(result.Status),
		"extraction_method": result.ExtractionMethod,
		"content_length":    result.ContentLength,
		"processing_error":  result.Error,
		"processed_at":      result.ProcessedAt,
		"mtime":             result.ProcessedAt,
	}
	return r.update(ctx, where, update)
}

func (r *DocumentRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, companyID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":         docID,
		"company_id": companyID,
	}
	docs, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &docs[0], nil
}

func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string) ([]model.Document, error) {
	where := map[string]interface{}{
		"company_id": companyID,
		"_orderby":   "ctime desc",
	}
	return r.query(ctx, where)
}

func (r *DocumentRepo) ListByStatus(ctx context.Context, status model.ProcessingStatus, limit int) ([]model.Document, error) {
	where := map[string]interface{}{
		"status":   string(status),
		"_orderby": "mtime asc",
		"_limit":   []uint{0, uint(limit)},
	}
	return r.query(ctx, where)
}

func (r *DocumentRepo) Delete(ctx context.Context, companyID, docID string) error {
	where := map[string]interface{}{
		"id":         docID,
		"company_id": companyID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var status string
		if err := rows.Scan(&doc.ID, &doc.CompanyID, &doc.Filename, &doc.MimeType, &doc.SizeBytes,
			&doc.SourceLocation, &status, &doc.ExtractionMethod, &doc.ContentLength,
			&doc.ProcessingError, &doc.ProcessedAt, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		doc.Status = model.ProcessingStatus(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
