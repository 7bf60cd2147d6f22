package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/model"
)

type PendingLister interface {
	ListByStatus(ctx context.Context, status model.ProcessingStatus, limit int) ([]model.Document, error)
}

type Reprocessor interface {
	Reprocess(ctx context.Context, companyID, docID string) (*model.ProcessingResult, error)
}

// PendingSweepJob picks up documents stuck in pending, typically after a
// crash between upload and ingestion, and runs them through the pipeline.
type PendingSweepJob struct {
	docs      PendingLister
	ingest    Reprocessor
	batchSize int
}

func NewPendingSweepJob(docs PendingLister, ingest Reprocessor, batchSize int) *PendingSweepJob {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &PendingSweepJob{docs: docs, ingest: ingest, batchSize: batchSize}
}

func (j *PendingSweepJob) Name() string {
	return "pending_sweep"
}

func (j *PendingSweepJob) Run(ctx context.Context) error {
	if j.docs == nil || j.ingest == nil {
		return nil
	}
	pending, err := j.docs.ListByStatus(ctx, model.StatusPending, j.batchSize)
	if err != nil {
		return err
	}
	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := j.ingest.Reprocess(ctx, doc.CompanyID, doc.ID)
		if err != nil {
			logutil.GetLogger(ctx).Warn("pending document reprocess failed",
				zap.String("company_id", doc.CompanyID),
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		logutil.GetLogger(ctx).Info("pending document processed",
			zap.String("company_id", doc.CompanyID),
			zap.String("document_id", doc.ID),
			zap.String("status", string(result.Status)),
		)
	}
	return nil
}
