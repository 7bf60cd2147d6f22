package model

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusExtracting ProcessingStatus = "extracting"
	StatusChunking   ProcessingStatus = "chunking"
	StatusEmbedding  ProcessingStatus = "embedding"
	StatusStoring    ProcessingStatus = "storing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type Document struct {
	ID               string           `json:"id"`
	CompanyID        string           `json:"company_id"`
	Filename         string           `json:"filename"`
	MimeType         string           `json:"mime_type"`
	SizeBytes        int64            `json:"size_bytes"`
	SourceLocation   string           `json:"source_location"`
	Status           ProcessingStatus `json:"status"`
	ExtractionMethod string           `json:"extraction_method"`
	ContentLength    int              `json:"content_length"`
	ProcessingError  string           `json:"processing_error"`
	ProcessedAt      int64            `json:"processed_at"`
	Ctime            int64            `json:"ctime"`
	Mtime            int64            `json:"mtime"`
}
