package model

// ProcessingResult is the outcome of one ingestion attempt for a document.
// The latest result supersedes prior ones.
type ProcessingResult struct {
	Status           ProcessingStatus `json:"status"`
	ExtractionMethod string           `json:"extraction_method,omitempty"`
	ContentLength    int              `json:"content_length"`
	TotalChunks      int              `json:"total_chunks"`
	ProcessedAt      int64            `json:"processed_at"`
	Error            string           `json:"error,omitempty"`
}
