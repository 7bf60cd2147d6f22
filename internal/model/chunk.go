package model

type Chunk struct {
	ID             int64     `json:"id"`
	CompanyID      string    `json:"company_id"`
	DocumentID     string    `json:"document_id"`
	DocumentName   string    `json:"document_name"`
	ChunkIndex     int       `json:"chunk_index"`
	TotalChunks    int       `json:"total_chunks"`
	Content        string    `json:"content"`
	MimeType       string    `json:"mime_type"`
	Embedding      []float32 `json:"embedding"`
	EmbeddingModel string    `json:"embedding_model"`
	CreatedAt      int64     `json:"created_at"`
}

type SimilarityResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
