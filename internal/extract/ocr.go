package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OCRClient talks to an HTTP OCR service: multipart file upload, JSON
// {"text": "..."} response. Every request carries an explicit timeout so a
// stuck backend surfaces as a strategy failure instead of a hang.
type OCRClient struct {
	endpoint string
	client   *http.Client
}

type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func NewOCRClient(endpoint string, timeout time.Duration) *OCRClient {
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OCRClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *OCRClient) Recognize(ctx context.Context, data []byte, filename, mimeType string, pages []int) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if mimeType != "" {
		if err := writer.WriteField("mime_type", mimeType); err != nil {
			return "", err
		}
	}
	if len(pages) > 0 {
		if err := writer.WriteField("pages", joinInts(pages)); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ocr request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ocr backend: %s", out.Error)
	}
	return out.Text, nil
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}
