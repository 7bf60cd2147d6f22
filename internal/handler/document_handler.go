package handler

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/filestore"
	"github.com/seekerhut/docvault/internal/model"
	"github.com/seekerhut/docvault/internal/pkg/errcode"
	"github.com/seekerhut/docvault/internal/pkg/response"
	"github.com/seekerhut/docvault/internal/service"
)

const maxUploadBytes = 50 << 20

type DocumentHandler struct {
	files  filestore.Store
	docs   service.DocumentStore
	ingest *service.IngestService
}

func NewDocumentHandler(files filestore.Store, docs service.DocumentStore, ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{files: files, docs: docs, ingest: ingest}
}

// Upload accepts a multipart file, persists the original bytes and runs the
// document through the full ingestion pipeline before responding. The
// response carries the final status, completed or failed.
func (h *DocumentHandler) Upload(c *gin.Context) {
	companyID := getCompanyID(c)
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size <= 0 || file.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file size out of range")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	data, err := io.ReadAll(opened)
	opened.Close()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	docID := newDocumentID()
	sourceKey := docID + filepath.Ext(file.Filename)
	if err := h.files.Save(c.Request.Context(), sourceKey, bytes.NewReader(data), file.Size); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("failed to save upload", zap.Error(err))
		response.Error(c, errcode.ErrUploadFailed, "failed to save file")
		return
	}

	now := time.Now().Unix()
	doc := &model.Document{
		ID:             docID,
		CompanyID:      companyID,
		Filename:       file.Filename,
		MimeType:       mimeType,
		SizeBytes:      file.Size,
		SourceLocation: sourceKey,
		Status:         model.StatusPending,
		Ctime:          now,
		Mtime:          now,
	}
	if err := h.docs.Create(c.Request.Context(), doc); err != nil {
		handleError(c, err)
		return
	}

	// Processing errors land on the document row; the upload itself succeeded.
	_, _ = h.ingest.Process(c.Request.Context(), companyID, docID, data, file.Filename, mimeType)

	updated, err := h.docs.GetByID(c.Request.Context(), companyID, docID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, updated)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.GetByID(c.Request.Context(), getCompanyID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.ListByCompany(c.Request.Context(), getCompanyID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, gin.H{"documents": docs, "total": len(docs)})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	companyID := getCompanyID(c)
	docID := c.Param("id")
	doc, err := h.docs.GetByID(c.Request.Context(), companyID, docID)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.ingest.Delete(c.Request.Context(), companyID, docID); err != nil {
		handleError(c, err)
		return
	}
	if doc.SourceLocation != "" {
		if err := h.files.Delete(c.Request.Context(), doc.SourceLocation); err != nil {
			logutil.GetLogger(c.Request.Context()).Warn("failed to delete source file",
				zap.String("key", doc.SourceLocation), zap.Error(err))
		}
	}
	response.Success(c, gin.H{"deleted": docID})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	result, err := h.ingest.Reprocess(c.Request.Context(), getCompanyID(c), c.Param("id"))
	if result == nil && err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) ReprocessAll(c *gin.Context) {
	summary, err := h.ingest.ProcessAll(c.Request.Context(), getCompanyID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}

func newDocumentID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
