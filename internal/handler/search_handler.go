package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seekerhut/docvault/internal/pkg/errcode"
	"github.com/seekerhut/docvault/internal/pkg/response"
	"github.com/seekerhut/docvault/internal/service"
)

const defaultTopK = 10

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	topK := defaultTopK
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "top_k must be an integer")
			return
		}
		topK = parsed
	}
	results, err := h.search.Search(c.Request.Context(), getCompanyID(c), query, topK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results, "total": len(results)})
}
