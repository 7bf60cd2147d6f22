package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/middleware"
	"github.com/seekerhut/docvault/internal/pkg/errcode"
	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
	"github.com/seekerhut/docvault/internal/pkg/response"
)

func getCompanyID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextCompanyIDKey)
	companyID, _ := value.(string)
	return companyID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("company_id", getCompanyID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrUnsupportedType):
		response.Error(c, errcode.ErrUnsupportedType, "unsupported file type")
	case errors.Is(err, appErr.ErrExtractionFailed):
		response.Error(c, errcode.ErrExtractionFailed, "extraction failed")
	case errors.Is(err, appErr.ErrEmbeddingUnavailable):
		response.Error(c, errcode.ErrEmbeddingUnavailable, "embedding provider unavailable")
	case errors.Is(err, appErr.ErrStoreUnavailable):
		response.Error(c, errcode.ErrStoreUnavailable, "vector store unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
