package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seekerhut/docvault/internal/middleware"
)

type RouterDeps struct {
	Documents       *DocumentHandler
	Search          *SearchHandler
	JWTSecret       []byte
	ReprocessWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/documents", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.POST("/documents/:id/reprocess", deps.Documents.Reprocess)

	reprocessAll := authGroup.Group("")
	reprocessAll.Use(middleware.RateLimit(deps.ReprocessWindow))
	reprocessAll.POST("/documents/reprocess", deps.Documents.ReprocessAll)

	authGroup.GET("/search", deps.Search.Search)
}
