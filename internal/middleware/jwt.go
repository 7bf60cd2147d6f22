package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seekerhut/docvault/internal/pkg/errcode"
	"github.com/seekerhut/docvault/internal/pkg/jwt"
	"github.com/seekerhut/docvault/internal/pkg/response"
)

const ContextCompanyIDKey = "company_id"

// JWTAuth resolves the tenant from the bearer token. Every request below
// this middleware is scoped to claims.CompanyID.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if claims.CompanyID == "" {
			response.Error(c, errcode.ErrUnauthorized, "token has no tenant")
			c.Abort()
			return
		}
		c.Set(ContextCompanyIDKey, claims.CompanyID)
		c.Next()
	}
}
