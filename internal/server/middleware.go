package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/gin-gonic/gin"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the acting organization from the request header and
// injects it into the request context. Every /v1 route requires it.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
