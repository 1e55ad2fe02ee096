package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

// APIKeyAuth resolves the tenant from the X-API-Key header. Used by the
// dashboard-facing routes where the tenant scopes every query.
func APIKeyAuth(tenants services.TenantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing api key",
			})
			return
		}

		tenant, err := tenants.GetByAPIKey(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid api key",
			})
			return
		}

		c.Set("tenant_id", tenant.ID)
		c.Next()
	}
}
