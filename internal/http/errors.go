package http

import (
	"github.com/gin-gonic/gin"

	"deal-fit/internal/domain"
)

// writeGatewayError serializa cualquier error como {"error", "kind"} con su status.
func writeGatewayError(c *gin.Context, err error) *domain.GatewayError {
	gwErr := domain.AsGatewayError(err)
	c.JSON(gwErr.Status, gin.H{
		"error": gwErr.Message,
		"kind":  gwErr.Kind,
	})
	return gwErr
}
