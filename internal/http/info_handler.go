package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deal-fit/internal/service"
)

// InfoHandler sirve salud y la configuracion publica del despliegue.
type InfoHandler struct {
	environment   string
	schedulingURL string
	degraded      func() service.DegradedDecision
}

func NewInfoHandler(environment, schedulingURL string, degraded func() service.DegradedDecision) *InfoHandler {
	return &InfoHandler{
		environment:   environment,
		schedulingURL: schedulingURL,
		degraded:      degraded,
	}
}

// Health maneja GET /health.
func (h *InfoHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// PublicConfig maneja GET /api/config.
func (h *InfoHandler) PublicConfig(c *gin.Context) {
	mode := service.DegradedNone
	if h.degraded != nil {
		mode = h.degraded().Mode
	}
	body := gin.H{
		"environment":  h.environment,
		"degradedMode": mode.String(),
	}
	if h.schedulingURL != "" {
		body["schedulingUrl"] = h.schedulingURL
	}
	c.JSON(http.StatusOK, body)
}
