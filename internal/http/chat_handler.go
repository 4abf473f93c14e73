package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/service"
)

type queryService interface {
	Query(ctx context.Context, req service.QueryRequest) (service.QueryResult, error)
}

// ChatHandler expone el QueryGateway.
type ChatHandler struct {
	logger  *zap.Logger
	queries queryService
	metrics *Metrics
}

func NewChatHandler(logger *zap.Logger, queries queryService, metrics *Metrics) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		queries: queries,
		metrics: metrics,
	}
}

// PostChat maneja POST /api/chat.
func (h *ChatHandler) PostChat(c *gin.Context) {
	start := time.Now()
	var req struct {
		Query         string  `json:"query"`
		DocumentText  *string `json:"documentText"`
		PitchDeckText *string `json:"pitchDeckText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		gwErr := writeGatewayError(c, domain.NewGatewayError(domain.KindMissingInput, http.StatusBadRequest, "Query is required", err))
		h.metrics.Observe("chat", string(gwErr.Kind), time.Since(start))
		return
	}

	documentText := req.DocumentText
	if documentText == nil {
		documentText = req.PitchDeckText
	}

	res, err := h.queries.Query(c.Request.Context(), service.QueryRequest{
		Query:        req.Query,
		DocumentText: documentText,
	})
	if err != nil {
		gwErr := writeGatewayError(c, err)
		h.metrics.Observe("chat", string(gwErr.Kind), time.Since(start))
		return
	}

	outcome := outcomeOK
	if res.Degraded {
		outcome = "degraded"
	}
	h.metrics.Observe("chat", outcome, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"response": res.Text})
}
