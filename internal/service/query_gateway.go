package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/upstream"
)

const (
	DefaultQueryTimeout = 30 * time.Second
	noReplyPlaceholder  = "No response received"
)

// QueryRequest es una consulta de chat con el texto opcional del pitch deck.
type QueryRequest struct {
	Query        string
	DocumentText *string
}

// QueryResult es la salida exitosa del gateway; Degraded marca respuestas enlatadas.
type QueryResult struct {
	Text     string
	Degraded bool
}

// QueryGateway valida consultas, resuelve el modo degradado y reenvia al backend de matching.
type QueryGateway struct {
	client       upstream.Client
	isProduction bool
	timeout      time.Duration
	logger       *zap.Logger
}

// NewQueryGateway crea el gateway. timeout <= 0 usa DefaultQueryTimeout.
func NewQueryGateway(client upstream.Client, isProduction bool, timeout time.Duration, logger *zap.Logger) *QueryGateway {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryGateway{
		client:       client,
		isProduction: isProduction,
		timeout:      timeout,
		logger:       logger,
	}
}

// Endpoint devuelve la URL base configurada del backend.
func (g *QueryGateway) Endpoint() string {
	if g == nil || g.client == nil {
		return ""
	}
	return g.client.Endpoint()
}

// Degraded expone la decision de modo degradado vigente.
func (g *QueryGateway) Degraded() DegradedDecision {
	return ResolveDegraded(g.isProduction, g.Endpoint())
}

// Query entrega exactamente un resultado por llamada y nunca reintenta.
func (g *QueryGateway) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return QueryResult{}, domain.NewGatewayError(domain.KindMissingInput, http.StatusBadRequest, "Query is required", nil)
	}

	if decision := g.Degraded(); decision.Degraded() {
		g.logger.Info("query served in degraded mode",
			zap.String("mode", decision.Mode.String()),
			zap.String("reason", decision.Reason),
		)
		return QueryResult{Text: decision.Response(), Degraded: true}, nil
	}

	return g.forward(ctx, query, req.DocumentText)
}

func (g *QueryGateway) forward(ctx context.Context, query string, documentText *string) (QueryResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var pitchDeck *string
	if documentText != nil && *documentText != "" {
		pitchDeck = documentText
	}

	start := time.Now()
	resp, err := g.client.Chat(callCtx, upstream.ChatRequest{Query: query, PitchDeckText: pitchDeck})
	if err != nil {
		gwErr := g.transportError(callCtx, err)
		g.logger.Warn("query failed",
			zap.String("kind", string(gwErr.Kind)),
			zap.Int("status", gwErr.Status),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return QueryResult{}, gwErr
	}

	if resp == nil {
		return QueryResult{}, emptyResponse("matching")
	}
	if !resp.OK() {
		gwErr := upstreamFailure(resp, "Backend request failed")
		g.logger.Warn("query rejected by upstream",
			zap.Int("status", resp.StatusCode),
			zap.String("message", gwErr.Message),
		)
		return QueryResult{}, gwErr
	}

	if !gjson.ValidBytes(resp.Body) {
		return QueryResult{}, emptyResponse("matching")
	}

	text, ok := firstPresent(resp.Body, replyFields...)
	if !ok {
		text = noReplyPlaceholder
	}
	g.logger.Info("query forwarded",
		zap.Int("status", resp.StatusCode),
		zap.Bool("has_document", pitchDeck != nil),
		zap.Duration("latency", time.Since(start)),
	)
	return QueryResult{Text: text}, nil
}

func (g *QueryGateway) transportError(callCtx context.Context, err error) *domain.GatewayError {
	if isTimeout(callCtx, err) {
		msg := fmt.Sprintf("The matching service did not respond within %s. Please try again.", g.timeout)
		return domain.NewGatewayError(domain.KindTimeout, http.StatusGatewayTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewGatewayError(domain.KindInternal, http.StatusInternalServerError, "Request was canceled", err)
	}
	msg := fmt.Sprintf("Unable to connect to the matching service at %s: %s", g.Endpoint(), transportReason(err))
	return domain.NewGatewayError(domain.KindUpstreamUnreachable, http.StatusServiceUnavailable, msg, err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportReason quita el prefijo "Post <url>:" que agrega net/http.
func transportReason(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// emptyResponse cubre un Client que no devuelve ni respuesta ni error.
func emptyResponse(name string) *domain.GatewayError {
	return domain.NewGatewayError(domain.KindInternal, http.StatusInternalServerError,
		fmt.Sprintf("Invalid response from the %s service", name), nil)
}

// upstreamFailure propaga el error estructurado del backend o sintetiza uno con el status.
func upstreamFailure(resp *upstream.Response, fallback string) *domain.GatewayError {
	msg, ok := firstPresent(resp.Body, upstreamErrorFields...)
	if !ok {
		msg = fmt.Sprintf("%s (status %d)", fallback, resp.StatusCode)
	}
	return domain.NewGatewayError(domain.KindUpstreamFailure, resp.StatusCode, msg, nil)
}
