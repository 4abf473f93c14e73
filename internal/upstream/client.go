package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"
)

const (
	maxResponseBytes         = 8 << 20
	defaultUploadContentType = "application/pdf"
)

// Client define las llamadas al servicio externo de matching y extraccion.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
	Upload(ctx context.Context, filename, contentType string, data []byte) (*Response, error)
	Endpoint() string
}

// ChatRequest es el cuerpo que espera POST {endpoint}/api/chat.
type ChatRequest struct {
	Query         string  `json:"query"`
	PitchDeckText *string `json:"pitch_deck_text"`
}

// Response es cualquier respuesta recibida, exitosa o no. Un error de Client
// significa que no hubo respuesta.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK indica un status 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClient implementa Client contra la API HTTP del backend de Deal Fit.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando a baseURL. Sin timeout propio:
// los limites de tiempo los impone el contexto del gateway.
func NewHTTPClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  httpClient,
		logger:  logger,
	}
}

func (c *HTTPClient) Endpoint() string {
	return c.baseURL
}

func (c *HTTPClient) Chat(ctx context.Context, chatReq ChatRequest) (*Response, error) {
	bodyBytes, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Upload reenvia el archivo con su Content-Type declarado; vacio cae en application/pdf.
func (c *HTTPClient) Upload(ctx context.Context, filename, contentType string, data []byte) (*Response, error) {
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultUploadContentType
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (*Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("upstream error status",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(respBody)),
		)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
