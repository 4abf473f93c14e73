package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"deal-fit/internal/domain"
	"deal-fit/internal/service"
)

// APIClient habla con el gateway por HTTP e implementa QueryGateway y UploadGateway.
type APIClient struct {
	baseURL        string
	client         *http.Client
	maxUploadBytes int64
}

func NewAPIClient(baseURL string, httpClient *http.Client, maxUploadBytes int64) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:         httpClient,
		maxUploadBytes: maxUploadBytes,
	}
}

type apiError struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func (c *APIClient) Query(ctx context.Context, req service.QueryRequest) (service.QueryResult, error) {
	payload, err := json.Marshal(struct {
		Query        string  `json:"query"`
		DocumentText *string `json:"documentText"`
	}{Query: req.Query, DocumentText: req.DocumentText})
	if err != nil {
		return service.QueryResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return service.QueryResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := c.do(httpReq, "Failed to get response")
	if err != nil {
		return service.QueryResult{}, err
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return service.QueryResult{}, fmt.Errorf("decode chat response: %w", err)
	}
	return service.QueryResult{Text: out.Response}, nil
}

// Upload valida localmente antes de enviar, igual que el gateway.
func (c *APIClient) Upload(ctx context.Context, req service.UploadRequest) (domain.Document, error) {
	if err := service.ValidateUpload(req, c.maxUploadBytes); err != nil {
		return domain.Document{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename))
	header.Set("Content-Type", req.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return domain.Document{}, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.Document{}, fmt.Errorf("close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(httpReq, "Upload failed")
	if err != nil {
		return domain.Document{}, err
	}

	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode upload response: %w", err)
	}
	if doc.Name == "" {
		doc.Name = req.Filename
	}
	return doc, nil
}

func (c *APIClient) do(req *http.Request, fallback string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		reason := err.Error()
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			reason = urlErr.Err.Error()
		}
		return nil, domain.NewGatewayError(domain.KindUpstreamUnreachable, http.StatusServiceUnavailable,
			fmt.Sprintf("Unable to connect to the gateway at %s: %s", c.baseURL, reason), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = fallback
		}
		kind := apiErr.Kind
		if kind == "" {
			kind = domain.KindUpstreamFailure
		}
		return nil, domain.NewGatewayError(kind, resp.StatusCode, msg, nil)
	}
	return body, nil
}
