package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/service"
)

type uploadService interface {
	Upload(ctx context.Context, req service.UploadRequest) (domain.Document, error)
}

// UploadHandler expone el UploadGateway.
type UploadHandler struct {
	logger   *zap.Logger
	uploads  uploadService
	maxBytes int64
	metrics  *Metrics
}

func NewUploadHandler(logger *zap.Logger, uploads uploadService, maxBytes int64, metrics *Metrics) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	return &UploadHandler{
		logger:   logger,
		uploads:  uploads,
		maxBytes: maxBytes,
		metrics:  metrics,
	}
}

// PostUpload maneja POST /api/upload (multipart, campo "file").
func (h *UploadHandler) PostUpload(c *gin.Context) {
	start := time.Now()
	doc, err := h.upload(c)
	if err != nil {
		gwErr := writeGatewayError(c, err)
		h.metrics.Observe("upload", string(gwErr.Kind), time.Since(start))
		return
	}
	h.metrics.Observe("upload", outcomeOK, time.Since(start))
	c.JSON(http.StatusOK, doc)
}

func (h *UploadHandler) upload(c *gin.Context) (domain.Document, error) {
	// Tope del body: deja margen para que un archivo algo mayor al limite
	// llegue a la validacion y reciba TooLarge.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4*h.maxBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := fmt.Sprintf("File size must be less than %dMB", h.maxBytes/(1024*1024))
			return domain.Document{}, domain.NewGatewayError(domain.KindTooLarge, http.StatusBadRequest, msg, err)
		}
		h.logger.Warn("invalid upload request", zap.Error(err))
		return domain.Document{}, domain.NewGatewayError(domain.KindMissingInput, http.StatusBadRequest, "No file provided", err)
	}

	req := service.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        []byte{},
	}
	// Validamos con los metadatos antes de leer el archivo a memoria.
	if err := service.ValidateUpload(req, h.maxBytes); err != nil {
		return domain.Document{}, err
	}

	file, err := header.Open()
	if err != nil {
		return domain.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read upload: %w", err)
	}
	req.Data = data

	return h.uploads.Upload(c.Request.Context(), req)
}
