package service

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/upstream"
)

const (
	DefaultMaxUploadBytes int64 = 10 * 1024 * 1024
	PDFContentType              = "application/pdf"

	archiveTimeout = 2 * time.Second
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// UploadRequest describe un archivo recibido con su tipo y tamaño declarados.
type UploadRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadGateway valida pitch decks y los reenvia al servicio de extraccion.
type UploadGateway struct {
	client   upstream.Client
	maxBytes int64
	archive  DocumentArchive
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadGateway crea el gateway. archive puede ser nil.
func NewUploadGateway(client upstream.Client, maxBytes int64, archive DocumentArchive, logger *zap.Logger) *UploadGateway {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadGateway{
		client:   client,
		maxBytes: maxBytes,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateUpload aplica las reglas locales antes de cualquier llamada de red.
func ValidateUpload(req UploadRequest, maxBytes int64) error {
	if req.Data == nil || strings.TrimSpace(req.Filename) == "" {
		return domain.NewGatewayError(domain.KindMissingInput, http.StatusBadRequest, "No file provided", nil)
	}
	mediaType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil || !strings.EqualFold(mediaType, PDFContentType) {
		return domain.NewGatewayError(domain.KindUnsupportedType, http.StatusBadRequest, "Only PDF files are allowed", nil)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if declaredSize(req) > maxBytes {
		msg := fmt.Sprintf("File size must be less than %dMB", maxBytes/(1024*1024))
		return domain.NewGatewayError(domain.KindTooLarge, http.StatusBadRequest, msg, nil)
	}
	return nil
}

func declaredSize(req UploadRequest) int64 {
	if req.Size > 0 {
		return req.Size
	}
	return int64(len(req.Data))
}

// Upload valida, reenvia y construye el Document activo.
func (g *UploadGateway) Upload(ctx context.Context, req UploadRequest) (domain.Document, error) {
	if err := ValidateUpload(req, g.maxBytes); err != nil {
		return domain.Document{}, err
	}

	resp, err := g.client.Upload(ctx, req.Filename, req.ContentType, req.Data)
	if err != nil {
		g.logger.Warn("upload failed", zap.String("filename", req.Filename), zap.Error(err))
		return domain.Document{}, domain.NewGatewayError(domain.KindInternal, http.StatusInternalServerError,
			fmt.Sprintf("Upload failed: %s", transportReason(err)), err)
	}
	if resp == nil {
		return domain.Document{}, emptyResponse("extraction")
	}
	if !resp.OK() {
		gwErr := upstreamFailure(resp, "Backend upload failed")
		g.logger.Warn("upload rejected by upstream",
			zap.Int("status", resp.StatusCode),
			zap.String("message", gwErr.Message),
		)
		return domain.Document{}, gwErr
	}
	if !gjson.ValidBytes(resp.Body) {
		return domain.Document{}, emptyResponse("extraction")
	}

	completedAt := g.now().UTC()
	doc := domain.Document{
		Name:       req.Filename,
		UploadedAt: completedAt,
	}
	if id, ok := firstPresent(resp.Body, uploadIDFields...); ok {
		doc.ID = id
	} else {
		doc.ID = FallbackDocumentID(completedAt, req.Filename)
	}
	if text, ok := firstPresent(resp.Body, extractedTextFields...); ok {
		doc.TextContent = &text
	}

	g.archiveCopy(ctx, doc, req)

	g.logger.Info("pitch deck uploaded",
		zap.String("document_id", doc.ID),
		zap.Int64("size", declaredSize(req)),
		zap.Bool("has_text", doc.TextContent != nil),
	)
	return doc, nil
}

// archiveCopy nunca bloquea el upload: los errores solo se registran.
func (g *UploadGateway) archiveCopy(ctx context.Context, doc domain.Document, req UploadRequest) {
	if g.archive == nil {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	record := NewArchivedDocument(doc, req.ContentType, req.Data)
	if err := g.archive.Save(archiveCtx, record); err != nil {
		g.logger.Warn("archive pitch deck failed", zap.String("document_id", doc.ID), zap.Error(err))
	}
}

// FallbackDocumentID arma "<unix-millis>-<nombre saneado>" cuando el backend no devuelve id.
func FallbackDocumentID(at time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), unsafeFilenameChars.ReplaceAllString(filename, "_"))
}
