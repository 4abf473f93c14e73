package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/service"
)

var (
	ErrEmptyInput     = errors.New("orchestrator: empty input")
	ErrSendInFlight   = errors.New("orchestrator: a message is already being sent")
	ErrUploadInFlight = errors.New("orchestrator: an upload is already in progress")
)

// QueryGateway es lo que el orquestador necesita para enviar consultas.
type QueryGateway interface {
	Query(ctx context.Context, req service.QueryRequest) (service.QueryResult, error)
}

// UploadGateway es lo que el orquestador necesita para subir pitch decks.
type UploadGateway interface {
	Upload(ctx context.Context, req service.UploadRequest) (domain.Document, error)
}

// Orchestrator conduce una accion del usuario por vez sobre el SessionStore.
type Orchestrator struct {
	store   *SessionStore
	queries QueryGateway
	uploads UploadGateway
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	sending   atomic.Bool
	uploading atomic.Bool

	stampMu   sync.Mutex
	lastStamp time.Time
}

func NewOrchestrator(store *SessionStore, queries QueryGateway, uploads UploadGateway, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		queries: queries,
		uploads: uploads,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Store expone el store que observa la UI.
func (o *Orchestrator) Store() *SessionStore {
	return o.store
}

// Uploading indica si hay un upload en curso.
func (o *Orchestrator) Uploading() bool {
	return o.uploading.Load()
}

// Send agrega el mensaje del usuario, consulta al gateway y agrega la respuesta.
// Con input vacio o un envio en curso no toca el store.
func (o *Orchestrator) Send(ctx context.Context, input string) error {
	content := strings.TrimSpace(input)
	if content == "" {
		return ErrEmptyInput
	}
	if !o.sending.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer o.sending.Store(false)

	o.store.AppendMessage(o.newMessage(domain.RoleUser, content))
	o.store.SetError(nil)
	o.store.SetLoading(true)
	defer o.store.SetLoading(false)

	var documentText *string
	if doc := o.store.CurrentDocument(); doc != nil {
		documentText = doc.TextContent
	}

	res, err := o.query(ctx, service.QueryRequest{Query: content, DocumentText: documentText})
	if err != nil {
		msg := err.Error()
		o.store.SetError(&msg)
		o.store.AppendMessage(o.newMessage(domain.RoleAssistant, "Error: "+msg))
		o.logger.Warn("send failed", zap.Error(err))
		return err
	}

	o.store.AppendMessage(o.newMessage(domain.RoleAssistant, res.Text))
	return nil
}

// Upload sube un pitch deck y lo deja como documento activo.
// Una falla solo actualiza el slot de error, sin entrada en el transcript.
func (o *Orchestrator) Upload(ctx context.Context, req service.UploadRequest) error {
	if !o.uploading.CompareAndSwap(false, true) {
		return ErrUploadInFlight
	}
	defer o.uploading.Store(false)

	o.store.SetError(nil)

	doc, err := o.upload(ctx, req)
	if err != nil {
		msg := err.Error()
		o.store.SetError(&msg)
		o.logger.Warn("upload failed", zap.String("filename", req.Filename), zap.Error(err))
		return err
	}

	o.store.SetDocument(&doc)
	return nil
}

// RemoveDocument quita el documento activo, sin confirmacion.
func (o *Orchestrator) RemoveDocument() {
	o.store.SetDocument(nil)
}

// ClearSession reinicia la conversacion.
func (o *Orchestrator) ClearSession() {
	o.store.Clear()
}

func (o *Orchestrator) query(ctx context.Context, req service.QueryRequest) (res service.QueryResult, err error) {
	defer recoverAsInternal(&err)
	return o.queries.Query(ctx, req)
}

func (o *Orchestrator) upload(ctx context.Context, req service.UploadRequest) (doc domain.Document, err error) {
	defer recoverAsInternal(&err)
	return o.uploads.Upload(ctx, req)
}

// recoverAsInternal convierte un panic del gateway en un error Internal.
func recoverAsInternal(err *error) {
	if r := recover(); r != nil {
		*err = domain.NewGatewayError(domain.KindInternal, http.StatusInternalServerError,
			"Something went wrong. Please try again.", fmt.Errorf("panic: %v", r))
	}
}

func (o *Orchestrator) newMessage(role domain.Role, content string) domain.Message {
	o.stampMu.Lock()
	ts := o.now()
	if !ts.After(o.lastStamp) {
		ts = o.lastStamp.Add(time.Nanosecond)
	}
	o.lastStamp = ts
	o.stampMu.Unlock()

	return domain.Message{
		ID:        o.newID(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}
