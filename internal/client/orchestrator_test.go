package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"deal-fit/internal/domain"
	"deal-fit/internal/service"
	"deal-fit/internal/upstream"
)

type fakeQueryGateway struct {
	calls   int
	last    service.QueryRequest
	reply   func(req service.QueryRequest) (service.QueryResult, error)
	started chan struct{}
	release chan struct{}
}

func (f *fakeQueryGateway) Query(ctx context.Context, req service.QueryRequest) (service.QueryResult, error) {
	f.calls++
	f.last = req
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.reply != nil {
		return f.reply(req)
	}
	return service.QueryResult{Text: "reply to " + req.Query}, nil
}

type fakeUploadGateway struct {
	calls   int
	doc     domain.Document
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeUploadGateway) Upload(ctx context.Context, req service.UploadRequest) (domain.Document, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.doc, f.err
}

func newTestOrchestrator(q QueryGateway, u UploadGateway) *Orchestrator {
	o := NewOrchestrator(NewSessionStore(), q, u, zap.NewNop())
	n := 0
	o.newID = func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
	return o
}

func TestOrchestratorSend_AlternatingTranscript(t *testing.T) {
	q := &fakeQueryGateway{}
	o := newTestOrchestrator(q, &fakeUploadGateway{})

	const n = 5
	for i := 0; i < n; i++ {
		if err := o.Send(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("send %d: expected no error, got %v", i, err)
		}
	}

	st := o.Store().Snapshot()
	if len(st.Messages) != 2*n {
		t.Fatalf("expected %d messages, got %d", 2*n, len(st.Messages))
	}
	for i, m := range st.Messages {
		wantRole := domain.RoleUser
		if i%2 == 1 {
			wantRole = domain.RoleAssistant
		}
		if m.Role != wantRole {
			t.Fatalf("message %d: expected role %s, got %s", i, wantRole, m.Role)
		}
		if i > 0 && !m.Timestamp.After(st.Messages[i-1].Timestamp) {
			t.Fatalf("message %d: timestamps must be strictly increasing", i)
		}
	}
	if st.Messages[2*n-1].Content != fmt.Sprintf("reply to question %d", n-1) {
		t.Fatalf("unexpected last reply %q", st.Messages[2*n-1].Content)
	}
	if st.IsLoading || st.Error != nil {
		t.Fatalf("expected idle session without error, got %+v", st)
	}
}

func TestOrchestratorSend_StrictTimestampsWithFrozenClock(t *testing.T) {
	o := newTestOrchestrator(&fakeQueryGateway{}, &fakeUploadGateway{})
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return frozen }

	_ = o.Send(context.Background(), "a")
	_ = o.Send(context.Background(), "b")

	msgs := o.Store().Snapshot().Messages
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Fatalf("expected strictly increasing timestamps, got %s then %s", msgs[i-1].Timestamp, msgs[i].Timestamp)
		}
	}
}

func TestOrchestratorSend_EmptyInputIsNoop(t *testing.T) {
	q := &fakeQueryGateway{}
	o := newTestOrchestrator(q, &fakeUploadGateway{})
	notified := 0
	o.Store().Subscribe(func(domain.SessionState) { notified++ })

	for _, in := range []string{"", "   ", "\n"} {
		if err := o.Send(context.Background(), in); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	}
	if q.calls != 0 || notified != 0 {
		t.Fatalf("expected no gateway calls and no store transitions")
	}
}

func TestOrchestratorSend_InFlightGuard(t *testing.T) {
	q := &fakeQueryGateway{started: make(chan struct{}), release: make(chan struct{})}
	o := newTestOrchestrator(q, &fakeUploadGateway{})

	done := make(chan error, 1)
	go func() { done <- o.Send(context.Background(), "first") }()
	<-q.started

	if !o.Store().IsLoading() {
		t.Fatalf("expected loading while the call is pending")
	}
	if err := o.Send(context.Background(), "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight, got %v", err)
	}

	close(q.release)
	if err := <-done; err != nil {
		t.Fatalf("expected first send to succeed, got %v", err)
	}

	st := o.Store().Snapshot()
	if len(st.Messages) != 2 || st.Messages[0].Content != "first" {
		t.Fatalf("expected only the first exchange, got %+v", st.Messages)
	}
	if q.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", q.calls)
	}
}

func TestOrchestratorSend_FailureSetsErrorAndTranscript(t *testing.T) {
	gwErr := domain.NewGatewayError(domain.KindTimeout, 0, "The matching service did not respond within 30s. Please try again.", nil)
	q := &fakeQueryGateway{reply: func(service.QueryRequest) (service.QueryResult, error) {
		return service.QueryResult{}, gwErr
	}}
	o := newTestOrchestrator(q, &fakeUploadGateway{})
	o.Store().SetError(strPtr("stale"))

	err := o.Send(context.Background(), "fintech")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	st := o.Store().Snapshot()
	if st.Error == nil || *st.Error != gwErr.Message {
		t.Fatalf("expected error slot set, got %v", st.Error)
	}
	if len(st.Messages) != 2 || st.Messages[1].Role != domain.RoleAssistant || st.Messages[1].Content != "Error: "+gwErr.Message {
		t.Fatalf("expected assistant error entry, got %+v", st.Messages)
	}
	if st.IsLoading {
		t.Fatalf("expected loading cleared after failure")
	}

	// Cualquier accion posterior sigue siendo posible.
	q.reply = nil
	if err := o.Send(context.Background(), "retry"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if o.Store().Snapshot().Error != nil {
		t.Fatalf("expected error cleared by the next send")
	}
}

func TestOrchestratorSend_PanicClearsLoading(t *testing.T) {
	q := &fakeQueryGateway{reply: func(service.QueryRequest) (service.QueryResult, error) {
		panic("gateway exploded")
	}}
	o := newTestOrchestrator(q, &fakeUploadGateway{})

	err := o.Send(context.Background(), "fintech")
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	st := o.Store().Snapshot()
	if st.IsLoading || st.Error == nil || len(st.Messages) != 2 {
		t.Fatalf("expected recovered session, got %+v", st)
	}
	if err := o.Send(context.Background(), "again"); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected guard released after panic, got %v", err)
	}
}

func TestOrchestratorSend_PassesDocumentText(t *testing.T) {
	q := &fakeQueryGateway{}
	o := newTestOrchestrator(q, &fakeUploadGateway{})
	text := "We build payment rails"
	o.Store().SetDocument(&domain.Document{ID: "d1", TextContent: &text})

	_ = o.Send(context.Background(), "match my deck")
	if q.last.DocumentText == nil || *q.last.DocumentText != text {
		t.Fatalf("expected document text as context")
	}

	o.RemoveDocument()
	_ = o.Send(context.Background(), "no deck")
	if q.last.DocumentText != nil {
		t.Fatalf("expected no context after removing the document")
	}
}

func TestOrchestratorUpload(t *testing.T) {
	t.Run("success sets document", func(t *testing.T) {
		u := &fakeUploadGateway{doc: domain.Document{ID: "d1", Name: "deck.pdf"}}
		o := newTestOrchestrator(&fakeQueryGateway{}, u)
		o.Store().SetError(strPtr("stale"))

		if err := o.Upload(context.Background(), service.UploadRequest{Filename: "deck.pdf"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		st := o.Store().Snapshot()
		if st.Document == nil || st.Document.ID != "d1" || st.Error != nil {
			t.Fatalf("unexpected state %+v", st)
		}
		if o.Uploading() {
			t.Fatalf("expected uploading flag cleared")
		}
	})

	t.Run("failure sets error only", func(t *testing.T) {
		u := &fakeUploadGateway{err: domain.NewGatewayError(domain.KindUpstreamFailure, http.StatusBadGateway, "Backend upload failed", nil)}
		o := newTestOrchestrator(&fakeQueryGateway{}, u)
		o.Store().AppendMessage(domain.Message{ID: "m0"})

		if err := o.Upload(context.Background(), service.UploadRequest{Filename: "deck.pdf"}); err == nil {
			t.Fatalf("expected error")
		}
		st := o.Store().Snapshot()
		if st.Error == nil || *st.Error != "Backend upload failed" {
			t.Fatalf("expected error slot, got %v", st.Error)
		}
		if len(st.Messages) != 1 {
			t.Fatalf("upload failures must not add transcript entries")
		}
		if o.Uploading() {
			t.Fatalf("expected uploading flag cleared")
		}
	})

	t.Run("concurrent upload rejected", func(t *testing.T) {
		u := &fakeUploadGateway{started: make(chan struct{}), release: make(chan struct{}), doc: domain.Document{ID: "d1"}}
		o := newTestOrchestrator(&fakeQueryGateway{}, u)

		done := make(chan error, 1)
		go func() { done <- o.Upload(context.Background(), service.UploadRequest{Filename: "a.pdf"}) }()
		<-u.started

		if !o.Uploading() {
			t.Fatalf("expected uploading flag set")
		}
		if o.Store().IsLoading() {
			t.Fatalf("upload must not touch the chat loading flag")
		}
		if err := o.Upload(context.Background(), service.UploadRequest{Filename: "b.pdf"}); !errors.Is(err, ErrUploadInFlight) {
			t.Fatalf("expected ErrUploadInFlight, got %v", err)
		}
		close(u.release)
		if err := <-done; err != nil {
			t.Fatalf("expected first upload to succeed, got %v", err)
		}
		if u.calls != 1 {
			t.Fatalf("expected one gateway call, got %d", u.calls)
		}
	})
}

func TestOrchestrator_ClearSession(t *testing.T) {
	o := newTestOrchestrator(&fakeQueryGateway{}, &fakeUploadGateway{})
	_ = o.Send(context.Background(), "hola")
	o.Store().SetDocument(&domain.Document{ID: "d1"})

	o.ClearSession()
	st := o.Store().Snapshot()
	if len(st.Messages) != 0 || st.Document != nil || st.Error != nil {
		t.Fatalf("expected empty session, got %+v", st)
	}
}

func TestScenario_UnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	gw := service.NewQueryGateway(upstream.NewHTTPClient(endpoint, nil, nil), false, time.Second, zap.NewNop())
	o := newTestOrchestrator(gw, &fakeUploadGateway{})

	err := o.Send(context.Background(), "Find investors interested in fintech")
	gwErr := domain.AsGatewayError(err)
	if gwErr == nil || gwErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %v", err)
	}

	st := o.Store().Snapshot()
	if len(st.Messages) != 2 {
		t.Fatalf("expected one user and one assistant message, got %d", len(st.Messages))
	}
	if st.Messages[0].Role != domain.RoleUser || st.Messages[0].Content != "Find investors interested in fintech" {
		t.Fatalf("unexpected user message %+v", st.Messages[0])
	}
	reply := st.Messages[1]
	if reply.Role != domain.RoleAssistant || !strings.Contains(reply.Content, "Unable to connect") || !strings.Contains(reply.Content, endpoint) {
		t.Fatalf("unexpected assistant message %q", reply.Content)
	}
	if st.Error == nil {
		t.Fatalf("expected session error")
	}
}

func TestScenario_OversizedUploadRejectedLocally(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	gw := service.NewUploadGateway(upstream.NewHTTPClient(srv.URL, nil, nil), 0, nil, zap.NewNop())
	o := newTestOrchestrator(&fakeQueryGateway{}, gw)
	previous := domain.Document{ID: "existing", Name: "old.pdf"}
	o.Store().SetDocument(&previous)

	const size = 12 * 1024 * 1024
	err := o.Upload(context.Background(), service.UploadRequest{
		Filename:    "huge.pdf",
		ContentType: "application/pdf",
		Size:        size,
		Data:        bytes.Repeat([]byte{'a'}, size),
	})
	if !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no network call, got %d", hits)
	}
	if doc := o.Store().CurrentDocument(); doc == nil || doc.ID != "existing" {
		t.Fatalf("expected document unchanged, got %+v", doc)
	}
}
