package upstream

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar al backend real.
type MockClient struct {
	mu sync.Mutex

	BaseURL        string
	ChatResponse   *Response
	UploadResponse *Response
	Err            error

	ChatCalls    int
	UploadCalls  int
	LastChat     ChatRequest
	LastFilename string
	LastType     string
	LastUpload   []byte
}

func (m *MockClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls++
	m.LastChat = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ChatResponse, nil
}

func (m *MockClient) Upload(ctx context.Context, filename, contentType string, data []byte) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadCalls++
	m.LastFilename = filename
	m.LastType = contentType
	m.LastUpload = data
	if m.Err != nil {
		return nil, m.Err
	}
	return m.UploadResponse, nil
}

func (m *MockClient) Endpoint() string {
	return m.BaseURL
}

// Calls devuelve el total de llamadas de red simuladas.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ChatCalls + m.UploadCalls
}
