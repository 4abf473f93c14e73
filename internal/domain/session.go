package domain

// SessionState es el agregado que posee el SessionStore del cliente.
type SessionState struct {
	Messages  []Message `json:"messages"`
	Document  *Document `json:"document,omitempty"`
	IsLoading bool      `json:"isLoading"`
	Error     *string   `json:"error,omitempty"`
}

// Clone devuelve una copia que no comparte el slice de mensajes ni los punteros.
func (s SessionState) Clone() SessionState {
	out := SessionState{IsLoading: s.IsLoading}
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.Document != nil {
		doc := *s.Document
		if s.Document.TextContent != nil {
			text := *s.Document.TextContent
			doc.TextContent = &text
		}
		out.Document = &doc
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}
