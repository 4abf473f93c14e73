package client

import (
	"sync"

	"deal-fit/internal/domain"
)

// Listener recibe una copia del estado despues de cada transicion.
type Listener func(state domain.SessionState)

type subscription struct {
	id int
	fn Listener
}

// SessionStore es la unica fuente de verdad del SessionState del cliente.
// Todas las mutaciones pasan por sus transiciones; ninguna es visible a medias.
type SessionStore struct {
	// notifyMu serializa transicion y entrega: los observers ven las
	// transiciones en el mismo orden en que ocurrieron.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	state     domain.SessionState
	listeners []subscription
	nextID    int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		state: domain.SessionState{Messages: []domain.Message{}},
	}
}

// Snapshot devuelve una copia consistente del estado actual.
func (s *SessionStore) Snapshot() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// CurrentDocument devuelve una copia del documento activo o nil.
func (s *SessionStore) CurrentDocument() *domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Document == nil {
		return nil
	}
	doc := *s.state.Document
	if doc.TextContent != nil {
		text := *doc.TextContent
		doc.TextContent = &text
	}
	return &doc
}

// IsLoading indica si hay un envio de chat en curso.
func (s *SessionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

// Subscribe registra fn y devuelve la funcion para desuscribirse.
// fn puede leer el store pero no mutarlo.
func (s *SessionStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *SessionStore) AppendMessage(m domain.Message) {
	s.update(func(st *domain.SessionState) {
		st.Messages = append(st.Messages, m)
	})
}

func (s *SessionStore) SetLoading(flag bool) {
	s.update(func(st *domain.SessionState) {
		st.IsLoading = flag
	})
}

// SetError reemplaza el slot de error; nil lo limpia.
func (s *SessionStore) SetError(msg *string) {
	var stored *string
	if msg != nil {
		text := *msg
		stored = &text
	}
	s.update(func(st *domain.SessionState) {
		st.Error = stored
	})
}

// SetDocument reemplaza el documento activo completo; nil lo quita.
func (s *SessionStore) SetDocument(doc *domain.Document) {
	var stored *domain.Document
	if doc != nil {
		d := *doc
		stored = &d
	}
	s.update(func(st *domain.SessionState) {
		st.Document = stored
	})
}

// Clear vacia mensajes, documento y error. IsLoading queda a cargo del llamador.
func (s *SessionStore) Clear() {
	s.update(func(st *domain.SessionState) {
		st.Messages = []domain.Message{}
		st.Document = nil
		st.Error = nil
	})
}

func (s *SessionStore) update(mutate func(st *domain.SessionState)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state.Clone()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}
