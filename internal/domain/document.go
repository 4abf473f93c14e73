package domain

import "time"

// Document representa el pitch deck activo de la sesion.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UploadedAt  time.Time `json:"uploadedAt"`
	TextContent *string   `json:"textContent,omitempty"`
}

// Text devuelve el texto extraido o "" si el extractor no devolvio contenido.
func (d *Document) Text() string {
	if d == nil || d.TextContent == nil {
		return ""
	}
	return *d.TextContent
}
