package domain

import "time"

// ArchivedDocument es la copia opcional que un despliegue puede guardar de cada upload.
type ArchivedDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Digest      string    `json:"digest"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"-"`
	TextContent *string   `json:"text_content,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
