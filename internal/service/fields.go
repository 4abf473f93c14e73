package service

import "github.com/tidwall/gjson"

// Alias conocidos por tipo de respuesta del backend, en orden de preferencia.
var (
	replyFields         = []string{"response", "recommendation"}
	extractedTextFields = []string{"text_content", "textContent"}
	uploadIDFields      = []string{"id"}
	upstreamErrorFields = []string{"error", "detail", "message"}
)

// firstPresent devuelve el primer alias con valor no nulo y no vacio.
func firstPresent(body []byte, aliases ...string) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return "", false
	}
	for _, alias := range aliases {
		v := doc.Get(alias)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := v.String(); s != "" {
			return s, true
		}
	}
	return "", false
}
