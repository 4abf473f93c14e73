package service

import "testing"

func TestFirstPresent(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"first alias wins", `{"response":"a","recommendation":"b"}`, "a", true},
		{"second alias used", `{"recommendation":"b"}`, "b", true},
		{"empty first falls through", `{"response":"","recommendation":"b"}`, "b", true},
		{"null first falls through", `{"response":null,"recommendation":"b"}`, "b", true},
		{"none present", `{"query":"q"}`, "", false},
		{"not json", `<html>`, "", false},
		{"array body", `["response"]`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := firstPresent([]byte(tc.body), replyFields...)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("expected (%q,%v), got (%q,%v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestFirstPresent_TextContentAliases(t *testing.T) {
	got, ok := firstPresent([]byte(`{"textContent":"camel","text_content":"snake"}`), extractedTextFields...)
	if !ok || got != "snake" {
		t.Fatalf("expected snake_case alias to win, got %q", got)
	}
	got, ok = firstPresent([]byte(`{"textContent":"camel"}`), extractedTextFields...)
	if !ok || got != "camel" {
		t.Fatalf("expected camelCase fallback, got %q", got)
	}
}
