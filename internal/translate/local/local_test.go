package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Hihi1310/vietnamese-interpreter/internal/config"
)

func TestTranslateOllamaGenerate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req["prompt"] != "Hello" || req["model"] != "llama3" || req["stream"] != false {
			t.Errorf("request = %v", req)
		}
		_, _ = w.Write([]byte(`{"response":"Xin chào","done":true}`))
	}))
	defer srv.Close()

	b := New(config.LocalConfig{Endpoint: srv.URL + "/api/generate"})
	out, err := b.Translate(context.Background(), "Hello", "English", "Vietnamese")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Xin chào" {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateChatCompatible(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if _, ok := req["messages"]; !ok {
			t.Errorf("missing messages: %v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello"}}]}`))
	}))
	defer srv.Close()

	b := New(config.LocalConfig{Endpoint: srv.URL + "/v1/chat/completions", Model: "qwen2"})
	out, err := b.Translate(context.Background(), "Xin chào", "Vietnamese", "English")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateEmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	b := New(config.LocalConfig{Endpoint: srv.URL + "/api/generate"})
	if _, err := b.Translate(context.Background(), "Hello", "English", "Vietnamese"); err == nil {
		t.Fatal("expected error for empty response")
	}
}
