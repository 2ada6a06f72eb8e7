package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Hihi1310/vietnamese-interpreter/internal/config"
	"github.com/Hihi1310/vietnamese-interpreter/internal/translate"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Messages[0].Content, "Vietnamese text into English") {
			t.Errorf("system prompt = %q", req.Messages[0].Content)
		}
		if req.Messages[1].Content != "Xin chào" {
			t.Errorf("user message = %q", req.Messages[1].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello"}}]}`))
	}))
	defer srv.Close()

	b := New(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	out, err := b.Translate(context.Background(), "Xin chào", "Vietnamese", "English")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := New(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := b.Translate(context.Background(), "Hello", "English", "Vietnamese")
	var se *translate.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want status 429", err)
	}
	if !translate.IsTransient(err) {
		t.Fatal("429 should be transient")
	}
}
