// Package local implements translation with a self-hosted LLM.
//
// Endpoints ending in /api/generate use Ollama's native format; anything
// else is treated as an OpenAI-compatible chat endpoint (Ollama, vLLM,
// llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Hihi1310/vietnamese-interpreter/internal/config"
	"github.com/Hihi1310/vietnamese-interpreter/internal/translate"
)

// Backend translates with a local model.
type Backend struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a new local translation backend from config.
func New(cfg config.LocalConfig) *Backend {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &Backend{
		endpoint: cfg.Endpoint,
		model:    model,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "local" }

func (b *Backend) Translate(ctx context.Context, text, source, target string) (string, error) {
	system := translate.SystemPrompt(source, target)

	var reqBody map[string]any
	if strings.HasSuffix(b.endpoint, "/api/generate") {
		reqBody = map[string]any{
			"model":  b.model,
			"system": system,
			"prompt": text,
			"stream": false,
		}
	} else {
		reqBody = map[string]any{
			"model": b.model,
			"messages": []map[string]string{
				{"role": "system", "content": system},
				{"role": "user", "content": text},
			},
			"temperature": 0.2,
			"stream":      false,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local LLM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &translate.StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading LLM response: %w", err)
	}

	content := extractContent(respData)
	if content == "" {
		return "", errors.New("empty response from local LLM")
	}
	return content, nil
}

// Close is a no-op for the local backend.
func (b *Backend) Close() error { return nil }

func extractContent(data []byte) string {
	// OpenAI-compatible: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	// Ollama: {"response": "..."}
	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil {
		return ollamaResp.Response
	}
	return ""
}
