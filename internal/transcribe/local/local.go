// Package local implements transcription against a self-hosted Whisper
// server.
//
// Two flavors are supported:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Hihi1310/vietnamese-interpreter/internal/config"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transcribe"
)

// Backend talks to a local Whisper-compatible endpoint.
type Backend struct {
	endpoint  string
	flavor    string
	model     string
	vadFilter bool
	client    *http.Client
}

// New creates a new local transcription backend from config.
func New(cfg config.LocalConfig) *Backend {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	return &Backend{
		endpoint:  cfg.Endpoint,
		flavor:    flavor,
		model:     cfg.Model,
		vadFilter: cfg.VADFilter,
		client:    &http.Client{},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "local" }

func (b *Backend) Transcribe(ctx context.Context, audio []byte, contentType string, opts transcribe.Options) (string, error) {
	switch b.flavor {
	case "asr":
		return b.transcribeASR(ctx, audio, contentType, opts)
	default:
		return b.transcribeOpenAI(ctx, audio, contentType, opts)
	}
}

// transcribeASR handles the whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=vi&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (b *Backend) transcribeASR(ctx context.Context, audio []byte, contentType string, opts transcribe.Options) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio_file", transcribe.UploadName(opts, contentType))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	writer.Close()

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if b.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := b.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	slog.Debug("whisper-asr request", "url", reqURL)

	return b.do(req, "asr transcription")
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (b *Backend) transcribeOpenAI(ctx context.Context, audio []byte, contentType string, opts transcribe.Options) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", transcribe.UploadName(opts, contentType))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if b.model != "" {
		_ = writer.WriteField("model", b.model)
	}
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return b.do(req, "local transcription")
}

func (b *Backend) do(req *http.Request, what string) (string, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s failed (status %d): %s", what, resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding %s: %w", what, err)
	}
	return result.Text, nil
}

// Close is a no-op for the local backend.
func (b *Backend) Close() error { return nil }
