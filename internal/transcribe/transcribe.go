// Package transcribe turns utterance audio into text through a pluggable
// speech-to-text backend.
//
// The language is always the session's declared source language. Backends
// are never asked to detect it.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/session"
)

// Options controls a single transcription request.
type Options struct {
	// Language is the ISO-639-1 code of the spoken language.
	Language string

	// Filename is the upload name hint, e.g. "speech.wav".
	Filename string
}

// Backend is a speech-to-text engine.
type Backend interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts Options) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Service wraps a Backend with a per-call timeout, timing and logging.
type Service struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a transcription service. A zero timeout means no limit beyond ctx.
func New(backend Backend, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		timeout: timeout,
		logger:  logger.With("backend", backend.Name()),
	}
}

// Transcribe recognizes the utterance's speech in lang. The result text is
// trimmed and may be empty when no speech was recognized. Backend failures
// wrap message.ErrTranscription.
func (s *Service) Transcribe(ctx context.Context, u *message.Utterance, lang session.Language) (*message.TranscriptionResult, error) {
	if !u.HasAudio() {
		return nil, fmt.Errorf("%w: utterance has no audio", message.ErrTranscription)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug("transcribing", "language", lang, "content_type", u.ContentType, "bytes", len(u.Audio))

	start := time.Now()
	text, err := s.backend.Transcribe(ctx, u.Audio, u.ContentType, Options{
		Language: lang.String(),
		Filename: u.Filename,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("transcription failed", "language", lang, "elapsed", elapsed, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", message.ErrTranscription, s.backend.Name(), err)
	}

	res := &message.TranscriptionResult{
		Text:           strings.TrimSpace(text),
		Language:       lang.String(),
		ProcessingTime: elapsed.Seconds(),
		Timestamp:      time.Now(),
	}
	if res.Text == "" {
		s.logger.Info("no speech recognized", "language", lang, "elapsed", elapsed)
	} else {
		s.logger.Info("transcription complete",
			"language", lang,
			"text", res.Text,
			"processing_time", res.ProcessingTime)
	}
	return res, nil
}

// Name returns the backend identifier.
func (s *Service) Name() string { return s.backend.Name() }

// Close closes the backend.
func (s *Service) Close() error { return s.backend.Close() }

// ExtFromContentType returns a file extension for multipart uploads.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// UploadName picks the multipart filename: the hint when it has an
// extension, otherwise "audio" plus one derived from the content type.
func UploadName(opts Options, contentType string) string {
	if opts.Filename != "" && strings.Contains(opts.Filename, ".") {
		return opts.Filename
	}
	return "audio" + ExtFromContentType(contentType)
}
