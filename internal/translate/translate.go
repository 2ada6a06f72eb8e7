// Package translate converts a transcript into the other language of the pair,
// retrying transient backend failures with exponential backoff.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/session"
)

// Backend is a text translation engine.
type Backend interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Translate renders text from source into target (language names, e.g. "Vietnamese").
	Translate(ctx context.Context, text, source, target string) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// StatusError is a non-2xx response from a translation API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// IsTransient reports whether err is worth retrying: timeouts, connection
// failures and HTTP 408, 429 or 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 408 || se.Code == 429 || se.Code >= 500
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// Dial, read and write failures. A *url.Error alone is not enough: it
	// also wraps bad schemes, malformed URLs and certificate errors.
	var oe *net.OpError
	return errors.As(err, &oe)
}

// RetryPolicy bounds the attempts made for one transcript.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AttemptTimeout bounds each individual attempt.
	AttemptTimeout time.Duration
}

// Stats are cumulative counters for a Service.
type Stats struct {
	Requests int64 `json:"requests"`
	Attempts int64 `json:"attempts"`
	Retries  int64 `json:"retries"`
	Failures int64 `json:"failures"`
}

// Service wraps a Backend with the retry policy and translation logging.
type Service struct {
	backend Backend
	policy  RetryPolicy
	logger  *slog.Logger

	requests atomic.Int64
	attempts atomic.Int64
	retries  atomic.Int64
	failures atomic.Int64
}

// New creates a translation service.
func New(backend Backend, policy RetryPolicy, logger *slog.Logger) *Service {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = 500 * time.Millisecond
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = 4 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		policy:  policy,
		logger:  logger.With("backend", backend.Name()),
	}
}

// Translate renders text from source into its pair complement. Failures,
// including exhausted retries, wrap message.ErrTranslation.
func (s *Service) Translate(ctx context.Context, text string, source session.Language) (*message.TranslationResult, error) {
	target := session.Target(source)
	s.requests.Add(1)

	start := time.Now()
	attempt := 0
	var translated string

	op := func() error {
		attempt++
		s.attempts.Add(1)
		if attempt > 1 {
			s.retries.Add(1)
		}

		actx := ctx
		if s.policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, s.policy.AttemptTimeout)
			defer cancel()
		}

		out, err := s.backend.Translate(actx, text, source.Name(), target.Name())
		if err == nil {
			out = strings.TrimSpace(out)
			if out == "" {
				return backoff.Permanent(errors.New("empty translation"))
			}
			translated = out
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("translation attempt failed",
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"error", err)
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.policy.InitialBackoff
	eb.MaxInterval = s.policy.MaxBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.policy.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		s.failures.Add(1)
		s.logger.Error("translation failed",
			"source", source,
			"target", target,
			"attempts", attempt,
			"error", err)
		return nil, fmt.Errorf("%w: after %d attempt(s): %v", message.ErrTranslation, attempt, err)
	}

	res := &message.TranslationResult{
		RawTranscript:  text,
		TranslatedText: translated,
		SourceLanguage: source.String(),
		TargetLanguage: target.String(),
		ProcessingTime: time.Since(start).Seconds(),
		Timestamp:      time.Now(),
	}
	s.logger.Info("translation complete",
		"source", source,
		"target", target,
		"original", text,
		"translated", translated,
		"attempts", attempt,
		"processing_time", res.ProcessingTime)
	return res, nil
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Requests: s.requests.Load(),
		Attempts: s.attempts.Load(),
		Retries:  s.retries.Load(),
		Failures: s.failures.Load(),
	}
}

// Name returns the backend identifier.
func (s *Service) Name() string { return s.backend.Name() }

// Close closes the backend.
func (s *Service) Close() error { return s.backend.Close() }

// SystemPrompt is the instruction sent to chat-style backends.
func SystemPrompt(source, target string) string {
	return fmt.Sprintf("You are a professional interpreter. Translate the user's %s text into %s. "+
		"Preserve meaning, tone and names. Reply with the translation only, "+
		"without quotes, notes or explanations.", source, target)
}
