// Package tts speaks translations back to the user.
//
// A Synthesizer turns text into PCM audio; a Speaker plays that audio through
// an audio.Player and returns only once playback is finished or cancelled.
package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/audio"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// Speech is synthesized audio.
type Speech struct {
	// Samples are interleaved 16-bit PCM samples.
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the playback length.
func (s *Speech) Duration() time.Duration {
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return 0
	}
	frames := len(s.Samples) / s.Channels
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates speech for text in lang (ISO-639-1).
	Synthesize(ctx context.Context, text, lang string) (*Speech, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Speaker synthesizes and plays text.
type Speaker struct {
	synth  Synthesizer
	player audio.Player
	logger *slog.Logger
}

// NewSpeaker creates a speaker.
func NewSpeaker(synth Synthesizer, player audio.Player, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{synth: synth, player: player, logger: logger}
}

// Speak synthesizes text and blocks until playback completes. Cancelling ctx
// stops playback. Failures wrap message.ErrSynthesis; cancellation is
// returned as the context error.
func (s *Speaker) Speak(ctx context.Context, text, lang string) error {
	speech, err := s.synth.Synthesize(ctx, text, lang)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: synthesizing: %v", message.ErrSynthesis, err)
	}

	s.logger.Debug("playing speech", "language", lang, "duration", speech.Duration())
	if err := s.player.Play(ctx, speech.Samples, speech.SampleRate, speech.Channels); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: playback: %v", message.ErrSynthesis, err)
	}
	return nil
}

// Close closes the synthesizer.
func (s *Speaker) Close() error { return s.synth.Close() }
