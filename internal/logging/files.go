package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Concern file names inside the logs directory.
const (
	SystemFile        = "system.txt"
	TranscriptionFile = "transcription.txt"
	TranslationFile   = "translation.txt"
)

// Set holds one logger per concern. Console output, when configured, is
// attached to every concern so --verbose shows the whole pipeline.
type Set struct {
	System        *slog.Logger
	Transcription *slog.Logger
	Translation   *slog.Logger

	files []*os.File
}

// Open creates dir if needed and opens the concern files in append mode.
// console may be nil.
func Open(dir string, level slog.Leveler, loc *time.Location, console slog.Handler) (*Set, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	s := &Set{}
	open := func(name string) (*slog.Logger, error) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		s.files = append(s.files, f)

		var h slog.Handler = NewLineHandler(f, level, loc)
		if console != nil {
			h = Fanout{h, console}
		}
		return slog.New(h), nil
	}

	var err error
	if s.System, err = open(SystemFile); err != nil {
		s.Close()
		return nil, err
	}
	if s.Transcription, err = open(TranscriptionFile); err != nil {
		s.Close()
		return nil, err
	}
	if s.Translation, err = open(TranslationFile); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Discard returns a Set whose loggers drop everything. Used by tests.
func Discard() *Set {
	l := slog.New(NewLineHandler(discardWriter{}, slog.LevelError+1, time.UTC))
	return &Set{System: l, Transcription: l, Translation: l}
}

// Close closes the underlying files.
func (s *Set) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
