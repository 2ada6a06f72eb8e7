// Package session defines the language pair and the per-run Session owned by
// the pipeline controller.
//
// Language direction is always explicit: the user declares the source language
// and the target is its fixed complement within the two-language set. There is
// no auto-detection.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// Language is an ISO-639-1 code from the configured pair.
type Language string

const (
	// Vietnamese is the "vi" side of the pair.
	Vietnamese Language = "vi"

	// English is the "en" side of the pair.
	English Language = "en"
)

// Supported lists the two languages of the pair, in display order.
var Supported = []Language{Vietnamese, English}

// String returns the ISO code.
func (l Language) String() string { return string(l) }

// Name returns the English name of the language, used in translation prompts.
func (l Language) Name() string {
	switch l {
	case Vietnamese:
		return "Vietnamese"
	case English:
		return "English"
	default:
		return string(l)
	}
}

// ParseLanguage validates a user-supplied source code. Anything outside the
// pair is a configuration error.
func ParseLanguage(code string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(code))); l {
	case Vietnamese, English:
		return l, nil
	default:
		return "", fmt.Errorf("%w: unsupported source language %q (want vi or en)", message.ErrConfiguration, code)
	}
}

// Target returns the complement of l within the pair. It panics on a language
// outside the pair; callers validate with ParseLanguage first.
func Target(l Language) Language {
	switch l {
	case Vietnamese:
		return English
	case English:
		return Vietnamese
	default:
		panic(fmt.Sprintf("session: language %q is not part of the pair", l))
	}
}

// Mode selects between a single batch pass and the live loop.
type Mode string

const (
	// ModeBatch processes one pre-recorded file end-to-end.
	ModeBatch Mode = "batch"

	// ModeRealtime loops over microphone utterances until cancelled.
	ModeRealtime Mode = "realtime"
)

// Session is one run of the controller.
type Session struct {
	ID        string
	Mode      Mode
	Source    Language
	Target    Language
	StartTime time.Time

	// InputFile and Save apply to batch mode only.
	InputFile string
	Save      bool
}

// NewBatch creates a batch session for the given file.
func NewBatch(source Language, inputFile string, save bool) *Session {
	s := newSession(ModeBatch, source)
	s.InputFile = inputFile
	s.Save = save
	return s
}

// NewRealtime creates a realtime session.
func NewRealtime(source Language) *Session {
	return newSession(ModeRealtime, source)
}

func newSession(mode Mode, source Language) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Mode:      mode,
		Source:    source,
		Target:    Target(source),
		StartTime: time.Now(),
	}
}
