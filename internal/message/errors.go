package message

import "errors"

// Error kinds. Components wrap these with fmt.Errorf("%w: ...") and callers
// classify with errors.Is. Only ErrConfiguration and ErrInput end a run before
// any audio is processed; the rest are contained per utterance.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrInput         = errors.New("input error")
	ErrTranscription = errors.New("transcription failure")
	ErrTranslation   = errors.New("translation failure")
	ErrSynthesis     = errors.New("synthesis failure")
	ErrLogging       = errors.New("logging failure")
)

// Input error details.
var (
	ErrUnsupportedFormat = &kindError{kind: ErrInput, msg: "unsupported format"}
	ErrNotFound          = &kindError{kind: ErrInput, msg: "not found"}
)

// kindError is a named error that also matches its parent kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *kindError) Unwrap() error { return e.kind }
