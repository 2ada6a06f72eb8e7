// Package message defines the core data types flowing through the interpreter pipeline.
package message

import (
	"time"
)

// Utterance is one unit of speech to interpret.
type Utterance struct {
	// Audio is the raw audio payload (a complete file or a WAV-wrapped capture).
	// It is released once the utterance has been transcribed.
	Audio []byte `json:"-"`

	// ContentType is the MIME type of Audio (e.g., "audio/wav", "audio/mpeg").
	ContentType string `json:"content_type"`

	// Filename is a hint for multipart uploads (e.g., "speech.wav").
	Filename string `json:"filename,omitempty"`

	// CapturedAt is when the utterance was loaded or finished recording.
	CapturedAt time.Time `json:"captured_at"`

	// Duration is the audio length in seconds, 0 when unknown.
	Duration float64 `json:"duration_seconds"`
}

// HasAudio returns true if the utterance still holds its audio payload.
func (u *Utterance) HasAudio() bool {
	return len(u.Audio) > 0
}

// Release drops the audio buffer. Called right after transcription.
func (u *Utterance) Release() {
	u.Audio = nil
}

// TranscriptionResult is the text recognized from one utterance.
type TranscriptionResult struct {
	// Text is the recognized text, empty when no speech was detected.
	Text string `json:"text"`

	// Language echoes the session's declared source language.
	Language string `json:"language"`

	// ProcessingTime is the transcription latency in seconds.
	ProcessingTime float64 `json:"processing_time"`

	// Timestamp is when the transcription completed.
	Timestamp time.Time `json:"timestamp"`
}

// TranslationResult is the translated text for one transcript.
type TranslationResult struct {
	RawTranscript  string    `json:"raw_transcript"`
	TranslatedText string    `json:"translated_text"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	ProcessingTime float64   `json:"processing_time"`
	Timestamp      time.Time `json:"timestamp"`
}

// InterpreterResult is the batch-mode output, one per invocation.
type InterpreterResult struct {
	InputFile           string               `json:"input_file"`
	Transcription       *TranscriptionResult `json:"transcription"`
	Translation         *TranslationResult   `json:"translation"`
	ProcessingTimestamp time.Time            `json:"processing_timestamp"`
	TotalProcessingTime float64              `json:"total_processing_time"`
}

// ConversationLogEntry is one logged line per completed utterance.
type ConversationLogEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	SourceLanguage string    `json:"source_language"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
}

// NewConversationLogEntry builds the log entry for a completed translation.
// The timestamp is truncated to whole seconds, the resolution of the log file.
func NewConversationLogEntry(tr *TranslationResult) ConversationLogEntry {
	return ConversationLogEntry{
		Timestamp:      tr.Timestamp.Truncate(time.Second),
		SourceLanguage: tr.SourceLanguage,
		OriginalText:   tr.RawTranscript,
		TranslatedText: tr.TranslatedText,
	}
}
