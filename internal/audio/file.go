// Package audio produces utterances for the pipeline: whole files in batch
// mode and silence-bounded microphone segments in realtime mode.
package audio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// contentTypes maps file extensions to the MIME types sent to transcription APIs.
var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
}

// FileLoader loads a pre-recorded file as a single utterance.
type FileLoader struct {
	allowed map[string]bool
}

// NewFileLoader creates a loader accepting the given extensions (".wav" or "wav").
func NewFileLoader(extensions []string) *FileLoader {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &FileLoader{allowed: allowed}
}

// LoadFile returns one utterance spanning the whole file. The extension is
// checked before the filesystem so an unsupported file is rejected even when
// it does not exist.
func (l *FileLoader) LoadFile(path string) (*message.Utterance, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !l.allowed[ext] {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", message.ErrUnsupportedFormat, ext, l.allowedList())
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", message.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", message.ErrInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", message.ErrNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", message.ErrInput, path, err)
	}

	contentType := contentTypes[ext]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &message.Utterance{
		Audio:       data,
		ContentType: contentType,
		Filename:    filepath.Base(path),
		CapturedAt:  time.Now(),
		Duration:    fileDuration(ext, data),
	}, nil
}

func (l *FileLoader) allowedList() string {
	exts := make([]string, 0, len(l.allowed))
	for ext := range l.allowed {
		exts = append(exts, ext)
	}
	return strings.Join(exts, ", ")
}

// fileDuration decodes the WAV header; other containers report 0.
func fileDuration(ext string, data []byte) float64 {
	if ext != ".wav" {
		return 0
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return 0
	}
	dur, err := d.Duration()
	if err != nil {
		return 0
	}
	return dur.Seconds()
}
