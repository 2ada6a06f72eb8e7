// Package output persists batch results as JSON files that never overwrite
// one another.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

const maxSuffix = 1000

// Writer writes InterpreterResult files into a directory.
type Writer struct {
	dir string
	loc *time.Location
	now func() time.Time
}

// NewWriter creates a writer. File names use the wall clock in loc.
func NewWriter(dir string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{dir: dir, loc: loc, now: time.Now}
}

// Write stores result as pretty-printed JSON and returns the file path.
// Names are interpreter_result_YYYYMMDD_HHMMSS_<nanos>.json; an existing
// name gets a numeric suffix instead of being replaced.
func (w *Writer) Write(result *message.InterpreterResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}

	now := w.now().In(w.loc)
	base := fmt.Sprintf("interpreter_result_%s_%09d", now.Format("20060102_150405"), now.Nanosecond())

	for i := 0; i < maxSuffix; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating result file: %w", err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return "", fmt.Errorf("writing result file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing result file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free result file name for %s", base)
}
