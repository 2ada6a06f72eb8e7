package convlog

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

func bangkok(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatLine(t *testing.T) {
	t.Parallel()

	loc := bangkok(t)
	e := message.ConversationLogEntry{
		Timestamp:      time.Date(2025, 1, 15, 7, 3, 7, 0, time.UTC),
		SourceLanguage: "vi",
		OriginalText:   "Xin chào",
		TranslatedText: "Hello",
	}
	want := `[2025-01-15 14:03:07 +0700] [vi] "Xin chào" -> "Hello"` + "\n"
	if got := FormatLine(e, loc); got != want {
		t.Fatalf("FormatLine = %q, want %q", got, want)
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	t.Parallel()

	loc := bangkok(t)
	texts := []string{
		"Xin chào",
		`he said "hi" -> left`,
		"line one\nline two\ttabbed",
		"] [en] \"",
		"",
		"Tôi tên là Minh. Bạn khỏe không?",
		"invalid utf8 \xff\xfe",
	}
	for _, orig := range texts {
		for _, translated := range texts {
			e := message.ConversationLogEntry{
				Timestamp:      time.Date(2025, 3, 9, 23, 59, 59, 0, loc),
				SourceLanguage: "en",
				OriginalText:   orig,
				TranslatedText: translated,
			}
			line := FormatLine(e, loc)
			if strings.Count(line, "\n") != 1 {
				t.Fatalf("line is not single: %q", line)
			}
			got, err := ParseLine(line)
			if err != nil {
				t.Fatalf("ParseLine(%q): %v", line, err)
			}
			if got.OriginalText != orig || got.TranslatedText != translated {
				t.Errorf("round trip mismatch: %q -> %q, got %q -> %q", orig, translated, got.OriginalText, got.TranslatedText)
			}
			if !got.Timestamp.Equal(e.Timestamp) || got.SourceLanguage != "en" {
				t.Errorf("header mismatch: %+v", got)
			}
		}
	}
}

func TestParseLineMalformed(t *testing.T) {
	t.Parallel()

	lines := []string{
		"",
		"no brackets",
		`[2025-01-15 14:03:07 +0700] [vi] Xin chào -> "Hello"`,
		`[2025-01-15 14:03:07 +0700] [vi] "Xin chào" => "Hello"`,
		`[2025-01-15 14:03:07 +0700] [vi] "Xin chào" -> "Hello" trailing`,
		`[yesterday] [vi] "a" -> "b"`,
	}
	for _, line := range lines {
		if _, err := ParseLine(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseLine(%q) error = %v, want malformed", line, err)
		}
	}
}

func TestLoggerRecordAndReadDay(t *testing.T) {
	t.Parallel()

	loc := bangkok(t)
	dir := t.TempDir()
	l, err := New(dir, loc, 0, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	day := time.Date(2025, 1, 15, 9, 0, 0, 0, loc)
	entries := []message.ConversationLogEntry{
		{Timestamp: day, SourceLanguage: "vi", OriginalText: "Xin chào", TranslatedText: "Hello"},
		{Timestamp: day.Add(time.Minute), SourceLanguage: "en", OriginalText: `say "cheese"`, TranslatedText: "nói \"cheese\""},
	}
	for _, e := range entries {
		l.Record(e)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.Written() != 2 || l.Dropped() != 0 {
		t.Fatalf("written=%d dropped=%d", l.Written(), l.Dropped())
	}

	got, err := ReadDay(dir, day, loc)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i].OriginalText != entries[i].OriginalText || got[i].TranslatedText != entries[i].TranslatedText ||
			got[i].SourceLanguage != entries[i].SourceLanguage || !got[i].Timestamp.Equal(entries[i].Timestamp) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestLoggerRotatesByLocalDay(t *testing.T) {
	t.Parallel()

	loc := bangkok(t)
	dir := t.TempDir()
	l, err := New(dir, loc, 0, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 16:30 UTC is 23:30 in Bangkok; 17:30 UTC is the next day there.
	l.Record(message.ConversationLogEntry{Timestamp: time.Date(2025, 1, 15, 16, 30, 0, 0, time.UTC), SourceLanguage: "vi", OriginalText: "a", TranslatedText: "b"})
	l.Record(message.ConversationLogEntry{Timestamp: time.Date(2025, 1, 15, 17, 30, 0, 0, time.UTC), SourceLanguage: "vi", OriginalText: "c", TranslatedText: "d"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"conversation_2025-01-15.txt", "conversation_2025-01-16.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if strings.Count(string(data), "\n") != 1 {
			t.Errorf("%s has %q, want one line", name, data)
		}
	}
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	l, err := New(t.TempDir(), time.UTC, 1, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	l.Record(message.ConversationLogEntry{Timestamp: time.Now(), SourceLanguage: "en", OriginalText: "late"})
	if l.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", l.Dropped())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestReadDayMissingFile(t *testing.T) {
	t.Parallel()

	got, err := ReadDay(t.TempDir(), time.Now(), time.UTC)
	if err != nil || got != nil {
		t.Fatalf("ReadDay = %v, %v; want nil, nil", got, err)
	}
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWriteFailureIsContained(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "conversations")
	var sink syncBuffer
	l, err := New(dir, time.UTC, 0, slog.New(slog.NewTextHandler(&sink, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A regular file where the directory was makes every open fail, even as root.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	const n = 5
	start := time.Now()
	for i := 0; i < n; i++ {
		l.Record(message.ConversationLogEntry{Timestamp: time.Now(), SourceLanguage: "vi", OriginalText: strings.Repeat("a", i+1), TranslatedText: "b"})
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Record took %v with a failing disk", elapsed)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if l.Dropped() != n || l.Written() != 0 {
		t.Fatalf("dropped=%d written=%d, want %d/0", l.Dropped(), l.Written(), n)
	}
	out := sink.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "writing conversation log") {
		t.Fatalf("system log = %q, want an error line", out)
	}
}

// flakyFile fails the first write halfway through.
type flakyFile struct {
	buf        bytes.Buffer
	writes     int
	truncFails bool
}

func (f *flakyFile) WriteString(s string) (int, error) {
	f.writes++
	if f.writes == 1 {
		half := s[:len(s)/2]
		f.buf.WriteString(half)
		return len(half), errors.New("no space left on device")
	}
	return f.buf.WriteString(s)
}

func (f *flakyFile) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekEnd {
		return 0, errors.New("unsupported whence")
	}
	return int64(f.buf.Len()) + offset, nil
}

func (f *flakyFile) Truncate(size int64) error {
	if f.truncFails {
		return errors.New("read-only file system")
	}
	f.buf.Truncate(int(size))
	return nil
}

func (f *flakyFile) Sync() error  { return nil }
func (f *flakyFile) Close() error { return nil }

func TestPartialWriteDoesNotCorruptNextLine(t *testing.T) {
	t.Parallel()

	for _, truncFails := range []bool{false, true} {
		f := &flakyFile{truncFails: truncFails}
		f.buf.WriteString("[2025-01-15 09:00:00 +0000] [vi] \"cũ\" -> \"old\"\n")
		l := &Logger{loc: time.UTC, logger: quietLogger(), open: func(string) (lineFile, error) { return f, nil }}

		day := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
		lost := message.ConversationLogEntry{Timestamp: day, SourceLanguage: "vi", OriginalText: "mất", TranslatedText: "lost"}
		kept := message.ConversationLogEntry{Timestamp: day.Add(time.Second), SourceLanguage: "en", OriginalText: "kept", TranslatedText: "giữ"}

		if err := l.write(lost); err == nil {
			t.Fatalf("truncFails=%v: first write succeeded", truncFails)
		}
		if err := l.write(kept); err != nil {
			t.Fatalf("truncFails=%v: second write: %v", truncFails, err)
		}

		lines := strings.Split(strings.TrimSuffix(f.buf.String(), "\n"), "\n")
		first, err := ParseLine(lines[0])
		if err != nil || first.TranslatedText != "old" {
			t.Fatalf("truncFails=%v: earlier line damaged: %q (%v)", truncFails, lines[0], err)
		}
		last, err := ParseLine(lines[len(lines)-1])
		if err != nil || last.OriginalText != "kept" {
			t.Fatalf("truncFails=%v: line after failure = %q (%v)", truncFails, lines[len(lines)-1], err)
		}
		wantLines := 2
		if truncFails {
			wantLines = 3
		}
		if len(lines) != wantLines {
			t.Fatalf("truncFails=%v: file = %q, want %d lines", truncFails, f.buf.String(), wantLines)
		}
	}
}
