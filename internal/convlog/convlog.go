// Package convlog keeps the human-readable conversation transcript: one line
// per interpreted utterance, one file per calendar day.
//
// A line looks like
//
//	[2025-01-15 14:03:07 +0700] [vi] "Xin chào" -> "Hello"
//
// Both texts are Go-quoted so any content survives a round trip through
// ParseLine unchanged.
package convlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/logging"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

const (
	filePrefix = "conversation_"
	fileSuffix = ".txt"
	dayLayout  = "2006-01-02"
	arrow      = " -> "

	// DefaultQueueSize bounds entries waiting for the writer.
	DefaultQueueSize = 256
)

// lineFile is the part of *os.File the writer uses.
type lineFile interface {
	io.StringWriter
	io.Seeker
	Truncate(size int64) error
	Sync() error
	Close() error
}

func openAppend(name string) (lineFile, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Logger appends entries from a background writer. Record never blocks.
type Logger struct {
	dir    string
	loc    *time.Location
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan message.ConversationLogEntry
	done   chan struct{}

	open func(name string) (lineFile, error)

	// writer-owned
	file lineFile
	day  string

	// partial is set when a failed write left an unterminated line behind.
	partial bool

	written atomic.Int64
	dropped atomic.Int64
}

// New creates dir if needed and starts the writer. queueSize <= 0 uses
// DefaultQueueSize.
func New(dir string, loc *time.Location, queueSize int, logger *slog.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating conversations dir: %v", message.ErrLogging, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		dir:    dir,
		loc:    loc,
		logger: logger,
		open:   openAppend,
		queue:  make(chan message.ConversationLogEntry, queueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Record queues e for writing. Failures and overflow are reported to the
// system log only.
func (l *Logger) Record(e message.ConversationLogEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		l.logger.Warn("conversation log closed, entry dropped", "source_language", e.SourceLanguage)
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
		l.logger.Warn("conversation log queue full, entry dropped", "source_language", e.SourceLanguage)
	}
}

// Close drains queued entries and closes the current file.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Written returns the number of lines written.
func (l *Logger) Written() int64 { return l.written.Load() }

// Dropped returns the number of entries that were never written.
func (l *Logger) Dropped() int64 { return l.dropped.Load() }

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		if err := l.write(e); err != nil {
			l.dropped.Add(1)
			l.logger.Error("writing conversation log", "error", err)
			continue
		}
		l.written.Add(1)
	}
}

func (l *Logger) write(e message.ConversationLogEntry) error {
	ts := e.Timestamp.In(l.loc)
	if day := ts.Format(dayLayout); day != l.day || l.file == nil {
		if l.file != nil {
			_ = l.file.Close()
			l.file = nil
		}
		f, err := l.open(filepath.Join(l.dir, filePrefix+day+fileSuffix))
		if err != nil {
			return fmt.Errorf("%w: %v", message.ErrLogging, err)
		}
		l.file, l.day, l.partial = f, day, false
	}

	line := FormatLine(e, l.loc)
	if l.partial {
		line = "\n" + line
	}
	// Appends always land at the end, so the end is where this line starts.
	start, seekErr := l.file.Seek(0, io.SeekEnd)
	if _, err := l.file.WriteString(line); err != nil {
		if seekErr != nil || l.file.Truncate(start) != nil {
			l.partial = true
		}
		return fmt.Errorf("%w: %v", message.ErrLogging, err)
	}
	l.partial = false
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", message.ErrLogging, err)
	}
	return nil
}

// FileName returns the log file name for the day containing t in loc.
func FileName(t time.Time, loc *time.Location) string {
	return filePrefix + t.In(loc).Format(dayLayout) + fileSuffix
}

// FormatLine renders e as one newline-terminated line.
func FormatLine(e message.ConversationLogEntry, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(e.Timestamp.In(loc).Format(logging.TimeLayout))
	sb.WriteString("] [")
	sb.WriteString(e.SourceLanguage)
	sb.WriteString("] ")
	sb.WriteString(strconv.Quote(e.OriginalText))
	sb.WriteString(arrow)
	sb.WriteString(strconv.Quote(e.TranslatedText))
	sb.WriteByte('\n')
	return sb.String()
}

// ErrMalformedLine is returned by ParseLine for text not produced by FormatLine.
var ErrMalformedLine = errors.New("malformed conversation log line")

// ParseLine is the inverse of FormatLine. The trailing newline is optional.
func ParseLine(line string) (message.ConversationLogEntry, error) {
	var e message.ConversationLogEntry
	rest := strings.TrimSuffix(line, "\n")

	bad := func(what string) (message.ConversationLogEntry, error) {
		return message.ConversationLogEntry{}, fmt.Errorf("%w: %s: %.80q", ErrMalformedLine, what, line)
	}

	if !strings.HasPrefix(rest, "[") {
		return bad("missing timestamp")
	}
	end := strings.Index(rest, "] [")
	if end < 0 {
		return bad("missing timestamp")
	}
	ts, err := time.Parse(logging.TimeLayout, rest[1:end])
	if err != nil {
		return bad("bad timestamp")
	}
	e.Timestamp = ts
	rest = rest[end+3:]

	end = strings.Index(rest, "] ")
	if end < 0 {
		return bad("missing language")
	}
	e.SourceLanguage = rest[:end]
	rest = rest[end+2:]

	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return bad("bad original text")
	}
	if e.OriginalText, err = strconv.Unquote(quoted); err != nil {
		return bad("bad original text")
	}
	rest = rest[len(quoted):]

	if !strings.HasPrefix(rest, arrow) {
		return bad("missing arrow")
	}
	rest = rest[len(arrow):]

	quoted, err = strconv.QuotedPrefix(rest)
	if err != nil || len(quoted) != len(rest) {
		return bad("bad translated text")
	}
	if e.TranslatedText, err = strconv.Unquote(quoted); err != nil {
		return bad("bad translated text")
	}
	return e, nil
}

// ReadDay parses the log for the day containing day (in loc). A missing file
// yields no entries.
func ReadDay(dir string, day time.Time, loc *time.Location) ([]message.ConversationLogEntry, error) {
	if loc == nil {
		loc = time.Local
	}
	f, err := os.Open(filepath.Join(dir, FileName(day, loc)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", message.ErrLogging, err)
	}
	defer f.Close()

	var entries []message.ConversationLogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		e, err := ParseLine(sc.Text())
		if err != nil {
			return entries, fmt.Errorf("line %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("%w: %v", message.ErrLogging, err)
	}
	return entries, nil
}
