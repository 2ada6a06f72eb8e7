package quit

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsQuitKey(t *testing.T) {
	t.Parallel()

	for _, b := range []byte{'q', 'Q', 0x1b, 0x03} {
		if !IsQuitKey(b) {
			t.Errorf("IsQuitKey(%q) = false", b)
		}
	}
	for _, b := range []byte{'a', '\n', ' ', 'x'} {
		if IsQuitKey(b) {
			t.Errorf("IsQuitKey(%q) = true", b)
		}
	}
}

func TestWatcherCancelsOnQuitKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"q":      "abcq",
		"Q":      "Q",
		"escape": "\x1b",
		"ctrl-c": "hello\x03",
	}
	for name, input := range tests {
		ctx, cancel := context.WithCancel(context.Background())
		New(strings.NewReader(input), quietLogger()).Start(ctx, cancel)

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Errorf("%s: context not cancelled", name)
		}
		cancel()
	}
}

func TestWatcherIgnoresOtherKeys(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(strings.NewReader("hello world\n"), quietLogger()).Start(ctx, cancel)

	select {
	case <-ctx.Done():
		t.Fatal("cancelled without a quit key")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherWaitsForKey(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(pr, quietLogger()).Start(ctx, cancel)

	if _, err := pw.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-ctx.Done():
		t.Fatal("cancelled on x")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := pw.Write([]byte("q")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("not cancelled after q")
	}
}

func TestConsolePassThroughWhenNotRaw(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(strings.NewReader(""), quietLogger())
	out := w.Console(&buf)
	if _, err := io.WriteString(out, "a\nb\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "a\nb\n" {
		t.Fatalf("got %q", buf.String())
	}
	if w.Raw() {
		t.Fatal("reader should not be raw")
	}
	if err := w.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}
