// Package quit watches the terminal for a quit keypress.
package quit

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// Keys that end a session: q, Q, ESC and Ctrl-C (raw mode delivers it as a byte).
const (
	keyEsc   = 0x1b
	keyCtrlC = 0x03
)

// IsQuitKey reports whether b requests shutdown.
func IsQuitKey(b byte) bool {
	return b == 'q' || b == 'Q' || b == keyEsc || b == keyCtrlC
}

// Watcher reads single keypresses and cancels on a quit key.
type Watcher struct {
	in     io.Reader
	logger *slog.Logger

	mu       sync.Mutex
	fd       int
	rawState *term.State
}

// New creates a watcher over in. When in is a terminal it is switched to raw
// mode by Start so keys arrive without Enter.
func New(in io.Reader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{in: in, logger: logger, fd: -1}
}

// Start puts the terminal in raw mode (if any) and reads keys in the
// background until a quit key is seen, then calls cancel. It returns
// immediately.
func (w *Watcher) Start(ctx context.Context, cancel context.CancelFunc) {
	if f, ok := w.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			w.logger.Warn("could not enable raw terminal mode, quit key needs Enter", "error", err)
		} else {
			w.mu.Lock()
			w.fd, w.rawState = fd, state
			w.mu.Unlock()
		}
	}

	go func() {
		if w.watch(ctx) {
			w.logger.Info("quit key pressed")
			cancel()
		}
	}()
}

// watch returns true when a quit key was read.
func (w *Watcher) watch(ctx context.Context) bool {
	buf := make([]byte, 32)
	for {
		n, err := w.in.Read(buf)
		if ctx.Err() != nil {
			return false
		}
		for _, b := range buf[:n] {
			if IsQuitKey(b) {
				return true
			}
		}
		if err != nil {
			if err != io.EOF {
				w.logger.Debug("quit watcher read failed", "error", err)
			}
			return false
		}
	}
}

// Raw reports whether the terminal is in raw mode. Output written while raw
// needs "\r\n" line endings; see Console.
func (w *Watcher) Raw() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rawState != nil
}

// Restore returns the terminal to its previous mode.
func (w *Watcher) Restore() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rawState == nil {
		return nil
	}
	err := term.Restore(w.fd, w.rawState)
	w.rawState = nil
	return err
}

// Console wraps out so that "\n" becomes "\r\n" while the terminal is raw.
func (w *Watcher) Console(out io.Writer) io.Writer {
	return &crlfWriter{w: w, out: out}
}

type crlfWriter struct {
	w   *Watcher
	out io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	if !c.w.Raw() || !bytes.Contains(p, []byte{'\n'}) {
		return c.out.Write(p)
	}
	if _, err := c.out.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
