// Package pipeline implements the interpretation controller.
//
// The controller sequences capture, transcription, translation, speech and
// logging for one utterance at a time:
//
//	Idle → Listening → Transcribing → Translating → Speaking → Idle
//
// with Shutdown reachable from any state. Batch sessions run a single cycle
// over a file; realtime sessions loop over microphone utterances until the
// quit context is cancelled.
//
// Cancellation is cooperative. The quit context stops capture and playback,
// but transcription and translation run on a context detached from it so a
// request already in flight completes. No new utterance starts once quit is
// observed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/session"
)

// FileLoader loads a batch input file.
type FileLoader interface {
	LoadFile(path string) (*message.Utterance, error)
}

// UtteranceSource yields live utterances.
type UtteranceSource interface {
	// NextUtterance blocks until an utterance is captured or ctx is cancelled.
	NextUtterance(ctx context.Context) (*message.Utterance, error)

	// Discard drops audio buffered so far.
	Discard()
}

// Transcriber recognizes speech.
type Transcriber interface {
	Transcribe(ctx context.Context, u *message.Utterance, lang session.Language) (*message.TranscriptionResult, error)
}

// Translator translates into the complement of source.
type Translator interface {
	Translate(ctx context.Context, text string, source session.Language) (*message.TranslationResult, error)
}

// Speaker plays a translation and returns when playback ends or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
}

// ConversationRecorder appends completed utterances to the conversation log.
type ConversationRecorder interface {
	Record(e message.ConversationLogEntry)
}

// ResultWriter persists batch results.
type ResultWriter interface {
	Write(result *message.InterpreterResult) (string, error)
}

// Publisher receives controller events. Publish must not block.
type Publisher interface {
	Publish(e message.Event)
}

// Publishers fans an event out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(e message.Event) {
	for _, p := range ps {
		p.Publish(e)
	}
}

// Notifier surfaces per-utterance outcomes to the desktop.
type Notifier interface {
	Translated(e message.ConversationLogEntry)
	Abandoned(reason string)
}

// Options wires the controller's collaborators. Files is required for batch
// sessions and Source for realtime ones. Speaker, Conversations, Publisher and
// Notifier are optional.
type Options struct {
	Files         FileLoader
	Source        UtteranceSource
	Transcriber   Transcriber
	Translator    Translator
	Speaker       Speaker
	Conversations ConversationRecorder
	Results       ResultWriter
	Publisher     Publisher
	Notifier      Notifier

	// DiscardAfterSpeaking drops microphone audio captured during playback.
	DiscardAfterSpeaking bool

	Logger *slog.Logger
}

// Report is what Run returns.
type Report struct {
	// Result and ResultPath are set for batch sessions. ResultPath is empty
	// when saving was disabled.
	Result     *message.InterpreterResult
	ResultPath string

	Counters message.Counters
}

// Controller runs sessions. State and Status are safe for concurrent use.
type Controller struct {
	opts   Options
	logger *slog.Logger

	state   atomic.Int32
	session atomic.Pointer[session.Session]

	completed atomic.Int64
	skipped   atomic.Int64
	abandoned atomic.Int64
}

// New creates a controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{opts: opts, logger: logger}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Status returns a snapshot for the status transports.
func (c *Controller) Status() message.Status {
	st := message.Status{
		State:    c.State().String(),
		Counters: c.counters(),
	}
	if s := c.session.Load(); s != nil {
		st.SessionID = s.ID
		st.Mode = string(s.Mode)
		st.SourceLanguage = s.Source.String()
		st.TargetLanguage = s.Target.String()
		st.StartTime = s.StartTime
	}
	return st
}

func (c *Controller) counters() message.Counters {
	return message.Counters{
		Completed: c.completed.Load(),
		Skipped:   c.skipped.Load(),
		Abandoned: c.abandoned.Load(),
	}
}

// Run executes s. Batch sessions return the first error; realtime sessions
// contain per-utterance failures and return nil once ctx is cancelled.
// The controller is in Shutdown when Run returns.
func (c *Controller) Run(ctx context.Context, s *session.Session) (*Report, error) {
	c.session.Store(s)
	logger := c.logger.With("session", s.ID, "mode", s.Mode)
	logger.Info("session started", "source", s.Source, "target", s.Target)
	c.setState(StateIdle)
	defer func() {
		c.setState(StateShutdown)
		logger.Info("session ended",
			"completed", c.completed.Load(),
			"skipped", c.skipped.Load(),
			"abandoned", c.abandoned.Load())
	}()

	switch s.Mode {
	case session.ModeBatch:
		return c.runBatch(ctx, s, logger)
	case session.ModeRealtime:
		return c.runRealtime(ctx, s, logger)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", message.ErrConfiguration, s.Mode)
	}
}

func (c *Controller) runBatch(ctx context.Context, s *session.Session, logger *slog.Logger) (*Report, error) {
	if c.opts.Files == nil {
		return nil, fmt.Errorf("%w: no file loader", message.ErrConfiguration)
	}

	u, err := c.opts.Files.LoadFile(s.InputFile)
	if err != nil {
		logger.Error("loading input failed", "file", s.InputFile, "error", err)
		return nil, err
	}
	logger.Info("processing file", "file", s.InputFile, "bytes", len(u.Audio), "duration", u.Duration)

	tr, tl, err := c.interpret(ctx, s, u, logger)
	if err != nil {
		return nil, err
	}

	result := &message.InterpreterResult{
		InputFile:           s.InputFile,
		Transcription:       tr,
		Translation:         tl,
		ProcessingTimestamp: time.Now(),
		TotalProcessingTime: tr.ProcessingTime + tl.ProcessingTime,
	}
	c.complete(message.NewConversationLogEntry(tl))

	report := &Report{Result: result, Counters: c.counters()}
	if s.Save && c.opts.Results != nil {
		path, err := c.opts.Results.Write(result)
		if err != nil {
			logger.Error("saving result failed", "error", err)
			return report, fmt.Errorf("saving result: %w", err)
		}
		report.ResultPath = path
		logger.Info("result saved", "path", path)
	}
	return report, nil
}

func (c *Controller) runRealtime(ctx context.Context, s *session.Session, logger *slog.Logger) (*Report, error) {
	if c.opts.Source == nil {
		return nil, fmt.Errorf("%w: no utterance source", message.ErrConfiguration)
	}

	for ctx.Err() == nil {
		c.setState(StateListening)
		u, err := c.opts.Source.NextUtterance(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("capture failed", "error", err)
			continue
		}
		if ctx.Err() != nil {
			u.Release()
			break
		}
		logger.Debug("utterance captured", "duration", u.Duration)

		tr, tl, err := c.interpret(ctx, s, u, logger)
		if err != nil {
			continue
		}
		entry := message.NewConversationLogEntry(tl)
		logger.Debug("utterance interpreted", "transcript_length", len(tr.Text))

		if c.opts.Speaker != nil && ctx.Err() == nil {
			c.speak(ctx, s, tl.TranslatedText, logger)
		}
		c.complete(entry)
		c.setState(StateIdle)
	}

	logger.Info("quit observed, stopping capture")
	return &Report{Counters: c.counters()}, nil
}

// interpret transcribes and translates u. Failures are counted and
// published; the returned error is for batch reporting.
func (c *Controller) interpret(ctx context.Context, s *session.Session, u *message.Utterance, logger *slog.Logger) (*message.TranscriptionResult, *message.TranslationResult, error) {
	netCtx := context.WithoutCancel(ctx)

	c.setState(StateTranscribing)
	tr, err := c.opts.Transcriber.Transcribe(netCtx, u, s.Source)
	u.Release()
	if err != nil {
		c.skip(err.Error())
		logger.Warn("utterance skipped", "reason", "transcription failed", "error", err)
		return nil, nil, err
	}
	if tr.Text == "" {
		c.skip("no speech recognized")
		logger.Info("utterance skipped", "reason", "no speech recognized")
		return nil, nil, fmt.Errorf("%w: no speech recognized", message.ErrTranscription)
	}

	c.setState(StateTranslating)
	tl, err := c.opts.Translator.Translate(netCtx, tr.Text, s.Source)
	if err != nil {
		c.abandoned.Add(1)
		c.publish(message.Event{Type: message.EventSkipped, Reason: err.Error()})
		if c.opts.Notifier != nil {
			c.opts.Notifier.Abandoned(err.Error())
		}
		logger.Warn("utterance abandoned", "transcript", tr.Text, "error", err)
		return nil, nil, err
	}
	return tr, tl, nil
}

func (c *Controller) speak(ctx context.Context, s *session.Session, text string, logger *slog.Logger) {
	c.setState(StateSpeaking)
	err := c.opts.Speaker.Speak(ctx, text, s.Target.String())
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		logger.Info("playback interrupted by quit")
	default:
		logger.Warn("speech synthesis failed, continuing", "error", err)
	}
	if c.opts.DiscardAfterSpeaking && c.opts.Source != nil {
		c.opts.Source.Discard()
	}
}

func (c *Controller) complete(e message.ConversationLogEntry) {
	if c.opts.Conversations != nil {
		c.opts.Conversations.Record(e)
	}
	c.completed.Add(1)
	c.publish(message.Event{Type: message.EventUtterance, Entry: &e})
	if c.opts.Notifier != nil {
		c.opts.Notifier.Translated(e)
	}
}

func (c *Controller) skip(reason string) {
	c.skipped.Add(1)
	c.publish(message.Event{Type: message.EventSkipped, Reason: reason})
}

func (c *Controller) setState(st State) {
	if State(c.state.Swap(int32(st))) == st {
		return
	}
	c.publish(message.Event{Type: message.EventState, State: st.String()})
}

func (c *Controller) publish(e message.Event) {
	if c.opts.Publisher == nil {
		return
	}
	if s := c.session.Load(); s != nil {
		e.SessionID = s.ID
	}
	e.Timestamp = time.Now()
	c.opts.Publisher.Publish(e)
}
