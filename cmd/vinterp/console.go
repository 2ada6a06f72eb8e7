package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/pipeline"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	file       string
	source     string
	configFile string
	noSave     bool
	verbose    bool
	version    bool
}

var errHelp = errors.New("help requested")

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := pflag.NewFlagSet("vinterp", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.file, "file", "f", "", "audio file to interpret (.wav, .mp3, .m4a); omit for realtime microphone mode")
	fs.StringVarP(&o.source, "source", "s", "", "source language: vi (Vietnamese) or en (English)")
	fs.BoolVar(&o.noSave, "no-save", false, "skip saving the batch result file")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging on the console and a timing breakdown")
	fs.StringVar(&o.configFile, "config", "", "path to config file (e.g. configs/vinterp.yaml)")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  vinterp -f <audio file> -s <vi|en> [--no-save] [-v]\n  vinterp -s <vi|en> [-v]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}
	if o.version {
		return &o, nil
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.source == "" {
		return nil, errors.New("--source is required")
	}
	if o.noSave && o.file == "" {
		return nil, errors.New("--no-save only applies with --file")
	}
	return &o, nil
}

const rule = "============================================================"

func printResult(w io.Writer, r *message.InterpreterResult, verbose bool) {
	fmt.Fprintf(w, "\n%s\nVIETNAMESE INTERPRETER RESULTS\n%s\n", rule, rule)
	fmt.Fprintf(w, "\nInput File: %s\n", r.InputFile)
	fmt.Fprintf(w, "Processing Time: %.2f seconds\n", r.TotalProcessingTime)
	fmt.Fprintf(w, "Timestamp: %s\n", r.ProcessingTimestamp.Format("2006-01-02T15:04:05.000000-07:00"))
	fmt.Fprintf(w, "\n--- TRANSCRIPTION ---\nText: %s\n", r.Transcription.Text)
	fmt.Fprintf(w, "\n--- TRANSLATION ---\nTranslated Text: %s\n", r.Translation.TranslatedText)
	fmt.Fprintf(w, "\n%s\n", rule)

	if verbose {
		fmt.Fprintf(w, "\nProcessing details:\n")
		fmt.Fprintf(w, "  Transcription time: %.2fs\n", r.Transcription.ProcessingTime)
		fmt.Fprintf(w, "  Translation time: %.2fs\n", r.Translation.ProcessingTime)
		fmt.Fprintf(w, "  Total time: %.2fs\n", r.TotalProcessingTime)
	}
}

// consolePublisher prints completed and skipped utterances during a realtime session.
type consolePublisher struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

var _ pipeline.Publisher = (*consolePublisher)(nil)

func (p *consolePublisher) Publish(e message.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e.Type {
	case message.EventUtterance:
		if e.Entry == nil {
			return
		}
		fmt.Fprintf(p.out, "[%s] %s\n", e.Entry.SourceLanguage, e.Entry.OriginalText)
		fmt.Fprintf(p.out, "  => %s\n", e.Entry.TranslatedText)
	case message.EventSkipped:
		fmt.Fprintf(p.out, "  (skipped: %s)\n", e.Reason)
	case message.EventState:
		if p.verbose && e.State == "listening" {
			fmt.Fprintln(p.out, "listening...")
		}
	}
}
