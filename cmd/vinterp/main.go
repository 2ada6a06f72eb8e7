// Vinterp interprets between Vietnamese and English.
//
// Usage:
//
//	vinterp -f speech.wav -s vi [--no-save] [-v]   # batch: one file, one result
//	vinterp -s en [-v]                              # realtime: microphone until q/Esc/Ctrl-C
//	vinterp --config /path/to/vinterp.yaml ...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Hihi1310/vietnamese-interpreter/internal/audio"
	"github.com/Hihi1310/vietnamese-interpreter/internal/config"
	"github.com/Hihi1310/vietnamese-interpreter/internal/convlog"
	"github.com/Hihi1310/vietnamese-interpreter/internal/health"
	"github.com/Hihi1310/vietnamese-interpreter/internal/logging"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/notify"
	"github.com/Hihi1310/vietnamese-interpreter/internal/output"
	"github.com/Hihi1310/vietnamese-interpreter/internal/pipeline"
	"github.com/Hihi1310/vietnamese-interpreter/internal/quit"
	"github.com/Hihi1310/vietnamese-interpreter/internal/session"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transcribe"
	localstt "github.com/Hihi1310/vietnamese-interpreter/internal/transcribe/local"
	openaistt "github.com/Hihi1310/vietnamese-interpreter/internal/transcribe/openai"
	"github.com/Hihi1310/vietnamese-interpreter/internal/translate"
	localtl "github.com/Hihi1310/vietnamese-interpreter/internal/translate/local"
	openaitl "github.com/Hihi1310/vietnamese-interpreter/internal/translate/openai"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transport"
	grpctransport "github.com/Hihi1310/vietnamese-interpreter/internal/transport/grpc"
	httptransport "github.com/Hihi1310/vietnamese-interpreter/internal/transport/http"
	mqtttransport "github.com/Hihi1310/vietnamese-interpreter/internal/transport/mqtt"
	"github.com/Hihi1310/vietnamese-interpreter/internal/tts"
	"github.com/Hihi1310/vietnamese-interpreter/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, errHelp):
		return exitOK
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "vinterp %s\n", version)
		return exitOK
	}

	source, err := session.ParseLanguage(opts.source)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.file != "" {
		return runBatch(ctx, cfg, opts, source, stdout, stderr)
	}
	return runRealtime(ctx, cancel, cfg, opts, source, stdin, stdout, stderr)
}

// services holds what both modes share.
type services struct {
	loc           *time.Location
	logs          *logging.Set
	transcriber   *transcribe.Service
	translator    *translate.Service
	conversations *convlog.Logger
}

func (s *services) Close() {
	st := s.translator.Stats()
	s.logs.Translation.Info("translation totals",
		"requests", st.Requests,
		"attempts", st.Attempts,
		"retries", st.Retries,
		"failures", st.Failures)
	if err := s.conversations.Close(); err != nil {
		s.logs.System.Error("closing conversation log", "error", err)
	}
	_ = s.transcriber.Close()
	_ = s.translator.Close()
	_ = s.logs.Close()
}

func newServices(cfg *config.Config, verbose bool, console io.Writer) (*services, error) {
	logs, err := config.SetupLogging(cfg, verbose, console)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		logs.Close()
		return nil, err
	}

	var sttBackend transcribe.Backend
	switch cfg.Transcription.Backend {
	case "openai":
		sttBackend = openaistt.New(cfg.Transcription.OpenAI)
		logs.System.Info("using OpenAI transcription", "model", cfg.Transcription.OpenAI.Model)
	case "local":
		sttBackend = localstt.New(cfg.Transcription.Local)
		logs.System.Info("using local transcription",
			"endpoint", cfg.Transcription.Local.Endpoint,
			"type", cfg.Transcription.Local.Type)
	}

	var tlBackend translate.Backend
	switch cfg.Translation.Backend {
	case "openai":
		tlBackend = openaitl.New(cfg.Translation.OpenAI)
		logs.System.Info("using OpenAI translation", "model", cfg.Translation.OpenAI.Model)
	case "local":
		tlBackend = localtl.New(cfg.Translation.Local)
		logs.System.Info("using local translation",
			"endpoint", cfg.Translation.Local.Endpoint,
			"model", cfg.Translation.Local.Model)
	}

	conversations, err := convlog.New(cfg.Paths.ConversationsDir, loc, 0, logs.System)
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("%w: %v", message.ErrLogging, err)
	}

	return &services{
		loc:         loc,
		logs:        logs,
		transcriber: transcribe.New(sttBackend, cfg.Transcription.Timeout, logs.Transcription),
		translator: translate.New(tlBackend, translate.RetryPolicy{
			MaxAttempts:    cfg.Translation.MaxAttempts,
			InitialBackoff: cfg.Translation.InitialBackoff,
			MaxBackoff:     cfg.Translation.MaxBackoff,
			AttemptTimeout: cfg.Translation.Timeout,
		}, logs.Translation),
		conversations: conversations,
	}, nil
}

func runBatch(ctx context.Context, cfg *config.Config, opts *options, source session.Language, stdout, stderr io.Writer) int {
	svc, err := newServices(cfg, opts.verbose, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer svc.Close()

	fmt.Fprintf(stdout, "Vietnamese Interpreter\n==============================\n")
	fmt.Fprintf(stdout, "Processing: %s (Source: %s)\n", opts.file, source)

	ctrl := pipeline.New(pipeline.Options{
		Files:         audio.NewFileLoader(cfg.Audio.AllowedExtensions),
		Transcriber:   svc.transcriber,
		Translator:    svc.translator,
		Conversations: svc.conversations,
		Results:       output.NewWriter(cfg.Paths.OutputDir, svc.loc),
		Logger:        svc.logs.System,
	})

	s := session.NewBatch(source, opts.file, !opts.noSave)
	report, err := ctrl.Run(ctx, s)
	if report != nil && report.Result != nil {
		printResult(stdout, report.Result, opts.verbose)
		if report.ResultPath != "" {
			fmt.Fprintf(stdout, "Result saved to: %s\n", report.ResultPath)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Check the log files in %s for detailed error information.\n", cfg.Paths.LogsDir)
		return exitFailure
	}
	return exitOK
}

func runRealtime(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, opts *options, source session.Language, stdin io.Reader, stdout, stderr io.Writer) int {
	watcher := quit.New(stdin, nil)
	console := watcher.Console(stdout)
	errConsole := watcher.Console(stderr)

	svc, err := newServices(cfg, opts.verbose, errConsole)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer svc.Close()
	logger := svc.logs.System

	if err := audio.Init(); err != nil {
		fmt.Fprintf(stderr, "Error: %v: %v\n", message.ErrInput, err)
		return exitFailure
	}
	defer audio.Terminate()

	mic := audio.NewMicrophone(
		audio.NewPortAudioCapture(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer),
		audio.MicrophoneConfig{
			Segmenter: audio.SegmenterConfig{
				SampleRate:   cfg.Audio.SampleRate,
				Threshold:    cfg.Audio.EnergyThreshold,
				SpeechStart:  cfg.Audio.SpeechStart,
				Silence:      cfg.Audio.SilenceDuration,
				MinSpeech:    cfg.Audio.MinSpeech,
				MaxUtterance: cfg.Audio.MaxUtterance,
				PreRoll:      cfg.Audio.PreRoll,
			},
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			PollInterval:    cfg.Audio.PollInterval,
		}, logger)
	if err := mic.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v: %v\n", message.ErrInput, err)
		return exitFailure
	}
	defer mic.Close()

	var speaker pipeline.Speaker
	if cfg.TTS.Enabled {
		sp := tts.NewSpeaker(piper.New(cfg.TTS.Piper, logger), audio.NewPortAudioPlayer(cfg.Audio.FramesPerBuffer), logger)
		defer sp.Close()
		speaker = sp
		logger.Info("speech output enabled", "backend", cfg.TTS.Backend)
	}

	checker := health.New()
	transports := buildTransports(cfg, checker, logger)
	broadcaster := transport.NewBroadcaster(transports, 0, logger)

	publishers := pipeline.Publishers{&consolePublisher{out: console, verbose: opts.verbose}}
	if len(transports) > 0 {
		publishers = append(publishers, broadcaster)
	}

	ctrl := pipeline.New(pipeline.Options{
		Source:               mic,
		Transcriber:          svc.transcriber,
		Translator:           svc.translator,
		Speaker:              speaker,
		Conversations:        svc.conversations,
		Publisher:            publishers,
		Notifier:             notify.New(cfg.Notify.Enabled),
		DiscardAfterSpeaking: cfg.Audio.DiscardDuringPlayback,
		Logger:               logger,
	})

	// Transports outlive the session context so the final shutdown event is delivered.
	tctx, stopTransports := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			logger.Info("starting transport", "name", t.Name())
			if err := t.Listen(tctx, ctrl); err != nil {
				logger.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	watcher.Start(ctx, cancel)
	defer watcher.Restore()

	fmt.Fprintf(console, "Interpreting %s -> %s. Speak into the microphone; press q or Esc to quit.\n",
		source.Name(), session.Target(source).Name())

	checker.SetReady(true)
	report, err := ctrl.Run(ctx, session.NewRealtime(source))
	checker.SetReady(false)

	broadcaster.Close()
	stopTransports()
	wg.Wait()

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(console, "Session ended: %d translated, %d skipped, %d abandoned.\n",
		report.Counters.Completed, report.Counters.Skipped, report.Counters.Abandoned)
	return exitOK
}

func buildTransports(cfg *config.Config, checker *health.Checker, logger *slog.Logger) []transport.Transport {
	var transports []transport.Transport
	if cfg.Status.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Status.HTTP.Port, checker, logger))
	}
	if cfg.Status.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Status.GRPC.Port, checker, logger))
	}
	if cfg.Status.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(
			cfg.Status.MQTT.Broker, cfg.Status.MQTT.Topic, cfg.Status.MQTT.ClientID, logger))
	}
	return transports
}
