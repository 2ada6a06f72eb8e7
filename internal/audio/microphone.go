package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// ErrNoUtterance is returned by NextUtterance when capture was cancelled
// before a segment completed.
var ErrNoUtterance = errors.New("no utterance: capture cancelled")

// CaptureDevice is a polled audio input. Read never blocks: it returns 0 when
// a full frame is not yet available.
type CaptureDevice interface {
	Start() error
	Read(frame []int16) (int, error)
	Stop() error
}

// MicrophoneConfig controls realtime capture.
type MicrophoneConfig struct {
	Segmenter       SegmenterConfig
	FramesPerBuffer int

	// PollInterval is how long the reader sleeps when the device has no data.
	PollInterval time.Duration

	// QueueFrames bounds the frames buffered between the reader and
	// NextUtterance. The oldest frame is dropped when full.
	QueueFrames int
}

// Microphone segments live input into utterances. A background reader keeps
// capturing while the pipeline is busy with the previous utterance.
type Microphone struct {
	dev    CaptureDevice
	cfg    MicrophoneConfig
	seg    *Segmenter
	frames chan []int16
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMicrophone creates a microphone over dev. Call Start before NextUtterance.
func NewMicrophone(dev CaptureDevice, cfg MicrophoneConfig, logger *slog.Logger) *Microphone {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 512
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	if cfg.QueueFrames <= 0 {
		rate := cfg.Segmenter.SampleRate
		if rate <= 0 {
			rate = 16000
		}
		// About a minute of audio.
		cfg.QueueFrames = 60 * rate / cfg.FramesPerBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Microphone{
		dev:    dev,
		cfg:    cfg,
		seg:    NewSegmenter(cfg.Segmenter),
		frames: make(chan []int16, cfg.QueueFrames),
		logger: logger,
	}
}

// Start opens the device and runs the reader until ctx is cancelled or Close is called.
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if err := m.dev.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.readLoop(ctx, m.done)
	m.logger.Info("microphone capture started",
		"sample_rate", m.cfg.Segmenter.SampleRate,
		"threshold", m.cfg.Segmenter.Threshold,
		"silence", m.cfg.Segmenter.Silence)
	return nil
}

func (m *Microphone) readLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	buf := make([]int16, m.cfg.FramesPerBuffer)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	wait := func() bool {
		timer.Reset(m.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}

	var lastErr string
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := m.dev.Read(buf)
		if err != nil {
			// Log each distinct error once; devices tend to repeat them every poll.
			if err.Error() != lastErr {
				m.logger.Warn("capture read failed", "error", err)
				lastErr = err.Error()
			}
			if !wait() {
				return
			}
			continue
		}
		if n == 0 {
			if !wait() {
				return
			}
			continue
		}

		frame := make([]int16, n)
		copy(frame, buf[:n])
		m.enqueue(frame)
	}
}

func (m *Microphone) enqueue(frame []int16) {
	for {
		select {
		case m.frames <- frame:
			return
		default:
		}
		select {
		case <-m.frames:
			m.logger.Debug("capture queue full, dropping oldest frame")
		default:
		}
	}
}

// NextUtterance blocks until a silence-bounded segment is captured. It
// returns ErrNoUtterance as soon as ctx is cancelled, even when buffered
// frames would complete a segment.
func (m *Microphone) NextUtterance(ctx context.Context) (*message.Utterance, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ErrNoUtterance
		case frame := <-m.frames:
			if ctx.Err() != nil {
				return nil, ErrNoUtterance
			}
			seg := m.seg.Push(frame)
			if seg == nil {
				continue
			}
			rate := m.cfg.Segmenter.SampleRate
			if rate <= 0 {
				rate = 16000
			}
			return &message.Utterance{
				Audio:       SamplesToWAV(seg, rate),
				ContentType: "audio/wav",
				Filename:    "utterance.wav",
				CapturedAt:  time.Now(),
				Duration:    float64(len(seg)) / float64(rate),
			}, nil
		}
	}
}

// Discard drops buffered frames and any partial segment, e.g. audio that
// picked up our own playback.
func (m *Microphone) Discard() {
	for {
		select {
		case <-m.frames:
		default:
			m.seg.Reset()
			return
		}
	}
}

// Close stops the reader, then the device.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	m.cancel()
	<-m.done
	return m.dev.Stop()
}
