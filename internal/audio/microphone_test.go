package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// scriptedDevice returns queued frames, then reports no data.
type scriptedDevice struct {
	mu      sync.Mutex
	frames  [][]int16
	started bool
	stopped bool
}

func (d *scriptedDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *scriptedDevice) Read(frame []int16) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return 0, nil
	}
	n := copy(frame, d.frames[0])
	d.frames = d.frames[1:]
	return n, nil
}

func (d *scriptedDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMicrophoneConfig() MicrophoneConfig {
	return MicrophoneConfig{
		Segmenter:       testSegmenterConfig(),
		FramesPerBuffer: 512,
		PollInterval:    5 * time.Millisecond,
	}
}

func TestMicrophoneProducesUtterance(t *testing.T) {
	t.Parallel()

	dev := &scriptedDevice{}
	for range 5 {
		dev.frames = append(dev.frames, tone(512, 0))
	}
	for range 20 {
		dev.frames = append(dev.frames, tone(512, 3000))
	}
	for range 10 {
		dev.frames = append(dev.frames, tone(512, 0))
	}

	mic := NewMicrophone(dev, testMicrophoneConfig(), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mic.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mic.Close()

	u, err := mic.NextUtterance(ctx)
	if err != nil {
		t.Fatalf("NextUtterance: %v", err)
	}
	if u.ContentType != "audio/wav" || !u.HasAudio() {
		t.Fatalf("unexpected utterance %+v", u)
	}
	if u.Duration < 0.6 {
		t.Fatalf("duration = %v, want at least 0.6s", u.Duration)
	}
	samples, rate, _, err := DecodeWAV(u.Audio)
	if err != nil {
		t.Fatalf("utterance audio is not valid wav: %v", err)
	}
	if rate != testRate || len(samples) == 0 {
		t.Fatalf("rate=%d samples=%d", rate, len(samples))
	}
}

func TestMicrophoneCancelWhileWaiting(t *testing.T) {
	t.Parallel()

	dev := &scriptedDevice{}
	mic := NewMicrophone(dev, testMicrophoneConfig(), quietLogger())
	if err := mic.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := mic.NextUtterance(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrNoUtterance) {
			t.Fatalf("error = %v, want ErrNoUtterance", err)
		}
	case <-time.After(time.Second):
		t.Fatal("NextUtterance did not return after cancel")
	}

	if err := mic.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.stopped {
		t.Fatal("device not stopped on Close")
	}
}

func TestMicrophoneDiscard(t *testing.T) {
	t.Parallel()

	dev := &scriptedDevice{}
	mic := NewMicrophone(dev, testMicrophoneConfig(), quietLogger())
	for range 20 {
		mic.enqueue(tone(512, 3000))
	}
	mic.Discard()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := mic.NextUtterance(ctx); !errors.Is(err, ErrNoUtterance) {
		t.Fatalf("error = %v, want ErrNoUtterance after discard", err)
	}
	if mic.seg.InSpeech() {
		t.Fatal("segmenter still open after discard")
	}
}

func TestMicrophoneCancelledIgnoresBufferedSegment(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := range 200 {
		mic := NewMicrophone(&scriptedDevice{}, testMicrophoneConfig(), quietLogger())
		for range 20 {
			mic.enqueue(tone(512, 3000))
		}
		for range 10 {
			mic.enqueue(tone(512, 0))
		}
		u, err := mic.NextUtterance(ctx)
		if !errors.Is(err, ErrNoUtterance) || u != nil {
			t.Fatalf("run %d: NextUtterance = %v, %v; want ErrNoUtterance", i, u, err)
		}
	}
}
