package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Init initializes the PortAudio library. Call Terminate when done.
func Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	return nil
}

// Terminate releases PortAudio.
func Terminate() {
	_ = portaudio.Terminate()
}

// PortAudioCapture reads mono 16-bit frames from the default input device.
type PortAudioCapture struct {
	sampleRate int
	buffer     []int16

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioCapture creates a capture device. The stream opens on Start.
func NewPortAudioCapture(sampleRate, framesPerBuffer int) *PortAudioCapture {
	return &PortAudioCapture{
		sampleRate: sampleRate,
		buffer:     make([]int16, framesPerBuffer),
	}
}

func (c *PortAudioCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), len(c.buffer), c.buffer)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting input stream: %w", err)
	}
	c.stream = stream
	return nil
}

// Read copies one buffer into frame when a full buffer is available.
func (c *PortAudioCapture) Read(frame []int16) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return 0, errors.New("input stream not started")
	}

	available, err := c.stream.AvailableToRead()
	if err != nil {
		return 0, err
	}
	if available < len(c.buffer) {
		return 0, nil
	}
	if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return 0, err
	}
	return copy(frame, c.buffer), nil
}

func (c *PortAudioCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	stopErr := stream.Stop()
	closeErr := stream.Close()
	return errors.Join(stopErr, closeErr)
}

// Player plays interleaved 16-bit PCM and returns when playback finishes or
// ctx is cancelled.
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate, channels int) error
}

// PortAudioPlayer plays through the default output device.
type PortAudioPlayer struct {
	framesPerBuffer int
}

// NewPortAudioPlayer creates a player writing framesPerBuffer frames per call.
func NewPortAudioPlayer(framesPerBuffer int) *PortAudioPlayer {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	return &PortAudioPlayer{framesPerBuffer: framesPerBuffer}
}

func (p *PortAudioPlayer) Play(ctx context.Context, pcm []int16, sampleRate, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	buf := make([]int16, p.framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), p.framesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}

	for off := 0; off < len(pcm); off += len(buf) {
		if ctx.Err() != nil {
			_ = stream.Abort()
			return ctx.Err()
		}
		n := copy(buf, pcm[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			_ = stream.Abort()
			return fmt.Errorf("writing output stream: %w", err)
		}
	}
	return stream.Stop()
}
