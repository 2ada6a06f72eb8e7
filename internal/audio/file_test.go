package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

func TestLoadFileRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()

	loader := NewFileLoader([]string{"wav", ".mp3", "M4A"})
	// The file does not exist; the extension check comes first.
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "clip.ogg"))
	if !errors.Is(err, message.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want unsupported format", err)
	}
	if !errors.Is(err, message.ErrInput) {
		t.Fatalf("unsupported format should be an input error: %v", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	t.Parallel()

	loader := NewFileLoader([]string{".wav"})
	dir := t.TempDir()

	tests := map[string]string{
		"missing":   filepath.Join(dir, "missing.wav"),
		"directory": mustMkdir(t, filepath.Join(dir, "folder.wav")),
	}
	for name, path := range tests {
		_, err := loader.LoadFile(path)
		if !errors.Is(err, message.ErrNotFound) {
			t.Errorf("%s: error = %v, want not found", name, err)
		}
	}
}

func TestLoadFileWAV(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 16000) // one second at 16 kHz
	for i := range samples {
		samples[i] = int16(3000 * math.Sin(float64(i)/10))
	}
	path := filepath.Join(t.TempDir(), "speech.WAV")
	if err := os.WriteFile(path, SamplesToWAV(samples, 16000), 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}

	u, err := NewFileLoader([]string{".wav"}).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if u.ContentType != "audio/wav" {
		t.Errorf("content type = %q", u.ContentType)
	}
	if u.Filename != "speech.WAV" {
		t.Errorf("filename = %q", u.Filename)
	}
	if math.Abs(u.Duration-1.0) > 0.01 {
		t.Errorf("duration = %v, want 1s", u.Duration)
	}
	if !u.HasAudio() {
		t.Fatal("utterance has no audio")
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	t.Parallel()

	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out, rate, channels, err := DecodeWAV(SamplesToWAV(in, 22050))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 22050 || channels != 1 {
		t.Fatalf("rate=%d channels=%d", rate, channels)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	t.Parallel()

	if _, _, _, err := DecodeWAV([]byte("not a wav file at all")); err == nil {
		t.Fatal("expected error for invalid data")
	}
}

func mustMkdir(t *testing.T, path string) string {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return path
}
