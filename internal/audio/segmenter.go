package audio

import (
	"math"
	"time"
)

// SegmenterConfig controls energy-based utterance segmentation.
type SegmenterConfig struct {
	SampleRate int

	// Threshold is the RMS level (16-bit scale) separating speech from silence.
	Threshold float64

	// SpeechStart is how long energy must stay above Threshold to open a segment.
	SpeechStart time.Duration

	// Silence is the trailing-silence duration that closes a segment.
	Silence time.Duration

	// MinSpeech drops segments with less voiced audio than this.
	MinSpeech time.Duration

	// MaxUtterance force-closes a segment that runs this long.
	MaxUtterance time.Duration

	// PreRoll is the audio kept from before speech start.
	PreRoll time.Duration
}

// Segmenter turns a stream of frames into silence-bounded speech segments.
// It is not safe for concurrent use.
type Segmenter struct {
	threshold   float64
	speechStart int
	silence     int
	minSpeech   int
	maxLen      int
	preRoll     int

	speaking  bool
	history   []int16
	loudRun   int
	segment   []int16
	voiced    int
	silentRun int
}

// NewSegmenter creates a segmenter. Durations are converted to sample counts.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	samples := func(d time.Duration) int {
		return int(d.Seconds() * float64(rate))
	}
	s := &Segmenter{
		threshold:   cfg.Threshold,
		speechStart: samples(cfg.SpeechStart),
		silence:     samples(cfg.Silence),
		minSpeech:   samples(cfg.MinSpeech),
		maxLen:      samples(cfg.MaxUtterance),
		preRoll:     samples(cfg.PreRoll),
	}
	if s.silence <= 0 {
		s.silence = rate / 2
	}
	if s.maxLen <= 0 {
		s.maxLen = 30 * rate
	}
	return s
}

// Push feeds one frame and returns a completed segment, or nil.
func (s *Segmenter) Push(frame []int16) []int16 {
	if len(frame) == 0 {
		return nil
	}
	loud := RMS(frame) >= s.threshold

	if !s.speaking {
		s.history = append(s.history, frame...)
		if loud {
			s.loudRun += len(frame)
		} else {
			s.loudRun = 0
		}
		if keep := s.preRoll + s.loudRun; len(s.history) > keep {
			s.history = append(s.history[:0], s.history[len(s.history)-keep:]...)
		}
		if loud && s.loudRun >= s.speechStart {
			s.speaking = true
			s.segment = append([]int16(nil), s.history...)
			s.voiced = s.loudRun
			s.silentRun = 0
			s.history = s.history[:0]
			s.loudRun = 0
		}
		return nil
	}

	s.segment = append(s.segment, frame...)
	if loud {
		s.voiced += len(frame)
		s.silentRun = 0
	} else {
		s.silentRun += len(frame)
	}

	if s.silentRun >= s.silence || len(s.segment) >= s.maxLen {
		seg, voiced := s.segment, s.voiced
		s.Reset()
		if voiced < s.minSpeech {
			return nil
		}
		return seg
	}
	return nil
}

// InSpeech reports whether a segment is currently open.
func (s *Segmenter) InSpeech() bool {
	return s.speaking
}

// Reset drops any partial segment and history.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.history = nil
	s.loudRun = 0
	s.segment = nil
	s.voiced = 0
	s.silentRun = 0
}

// RMS returns the root-mean-square level of 16-bit samples.
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
