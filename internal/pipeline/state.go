package pipeline

// State is the controller's position in the utterance cycle.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
	StateTranslating
	StateSpeaking
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateTranslating:
		return "translating"
	case StateSpeaking:
		return "speaking"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
