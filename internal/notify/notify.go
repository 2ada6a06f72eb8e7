// Package notify shows desktop notifications for completed and abandoned
// utterances.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

const (
	appName  = "vinterp"
	maxRunes = 100
)

// Notifier sends desktop notifications when enabled.
type Notifier struct {
	enabled bool
	send    func(title, body string) error
}

// New creates a Notifier.
func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
}

// Translated shows the translation of a completed utterance.
func (n *Notifier) Translated(e message.ConversationLogEntry) {
	n.notify("["+e.SourceLanguage+"] "+truncate(e.OriginalText), truncate(e.TranslatedText))
}

// Abandoned reports an utterance that could not be translated.
func (n *Notifier) Abandoned(reason string) {
	n.notify("translation failed", truncate(reason))
}

func (n *Notifier) notify(title, body string) {
	if n == nil || !n.enabled {
		return
	}
	// Notification errors are not worth surfacing.
	_ = n.send(appName+": "+title, body)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
