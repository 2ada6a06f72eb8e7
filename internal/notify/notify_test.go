package notify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

type recorded struct{ title, body string }

func recordingNotifier(enabled bool) (*Notifier, *[]recorded) {
	var got []recorded
	n := New(enabled)
	n.send = func(title, body string) error {
		got = append(got, recorded{title, body})
		return nil
	}
	return n, &got
}

func TestTranslated(t *testing.T) {
	n, got := recordingNotifier(true)
	n.Translated(message.ConversationLogEntry{SourceLanguage: "vi", OriginalText: "Xin chào", TranslatedText: "Hello"})

	if len(*got) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(*got))
	}
	if (*got)[0].title != "vinterp: [vi] Xin chào" || (*got)[0].body != "Hello" {
		t.Fatalf("notification = %+v", (*got)[0])
	}
}

func TestDisabledSendsNothing(t *testing.T) {
	n, got := recordingNotifier(false)
	n.Translated(message.ConversationLogEntry{OriginalText: "a", TranslatedText: "b"})
	n.Abandoned("timeout")
	if len(*got) != 0 {
		t.Fatalf("sent %d notifications while disabled", len(*got))
	}

	var nilNotifier *Notifier
	nilNotifier.Abandoned("no panic")
}

func TestTruncateKeepsRunes(t *testing.T) {
	long := strings.Repeat("ệ", 150)
	got := truncate(long)
	if !utf8.ValidString(got) {
		t.Fatal("truncate split a rune")
	}
	if !strings.HasSuffix(got, "...") || utf8.RuneCountInString(got) != maxRunes+3 {
		t.Fatalf("truncate = %d runes", utf8.RuneCountInString(got))
	}
	if truncate("short") != "short" {
		t.Fatal("short text changed")
	}
}
