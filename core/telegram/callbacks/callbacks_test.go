package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Data: "\fstyle|2"})
	if key != "style" || payload != "2" {
		t.Fatalf("parsed %q/%q, want style/2", key, payload)
	}

	key, payload = ParseCallbackData(&tele.Callback{Data: "\finfo"})
	if key != "info" || payload != "" {
		t.Fatalf("parsed %q/%q, want info/<empty>", key, payload)
	}

	key, payload = ParseCallbackData(nil)
	if key != "" || payload != "" {
		t.Fatalf("nil callback parsed to %q/%q", key, payload)
	}
}
