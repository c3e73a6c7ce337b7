package generator

import (
	"context"
	"strings"
	"testing"
)

func TestBindEventIDSubstitutesToken(t *testing.T) {
	content := `<a href="/event/` + PlaceholderToken + `">Я приду!</a>`
	out := BindEventID(context.Background(), content, "event_1_abc", "https://x/event/event_1_abc")
	if strings.Contains(out, PlaceholderToken) {
		t.Fatalf("placeholder survived binding: %q", out)
	}
	if !strings.Contains(out, "/event/event_1_abc") {
		t.Fatalf("event id missing after binding: %q", out)
	}
}

func TestBindEventIDAppendsFooterWhenTokenMissing(t *testing.T) {
	out := BindEventID(context.Background(), "<p>привет</p>", "event_1_abc", "https://x/event/event_1_abc")
	if !strings.Contains(out, "https://x/event/event_1_abc") {
		t.Fatalf("footer link missing: %q", out)
	}
	if !strings.HasPrefix(out, "<p>привет</p>") {
		t.Fatalf("original content altered: %q", out)
	}
}

func TestStripCodeFence(t *testing.T) {
	in := "```html\n<p>hi</p>\n```"
	if got := stripCodeFence(in); got != "<p>hi</p>" {
		t.Fatalf("stripCodeFence = %q", got)
	}
	if got := stripCodeFence("<p>hi</p>"); got != "<p>hi</p>" {
		t.Fatalf("unfenced content changed: %q", got)
	}
}
