package bot

import (
	"testing"

	"github.com/m3rciful/invitebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func TestRegisterWiresCommandsCallbacksAndFallback(t *testing.T) {
	reg := telegram.NewRegistry()
	e := newTestEngine(t, newFakeStorage(), &fakeGenerator{}, &fakeResolver{})
	routes := Register(reg, e)

	if reg.TextFallback() == nil {
		t.Fatal("text fallback not wired")
	}
	for _, name := range []string{"/start", "/create", "/done", "/stats", "/help"} {
		if _, _, ok := reg.LookupCommand(name); !ok {
			t.Fatalf("command %s not registered", name)
		}
	}
	if _, _, ok := reg.LookupCommand("/done@invitebot"); !ok {
		t.Fatal("mention-suffixed command not matched")
	}
	for _, key := range []string{"style", "info"} {
		if _, ok := reg.GetCallback(key); !ok {
			t.Fatalf("callback %q not registered", key)
		}
	}

	endpoints := make(map[any]bool, len(routes))
	for _, r := range routes {
		endpoints[r.Endpoint] = true
	}
	for _, ep := range []any{"/start", "/create", "/done", "/stats", "/help",
		tele.OnText, tele.OnPhoto, tele.OnDocument, tele.OnCallback} {
		if !endpoints[ep] {
			t.Fatalf("route %v missing", ep)
		}
	}
}
