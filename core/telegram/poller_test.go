package telegram

import (
	"testing"
	"time"

	coreconfig "github.com/m3rciful/invitebot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerLongpollDefaultTimeout(t *testing.T) {
	p := BuildPoller(coreconfig.TelegramConfig{RunMode: coreconfig.RunModeLongpoll}, coreconfig.WebhookConfig{})
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller type = %T, want *tele.LongPoller", p)
	}
	if lp.Timeout != 10*time.Second {
		t.Fatalf("default timeout = %v, want 10s", lp.Timeout)
	}
}

func TestBuildPollerLongpollConfiguredTimeout(t *testing.T) {
	p := BuildPoller(coreconfig.TelegramConfig{RunMode: coreconfig.RunModeLongpoll, LongPollTimeoutSeconds: 25}, coreconfig.WebhookConfig{})
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller type = %T, want *tele.LongPoller", p)
	}
	if lp.Timeout != 25*time.Second {
		t.Fatalf("timeout = %v, want 25s", lp.Timeout)
	}
}

func TestBuildPollerWebhook(t *testing.T) {
	p := BuildPoller(
		coreconfig.TelegramConfig{RunMode: coreconfig.RunModeWebhook},
		coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	)
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("poller type = %T, want *tele.Webhook", p)
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}
	if wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("public url = %q", wh.Endpoint.PublicURL)
	}
}
