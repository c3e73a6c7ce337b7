package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/invitebot/core/config"

	tele "gopkg.in/telebot.v4"
)

// BuildPoller selects the update transport from config: a webhook listener
// when run_mode says so, long polling otherwise.
func BuildPoller(tg coreconfig.TelegramConfig, wh coreconfig.WebhookConfig) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(tg.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", wh.Listen, wh.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: wh.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(tg)}
}

func longPollTimeout(tg coreconfig.TelegramConfig) time.Duration {
	sec := tg.LongPollTimeoutSeconds
	if sec <= 0 {
		sec = 10
	}
	return time.Duration(sec) * time.Second
}
