package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram:  TelegramConfig{Token: "123:abc"},
		Generator: GeneratorConfig{APIKey: "key"},
		Invite:    InviteConfig{PublicBaseURL: "https://invites.example.com/"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, expected longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Invite.MaxUploadBytes != 20<<20 {
		t.Fatalf("max upload = %d, expected 20 MiB", cfg.Invite.MaxUploadBytes)
	}
	if len(cfg.Invite.Styles) == 0 {
		t.Fatal("expected default styles")
	}
	if strings.HasSuffix(cfg.Invite.PublicBaseURL, "/") {
		t.Fatalf("base url not trimmed: %q", cfg.Invite.PublicBaseURL)
	}
	if cfg.Generator.Timeout().Seconds() != 45 {
		t.Fatalf("generator timeout = %v, expected 45s", cfg.Generator.Timeout())
	}
}

func TestNormalizeWebhookRequiresFields(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "webhook"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize webhook: %v", err)
	}
}

func TestNormalizeRejectsPartialBlob(t *testing.T) {
	cfg := validConfig()
	cfg.Blob.URL = "https://proj.supabase.co"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for partial blob config")
	}
	cfg.Blob.Key = "service-key"
	cfg.Blob.Bucket = "photos"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize full blob: %v", err)
	}
}

func TestNormalizeRequiresGeneratorKey(t *testing.T) {
	cfg := validConfig()
	cfg.Generator.APIKey = "  "
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing generator key")
	}
}
