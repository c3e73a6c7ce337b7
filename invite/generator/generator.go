// Package generator produces invitation content through the Gemini API
// using a two-phase generate-then-bind protocol: the model is asked to emit
// a well-known placeholder token which the caller later substitutes with
// the real event id.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/logger"
)

// PlaceholderToken is the literal the model embeds wherever the event id
// belongs. It is substituted before the content is persisted.
const PlaceholderToken = "EVENT_ID_PLACEHOLDER"

// Facts carries the draft fields handed to the model.
type Facts struct {
	EventType string
	Name      string
	Date      string
	Time      string
	Location  string
	Style     string
	PhotoURLs []string
}

// Gemini generates invitation HTML via the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New builds a Gemini generator from config.
func New(ctx context.Context, cfg coreconfig.GeneratorConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: create client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout(),
	}, nil
}

// Generate asks the model for invitation content. The call is bounded by
// the configured timeout; a timeout is reported as a plain error so the
// caller treats it like any generation failure.
func (g *Gemini) Generate(ctx context.Context, facts Facts, userID int64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildUserPrompt(facts)}},
	}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, cfg)
	took := time.Since(start)
	if err != nil {
		logger.GEN.LogAttrs(ctx, slog.LevelWarn, "generate.fail",
			slog.String("event", "generate.fail"),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("generator: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generator: empty model response")
	}
	text = stripCodeFence(text)

	logger.GEN.LogAttrs(ctx, slog.LevelInfo, "generate.ok",
		slog.String("event", "generate.ok"),
		slog.Int64("user_id", userID),
		slog.Int("content_len", len(text)),
		slog.Bool("has_placeholder", strings.Contains(text, PlaceholderToken)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return text, nil
}

// BindEventID substitutes the placeholder token with the real event id.
// When the model omitted the token, the substitution would silently be a
// no-op, so a footer link is appended instead and the anomaly is logged.
// After binding, the content contains the event id and zero placeholder
// occurrences.
func BindEventID(ctx context.Context, content, eventID, shareURL string) string {
	if !strings.Contains(content, PlaceholderToken) {
		logger.GEN.LogAttrs(ctx, slog.LevelWarn, "bind.placeholder_missing",
			slog.String("event", "bind.placeholder_missing"),
			slog.String("event_id", eventID),
		)
		footer := fmt.Sprintf("\n<p><a href=\"%s\">Открыть приглашение</a></p>\n", shareURL)
		return content + footer
	}
	return strings.ReplaceAll(content, PlaceholderToken, eventID)
}

// stripCodeFence removes a surrounding markdown fence the model sometimes
// wraps HTML output in.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
