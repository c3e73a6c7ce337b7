package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/telegram"
	"github.com/m3rciful/invitebot/core/telegram/callbacks"
	"github.com/m3rciful/invitebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/invitebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// TeleFileResolver resolves Telegram file handles into fetchable URLs.
// The bot instance is attached after the runtime builds it.
type TeleFileResolver struct {
	bot atomic.Pointer[tele.Bot]
}

// NewTeleFileResolver returns an unattached resolver.
func NewTeleFileResolver() *TeleFileResolver {
	return &TeleFileResolver{}
}

// Attach wires the live bot instance.
func (r *TeleFileResolver) Attach(b *tele.Bot) {
	r.bot.Store(b)
}

// ResolveURL asks the Bot API for the file path and composes the download URL.
func (r *TeleFileResolver) ResolveURL(ctx context.Context, fileID string) (string, error) {
	b := r.bot.Load()
	if b == nil {
		return "", errors.New("bot: file resolver not attached")
	}
	f, err := b.FileByID(fileID)
	if err != nil {
		return "", fmt.Errorf("file by id: %w", err)
	}
	if f.FilePath == "" {
		return "", errors.New("bot: provider returned empty file path")
	}
	return fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.Token, f.FilePath), nil
}

// Handlers is the thin shell between telebot and the engine.
type Handlers struct {
	engine *Engine
	reg    *telegram.Registry
}

// Register fills the registry with the command and callback surface and
// returns the route list for the telegram runtime.
func Register(reg *telegram.Registry, e *Engine) []telegram.Route {
	h := &Handlers{engine: e, reg: reg}

	reg.RegisterCommand("/start", commands.Command{
		Description: "перезапустить бота",
		Handler:     h.onStart,
	})
	reg.RegisterCommand("/create", commands.Command{
		Description: "создать приглашение",
		Handler:     h.onCreate,
	})
	reg.RegisterCommand("/done", commands.Command{
		Description: "завершить и сгенерировать",
		Handler:     h.onDone,
	})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "мои приглашения",
		Handler:     h.onStats,
	})
	reg.RegisterCommand("/help", commands.Command{
		Description: "справка",
		Handler:     h.onHelp,
	})

	_ = reg.RegisterCallback("style", h.onStyleCallback)
	_ = reg.RegisterCallback("info", h.onInfoCallback)
	reg.SetTextFallback(h.onFreeText)

	routes := make([]telegram.Route, 0, len(reg.Commands())+4)
	for name, cmd := range reg.Commands() {
		routes = append(routes, telegram.Route{Endpoint: name, Handler: cmd.Handler})
	}
	routes = append(routes,
		telegram.Route{Endpoint: tele.OnText, Handler: h.onText},
		telegram.Route{Endpoint: tele.OnPhoto, Handler: h.onPhoto},
		telegram.Route{Endpoint: tele.OnDocument, Handler: h.onDocument},
		telegram.Route{Endpoint: tele.OnCallback, Handler: h.onCallback},
	)
	return routes
}

func (h *Handlers) send(c tele.Context, r Reply) error {
	if r.Empty() {
		return nil
	}
	if r.Markup != nil {
		return tghelpers.SendWithKeyboard(c, r.Text, r.Markup)
	}
	return tghelpers.SendText(c, r.Text)
}

func (h *Handlers) onStart(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "start")
	return h.send(c, h.engine.Start(ctx, c.Sender().ID))
}

func (h *Handlers) onCreate(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "create")
	return h.send(c, h.engine.Create(ctx, c.Sender().ID))
}

func (h *Handlers) onDone(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "done")
	// the long-running pipeline replies with progress first
	var pre Reply
	h.engine.sessions.With(c.Sender().ID, func(s *Session) {
		if s.Step == StepAwaitingMedia {
			pre = Reply{Text: msgGenerating}
		}
	})
	if !pre.Empty() {
		_ = h.send(c, pre)
	}
	return h.send(c, h.engine.Done(ctx, c.Sender().ID))
}

func (h *Handlers) onStats(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "stats")
	return h.send(c, h.engine.Stats(ctx, c.Sender().ID))
}

func (h *Handlers) onHelp(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "help")
	return h.send(c, h.engine.Help(ctx, c.Sender().ID))
}

// onText routes free text. Command detection runs first so a slash command
// sent while a field is awaited is never swallowed as field content;
// everything else goes through the registry's text fallback.
func (h *Handlers) onText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		name := strings.Fields(text)[0]
		if _, cmd, ok := h.reg.LookupCommand(name); ok {
			return cmd.Handler(c)
		}
		ctx := tghelpers.WithHandler(c, "text")
		logger.BOT.LogAttrs(ctx, slog.LevelDebug, "command.unknown",
			slog.String("event", "command.unknown"),
			slog.String("cmd", logger.Sanitize(name)),
		)
		return h.send(c, Reply{Text: msgHelp})
	}

	if fallback := h.reg.TextFallback(); fallback != nil {
		return fallback(c)
	}
	return nil
}

// onFreeText feeds non-command text into the state machine.
func (h *Handlers) onFreeText(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "text")
	return h.send(c, h.engine.Text(ctx, c.Sender().ID, c.Text()))
}

func (h *Handlers) onPhoto(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "photo")
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	return h.send(c, h.engine.Media(ctx, c.Sender().ID, MediaInput{
		FileID:   photo.FileID,
		UniqueID: photo.UniqueID,
		FileSize: int64(photo.FileSize),
		MimeType: "image/jpeg",
	}))
}

func (h *Handlers) onDocument(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "document")
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	return h.send(c, h.engine.Media(ctx, c.Sender().ID, MediaInput{
		FileID:     doc.FileID,
		UniqueID:   doc.UniqueID,
		FileName:   doc.FileName,
		MimeType:   doc.MIME,
		FileSize:   int64(doc.FileSize),
		IsDocument: true,
	}))
}

// onCallback dispatches button presses through the registry.
func (h *Handlers) onCallback(c tele.Context) error {
	key := callbacks.CallbackKey(c)
	if handler, ok := h.reg.GetCallback(key); ok {
		return handler(c)
	}
	return h.reg.CallbackNotFound()(c)
}

func (h *Handlers) onStyleCallback(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "style")
	defer func() { _ = c.Respond(&tele.CallbackResponse{}) }()

	index, err := callbacks.PayloadInt(c)
	if err != nil {
		logger.BOT.LogAttrs(ctx, slog.LevelWarn, "callback.style.bad_payload",
			slog.String("event", "callback.style.bad_payload"),
			slog.String("payload", logger.Sanitize(callbacks.CallbackPayload(c))),
		)
		return h.send(c, Reply{Text: msgStyleButtons})
	}
	return h.send(c, h.engine.Style(ctx, c.Sender().ID, index))
}

func (h *Handlers) onInfoCallback(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "info")
	defer func() { _ = c.Respond(&tele.CallbackResponse{}) }()

	eventID := strings.TrimSpace(callbacks.CallbackPayload(c))
	if eventID == "" {
		return h.send(c, Reply{Text: msgEventNotFound})
	}
	return h.send(c, h.engine.EventInfo(ctx, c.Sender().ID, eventID))
}
