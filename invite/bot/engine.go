package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/telegram/keyboard"
	"github.com/m3rciful/invitebot/invite"
	"github.com/m3rciful/invitebot/invite/generator"

	tele "gopkg.in/telebot.v4"
)

// Generator produces invitation content from draft facts.
type Generator interface {
	Generate(ctx context.Context, facts generator.Facts, userID int64) (string, error)
}

// FileResolver turns a provider file handle into a fetchable URL.
type FileResolver interface {
	ResolveURL(ctx context.Context, fileID string) (string, error)
}

// Mirror copies a provider-hosted binary into durable storage.
type Mirror interface {
	Mirror(ctx context.Context, srcURL string, userID int64, fileName, mimeType string) (string, error)
}

// Reply is what the engine wants sent back to the user. An empty reply
// means nothing should be sent.
type Reply struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool {
	return r.Text == "" && r.Markup == nil
}

// Options wires the engine's collaborators.
type Options struct {
	Storage        invite.Storage
	Generator      Generator
	Files          FileResolver
	Mirror         Mirror
	Styles         []string
	PublicBaseURL  string
	MaxUploadBytes int64
}

// Engine drives the invitation conversation. All methods take plain inputs
// and return a Reply, so the transport layer stays a thin shell.
type Engine struct {
	storage  invite.Storage
	gen      Generator
	files    FileResolver
	mirror   Mirror
	sessions *Sessions
	styles   []string
	baseURL  string
	maxBytes int64
}

// NewEngine validates options and builds the engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("bot: storage is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("bot: generator is required")
	}
	if opts.Files == nil {
		return nil, fmt.Errorf("bot: file resolver is required")
	}
	if len(opts.Styles) == 0 {
		return nil, fmt.Errorf("bot: at least one style is required")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Engine{
		storage:  opts.Storage,
		gen:      opts.Generator,
		files:    opts.Files,
		mirror:   opts.Mirror,
		sessions: NewSessions(),
		styles:   append([]string(nil), opts.Styles...),
		baseURL:  strings.TrimRight(opts.PublicBaseURL, "/"),
		maxBytes: opts.MaxUploadBytes,
	}, nil
}

// Sessions exposes the session store for inspection.
func (e *Engine) Sessions() *Sessions {
	return e.sessions
}

// ShareURL builds the public link for an event.
func (e *Engine) ShareURL(eventID string) string {
	return e.baseURL + "/event/" + eventID
}

// Start resets the session and shows the command list. While a
// finalization is in flight the session is busy and stays untouched.
func (e *Engine) Start(ctx context.Context, userID int64) Reply {
	busy := false
	e.sessions.With(userID, func(s *Session) {
		if s.Step == StepGenerating {
			busy = true
			return
		}
		s.Reset()
	})
	if busy {
		return Reply{Text: msgBusy}
	}
	logger.BOT.LogAttrs(ctx, slog.LevelInfo, "session.reset",
		slog.String("event", "session.reset"),
		slog.Int64("user_id", userID),
		slog.String("cmd", "/start"),
	)
	return Reply{Text: msgWelcome, Markup: keyboard.RemoveKeyboard()}
}

// Create resets the session and enters the first collection step. Like
// Start, it is rejected as busy while a finalization is in flight.
func (e *Engine) Create(ctx context.Context, userID int64) Reply {
	busy := false
	e.sessions.With(userID, func(s *Session) {
		if s.Step == StepGenerating {
			busy = true
			return
		}
		s.Reset()
		s.Step = StepAwaitingType
	})
	if busy {
		return Reply{Text: msgBusy}
	}
	logger.BOT.LogAttrs(ctx, slog.LevelInfo, "creation.started",
		slog.String("event", "creation.started"),
		slog.Int64("user_id", userID),
	)
	return Reply{Text: msgAskType}
}

// Help shows the command list without touching the session.
func (e *Engine) Help(ctx context.Context, userID int64) Reply {
	return Reply{Text: msgHelp}
}

// Text handles a free-text message against the current step. Each step's
// handler only writes the draft field that belongs to it.
func (e *Engine) Text(ctx context.Context, userID int64, text string) Reply {
	text = strings.TrimSpace(text)
	var reply Reply

	e.sessions.With(userID, func(s *Session) {
		switch s.Step {
		case StepIdle:
			reply = Reply{Text: msgIdleHint}
		case StepAwaitingType:
			if text == "" {
				reply = Reply{Text: msgEmptyField}
				return
			}
			s.Draft.EventType = text
			s.Step = StepAwaitingName
			reply = Reply{Text: msgAskName}
		case StepAwaitingName:
			if text == "" {
				reply = Reply{Text: msgEmptyField}
				return
			}
			s.Draft.Name = text
			s.Step = StepAwaitingDate
			reply = Reply{Text: msgAskDate}
		case StepAwaitingDate:
			if text == "" {
				reply = Reply{Text: msgEmptyField}
				return
			}
			s.Draft.Date = text
			s.Step = StepAwaitingTime
			reply = Reply{Text: msgAskTime}
		case StepAwaitingTime:
			if text == "" {
				reply = Reply{Text: msgEmptyField}
				return
			}
			s.Draft.Time = text
			s.Step = StepAwaitingLocation
			reply = Reply{Text: msgAskLocation}
		case StepAwaitingLocation:
			if text == "" {
				reply = Reply{Text: msgEmptyField}
				return
			}
			s.Draft.Location = text
			s.Step = StepAwaitingStyle
			reply = Reply{Text: msgAskStyle, Markup: e.styleKeyboard()}
		case StepAwaitingStyle:
			// styles are chosen by button only
			reply = Reply{Text: msgStyleButtons, Markup: e.styleKeyboard()}
		case StepAwaitingMedia:
			reply = Reply{Text: msgAskMedia}
		case StepGenerating:
			logger.BOT.LogAttrs(ctx, slog.LevelDebug, "input.busy",
				slog.String("event", "input.busy"),
				slog.Int64("user_id", userID),
			)
			reply = Reply{Text: msgBusy}
		}
	})
	return reply
}

// Style handles a style button press. An index outside the known set
// re-prompts without advancing.
func (e *Engine) Style(ctx context.Context, userID int64, index int) Reply {
	var reply Reply
	e.sessions.With(userID, func(s *Session) {
		if s.Step != StepAwaitingStyle {
			reply = Reply{Text: msgNotCreating}
			return
		}
		if index < 0 || index >= len(e.styles) {
			reply = Reply{Text: msgStyleButtons, Markup: e.styleKeyboard()}
			return
		}
		s.Draft.StyleIndex = index
		s.Step = StepAwaitingMedia
		reply = Reply{Text: msgAskMedia}
	})
	if reply.Text == msgAskMedia {
		logger.BOT.LogAttrs(ctx, slog.LevelInfo, "style.selected",
			slog.String("event", "style.selected"),
			slog.Int64("user_id", userID),
			slog.String("style", e.styleName(index)),
		)
	}
	return reply
}

// Stats lists the caller's finalized events as buttons.
func (e *Engine) Stats(ctx context.Context, userID int64) Reply {
	events, err := e.storage.GetUserEvents(ctx, userID)
	if err != nil {
		logger.BOT.LogAttrs(ctx, slog.LevelError, "stats.fail",
			slog.String("event", "stats.fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgGenericError}
	}
	if len(events) == 0 {
		return Reply{Text: msgNoEvents}
	}

	buttons := make([]keyboard.InlineBtn, 0, len(events))
	for _, ev := range events {
		label := ev.Name
		if ev.EventDate != "" {
			label = fmt.Sprintf("%s (%s)", ev.Name, ev.EventDate)
		}
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   label,
			Unique: "info",
			Data:   ev.EventID,
		})
	}
	return Reply{Text: msgStatsHeader, Markup: keyboard.InlineButtons(buttons)}
}

// EventInfo replies with event details, the guest list and attendance
// totals. Only the owner may see an event's details.
func (e *Engine) EventInfo(ctx context.Context, userID int64, eventID string) Reply {
	ev, err := e.storage.GetEvent(ctx, eventID)
	if err != nil || ev == nil || ev.UserID != userID {
		if err != nil {
			logger.BOT.LogAttrs(ctx, slog.LevelWarn, "info.fail",
				slog.String("event", "info.fail"),
				slog.String("event_id", eventID),
				slog.String("err", err.Error()),
			)
		}
		return Reply{Text: msgEventNotFound}
	}

	regs, err := e.storage.GetEventRegistrations(ctx, eventID)
	if err != nil {
		logger.BOT.LogAttrs(ctx, slog.LevelWarn, "info.registrations.fail",
			slog.String("event", "info.registrations.fail"),
			slog.String("event_id", eventID),
			slog.String("err", err.Error()),
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s, %s %s\n%s\n", ev.Name, ev.EventType, ev.EventDate, ev.EventTime, ev.Location)
	fmt.Fprintf(&b, "Ссылка: %s\n", e.ShareURL(ev.EventID))

	attending := 0
	totalGuests := 0
	for _, r := range regs {
		if r.Attending {
			attending++
			guests := r.GuestsCount
			if guests <= 0 {
				guests = 1
			}
			totalGuests += guests
		}
	}
	fmt.Fprintf(&b, "\nОтветов: %d, придут: %d, всего гостей: %d\n", len(regs), attending, totalGuests)
	if len(regs) > 0 {
		b.WriteString("\nГости:\n")
		for _, r := range regs {
			mark := "−"
			if r.Attending {
				mark = "+"
			}
			fmt.Fprintf(&b, "%s %s", mark, r.GuestName)
			if r.Attending && r.GuestsCount > 1 {
				fmt.Fprintf(&b, " (+%d)", r.GuestsCount-1)
			}
			b.WriteString("\n")
		}
	}
	return Reply{Text: b.String()}
}

func (e *Engine) styleKeyboard() *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(e.styles))
	for i, name := range e.styles {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   name,
			Unique: "style",
			Data:   strconv.Itoa(i),
		})
	}
	return keyboard.InlineButtonsNPerRow(buttons, 2)
}

func (e *Engine) styleName(index int) string {
	if index < 0 || index >= len(e.styles) {
		return ""
	}
	return e.styles[index]
}
