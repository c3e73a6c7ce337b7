package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/invite"
	"github.com/m3rciful/invitebot/invite/generator"
)

// Done runs the finalization pipeline. It only fires from awaiting_media;
// any failure resets the session to idle so the user is never stuck in
// generating. The event id is not revealed until the event record is
// durably persisted.
func (e *Engine) Done(ctx context.Context, userID int64) Reply {
	var draft invite.Draft
	started := false

	e.sessions.With(userID, func(s *Session) {
		if s.Step != StepAwaitingMedia {
			return
		}
		s.Step = StepGenerating
		draft = s.Draft
		draft.PhotoIDs = append([]string(nil), s.Draft.PhotoIDs...)
		started = true
	})
	if !started {
		return Reply{Text: msgNotCreating}
	}

	reply := e.finalize(ctx, userID, draft)

	// the session always leaves generating, success or not; only the
	// generating state is reset so a state that moved on stays intact
	e.sessions.With(userID, func(s *Session) {
		if s.Step == StepGenerating {
			s.Reset()
		}
	})
	return reply
}

func (e *Engine) finalize(ctx context.Context, userID int64, draft invite.Draft) Reply {
	start := time.Now()

	// 1. resolve queued photo ids; a missing record is skipped, not fatal
	photoURLs := e.resolvePhotoURLs(ctx, draft.PhotoIDs)

	// 2. fresh event id per attempt
	eventID := invite.NewEventID()
	shareURL := e.ShareURL(eventID)

	// 3. generation aborts the whole attempt on failure
	facts := generator.Facts{
		EventType: draft.EventType,
		Name:      draft.Name,
		Date:      draft.Date,
		Time:      draft.Time,
		Location:  draft.Location,
		Style:     e.styleName(draft.StyleIndex),
		PhotoURLs: photoURLs,
	}
	content, err := e.gen.Generate(ctx, facts, userID)
	if err != nil {
		logger.BOT.LogAttrs(ctx, slog.LevelError, "finalize.generate.fail",
			slog.String("event", "finalize.generate.fail"),
			slog.Int64("user_id", userID),
			slog.String("event_id", eventID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgGenerateFailed}
	}
	content = generator.BindEventID(ctx, content, eventID, shareURL)

	// 4. persist before telling the user anything succeeded
	ev := &invite.Event{
		EventID:    eventID,
		UserID:     userID,
		EventType:  draft.EventType,
		Name:       draft.Name,
		EventDate:  draft.Date,
		EventTime:  draft.Time,
		Location:   draft.Location,
		PhotoURLs:  photoURLs,
		Content:    content,
		StyleIndex: draft.StyleIndex,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.storage.SaveEvent(ctx, ev); err != nil {
		logger.BOT.LogAttrs(ctx, slog.LevelError, "finalize.save.fail",
			slog.String("event", "finalize.save.fail"),
			slog.Int64("user_id", userID),
			slog.String("event_id", eventID),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgSaveFailed}
	}

	// 5. best-effort adoption; partial failure leaves orphans behind
	if len(draft.PhotoIDs) > 0 {
		failed := 0
		for _, res := range e.storage.AdoptPhotos(ctx, eventID, draft.PhotoIDs) {
			if res.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			logger.BOT.LogAttrs(ctx, slog.LevelWarn, "finalize.adopt.partial",
				slog.String("event", "finalize.adopt.partial"),
				slog.String("event_id", eventID),
				slog.Int("failed", failed),
				slog.Int("photos", len(draft.PhotoIDs)),
			)
		}
	}

	logger.BOT.LogAttrs(ctx, slog.LevelInfo, "finalize.ok",
		slog.String("event", "finalize.ok"),
		slog.Int64("user_id", userID),
		slog.String("event_id", eventID),
		slog.Int("photos", len(photoURLs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	// 6 and 7: the caller resets the session; reply carries the link
	return Reply{Text: fmt.Sprintf("Готово! Ваше приглашение: %s", shareURL)}
}

// resolvePhotoURLs maps queued photo ids to stored URLs, preserving arrival
// order and skipping records that fail to load.
func (e *Engine) resolvePhotoURLs(ctx context.Context, photoIDs []string) []string {
	urls := make([]string, 0, len(photoIDs))
	for _, id := range photoIDs {
		p, err := e.storage.GetPhoto(ctx, id)
		if err != nil || p == nil {
			logger.BOT.LogAttrs(ctx, slog.LevelWarn, "finalize.photo.skip",
				slog.String("event", "finalize.photo.skip"),
				slog.String("photo_id", id),
			)
			continue
		}
		urls = append(urls, p.FileURL)
	}
	return urls
}
