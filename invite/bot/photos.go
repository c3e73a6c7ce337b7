package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/invite"
)

// MediaInput is one inbound photo or document attachment, already reduced
// to the fields the engine needs.
type MediaInput struct {
	FileID     string
	UniqueID   string
	FileName   string
	MimeType   string
	FileSize   int64
	IsDocument bool
}

// Media ingests a photo or image document. Acceptance order: step gate,
// type check, size check, provider URL resolution, persistence, then the
// draft append. A failure before the append never changes the running count.
func (e *Engine) Media(ctx context.Context, userID int64, m MediaInput) Reply {
	var (
		accepted bool
		reply    Reply
	)

	e.sessions.With(userID, func(s *Session) {
		if s.Step != StepAwaitingMedia {
			logger.BOT.LogAttrs(ctx, slog.LevelDebug, "photo.ignored",
				slog.String("event", "photo.ignored"),
				slog.Int64("user_id", userID),
				slog.String("step", s.Step.String()),
			)
			return
		}

		if m.IsDocument && !strings.HasPrefix(strings.ToLower(m.MimeType), "image/") {
			reply = Reply{Text: msgPhotoUnsupported}
			return
		}
		if m.FileSize > e.maxBytes {
			logger.BOT.LogAttrs(ctx, slog.LevelInfo, "photo.rejected",
				slog.String("event", "photo.rejected"),
				slog.Int64("user_id", userID),
				slog.Int64("size", m.FileSize),
				slog.String("reason", "too_large"),
			)
			reply = Reply{Text: msgPhotoTooLarge}
			return
		}

		photoID, err := e.ingestPhoto(ctx, userID, m)
		if err != nil {
			logger.BOT.LogAttrs(ctx, slog.LevelWarn, "photo.ingest.fail",
				slog.String("event", "photo.ingest.fail"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			if isProviderTooLarge(err) {
				reply = Reply{Text: msgPhotoTooLarge}
				return
			}
			reply = Reply{Text: msgPhotoRetry}
			return
		}

		s.Draft.PhotoIDs = append(s.Draft.PhotoIDs, photoID)
		accepted = true
		reply = Reply{Text: fmt.Sprintf("Фото сохранено (всего: %d). Ещё фото или /done.", len(s.Draft.PhotoIDs))}
	})

	if accepted {
		logger.BOT.LogAttrs(ctx, slog.LevelInfo, "photo.accepted",
			slog.String("event", "photo.accepted"),
			slog.Int64("user_id", userID),
		)
	}
	return reply
}

// isProviderTooLarge recognizes Telegram's oversize-attachment errors so the
// user gets a tailored message instead of a generic retry prompt.
func isProviderTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file is too big") ||
		strings.Contains(msg, "request entity too large")
}

// ingestPhoto resolves the provider URL, optionally mirrors the binary and
// persists the orphan photo record. The returned id goes into the draft.
func (e *Engine) ingestPhoto(ctx context.Context, userID int64, m MediaInput) (string, error) {
	fileURL, err := e.files.ResolveURL(ctx, m.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	if e.mirror != nil {
		if mirrored, mErr := e.mirror.Mirror(ctx, fileURL, userID, m.FileName, m.MimeType); mErr == nil {
			fileURL = mirrored
		} else {
			logger.SVCPhotos.LogAttrs(ctx, slog.LevelWarn, "photo.mirror.fail",
				slog.String("event", "photo.mirror.fail"),
				slog.Int64("user_id", userID),
				slog.String("err", mErr.Error()),
			)
		}
	}

	handle := m.UniqueID
	if handle == "" {
		handle = m.FileID
	}
	photoID := invite.NewPhotoID(userID, handle)

	mimeType := m.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	fileName := m.FileName
	if fileName == "" {
		fileName = photoID + ".jpg"
	}

	photo := &invite.Photo{
		PhotoID:    photoID,
		UserID:     userID,
		EventID:    "",
		FileURL:    fileURL,
		FileName:   fileName,
		MimeType:   mimeType,
		FileSize:   m.FileSize,
		UploadedAt: time.Now().UTC(),
	}
	if err := e.storage.SavePhoto(ctx, photo); err != nil {
		return "", fmt.Errorf("persist photo record: %w", err)
	}
	return photoID, nil
}
