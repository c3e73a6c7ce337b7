// Package storage implements the Postgres persistence adapter and the
// optional Supabase photo mirror.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/invite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Postgres persists invite records in a Postgres database.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open sqlx connection.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

var _ invite.Storage = (*Postgres)(nil)

// SaveEvent inserts a finalized event record.
func (s *Postgres) SaveEvent(ctx context.Context, ev *invite.Event) error {
	if ev == nil {
		return errors.New("storage: nil event")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, user_id, event_type, name, event_date, event_time,
			location, photo_urls, content, style_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.EventID, ev.UserID, ev.EventType, ev.Name, ev.EventDate, ev.EventTime,
		ev.Location, pq.Array(ev.PhotoURLs), ev.Content, ev.StyleIndex, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: save event %s: %w", ev.EventID, err)
	}
	logger.SVCEvents.LogAttrs(ctx, slog.LevelInfo, "event.saved",
		slog.String("event", "event.saved"),
		slog.String("event_id", ev.EventID),
		slog.Int64("user_id", ev.UserID),
		slog.Int("photos", len(ev.PhotoURLs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// GetEvent loads one event by its public id.
func (s *Postgres) GetEvent(ctx context.Context, eventID string) (*invite.Event, error) {
	var (
		ev   invite.Event
		urls pq.StringArray
	)
	row := s.db.QueryRowxContext(ctx, `
		SELECT event_id, user_id, event_type, name, event_date, event_time,
			location, photo_urls, content, style_index, created_at
		FROM events WHERE event_id = $1`, eventID)
	err := row.Scan(&ev.EventID, &ev.UserID, &ev.EventType, &ev.Name, &ev.EventDate,
		&ev.EventTime, &ev.Location, &urls, &ev.Content, &ev.StyleIndex, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get event %s: %w", eventID, err)
	}
	ev.PhotoURLs = []string(urls)
	return &ev, nil
}

// GetUserEvents lists a user's events, newest first.
func (s *Postgres) GetUserEvents(ctx context.Context, userID int64) ([]invite.Event, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT event_id, user_id, event_type, name, event_date, event_time,
			location, photo_urls, content, style_index, created_at
		FROM events WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list events for user %d: %w", userID, err)
	}
	defer rows.Close()

	var events []invite.Event
	for rows.Next() {
		var (
			ev   invite.Event
			urls pq.StringArray
		)
		if err := rows.Scan(&ev.EventID, &ev.UserID, &ev.EventType, &ev.Name, &ev.EventDate,
			&ev.EventTime, &ev.Location, &urls, &ev.Content, &ev.StyleIndex, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan event row: %w", err)
		}
		ev.PhotoURLs = []string(urls)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SavePhoto inserts a photo record. EventID may be empty (orphan until adopted).
func (s *Postgres) SavePhoto(ctx context.Context, p *invite.Photo) error {
	if p == nil {
		return errors.New("storage: nil photo")
	}
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (photo_id, user_id, event_id, file_url, file_name,
			mime_type, file_size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.PhotoID, p.UserID, p.EventID, p.FileURL, p.FileName,
		p.MimeType, p.FileSize, p.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: save photo %s: %w", p.PhotoID, err)
	}
	logger.SVCPhotos.LogAttrs(ctx, slog.LevelInfo, "photo.saved",
		slog.String("event", "photo.saved"),
		slog.String("photo_id", p.PhotoID),
		slog.Int64("user_id", p.UserID),
		slog.Int64("size", p.FileSize),
	)
	return nil
}

// GetPhoto loads one photo record by its minted id.
func (s *Postgres) GetPhoto(ctx context.Context, photoID string) (*invite.Photo, error) {
	var p invite.Photo
	err := s.db.GetContext(ctx, &p, `
		SELECT photo_id, user_id, event_id, file_url, file_name, mime_type, file_size, uploaded_at
		FROM photos WHERE photo_id = $1`, photoID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get photo %s: %w", photoID, err)
	}
	return &p, nil
}

// AdoptPhotos stamps event_id onto each photo record. Each item is updated
// independently so one failure never blocks the rest; the caller inspects
// the per-item results.
func (s *Postgres) AdoptPhotos(ctx context.Context, eventID string, photoIDs []string) []invite.AdoptResult {
	results := make([]invite.AdoptResult, 0, len(photoIDs))
	for _, id := range photoIDs {
		res := invite.AdoptResult{PhotoID: id}
		tag, err := s.db.ExecContext(ctx,
			`UPDATE photos SET event_id = $1 WHERE photo_id = $2`, eventID, id)
		if err == nil {
			if n, affErr := tag.RowsAffected(); affErr == nil && n == 0 {
				err = ErrNotFound
			}
		}
		if err != nil {
			res.Err = fmt.Errorf("storage: adopt photo %s: %w", id, err)
			logger.SVCPhotos.LogAttrs(ctx, slog.LevelWarn, "photo.adopt.fail",
				slog.String("event", "photo.adopt.fail"),
				slog.String("photo_id", id),
				slog.String("event_id", eventID),
				slog.String("err", err.Error()),
			)
		}
		results = append(results, res)
	}
	return results
}

// SaveRegistration inserts a guest RSVP.
func (s *Postgres) SaveRegistration(ctx context.Context, r *invite.Registration) error {
	if r == nil {
		return errors.New("storage: nil registration")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (id, event_id, guest_name, attending, guests_count, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.EventID, r.GuestName, r.Attending, r.GuestsCount, r.Comment, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: save registration for %s: %w", r.EventID, err)
	}
	return nil
}

// GetEventRegistrations lists RSVPs for an event in arrival order.
func (s *Postgres) GetEventRegistrations(ctx context.Context, eventID string) ([]invite.Registration, error) {
	var regs []invite.Registration
	err := s.db.SelectContext(ctx, &regs, `
		SELECT id, event_id, guest_name, attending, guests_count, comment, created_at
		FROM registrations WHERE event_id = $1
		ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("storage: list registrations for %s: %w", eventID, err)
	}
	return regs, nil
}

// GetRegistrationCount returns the number of RSVPs for an event.
func (s *Postgres) GetRegistrationCount(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("storage: count registrations for %s: %w", eventID, err)
	}
	return count, nil
}
