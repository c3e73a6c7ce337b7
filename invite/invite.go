// Package invite defines the domain records of the invitation service and
// the storage contract the bot engine depends on.
package invite

import (
	"context"
	"time"
)

// Event is a finalized invitation. EventID is the public join key used by
// registrations and photo adoption, never a database-internal id.
type Event struct {
	EventID    string    `db:"event_id"`
	UserID     int64     `db:"user_id"`
	EventType  string    `db:"event_type"`
	Name       string    `db:"name"`
	EventDate  string    `db:"event_date"`
	EventTime  string    `db:"event_time"`
	Location   string    `db:"location"`
	PhotoURLs  []string  `db:"-"`
	Content    string    `db:"content"`
	StyleIndex int       `db:"style_index"`
	CreatedAt  time.Time `db:"created_at"`
}

// Photo is a persisted record for one uploaded image. EventID stays empty
// until the owning invitation is finalized; a record that is never adopted
// remains an orphan.
type Photo struct {
	PhotoID    string    `db:"photo_id"`
	UserID     int64     `db:"user_id"`
	EventID    string    `db:"event_id"`
	FileURL    string    `db:"file_url"`
	FileName   string    `db:"file_name"`
	MimeType   string    `db:"mime_type"`
	FileSize   int64     `db:"file_size"`
	UploadedAt time.Time `db:"uploaded_at"`
}

// Registration is a guest RSVP, written by the web flow and read back for
// the bot's stats surface.
type Registration struct {
	ID          string    `db:"id"`
	EventID     string    `db:"event_id"`
	GuestName   string    `db:"guest_name"`
	Attending   bool      `db:"attending"`
	GuestsCount int       `db:"guests_count"`
	Comment     string    `db:"comment"`
	CreatedAt   time.Time `db:"created_at"`
}

// Draft accumulates event fields across the conversation. Photos holds
// minted photo IDs in arrival order, not URLs.
type Draft struct {
	EventType  string
	Name       string
	Date       string
	Time       string
	Location   string
	StyleIndex int
	PhotoIDs   []string
}

// AdoptResult reports the outcome of adopting a single photo into an event.
type AdoptResult struct {
	PhotoID string
	Err     error
}

// Storage is the persistence contract for events, photos and registrations.
type Storage interface {
	SaveEvent(ctx context.Context, ev *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	GetUserEvents(ctx context.Context, userID int64) ([]Event, error)

	SavePhoto(ctx context.Context, p *Photo) error
	GetPhoto(ctx context.Context, photoID string) (*Photo, error)
	// AdoptPhotos sets event_id on each photo record and returns a per-item
	// result in the same order as photoIDs. A failed item never aborts the rest.
	AdoptPhotos(ctx context.Context, eventID string, photoIDs []string) []AdoptResult

	SaveRegistration(ctx context.Context, r *Registration) error
	GetEventRegistrations(ctx context.Context, eventID string) ([]Registration, error)
	GetRegistrationCount(ctx context.Context, eventID string) (int, error)
}
