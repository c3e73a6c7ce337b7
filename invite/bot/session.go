// Package bot implements the dialogue engine: the conversation state
// machine, photo ingestion and the finalization pipeline.
package bot

import (
	"sync"

	"github.com/m3rciful/invitebot/invite"
)

// Step is the conversation state. Transitions are linear; /start and
// /create force-reset from any step.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingType
	StepAwaitingName
	StepAwaitingDate
	StepAwaitingTime
	StepAwaitingLocation
	StepAwaitingStyle
	StepAwaitingMedia
	StepGenerating
)

var stepNames = map[Step]string{
	StepIdle:             "idle",
	StepAwaitingType:     "awaiting_type",
	StepAwaitingName:     "awaiting_name",
	StepAwaitingDate:     "awaiting_date",
	StepAwaitingTime:     "awaiting_time",
	StepAwaitingLocation: "awaiting_location",
	StepAwaitingStyle:    "awaiting_style",
	StepAwaitingMedia:    "awaiting_media",
	StepGenerating:       "generating",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session holds the per-user conversation state.
type Session struct {
	Step  Step
	Draft invite.Draft
}

// Reset returns the session to idle with an empty draft.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Draft = invite.Draft{}
}

type sessionEntry struct {
	mu sync.Mutex
	s  Session
}

// Sessions is the in-memory conversation store, one session per user id.
// Access goes through With, which holds a per-user lock for the duration of
// the callback so two near-simultaneous updates from the same user cannot
// race on the draft.
type Sessions struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
}

// NewSessions creates an empty store.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[int64]*sessionEntry)}
}

func (st *Sessions) entry(userID int64) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[userID]
	if !ok {
		e = &sessionEntry{}
		st.entries[userID] = e
	}
	return e
}

// With runs fn with exclusive access to the user's session, creating an
// idle session on first access.
func (st *Sessions) With(userID int64, fn func(s *Session)) {
	e := st.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.s)
}

// Snapshot returns a copy of the user's current session.
func (st *Sessions) Snapshot(userID int64) Session {
	var out Session
	st.With(userID, func(s *Session) {
		out = *s
		out.Draft.PhotoIDs = append([]string(nil), s.Draft.PhotoIDs...)
	})
	return out
}
