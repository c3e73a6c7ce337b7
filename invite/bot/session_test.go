package bot

import (
	"sync"
	"testing"
)

func TestSessionsCreatedIdleOnFirstAccess(t *testing.T) {
	st := NewSessions()
	s := st.Snapshot(1)
	if s.Step != StepIdle {
		t.Fatalf("new session step = %v, want idle", s.Step)
	}
	if len(s.Draft.PhotoIDs) != 0 {
		t.Fatalf("new session draft not empty: %+v", s.Draft)
	}
}

func TestSessionsIsolatedPerUser(t *testing.T) {
	st := NewSessions()
	st.With(1, func(s *Session) {
		s.Step = StepAwaitingName
		s.Draft.EventType = "свадьба"
	})
	if s := st.Snapshot(2); s.Step != StepIdle || s.Draft.EventType != "" {
		t.Fatalf("user 2 session contaminated: %+v", s)
	}
	if s := st.Snapshot(1); s.Draft.EventType != "свадьба" {
		t.Fatalf("user 1 session lost state: %+v", s)
	}
}

func TestSessionsConcurrentAppendsDoNotRace(t *testing.T) {
	st := NewSessions()
	st.With(7, func(s *Session) { s.Step = StepAwaitingMedia })

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			st.With(7, func(s *Session) {
				s.Draft.PhotoIDs = append(s.Draft.PhotoIDs, "p")
			})
		}()
	}
	wg.Wait()

	if got := len(st.Snapshot(7).Draft.PhotoIDs); got != n {
		t.Fatalf("photo count = %d, want %d", got, n)
	}
}

func TestSessionResetClearsDraft(t *testing.T) {
	var s Session
	s.Step = StepAwaitingMedia
	s.Draft.PhotoIDs = []string{"a", "b"}
	s.Draft.Name = "x"
	s.Reset()
	if s.Step != StepIdle || s.Draft.Name != "" || len(s.Draft.PhotoIDs) != 0 {
		t.Fatalf("reset left state behind: %+v", s)
	}
}

func TestStepString(t *testing.T) {
	if got := StepAwaitingMedia.String(); got != "awaiting_media" {
		t.Fatalf("StepAwaitingMedia.String() = %q", got)
	}
	if got := Step(99).String(); got != "unknown" {
		t.Fatalf("unknown step String() = %q", got)
	}
}
