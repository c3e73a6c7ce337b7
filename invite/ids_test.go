package invite

import (
	"strings"
	"testing"
)

func TestNewEventIDFormat(t *testing.T) {
	id := NewEventID()
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "event" {
		t.Fatalf("unexpected event id shape: %q", id)
	}
	if len(parts[2]) != 8 {
		t.Fatalf("suffix length = %d, want 8 (%q)", len(parts[2]), id)
	}
	for _, r := range parts[2] {
		if !strings.ContainsRune(base36Alphabet, r) {
			t.Fatalf("suffix contains non-base36 rune %q in %q", r, id)
		}
	}
}

func TestNewEventIDUniqueSameMillisecond(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := NewEventID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate event id after %d mints: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewPhotoIDTruncatesLongHandles(t *testing.T) {
	handle := strings.Repeat("x", 100)
	id := NewPhotoID(42, handle)
	if !strings.HasPrefix(id, "photo_") {
		t.Fatalf("unexpected photo id shape: %q", id)
	}
	if !strings.HasSuffix(id, "_42_"+strings.Repeat("x", 24)) {
		t.Fatalf("handle not truncated to 24 chars: %q", id)
	}
}
