package logger

import (
	"context"
	"testing"

	"log/slog"
)

func TestComponentLoggersUsableBeforeInit(t *testing.T) {
	for name, logg := range map[string]*slog.Logger{
		"L":         L,
		"DB":        DB,
		"TG":        TG,
		"MIG":       MIG,
		"TWire":     TWire,
		"SVCEvents": SVCEvents,
		"SVCPhotos": SVCPhotos,
		"GEN":       GEN,
		"BOT":       BOT,
	} {
		if logg == nil {
			t.Fatalf("component logger %s is nil before InitLogger", name)
		}
	}

	// must not panic without InitLogger
	GEN.LogAttrs(context.Background(), slog.LevelDebug, "seed.check",
		slog.String("event", "seed.check"),
	)
	Warn(context.Background(), "generator", "seed.check")
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	allowed := 0
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("sampler allowed %d of 9, want 3", allowed)
	}
}
