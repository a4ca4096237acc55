package cli

import (
	"context"
	"log/slog"
	"testing"
)

func TestInitLoggingJSONFormat(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	initLogging("info", "json", false)

	h := slog.Default().Handler()
	if _, ok := h.(*slog.JSONHandler); !ok {
		t.Fatalf("handler = %T, want *slog.JSONHandler", h)
	}
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug enabled at info level")
	}
	if !h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info not enabled")
	}
}

func TestInitLoggingDebugFlagOverridesLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	initLogging("info", "json", true)

	if !slog.Default().Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug flag did not lower the level")
	}
}
