package classify

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsChunkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"vite stale import", errors.New("Failed to fetch dynamically imported module: https://app.example.com/assets/Dashboard-8f3a.js"), true},
		{"firefox module error", errors.New("error loading dynamically imported module"), true},
		{"safari module script", errors.New("Importing a module script failed."), true},
		{"webpack chunk", errors.New("ChunkLoadError: Loading chunk 42 failed"), true},
		{"css chunk", errors.New("Loading CSS chunk vendors failed"), true},
		{"wrapped", fmt.Errorf("boundary caught: %w", errors.New("Failed to load module script")), true},
		{"plain network error", errors.New("dial tcp: connection refused"), false},
		{"application error", errors.New("cannot read properties of undefined"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChunkError(tt.err); got != tt.want {
				t.Errorf("IsChunkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestShouldIgnore(t *testing.T) {
	ignore := []string{"ResizeObserver loop", "Script error."}

	tests := []struct {
		name     string
		messages []string
		want     bool
	}{
		{"empty messages", nil, false},
		{"matching message", []string{"ResizeObserver loop limit exceeded"}, true},
		{"case insensitive", []string{"resizeobserver LOOP completed"}, true},
		{"second message matches", []string{"something else", "Script error."}, true},
		{"no match", []string{"Loading chunk 3 failed"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldIgnore(tt.messages, ignore); got != tt.want {
				t.Errorf("ShouldIgnore(%v) = %v, want %v", tt.messages, got, tt.want)
			}
		})
	}

	if ShouldIgnore([]string{"anything"}, nil) {
		t.Error("empty ignore list must never match")
	}
	if ShouldIgnore([]string{"anything"}, []string{""}) {
		t.Error("empty ignore entry must never match")
	}
}
