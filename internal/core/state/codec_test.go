package state

import (
	"strings"
	"testing"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/infra/page"
)

func newTestPage(t *testing.T, rawURL string) *page.Memory {
	t.Helper()
	p, err := page.NewMemory(rawURL)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	return p
}

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		retryID string
		attempt int
	}{
		{"first attempt", "r1", 1},
		{"zero attempt", "cycle-abc", 0},
		{"fallback sentinel", "r9", domain.AttemptFallbackShown},
		{"high attempt", "550e8400-e29b-41d4-a716-446655440000", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPage(t, "https://app.example.com/dashboard?tab=sales")
			c := NewCodec(p, nil)

			c.Write(tt.retryID, tt.attempt)

			got := c.Read()
			if got == nil {
				t.Fatal("Read returned nil after Write")
			}
			if got.RetryID != tt.retryID || got.Attempt != tt.attempt {
				t.Errorf("Read = %+v, want {%s %d}", got, tt.retryID, tt.attempt)
			}
		})
	}
}

func TestCodecPreservesUnrelatedParams(t *testing.T) {
	p := newTestPage(t, "https://app.example.com/?tab=sales&lang=en")
	c := NewCodec(p, nil)

	c.Write("r1", 2)

	u, _ := p.Current()
	q := u.Query()
	if q.Get("tab") != "sales" || q.Get("lang") != "en" {
		t.Errorf("unrelated params not preserved: %s", u.RawQuery)
	}

	c.Clear()

	u, _ = p.Current()
	q = u.Query()
	if q.Has(ParamRetryID) || q.Has(ParamRetryAttempt) {
		t.Errorf("params not cleared: %s", u.RawQuery)
	}
	if q.Get("tab") != "sales" {
		t.Errorf("Clear dropped unrelated params: %s", u.RawQuery)
	}
}

func TestCodecReadInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no params", "https://app.example.com/"},
		{"id only", "https://app.example.com/?sg_retry_id=r1"},
		{"attempt only", "https://app.example.com/?sg_retry_attempt=2"},
		{"non-numeric attempt", "https://app.example.com/?sg_retry_id=r1&sg_retry_attempt=two"},
		{"float attempt", "https://app.example.com/?sg_retry_id=r1&sg_retry_attempt=1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPage(t, tt.url)
			if got := NewCodec(p, nil).Read(); got != nil {
				t.Errorf("Read = %+v, want nil", got)
			}
		})
	}
}

func TestCodecUnreadableAddress(t *testing.T) {
	p := newTestPage(t, "https://app.example.com/")
	p.BrokenURL = true
	c := NewCodec(p, nil)

	if got := c.Read(); got != nil {
		t.Errorf("Read on broken address = %+v, want nil", got)
	}

	// Write and Clear must swallow the failure.
	c.Write("r1", 1)
	c.Clear()
	if len(p.Replaced) != 0 {
		t.Errorf("expected no rewrites on broken address, got %v", p.Replaced)
	}
}

func TestCodecReloadURL(t *testing.T) {
	p := newTestPage(t, "https://app.example.com/app?tab=sales")
	c := NewCodec(p, nil)

	u, err := c.ReloadURL("r1", 2)
	if err != nil {
		t.Fatalf("ReloadURL failed: %v", err)
	}

	q := u.Query()
	if q.Get(ParamRetryID) != "r1" || q.Get(ParamRetryAttempt) != "2" {
		t.Errorf("reload url missing retry params: %s", u.String())
	}
	if q.Get("tab") != "sales" {
		t.Errorf("reload url dropped unrelated params: %s", u.String())
	}
	// Building the URL must not navigate by itself.
	if p.NavigationCount() != 0 {
		t.Error("ReloadURL caused a navigation")
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("GenerateID returned empty string")
		}
		if seen[id] {
			t.Fatalf("GenerateID returned duplicate %q", id)
		}
		seen[id] = true
	}

	// Default path yields UUIDs.
	if id := GenerateID(); strings.Count(id, "-") != 4 {
		t.Errorf("expected uuid-shaped id, got %q", id)
	}
}
