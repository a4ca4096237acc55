package control

import (
	"testing"
	"time"

	"github.com/vietddude/staleguard/internal/core/config"
	"github.com/vietddude/staleguard/internal/core/guard"
)

func TestNewAgentWiresLazyRetry(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Lazy.DelaysMS = []int{250, 750}
	cfg.Lazy.ReloadOnFailure = true

	a, err := NewAgent(cfg, nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	lc := a.LazyRetry()
	if len(lc.Delays) != 2 ||
		lc.Delays[0] != 250*time.Millisecond || lc.Delays[1] != 750*time.Millisecond {
		t.Errorf("Delays = %v, want [250ms 750ms]", lc.Delays)
	}
	if !lc.ReloadOnFailure {
		t.Error("ReloadOnFailure not carried from config")
	}
	if g, ok := lc.Guard.(*guard.Guard); !ok || g != a.Guard() {
		t.Errorf("Guard = %v, want the agent's guard", lc.Guard)
	}
	if lc.Bus != a.Bus() {
		t.Error("Bus is not the agent's bus")
	}
}

func TestNewAgentLazyRetryDefaultSchedule(t *testing.T) {
	a, err := NewAgent(&config.AppConfig{}, nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	// No configured schedule: leave Delays nil so retry.Do applies its
	// default schedule.
	if lc := a.LazyRetry(); lc.Delays != nil {
		t.Errorf("Delays = %v, want nil", lc.Delays)
	}
}
