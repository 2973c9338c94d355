package app

import (
	"testing"

	"github.com/rs/zerolog"

	"ai-interview-relay-service/internal/config"
)

func TestApplication_Lifecycle(t *testing.T) {
	cfg := &config.Configuration{}
	cfg.Observability.LogLevel = "error"
	cfg.Observability.LogFormat = "json"
	cfg.Realtime.Provider = "mock"
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	a := New(cfg)
	if a.Cfg != cfg {
		t.Fatal("expected configuration kept")
	}
	if a.Uptime() != 0 {
		t.Errorf("expected zero uptime before start, got %v", a.Uptime())
	}

	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time set")
	}
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Errorf("expected error level applied, got %v", zerolog.GlobalLevel())
	}

	a.Shutdown()
}
