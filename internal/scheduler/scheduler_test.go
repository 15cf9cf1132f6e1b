package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestNew_DefaultsConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(nil, nil, nil, nil, Config{QueueCloseHour: 2}, logger)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	if s.cfg.MatchmakingInterval != time.Minute {
		t.Fatalf("expected default matchmaking interval, got %s", s.cfg.MatchmakingInterval)
	}
	if s.cfg.SweepInterval != time.Minute {
		t.Fatalf("expected default sweep interval, got %s", s.cfg.SweepInterval)
	}
	if s.cfg.LockTTL != 30*time.Second {
		t.Fatalf("expected default lock TTL, got %s", s.cfg.LockTTL)
	}
}

func TestWithLock_NoManagerRunsInline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(nil, nil, nil, nil, Config{}, logger)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer s.Shutdown()

	ran := false
	s.withLock(context.Background(), "jobs:test", func(context.Context) { ran = true })
	if !ran {
		t.Fatalf("expected job to run without a lock manager")
	}
}
