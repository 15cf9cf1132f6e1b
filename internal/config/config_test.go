package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ServiceName != "matchqueue-api" {
		t.Fatalf("unexpected ServiceName: %q", cfg.ServiceName)
	}
	if cfg.MatchMinQueue != 30 {
		t.Fatalf("unexpected MatchMinQueue: %d", cfg.MatchMinQueue)
	}
	if cfg.MatchMaxWait != 60*time.Second {
		t.Fatalf("unexpected MatchMaxWait: %s", cfg.MatchMaxWait)
	}
	if cfg.ResultVoteThreshold != 7 {
		t.Fatalf("unexpected ResultVoteThreshold: %d", cfg.ResultVoteThreshold)
	}
	if cfg.ResultTimeout != 40*time.Minute {
		t.Fatalf("unexpected ResultTimeout: %s", cfg.ResultTimeout)
	}
	if cfg.ReportThreshold != 3 {
		t.Fatalf("unexpected ReportThreshold: %d", cfg.ReportThreshold)
	}
	if cfg.PenaltyDuration != 24*time.Hour {
		t.Fatalf("unexpected PenaltyDuration: %s", cfg.PenaltyDuration)
	}
	if cfg.RatingKFactor != 32 {
		t.Fatalf("unexpected RatingKFactor: %d", cfg.RatingKFactor)
	}
	if cfg.QueueOpenHour != 18 || cfg.QueueCloseHour != 2 {
		t.Fatalf("unexpected queue hours: %d-%d", cfg.QueueOpenHour, cfg.QueueCloseHour)
	}
}

func TestLoad_MatchingValidation(t *testing.T) {
	t.Run("min queue below one match", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("MATCHING_MIN_QUEUE", "5")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for MATCHING_MIN_QUEUE below 10")
		}
	})

	t.Run("candidate limit below min queue", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("MATCHING_MIN_QUEUE", "30")
		t.Setenv("MATCHING_CANDIDATE_LIMIT", "20")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for candidate limit below min queue")
		}
	})
}

func TestLoad_ResultVoteThresholdBounds(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("RESULT_VOTE_THRESHOLD", "11")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for vote threshold above match capacity")
	}
}

func TestLoad_QueueHourBounds(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("QUEUE_OPEN_HOUR", "24")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range queue hour")
	}
}

func TestLoad_PushRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PUSHQUEUE_ENABLED", "true")
	t.Setenv("PUSHQUEUE_ENDPOINT_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PUSHQUEUE_ENABLED=true without PUSHQUEUE_ENDPOINT_URL")
	}
}

func TestLoad_BetterStackConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "s1765114.eu-fsn-3.betterstackdata.com")
	t.Setenv("BETTERSTACK_TOKEN", "token-123")
	t.Setenv("BETTERSTACK_TIMEOUT", "4s")
	t.Setenv("BETTERSTACK_MIN_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.BetterStackEnabled {
		t.Fatalf("expected BetterStackEnabled=true")
	}
	if cfg.BetterStackEndpoint != "s1765114.eu-fsn-3.betterstackdata.com" {
		t.Fatalf("unexpected BetterStackEndpoint: %q", cfg.BetterStackEndpoint)
	}
	if cfg.BetterStackToken != "token-123" {
		t.Fatalf("unexpected BetterStackToken")
	}
	if cfg.BetterStackTimeout != 4*time.Second {
		t.Fatalf("unexpected BetterStackTimeout: %s", cfg.BetterStackTimeout)
	}
	if cfg.BetterStackMinLevel.String() != "warn" {
		t.Fatalf("unexpected BetterStackMinLevel: %s", cfg.BetterStackMinLevel.String())
	}
}
