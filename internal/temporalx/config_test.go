package temporalx

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_SWEEP_CRON", "")
	cfg := LoadConfig()
	if cfg.Namespace != "prepcoach" || cfg.TaskQueue != "prepcoach" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SweepCron != "0 2 * * *" {
		t.Fatalf("SweepCron = %q", cfg.SweepCron)
	}
	if cfg.mtls() {
		t.Fatalf("mtls should be off without cert paths")
	}
	t.Setenv("TEMPORAL_CLIENT_CA_PATH", "/tmp/ca.pem")
	if !LoadConfig().mtls() {
		t.Fatalf("mtls should be on with a CA path")
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := Backoff(base, max, i+1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
	if got := Backoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base should default, got %v", got)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	c, err := NewClient(nil)
	if err != nil || c != nil {
		t.Fatalf("expected disabled client, got %v %v", c, err)
	}
}
