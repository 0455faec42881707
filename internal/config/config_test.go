package config

import (
	"testing"
	"time"
)

func TestGetDuration(t *testing.T) {
	t.Setenv("LEAD_TIME", "48h")

	d, err := GetDuration("LEAD_TIME", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 48*time.Hour {
		t.Fatalf("duration = %s, want 48h", d)
	}

	d, err = GetDuration("UNSET_DURATION_KEY", time.Hour)
	if err != nil || d != time.Hour {
		t.Fatalf("fallback = %s, %v; want 1h, nil", d, err)
	}
}

func TestGetDurationRejectsGarbage(t *testing.T) {
	t.Setenv("LEAD_TIME", "soon")
	if _, err := GetDuration("LEAD_TIME", time.Hour); err == nil {
		t.Fatal("expected parse error")
	}

	t.Setenv("LEAD_TIME", "-1h")
	if _, err := GetDuration("LEAD_TIME", time.Hour); err == nil {
		t.Fatal("expected negative duration error")
	}
}

func TestLoadRejectsBufferLongerThanLeadTime(t *testing.T) {
	t.Setenv("LEAD_TIME", "24h")
	t.Setenv("DELIVERY_BUFFER", "48h")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DELIVERY_BUFFER exceeds LEAD_TIME")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORIGIN_CITY", "")
	t.Setenv("LEAD_TIME", "")
	t.Setenv("DELIVERY_BUFFER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OriginCity != "Kandy" {
		t.Fatalf("origin = %q, want Kandy", cfg.OriginCity)
	}
	if cfg.LeadTime != 7*24*time.Hour {
		t.Fatalf("lead time = %s, want 168h", cfg.LeadTime)
	}
}
