package api

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.AceStepURL != "http://localhost:8001" {
		t.Errorf("AceStepURL = %q", cfg.AceStepURL)
	}
	if cfg.WaitTimeout != 300*time.Second {
		t.Errorf("WaitTimeout = %v, want 5m", cfg.WaitTimeout)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("REELPOD_ADDR", ":9100")
	t.Setenv("ACESTEP_API_URL", "http://acestep:8001")
	t.Setenv("IMAGE_API_URL", "http://sdxl:7000/generate")
	t.Setenv("REELPOD_WAIT_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr != ":9100" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.AceStepURL != "http://acestep:8001" {
		t.Errorf("AceStepURL = %q", cfg.AceStepURL)
	}
	if cfg.ImageAPIURL != "http://sdxl:7000/generate" {
		t.Errorf("ImageAPIURL = %q", cfg.ImageAPIURL)
	}
	if cfg.WaitTimeout != 30*time.Second {
		t.Errorf("WaitTimeout = %v", cfg.WaitTimeout)
	}
}
