package main

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got error: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for port 0")
	}

	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for port 70000")
	}
}

func TestValidateRejectsBadShards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shards = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for shards=0")
	}
}

func TestValidateRejectsBadSampleFraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleFraction = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for sample_fraction=0")
	}

	cfg.SampleFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for sample_fraction=1.5")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for unknown log level")
	}
}
