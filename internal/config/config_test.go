package config

import "testing"

func TestEngineConfigDefaults(t *testing.T) {
	var cfg EngineConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.MinOverlap != 0.10 {
		t.Errorf("MinOverlap = %v, want 0.10", cfg.MinOverlap)
	}
	if cfg.FailThreshold != 0.50 {
		t.Errorf("FailThreshold = %v, want 0.50", cfg.FailThreshold)
	}
	if cfg.PassThreshold != 0.85 {
		t.Errorf("PassThreshold = %v, want 0.85", cfg.PassThreshold)
	}

	opts := cfg.Options()
	if opts.Match.MinOverlap != cfg.MinOverlap {
		t.Errorf("Options().Match.MinOverlap = %v, want %v", opts.Match.MinOverlap, cfg.MinOverlap)
	}
	if opts.Thresholds.Pass != cfg.PassThreshold {
		t.Errorf("Options().Thresholds.Pass = %v, want %v", opts.Thresholds.Pass, cfg.PassThreshold)
	}
}

func TestEngineConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"fail above pass", EngineConfig{FailThreshold: 0.9, PassThreshold: 0.8}},
		{"pass above one", EngineConfig{PassThreshold: 1.5}},
		{"overlap above one", EngineConfig{MinOverlap: 1.2}},
		{"negative penalty", EngineConfig{CheckPenalty: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAPIConfigDefaults(t *testing.T) {
	var cfg APIConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.BasePath != "/api" {
		t.Errorf("BasePath = %q, want /api", cfg.BasePath)
	}
	if got := cfg.MaxUploadSizeBytes(); got != 50*1024*1024 {
		t.Errorf("MaxUploadSizeBytes() = %d, want %d", got, 50*1024*1024)
	}
	if len(cfg.AllowedTypes) == 0 {
		t.Error("expected default allowed types")
	}
}

func TestAPIConfigMerge(t *testing.T) {
	base := APIConfig{BasePath: "/api", MaxUploadSize: "50MB"}
	overlay := APIConfig{MaxUploadSize: "10MB", AllowedTypes: []string{"pdf"}}

	base.Merge(&overlay)

	if base.BasePath != "/api" {
		t.Errorf("BasePath = %q, want /api", base.BasePath)
	}
	if base.MaxUploadSize != "10MB" {
		t.Errorf("MaxUploadSize = %q, want 10MB", base.MaxUploadSize)
	}
	if len(base.AllowedTypes) != 1 || base.AllowedTypes[0] != "pdf" {
		t.Errorf("AllowedTypes = %v, want [pdf]", base.AllowedTypes)
	}
}

func TestServerConfigFinalize(t *testing.T) {
	var cfg ServerConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", cfg.Addr())
	}

	bad := ServerConfig{Port: 70000}
	if err := bad.Finalize(); err == nil {
		t.Error("expected invalid port error")
	}
}
