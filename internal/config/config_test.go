package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func withBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "navigator.db"))
	t.Setenv("AUDIT_LOG_PATH", filepath.Join(t.TempDir(), "audit.jsonl"))
}

func TestLoadDefaults(t *testing.T) {
	withBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ContextProfile != "balanced" {
		t.Errorf("ContextProfile = %q, want balanced", cfg.ContextProfile)
	}
	if cfg.MaxContextChars != 500000 {
		t.Errorf("MaxContextChars = %d, want 500000", cfg.MaxContextChars)
	}
	if cfg.MaxContextTokens != 120000 {
		t.Errorf("MaxContextTokens = %d, want 120000", cfg.MaxContextTokens)
	}
	if cfg.ChunkSize != 1400 {
		t.Errorf("ChunkSize = %d, want 1400", cfg.ChunkSize)
	}
	if cfg.RAGTopK != 8 {
		t.Errorf("RAGTopK = %d, want 8", cfg.RAGTopK)
	}
	if !cfg.EnablePIIRedaction {
		t.Error("EnablePIIRedaction = false, want true")
	}
	if cfg.RBACEnabled {
		t.Error("RBACEnabled = true, want false")
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialDelay != 20*time.Second {
		t.Errorf("RetryInitialDelay = %v, want 20s", cfg.RetryInitialDelay)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	want := []string{".pdf", ".txt", ".md"}
	if len(cfg.AllowedExtensions) != len(want) {
		t.Fatalf("AllowedExtensions = %v, want %v", cfg.AllowedExtensions, want)
	}
	for i, ext := range want {
		if cfg.AllowedExtensions[i] != ext {
			t.Errorf("AllowedExtensions[%d] = %q, want %q", i, cfg.AllowedExtensions[i], ext)
		}
	}
}

func TestLoadStressProfile(t *testing.T) {
	withBaseEnv(t)
	t.Setenv("CONTEXT_PROFILE", "stress")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxContextChars != 8000000 {
		t.Errorf("MaxContextChars = %d, want 8000000", cfg.MaxContextChars)
	}
	if cfg.MaxContextTokens != 1800000 {
		t.Errorf("MaxContextTokens = %d, want 1800000", cfg.MaxContextTokens)
	}
}

func TestLoadInvalidProfile(t *testing.T) {
	withBaseEnv(t)
	t.Setenv("CONTEXT_PROFILE", "turbo")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for unknown profile, got nil")
	}
}

func TestLoadInvalidChunkSize(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"not a number", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBaseEnv(t)
			t.Setenv("CHUNK_SIZE", tt.value)

			if _, err := Load(); err == nil {
				t.Fatal("Load() expected error, got nil")
			}
		})
	}
}

func TestParseExtensions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"standard", ".pdf,.txt,.md", []string{".pdf", ".txt", ".md"}},
		{"mixed case with spaces", " .PDF , .Txt ", []string{".pdf", ".txt"}},
		{"drops invalid entries", ".pdf,txt,.", []string{".pdf"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExtensions(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseExtensions(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("parseExtensions(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.value); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
