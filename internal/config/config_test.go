package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marquee/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantAnimations := filepath.Join(tempHome, ".local", "share", "marquee", "animations")
	if cfg.Sign.AnimationsDir != wantAnimations {
		t.Fatalf("unexpected animations dir: got %q want %q", cfg.Sign.AnimationsDir, wantAnimations)
	}
	if cfg.Sign.DeviceName != "CoolLEDX" {
		t.Fatalf("unexpected device name: %q", cfg.Sign.DeviceName)
	}
	if cfg.Sign.BlankAnimation != "blank" {
		t.Fatalf("unexpected blank animation: %q", cfg.Sign.BlankAnimation)
	}
	if cfg.Sign.ReconnectDelay != 5 {
		t.Fatalf("unexpected reconnect delay: %d", cfg.Sign.ReconnectDelay)
	}
	if cfg.Sign.QueueLimit != 0 {
		t.Fatalf("expected unbounded queue by default, got %d", cfg.Sign.QueueLimit)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7770" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	wantHistory := filepath.Join(tempHome, ".local", "share", "marquee", "history.db")
	if cfg.History.Path != wantHistory {
		t.Fatalf("unexpected history path: got %q want %q", cfg.History.Path, wantHistory)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	wantPresets := filepath.Join(tempHome, ".config", "marquee", "presets.yaml")
	if cfg.Presets.File != wantPresets {
		t.Fatalf("unexpected presets file: got %q want %q", cfg.Presets.File, wantPresets)
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected notifications disabled by default, got topic %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q %q", cfg.Logging.Format, cfg.Logging.Level)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Sign.AnimationsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}

	if got := cfg.SocketPath(); got != filepath.Join(cfg.Paths.LogDir, "marquee.sock") {
		t.Fatalf("unexpected socket path: %q", got)
	}
	if got := cfg.PIDPath(); got != filepath.Join(cfg.Paths.LogDir, "marquee.pid") {
		t.Fatalf("unexpected pid path: %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "marquee.toml")

	content := `
[sign]
address = "ff:22:12:22:70:ee"
queue_limit = 16
send_timeout = 30

[paths]
api_bind = "0.0.0.0:9000"

[history]
enabled = false
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Sign.Address != "FF:22:12:22:70:EE" {
		t.Fatalf("expected uppercased address, got %q", cfg.Sign.Address)
	}
	if cfg.Sign.QueueLimit != 16 {
		t.Fatalf("unexpected queue limit: %d", cfg.Sign.QueueLimit)
	}
	if cfg.Sign.SendTimeout != 30 {
		t.Fatalf("unexpected send timeout: %d", cfg.Sign.SendTimeout)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled")
	}
	if cfg.Sign.ConnectRetries != 5 {
		t.Fatalf("expected default connect retries, got %d", cfg.Sign.ConnectRetries)
	}
}

func TestLoadRejectsInvalidAddress(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "marquee.toml")
	content := `
[sign]
address = "not-a-mac"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid address")
	}
	if !strings.Contains(err.Error(), "sign.address") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsNonPositiveTimings(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "marquee.toml")
	content := `
[sign]
address = "FF:22:12:22:70:EE"
reconnect_delay = 0
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for zero reconnect delay")
	}
	if !strings.Contains(err.Error(), "sign.reconnect_delay") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresDeviceIdentity(t *testing.T) {
	cfg := config.Default()
	cfg.Sign.Address = ""
	cfg.Sign.DeviceName = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when both address and device name are empty")
	}
	if !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected remediation hint in error, got: %v", err)
	}
}

func TestLoadAPITokenFromEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MARQUEE_API_TOKEN", "secret-token")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "secret-token" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	samplePath := filepath.Join(tempHome, ".config", "marquee", "config.toml")
	if err := config.CreateSample(samplePath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, resolved, exists, err := config.Load(samplePath)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if resolved != samplePath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Sign.Address == "" {
		t.Fatal("expected sample to configure a sign address")
	}
}
