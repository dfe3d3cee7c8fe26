package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchSpec(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Bind != "127.0.0.1" || cfg.Server.Port != 6379 || cfg.Server.NumShards != 256 {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Memory.EvictionPolicy != "allkeys-lru" || cfg.Memory.EvictionSampleSize != 5 {
		t.Fatalf("unexpected memory defaults: %+v", cfg.Memory)
	}
	if !cfg.TCPNoDelayEffective() {
		t.Fatal("tcp_nodelay must default to true")
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REDISTILL_CONFIG", filepath.Join(dir, "does-not-exist.toml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("missing file must not be a fatal error: %v", err)
	}
	if cfg.Server.Port != 6379 {
		t.Fatalf("want default port, got %d", cfg.Server.Port)
	}
}

func TestExplicitFalseNoDelayIsHonored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redistill.toml")
	contents := "[performance]\ntcp_nodelay = false\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDISTILL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TCPNoDelayEffective() {
		t.Fatal("explicit tcp_nodelay=false must be honored, not overridden to true")
	}
}

func TestAbsentNoDelayDefaultsTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redistill.toml")
	contents := "[server]\nport = 7000\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDISTILL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TCPNoDelayEffective() {
		t.Fatal("absent tcp_nodelay must default to true")
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("want overridden port 7000, got %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REDISTILL_CONFIG", filepath.Join(dir, "missing.toml"))
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_PORT", "7379")
	t.Setenv("REDIS_BIND", "0.0.0.0")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Security.Password != "s3cret" || cfg.Server.Port != 7379 || cfg.Server.Bind != "0.0.0.0" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestUnknownEvictionPolicyIsPreservedByConfig(t *testing.T) {
	// Fallback to allkeys-lru happens in internal/eviction.New, not here:
	// config.Load is a pure pass-through of whatever string is configured.
	dir := t.TempDir()
	path := filepath.Join(dir, "redistill.toml")
	if err := os.WriteFile(path, []byte("[memory]\neviction_policy = \"bogus\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDISTILL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Memory.EvictionPolicy != "bogus" {
		t.Fatalf("want pass-through of raw string, got %q", cfg.Memory.EvictionPolicy)
	}
}
