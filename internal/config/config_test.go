package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "models_dir: /m\nport: 9001\nserver_bin: /opt/llama-server\nlog_level: debug\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelsDir != "/m" || cfg.Port != 9001 || cfg.ServerBin != "/opt/llama-server" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"models_dir":"/j","port":7070,"startup_timeout_sec":15}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelsDir != "/j" || cfg.Port != 7070 || cfg.StartupTimeoutSec != 15 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "models_dir=\"/t\"\nport=8081\nhost=\"0.0.0.0\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelsDir != "/t" || cfg.Port != 8081 || cfg.Host != "0.0.0.0" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestMergeOverlaysNonZero(t *testing.T) {
	base := Default()
	merged := base.Merge(Config{Port: 9999, ModelsDir: "/override"})
	if merged.Port != 9999 || merged.ModelsDir != "/override" {
		t.Fatalf("override not applied: %+v", merged)
	}
	if merged.ServerBin != base.ServerBin || merged.Host != base.Host {
		t.Fatalf("unset fields must keep defaults: %+v", merged)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: "/data", Host: "127.0.0.1", Port: 8012}
	if got := cfg.DatabasePath(); got != filepath.Join("/data", "catalog.db") {
		t.Fatalf("db path: %s", got)
	}
	cfg.DBPath = "/elsewhere/cat.db"
	if got := cfg.DatabasePath(); got != "/elsewhere/cat.db" {
		t.Fatalf("db path override: %s", got)
	}
	if got := cfg.ServerAddr(); got != "127.0.0.1:8012" {
		t.Fatalf("server addr: %s", got)
	}
	if got := cfg.ServerBaseURL(); got != "http://127.0.0.1:8012" {
		t.Fatalf("base url: %s", got)
	}
}
