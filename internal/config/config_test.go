package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Input.Dir != "sample L2 snapshot" {
		t.Errorf("input dir = %q", cfg.Input.Dir)
	}
	if cfg.Analysis.Heatmap.MinOrderSize != 20 {
		t.Errorf("min order size = %v, want 20", cfg.Analysis.Heatmap.MinOrderSize)
	}
	if cfg.Analysis.Trades.SignificanceThreshold != 50 {
		t.Errorf("significance threshold = %v, want 50", cfg.Analysis.Trades.SignificanceThreshold)
	}

	start, end, err := cfg.Session.SessionWindow()
	if err != nil {
		t.Fatal(err)
	}
	if start != 9*time.Hour+25*time.Minute || end != 15*time.Hour {
		t.Errorf("session window = %v..%v", start, end)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
input:
  dir: data
analysis:
  heatmap:
    min_order_size: 35
batch:
  workers: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input.Dir != "data" {
		t.Errorf("input dir = %q", cfg.Input.Dir)
	}
	if cfg.Analysis.Heatmap.MinOrderSize != 35 {
		t.Errorf("min order size = %v", cfg.Analysis.Heatmap.MinOrderSize)
	}
	if cfg.Analysis.Heatmap.MaxOpacity != 0.8 {
		t.Errorf("untouched default lost: max opacity = %v", cfg.Analysis.Heatmap.MaxOpacity)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("workers = %d", cfg.Batch.Workers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOOKMAP_MIN_ORDER_SIZE", "55")
	t.Setenv("BOOKMAP_WORKERS", "3")
	t.Setenv("BOOKMAP_STORAGE_BACKENDS", "file, sqlite")
	t.Setenv("BOOKMAP_SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.Heatmap.MinOrderSize != 55 {
		t.Errorf("min order size = %v", cfg.Analysis.Heatmap.MinOrderSize)
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("workers = %d", cfg.Batch.Workers)
	}
	if !cfg.Storage.HasBackend("sqlite") || !cfg.Storage.HasBackend("file") {
		t.Errorf("backends = %v", cfg.Storage.Backends)
	}
	if cfg.Storage.SQLite.Path != "/tmp/x.db" {
		t.Errorf("sqlite path = %q", cfg.Storage.SQLite.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Input.Encoding = "koi8-r"
	cfg.Batch.Workers = 0
	cfg.Session.End = "09:00:00"
	cfg.Storage.Backends = []string{"file", "influxdb"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"input.encoding", "batch.workers", "session", "storage.influxdb"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestLoadRejectsEmptyBackends(t *testing.T) {
	path := writeConfig(t, "storage:\n  backends: []\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "storage.backends") {
		t.Fatalf("err = %v, want storage.backends error", err)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Storage.InfluxDB.Token = "secret-token"
	cfg.Storage.S3.SecretKey = "secret-key"

	red := cfg.Redacted()
	if red.Storage.InfluxDB.Token != "***" || red.Storage.S3.SecretKey != "***" {
		t.Errorf("secrets not redacted: %+v", red.Storage)
	}
	if cfg.Storage.InfluxDB.Token != "secret-token" {
		t.Error("source config modified")
	}
}
