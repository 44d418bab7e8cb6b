package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8091" {
		t.Errorf("default port = %q, want 8091", cfg.Port)
	}
	if cfg.DocTTL != 24*time.Hour {
		t.Errorf("default doc ttl = %v, want 24h", cfg.DocTTL)
	}
	if cfg.DebounceWindow != 100*time.Millisecond {
		t.Errorf("default debounce = %v, want 100ms", cfg.DebounceWindow)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagfilter.yaml")
	content := `port: "9000"
store: selections.json
doc_ttl: 1h
watch_docs: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TAGFILTER_PORT", "9001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9001" {
		t.Errorf("environment must override the file, got port %q", cfg.Port)
	}
	if cfg.Store != "selections.json" {
		t.Errorf("store = %q, want selections.json", cfg.Store)
	}
	if cfg.DocTTL != time.Hour {
		t.Errorf("doc ttl = %v, want 1h", cfg.DocTTL)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagfilter.yaml")
	if err := os.WriteFile(path, []byte("doc_ttl: soon\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
}

func TestValidate_WatchRequiresDir(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.WatchDocs = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected watch_docs without docs_dir to be rejected")
	}
	cfg.DocsDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
