package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func writeTestConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	configYAML := `
cache:
  enabled: true
  dir: /tmp/lyxconv-cache
  max_age: 24h
logging:
  level: debug
  format: text
`
	convertersYAML := `
formats:
  - name: eps
    extensions: [eps]
    pretty: EPS
    flags: [vector]
  - name: pdf
    extensions: [pdf]
    pretty: PDF
    flags: [document, vector]
converters:
  - from: eps
    to: pdf
    command: "epstopdf $$i --outfile=$$o"
    flags: ""
copiers:
  - format: eps
    command: "cp $$i $$o"
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "converters.yaml"), []byte(convertersYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadMergesConfigAndConvertersFiles(t *testing.T) {
	dir := writeTestConfigDir(t)

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Formats) != 2 {
		t.Fatalf("len(Formats) = %d, want 2", len(cfg.Formats))
	}
	if len(cfg.Converters) != 1 {
		t.Fatalf("len(Converters) = %d, want 1", len(cfg.Converters))
	}
	if len(cfg.Copiers) != 1 {
		t.Fatalf("len(Copiers) = %d, want 1", len(cfg.Copiers))
	}
	if cfg.DefaultConverter.Command == "" {
		t.Error("expected a default_converter.command default when unset in config.yaml")
	}
}

func TestBuildPopulatesRegistriesAndGraph(t *testing.T) {
	dir := writeTestConfigDir(t)
	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	formats, movers, convs, err := Build(cfg, afero.NewMemMapFs(), "/support")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := formats.Get("pdf"); !ok {
		t.Error("expected pdf format registered")
	}
	if movers.Command("eps") == "" {
		t.Error("expected specialised mover registered for eps")
	}
	if !convs.IsReachable("eps", "pdf") {
		t.Error("expected eps->pdf reachable after Build")
	}
}
