package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/vitrine/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Renderer.ClearColor != "white" || cfg.Output.TimeoutSeconds != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
window:
  width: 640
  height: 480
  hidpi: 2
compositor:
  exit_after_load: true
  convert_mouse_to_touch: true
output:
  file: /tmp/out.png
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 480 || cfg.Window.HiDPI != 2 {
		t.Fatalf("unexpected window: %+v", cfg.Window)
	}
	core := cfg.CompositorConfig()
	if !core.ExitAfterLoad || !core.ConvertMouseToTouch || core.OutputFile != "/tmp/out.png" {
		t.Fatalf("unexpected compositor config: %+v", core)
	}
	if cfg.Renderer.ClearColor != "white" {
		t.Fatalf("expected default clear color to survive, got %q", cfg.Renderer.ClearColor)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
window:
  width: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsNonPngOutput(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
output:
  file: out.jpg
`)
	if _, err := Load(path); !errors.Is(err, schema.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
logging:
  level: chatty
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging.level error, got %v", err)
	}
}

func TestLoadExpandsOutputPath(t *testing.T) {
	t.Setenv("VITRINE_OUT", "/srv/shots")
	path := writeConfig(t, `
config_version: 1
output:
  file: $VITRINE_OUT/frame.png
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output.File != "/srv/shots/frame.png" {
		t.Fatalf("unexpected output file %q", cfg.Output.File)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
