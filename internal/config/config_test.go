package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Editor.DefaultRegionSize != 100 {
		t.Errorf("expected region size 100, got %g", cfg.Editor.DefaultRegionSize)
	}
	if cfg.Editor.DefaultDurationSec != 5 {
		t.Errorf("expected default duration 5, got %g", cfg.Editor.DefaultDurationSec)
	}
	if cfg.Editor.NumericMinDurationSec != 0.1 || cfg.Editor.DragMinDurationSec != 0.5 {
		t.Errorf("unexpected minimum durations %g / %g", cfg.Editor.NumericMinDurationSec, cfg.Editor.DragMinDurationSec)
	}
	if cfg.Render.BlurIntensity != 15 {
		t.Errorf("expected blur intensity 15, got %g", cfg.Render.BlurIntensity)
	}
	if !strings.HasSuffix(cfg.Storage.Path, "projects.db") {
		t.Errorf("storage path should end with projects.db: %s", cfg.Storage.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "mosaicedit") {
		t.Errorf("config path should contain mosaicedit: %s", path)
	}
}

func TestDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOSAICEDIT_DATA_DIR", dir)

	if got := DataDir(); got != dir {
		t.Errorf("DataDir() = %s, want %s", got, dir)
	}
	if got := DefaultConfig().Storage.Path; got != filepath.Join(dir, "projects.db") {
		t.Errorf("storage path = %s", got)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Render.FrameRate != 60 {
		t.Errorf("expected default frame rate 60, got %d", cfg.Render.FrameRate)
	}
}

func TestLoadFormats(t *testing.T) {
	files := map[string]string{
		"config.toml": `
[render]
blur_intensity = 8
resample = "nearest"

[editor]
timeline_rows = 4
`,
		"config.json": `{"render": {"blur_intensity": 8, "resample": "nearest"}, "editor": {"timeline_rows": 4}}`,
		"config.yaml": `
render:
  blur_intensity: 8
  resample: nearest
editor:
  timeline_rows: 4
`,
		"config": `
[render]
blur_intensity = 8
resample = "nearest"
[editor]
timeline_rows = 4
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Render.BlurIntensity != 8 || cfg.Render.Resample != "nearest" {
				t.Errorf("render = %+v", cfg.Render)
			}
			if cfg.Editor.TimelineRows != 4 {
				t.Errorf("timeline rows = %d, want 4", cfg.Editor.TimelineRows)
			}
			// Unset fields keep their defaults.
			if cfg.Render.FrameRate != 60 {
				t.Errorf("frame rate = %d, want default 60", cfg.Render.FrameRate)
			}
		})
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[render\nblur"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOSAICEDIT_STORAGE_PATH", "/tmp/x.db")
	t.Setenv("MOSAICEDIT_BLUR_INTENSITY", "4.5")
	t.Setenv("MOSAICEDIT_VIDEO_FPS", "not-a-number")
	t.Setenv("MOSAICEDIT_LOG_LEVEL", "debug")
	t.Setenv("MOSAICEDIT_METRICS_ADDR", "127.0.0.1:9100")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Storage.Path != "/tmp/x.db" {
		t.Errorf("storage path = %s", cfg.Storage.Path)
	}
	if cfg.Render.BlurIntensity != 4.5 {
		t.Errorf("blur intensity = %g", cfg.Render.BlurIntensity)
	}
	if cfg.Video.FPS != 30 {
		t.Errorf("unparsable fps override should be ignored, got %g", cfg.Video.FPS)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s", cfg.Logging.Level)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9100" {
		t.Errorf("metrics addr = %s", cfg.Metrics.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "version"},
		{"region size", func(c *Config) { c.Editor.DefaultRegionSize = 0 }, "editor.default_region_size"},
		{"rows", func(c *Config) { c.Editor.TimelineRows = 0 }, "editor.timeline_rows"},
		{"blur", func(c *Config) { c.Render.BlurIntensity = -1 }, "render.blur_intensity"},
		{"frame rate", func(c *Config) { c.Render.FrameRate = 0 }, "render.frame_rate"},
		{"resample", func(c *Config) { c.Render.Resample = "lanczos" }, "render.resample"},
		{"fps", func(c *Config) { c.Video.FPS = 0 }, "video.fps"},
		{"cache", func(c *Config) { c.Video.CacheFrames = 0 }, "video.cache_frames"},
		{"storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"metrics addr", func(c *Config) { c.Metrics.Addr = "9100" }, "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verrs)
			}
		})
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Render.BlurIntensity = 1

	if cfg.Render.BlurIntensity != 15 {
		t.Error("modifying clone changed original")
	}
	if clone.Editor != cfg.Editor {
		t.Error("clone should copy editor settings")
	}
}

func TestBusyTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BusyTimeout() != 5*time.Second {
		t.Errorf("BusyTimeout = %v", cfg.BusyTimeout())
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "data", "projects.db")
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = filepath.Join(dir, "logs", "app.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"data", "logs"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", sub)
		}
	}
}
