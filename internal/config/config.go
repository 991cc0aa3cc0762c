// Package config handles configuration loading, validation, and management for mosaicedit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete editor configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Editor holds region placement and timeline settings.
	Editor EditorConfig `toml:"editor" json:"editor" yaml:"editor"`

	// Render configures the blur compositor.
	Render RenderConfig `toml:"render" json:"render" yaml:"render"`

	// Video configures frame-sequence sources.
	Video VideoConfig `toml:"video" json:"video" yaml:"video"`

	// Storage configuration for project persistence.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// EditorConfig holds region placement and timeline settings.
type EditorConfig struct {
	// DefaultRegionSize is the side of a newly placed region in display pixels.
	DefaultRegionSize float64 `toml:"default_region_size" json:"default_region_size" yaml:"default_region_size"`

	// DefaultDurationSec is the length of a newly placed region's window.
	DefaultDurationSec float64 `toml:"default_duration_sec" json:"default_duration_sec" yaml:"default_duration_sec"`

	// NumericMinDurationSec is the minimum window kept by the start/end fields.
	NumericMinDurationSec float64 `toml:"numeric_min_duration_sec" json:"numeric_min_duration_sec" yaml:"numeric_min_duration_sec"`

	// DragMinDurationSec is the minimum window kept by timeline handle drags.
	DragMinDurationSec float64 `toml:"drag_min_duration_sec" json:"drag_min_duration_sec" yaml:"drag_min_duration_sec"`

	// TimelineRows is the number of rows timeline bars cycle through.
	TimelineRows int `toml:"timeline_rows" json:"timeline_rows" yaml:"timeline_rows"`

	// TimelineTickSec is the spacing of timeline tick labels.
	TimelineTickSec float64 `toml:"timeline_tick_sec" json:"timeline_tick_sec" yaml:"timeline_tick_sec"`
}

// RenderConfig configures the blur compositor.
type RenderConfig struct {
	// BlurIntensity is the blur sigma in display pixels.
	BlurIntensity float64 `toml:"blur_intensity" json:"blur_intensity" yaml:"blur_intensity"`

	// FrameRate is the refresh rate of the headless frame scheduler.
	FrameRate int `toml:"frame_rate" json:"frame_rate" yaml:"frame_rate"`

	// Resample is the source interpolator: nearest, approx, bilinear or catmullrom.
	Resample string `toml:"resample" json:"resample" yaml:"resample"`
}

// VideoConfig configures frame-sequence sources.
type VideoConfig struct {
	// FPS is the frame rate of numbered image sequences.
	FPS float64 `toml:"fps" json:"fps" yaml:"fps"`

	// CacheFrames bounds the decoded frame cache.
	CacheFrames int `toml:"cache_frames" json:"cache_frames" yaml:"cache_frames"`

	// StillDurationSec is the timeline length given to a single image.
	StillDurationSec float64 `toml:"still_duration_sec" json:"still_duration_sec" yaml:"still_duration_sec"`

	// WatchSequences rescans sequence directories when frames are added.
	WatchSequences bool `toml:"watch_sequences" json:"watch_sequences" yaml:"watch_sequences"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Path is the path to the SQLite project database.
	Path string `toml:"path" json:"path" yaml:"path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long to keep rotated files.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Editor: EditorConfig{
			DefaultRegionSize:     100,
			DefaultDurationSec:    5,
			NumericMinDurationSec: 0.1,
			DragMinDurationSec:    0.5,
			TimelineRows:          3,
			TimelineTickSec:       10,
		},
		Render: RenderConfig{
			BlurIntensity: 15,
			FrameRate:     60,
			Resample:      "bilinear",
		},
		Video: VideoConfig{
			FPS:              30,
			CacheFrames:      16,
			StillDurationSec: 10,
			WatchSequences:   true,
		},
		Storage: StorageConfig{
			Path:          filepath.Join(dir, "projects.db"),
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "mosaicedit.log"),
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DataDir returns the base mosaicedit data directory.
// Uses platform-specific paths or the MOSAICEDIT_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("MOSAICEDIT_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, _, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the configured paths live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Storage.Path),
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with MOSAICEDIT_ and use underscores.
// Unparsable numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Storage overrides
	if v := os.Getenv("MOSAICEDIT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	// Render overrides
	if v, ok := envFloat("MOSAICEDIT_BLUR_INTENSITY"); ok {
		c.Render.BlurIntensity = v
	}
	if v := os.Getenv("MOSAICEDIT_RESAMPLE"); v != "" {
		c.Render.Resample = v
	}

	// Video overrides
	if v, ok := envFloat("MOSAICEDIT_VIDEO_FPS"); ok {
		c.Video.FPS = v
	}

	// Logging overrides
	if v := os.Getenv("MOSAICEDIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MOSAICEDIT_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	// Metrics overrides
	if v := os.Getenv("MOSAICEDIT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version: c.Version,
		Editor:  c.Editor,
		Render:  c.Render,
		Video:   c.Video,
		Storage: c.Storage,
		Logging: c.Logging,
		Metrics: c.Metrics,
	}
}

// BusyTimeout returns the storage busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Storage.BusyTimeoutMs) * time.Millisecond
}
