package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) true for any validation failure.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig && len(e) > 0
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateEditor(&c.Editor)...)
	errs = append(errs, validateRender(&c.Render)...)
	errs = append(errs, validateVideo(&c.Video)...)
	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func positive(field string, v float64) ValidationErrors {
	if v > 0 {
		return nil
	}
	return ValidationErrors{{Field: field, Message: fmt.Sprintf("must be positive, got %g", v)}}
}

func validateEditor(e *EditorConfig) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, positive("editor.default_region_size", e.DefaultRegionSize)...)
	errs = append(errs, positive("editor.default_duration_sec", e.DefaultDurationSec)...)
	errs = append(errs, positive("editor.numeric_min_duration_sec", e.NumericMinDurationSec)...)
	errs = append(errs, positive("editor.drag_min_duration_sec", e.DragMinDurationSec)...)
	errs = append(errs, positive("editor.timeline_tick_sec", e.TimelineTickSec)...)

	if e.TimelineRows < 1 {
		errs = append(errs, ValidationError{
			Field:   "editor.timeline_rows",
			Message: "timeline needs at least 1 row",
		})
	}
	return errs
}

func validateRender(r *RenderConfig) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, positive("render.blur_intensity", r.BlurIntensity)...)

	if r.FrameRate < 1 || r.FrameRate > 240 {
		errs = append(errs, ValidationError{
			Field:   "render.frame_rate",
			Message: fmt.Sprintf("frame rate must be between 1 and 240, got %d", r.FrameRate),
		})
	}

	switch r.Resample {
	case "nearest", "approx", "bilinear", "catmullrom":
	default:
		errs = append(errs, ValidationError{
			Field:   "render.resample",
			Message: fmt.Sprintf("invalid resampler: %s (valid: nearest, approx, bilinear, catmullrom)", r.Resample),
		})
	}
	return errs
}

func validateVideo(v *VideoConfig) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, positive("video.fps", v.FPS)...)
	errs = append(errs, positive("video.still_duration_sec", v.StillDurationSec)...)

	if v.CacheFrames < 1 {
		errs = append(errs, ValidationError{
			Field:   "video.cache_frames",
			Message: "frame cache must hold at least 1 frame",
		})
	}
	return errs
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	}
	if s.BusyTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.busy_timeout_ms",
			Message: "busy timeout cannot be negative",
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}
	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	if m.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Addr); err != nil {
		return ValidationErrors{{
			Field:   "metrics.addr",
			Message: fmt.Sprintf("invalid listen address %q: %v", m.Addr, err),
		}}
	}
	return nil
}
