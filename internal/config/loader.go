package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// codec is one on-disk configuration format.
type codec struct {
	name   string
	decode func(data []byte, v any) error
	encode func(v any) ([]byte, error)
}

var (
	tomlCodec = codec{
		name: "TOML",
		decode: func(data []byte, v any) error {
			_, err := toml.Decode(string(data), v)
			return err
		},
		encode: func(v any) ([]byte, error) {
			var buf bytes.Buffer
			buf.WriteString("# mosaicedit configuration\n\n")
			err := toml.NewEncoder(&buf).Encode(v)
			return buf.Bytes(), err
		},
	}
	jsonCodec = codec{
		name:   "JSON",
		decode: json.Unmarshal,
		encode: func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
	}
	yamlCodec = codec{
		name:   "YAML",
		decode: yaml.Unmarshal,
		encode: yaml.Marshal,
	}
)

// codecFor picks the codec from the file extension. Unknown extensions
// report false and are sniffed on read and written as TOML.
func codecFor(path string) (codec, bool) {
	switch filepath.Ext(path) {
	case ".toml":
		return tomlCodec, true
	case ".json":
		return jsonCodec, true
	case ".yaml", ".yml":
		return yamlCodec, true
	}
	return tomlCodec, false
}

// readConfig decodes path over the defaults. A missing file yields the
// defaults. The raw bytes are returned so callers can detect no-op writes.
func readConfig(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	if c, ok := codecFor(path); ok {
		cfg := DefaultConfig()
		if err := c.decode(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		return cfg, data, nil
	}
	for _, c := range []codec{tomlCodec, jsonCodec, yamlCodec} {
		cfg := DefaultConfig()
		if c.decode(data, cfg) == nil {
			return cfg, data, nil
		}
	}
	return nil, nil, fmt.Errorf("parse config %s: not TOML, JSON or YAML", path)
}

// resolve applies environment overrides and validation to a decoded file.
func resolve(cfg *Config) error {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Loader owns the live configuration of a running editor. After Watch,
// edits to the file replace it and listeners are told; edits that fail to
// parse or validate are reported on Errors and leave it untouched.
type Loader struct {
	path     string
	debounce time.Duration

	mu        sync.RWMutex
	current   *Config
	raw       []byte
	listeners []func(*Config)

	fsw       *fsnotify.Watcher
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoader creates a loader for path.
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		debounce: 100 * time.Millisecond,
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Load reads the file, applies environment overrides and validates.
func (l *Loader) Load() (*Config, error) {
	cfg, raw, err := readConfig(l.path)
	if err != nil {
		return nil, err
	}
	if err := resolve(cfg); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current, l.raw = cfg, raw
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the live configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers fn to run, on the watcher goroutine, after each
// successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Errors reports reload failures. Only the most recent undelivered error
// is kept.
func (l *Loader) Errors() <-chan error {
	return l.errs
}

// Watch starts reloading on file changes. The parent directory is watched
// so editors that save by rename are seen.
func (l *Loader) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(l.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	l.fsw = fsw
	go l.loop()
	return nil
}

func (l *Loader) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	name := filepath.Base(l.path)
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Has(fsnotify.Write|fsnotify.Create) {
				timer.Reset(l.debounce)
			}
		case err, ok := <-l.fsw.Errors:
			if !ok {
				return
			}
			l.report(err)
		case <-timer.C:
			l.reload()
		}
	}
}

func (l *Loader) reload() {
	cfg, raw, err := readConfig(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.RLock()
	same := raw != nil && bytes.Equal(raw, l.raw)
	l.mu.RUnlock()
	if same {
		return
	}
	if err := resolve(cfg); err != nil {
		l.report(err)
		return
	}

	l.mu.Lock()
	l.current, l.raw = cfg, raw
	listeners := append([]func(*Config){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}

// report delivers err without blocking, replacing a stale undelivered one.
func (l *Loader) report(err error) {
	for {
		select {
		case l.errs <- err:
			return
		default:
		}
		select {
		case <-l.errs:
		default:
		}
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.fsw != nil {
			err = l.fsw.Close()
		}
	})
	return err
}

// LoadOrCreate loads path, writing the defaults there first when the file
// does not exist. created reports whether it did.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	if path == "" {
		path = ConfigPath()
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg = DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		return cfg, true, nil
	}
	cfg, err = NewLoader(path).Load()
	return cfg, false, err
}

// SaveConfig writes cfg in the format implied by the extension. The file is
// replaced atomically so a watching Loader never reads a partial write.
func SaveConfig(cfg *Config, path string) error {
	c, _ := codecFor(path)

	cfg.mu.RLock()
	data, err := c.encode(cfg)
	cfg.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
