// Package config loads handvolume's settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/handvolume/internal/capture"
	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/detector"
	"github.com/ayusman/handvolume/internal/gesture"
	"github.com/ayusman/handvolume/internal/mapping"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HANDVOLUME_"

// UI modes.
const (
	UIWindow   = "window"
	UITray     = "tray"
	UIHeadless = "headless"
)

// Sink backends.
const (
	SinkAuto      = "auto"
	SinkOsascript = "osascript"
	SinkAmixer    = "amixer"
	SinkPlugin    = "plugin"
	SinkMock      = "mock"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Camera      capture.Config  `yaml:"camera"`
	Detector    detector.Config `yaml:"detector"`
	Calibration Calibration     `yaml:"calibration"`
	Mapping     Mapping         `yaml:"mapping"`
	Sink        Sink            `yaml:"sink"`
	UI          UI              `yaml:"ui"`
	Server      Server          `yaml:"server"`
	Store       Store           `yaml:"store"`
	Log         Log             `yaml:"log"`
}

// Calibration controls the sampling window and the operator keys.
type Calibration struct {
	WindowSize int           `yaml:"window_size"`
	MinKey     string        `yaml:"min_key"`
	MaxKey     string        `yaml:"max_key"`
	QuitKey    string        `yaml:"quit_key"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Mapping holds the response curve and the on-screen bar geometry.
type Mapping struct {
	Gamma     float64 `yaml:"gamma"`
	BarBottom float64 `yaml:"bar_bottom"`
	BarTop    float64 `yaml:"bar_top"`
}

// Sink selects the output device backend.
type Sink struct {
	Backend       string        `yaml:"backend"`
	PluginDir     string        `yaml:"plugin_dir"`
	Plugin        string        `yaml:"plugin"`
	Timeout       time.Duration `yaml:"timeout"`
	AmixerControl string        `yaml:"amixer_control"`
}

// UI selects how frames are shown and how operator signals arrive.
type UI struct {
	Mode  string `yaml:"mode"`
	Title string `yaml:"title"`
}

// Server configures the HTTP surface.
type Server struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// Store configures run history. An empty path disables it.
type Store struct {
	Path string `yaml:"path"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DataDir returns ~/.handvolume, or .handvolume when the home directory is
// unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handvolume"
	}
	return filepath.Join(home, ".handvolume")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := DataDir()
	return Config{
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Calibration: Calibration{
			WindowSize: gesture.DefaultWindowSize,
			MinKey:     "m",
			MaxKey:     "x",
			QuitKey:    "q",
			RetryDelay: 10 * time.Millisecond,
		},
		Mapping: Mapping{
			Gamma:     mapping.DefaultGamma,
			BarBottom: control.DefaultBarBottom,
			BarTop:    control.DefaultBarTop,
		},
		Sink: Sink{
			Backend:       SinkAuto,
			PluginDir:     filepath.Join(dir, "plugins"),
			Plugin:        "system-control",
			Timeout:       2 * time.Second,
			AmixerControl: "Master",
		},
		UI: UI{
			Mode:  UIWindow,
			Title: "handvolume",
		},
		Server: Server{
			Enabled: false,
			Addr:    "127.0.0.1:8080",
		},
		Store: Store{
			Path: filepath.Join(dir, "handvolume.db"),
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HANDVOLUME_* variables using lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	integer("CAMERA_DEVICE", &c.Camera.Device)
	integer("CAMERA_WIDTH", &c.Camera.Width)
	integer("CAMERA_HEIGHT", &c.Camera.Height)
	float("DETECTOR_MIN_CONFIDENCE", &c.Detector.MinConfidence)
	str("DETECTOR_SCRIPT", &c.Detector.Script)
	str("DETECTOR_PYTHON", &c.Detector.Python)
	integer("CALIBRATION_WINDOW_SIZE", &c.Calibration.WindowSize)
	float("MAPPING_GAMMA", &c.Mapping.Gamma)
	str("SINK_BACKEND", &c.Sink.Backend)
	str("SINK_PLUGIN_DIR", &c.Sink.PluginDir)
	str("SINK_PLUGIN", &c.Sink.Plugin)
	duration("SINK_TIMEOUT", &c.Sink.Timeout)
	str("SINK_AMIXER_CONTROL", &c.Sink.AmixerControl)
	str("UI_MODE", &c.UI.Mode)
	boolean("SERVER_ENABLED", &c.Server.Enabled)
	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_STATIC_DIR", &c.Server.StaticDir)
	str("STORE_PATH", &c.Store.Path)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Camera.Device < 0 {
		fail("camera.device must be >= 0, got %d", c.Camera.Device)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		fail("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		fail("detector.min_confidence must be in [0,1], got %v", c.Detector.MinConfidence)
	}
	if c.Calibration.WindowSize < 1 {
		fail("calibration.window_size must be >= 1, got %d", c.Calibration.WindowSize)
	}

	keys := map[string]string{
		"min_key":  c.Calibration.MinKey,
		"max_key":  c.Calibration.MaxKey,
		"quit_key": c.Calibration.QuitKey,
	}
	seen := make(map[string]string)
	for _, name := range []string{"min_key", "max_key", "quit_key"} {
		k := keys[name]
		if len(k) != 1 {
			fail("calibration.%s must be a single character, got %q", name, k)
			continue
		}
		if other, dup := seen[k]; dup {
			fail("calibration.%s duplicates %s (%q)", name, other, k)
		}
		seen[k] = name
	}

	if c.Mapping.Gamma <= 0 {
		fail("mapping.gamma must be > 0, got %v", c.Mapping.Gamma)
	}
	if c.Mapping.BarBottom == c.Mapping.BarTop {
		fail("mapping.bar_bottom and bar_top must differ")
	}

	switch c.Sink.Backend {
	case SinkAuto, SinkOsascript, SinkAmixer, SinkMock:
	case SinkPlugin:
		if c.Sink.Plugin == "" {
			fail("sink.plugin is required for the plugin backend")
		}
	default:
		fail("unknown sink.backend %q", c.Sink.Backend)
	}
	if c.Sink.Timeout <= 0 {
		fail("sink.timeout must be > 0")
	}

	switch c.UI.Mode {
	case UIWindow, UITray, UIHeadless:
	default:
		fail("unknown ui.mode %q", c.UI.Mode)
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		fail("server.addr is required when the server is enabled")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		fail("unknown log.format %q", c.Log.Format)
	}

	return errors.Join(errs...)
}
