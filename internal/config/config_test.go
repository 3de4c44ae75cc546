package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera = %dx%d, want 640x480", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Detector.MinConfidence != 0.7 || cfg.Detector.MaxHands != 1 {
		t.Errorf("detector = %+v", cfg.Detector)
	}
	if cfg.Calibration.WindowSize != 30 {
		t.Errorf("window = %d, want 30", cfg.Calibration.WindowSize)
	}
	if cfg.Calibration.MinKey != "m" || cfg.Calibration.MaxKey != "x" || cfg.Calibration.QuitKey != "q" {
		t.Errorf("keys = %+v", cfg.Calibration)
	}
	if cfg.Mapping.Gamma != 1.8 || cfg.Mapping.BarBottom != 400 || cfg.Mapping.BarTop != 150 {
		t.Errorf("mapping = %+v", cfg.Mapping)
	}
	if cfg.UI.Mode != UIWindow || cfg.Sink.Backend != SinkAuto {
		t.Errorf("ui = %q, sink = %q", cfg.UI.Mode, cfg.Sink.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Calibration.WindowSize != Default().Calibration.WindowSize {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handvolume.yaml")
	data := `
camera:
  device: 2
calibration:
  window_size: 45
  retry_delay: 50ms
mapping:
  gamma: 2.2
sink:
  backend: amixer
  amixer_control: PCM
ui:
  mode: headless
server:
  enabled: true
  addr: ":9090"
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.Device != 2 || cfg.Camera.Width != 640 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Calibration.WindowSize != 45 || cfg.Calibration.RetryDelay != 50*time.Millisecond {
		t.Errorf("calibration = %+v", cfg.Calibration)
	}
	if cfg.Calibration.MinKey != "m" {
		t.Errorf("unset keys should keep defaults, got %q", cfg.Calibration.MinKey)
	}
	if cfg.Mapping.Gamma != 2.2 {
		t.Errorf("gamma = %v", cfg.Mapping.Gamma)
	}
	if cfg.Sink.Backend != SinkAmixer || cfg.Sink.AmixerControl != "PCM" {
		t.Errorf("sink = %+v", cfg.Sink)
	}
	if cfg.UI.Mode != UIHeadless || !cfg.Server.Enabled || cfg.Server.Addr != ":9090" {
		t.Errorf("ui = %+v server = %+v", cfg.UI, cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("camera: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HANDVOLUME_CAMERA_DEVICE":           "1",
		"HANDVOLUME_MAPPING_GAMMA":           "1.5",
		"HANDVOLUME_SINK_BACKEND":            "mock",
		"HANDVOLUME_SINK_TIMEOUT":            "500ms",
		"HANDVOLUME_SERVER_ENABLED":          "true",
		"HANDVOLUME_UI_MODE":                 "tray",
		"HANDVOLUME_CALIBRATION_WINDOW_SIZE": "10",
		"UNRELATED":                          "x",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Camera.Device != 1 || cfg.Mapping.Gamma != 1.5 {
		t.Errorf("device = %d gamma = %v", cfg.Camera.Device, cfg.Mapping.Gamma)
	}
	if cfg.Sink.Backend != SinkMock || cfg.Sink.Timeout != 500*time.Millisecond {
		t.Errorf("sink = %+v", cfg.Sink)
	}
	if !cfg.Server.Enabled || cfg.UI.Mode != UITray || cfg.Calibration.WindowSize != 10 {
		t.Errorf("server = %+v ui = %+v window = %d", cfg.Server, cfg.UI, cfg.Calibration.WindowSize)
	}
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HANDVOLUME_CAMERA_DEVICE":  "front",
		"HANDVOLUME_MAPPING_GAMMA":  "steep",
		"HANDVOLUME_SERVER_ENABLED": "perhaps",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	if cfg.Camera.Device != 0 || cfg.Mapping.Gamma != 1.8 {
		t.Error("bad values must not overwrite fields")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative device", mutate: func(c *Config) { c.Camera.Device = -1 }},
		{name: "confidence above one", mutate: func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{name: "zero window", mutate: func(c *Config) { c.Calibration.WindowSize = 0 }},
		{name: "long key", mutate: func(c *Config) { c.Calibration.MinKey = "mm" }},
		{name: "duplicate keys", mutate: func(c *Config) { c.Calibration.MaxKey = "m" }},
		{name: "zero gamma", mutate: func(c *Config) { c.Mapping.Gamma = 0 }},
		{name: "flat bar", mutate: func(c *Config) { c.Mapping.BarTop = c.Mapping.BarBottom }},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink.Backend = "pulse" }},
		{name: "plugin without name", mutate: func(c *Config) { c.Sink.Backend = SinkPlugin; c.Sink.Plugin = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.Sink.Timeout = 0 }},
		{name: "unknown ui", mutate: func(c *Config) { c.UI.Mode = "vr" }},
		{name: "server without addr", mutate: func(c *Config) { c.Server.Enabled = true; c.Server.Addr = "" }},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}
