package camera

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-creatures/internal/log"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{"default", func(*Config) {}, 0},
		{"tiny width", func(c *Config) { c.Width = 10 }, 1},
		{"bad quality", func(c *Config) { c.Quality = 0 }, 1},
		{"manual exposure out of range", func(c *Config) { c.AutoExposure = false; c.Exposure = 3 }, 1},
		{"auto exposure ignores exposure", func(c *Config) { c.Exposure = 3 }, 0},
		{"zoom and brightness", func(c *Config) { c.ZoomLevel = 8; c.Brightness = -1 }, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if got := cfg.Validate(); len(got) != tc.errs {
				t.Errorf("Validate() = %v, want %d errors", got, tc.errs)
			}
		})
	}
}

func TestPresetsValid(t *testing.T) {
	presets := Presets()
	if len(presets) != len(PresetNames()) {
		t.Fatalf("presets = %d, names = %d", len(presets), len(PresetNames()))
	}
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Errorf("preset %q missing", name)
			continue
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset returned a config")
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager()
	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"preset":        Preset720p,
		"framerate":     float64(24),
		"auto_exposure": false,
		"exposure":      -5,
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 1280 || cfg.Framerate != 24 || cfg.AutoExposure || cfg.Exposure != -5 {
		t.Errorf("config = %+v", cfg)
	}
	if len(applied) != 1 {
		t.Errorf("OnConfigChange called %d times, want 1", len(applied))
	}

	if err := m.UpdateConfig(map[string]interface{}{"quality": 500}); err == nil {
		t.Error("invalid quality accepted")
	}
	if m.GetConfig().Quality == 500 {
		t.Error("invalid config stored")
	}

	if err := m.ApplyPreset("nope"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestManagerApplyError(t *testing.T) {
	m := NewManager()
	boom := errors.New("device busy")
	m.OnConfigChange = func(Config) error { return boom }

	if err := m.ApplyPreset(PresetNight); !errors.Is(err, boom) {
		t.Errorf("ApplyPreset error = %v, want %v", err, boom)
	}
}

func TestManagerConfigJSON(t *testing.T) {
	got := NewManager().GetConfigJSON()
	if got["width"] != float64(640) || got["autofocus"] != true {
		t.Errorf("GetConfigJSON() = %v", got)
	}
}

func TestCaptureWithoutDevice(t *testing.T) {
	c := NewCapture(filepath.Join(t.TempDir(), "missing.mjpeg"), DefaultConfig())

	if _, ok := c.Latest(); ok {
		t.Error("Latest reported a frame before capture")
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Run before Open = %v, want ErrNotOpen", err)
	}
	if err := c.Open(); err == nil {
		c.Close()
		t.Fatal("Open succeeded on a missing file")
	}

	bad := DefaultConfig()
	bad.Width = 1
	if err := c.Apply(bad); err == nil {
		t.Error("Apply accepted an invalid config")
	}
	good := HD720Config()
	if err := c.Apply(good); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Config().Width != 1280 {
		t.Errorf("Config().Width = %d", c.Config().Width)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without device: %v", err)
	}
}
