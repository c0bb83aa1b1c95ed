package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("mudra", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.OSC.IP)
	assert.Equal(t, 8000, cfg.OSC.Port)
	assert.Equal(t, "127.0.0.1:8000", cfg.OSCTarget())
	assert.Equal(t, "", cfg.NDI.Source)
	assert.Equal(t, 10*time.Second, cfg.NDI.DiscoveryTimeout)
	assert.Empty(t, cfg.NDI.Bridge)
	assert.Equal(t, -1, cfg.Camera.Device)
	assert.Equal(t, 10, cfg.Camera.MaxProbe)
	assert.True(t, cfg.Camera.Mirror)
	assert.Equal(t, 2, cfg.Detector.MaxHands)
	assert.Equal(t, 0.75, cfg.Detector.MinConfidence)
	assert.False(t, cfg.Detector.Mock)
	assert.Equal(t, 100, cfg.Loop.MaxEmptyFrames)
	assert.Equal(t, 20, cfg.Loop.LogEvery)
	assert.Equal(t, 10*time.Millisecond, cfg.Loop.EmptyBackoff)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "debug", cfg.Log.Mode)
	assert.False(t, cfg.Headless)
}

func TestLoad_UnsetFlagsKeepDefaults(t *testing.T) {
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.OSC.Port)
	assert.Equal(t, -1, cfg.Camera.Device)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "mudra.yaml", `
ndi:
  source: "STUDIO (OBS)"
  discovery_timeout: 3s
  bridge: ["python3", "/opt/ndi_bridge.py"]
osc:
  ip: 10.0.0.5
  port: 9000
loop:
  max_empty_frames: 50
log:
  mode: release
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "STUDIO (OBS)", cfg.NDI.Source)
	assert.Equal(t, 3*time.Second, cfg.NDI.DiscoveryTimeout)
	assert.Equal(t, []string{"python3", "/opt/ndi_bridge.py"}, cfg.NDI.Bridge)
	assert.Equal(t, "10.0.0.5:9000", cfg.OSCTarget())
	assert.Equal(t, 50, cfg.Loop.MaxEmptyFrames)
	assert.Equal(t, "release", cfg.Log.Mode)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2, cfg.Detector.MaxHands)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "mudra.yaml", `
osc:
  ip: 10.0.0.5
  port: 9000
ndi:
  source: from-file
`)

	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		wantPort int
		wantIP   string
		wantNDI  string
	}{
		{
			name:     "file over defaults",
			wantPort: 9000,
			wantIP:   "10.0.0.5",
			wantNDI:  "from-file",
		},
		{
			name:     "env over file",
			env:      map[string]string{"MUDRA_OSC_PORT": "9100", "MUDRA_NDI_SOURCE": "from-env"},
			wantPort: 9100,
			wantIP:   "10.0.0.5",
			wantNDI:  "from-env",
		},
		{
			name:     "flags over env",
			env:      map[string]string{"MUDRA_OSC_PORT": "9100"},
			args:     []string{"--osc-port", "9200", "--ndi-source", "from-flag"},
			wantPort: 9200,
			wantIP:   "10.0.0.5",
			wantNDI:  "from-flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(path, newFlags(t, tt.args...))
			require.NoError(t, err)

			assert.Equal(t, tt.wantPort, cfg.OSC.Port)
			assert.Equal(t, tt.wantIP, cfg.OSC.IP)
			assert.Equal(t, tt.wantNDI, cfg.NDI.Source)
		})
	}
}

func TestLoad_MockDetector(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := writeFile(t, "mudra.yaml", "detector:\n  mock: true\n")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.True(t, cfg.Detector.Mock)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("MUDRA_DETECTOR_MOCK", "true")
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.True(t, cfg.Detector.Mock)
	})

	t.Run("flag", func(t *testing.T) {
		cfg, err := Load("", newFlags(t, "--mock-detector"))
		require.NoError(t, err)
		assert.True(t, cfg.Detector.Mock)
	})
}

func TestLoad_CameraDeviceEnv(t *testing.T) {
	t.Setenv("CAMERA_DEVICE", "2")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Camera.Device)

	cfg, err = Load("", newFlags(t, "--camera", "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Camera.Device)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_InvalidFromEnv(t *testing.T) {
	t.Setenv("MUDRA_OSC_PORT", "70000")

	_, err := Load("", nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadDotEnv(t *testing.T) {
	os.Unsetenv("CAMERA_DEVICE")
	t.Cleanup(func() { os.Unsetenv("CAMERA_DEVICE") })

	path := writeFile(t, ".env", "CAMERA_DEVICE=3\n")
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Camera.Device)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty ip", mutate: func(c *Config) { c.OSC.IP = "" }},
		{name: "port zero", mutate: func(c *Config) { c.OSC.Port = 0 }},
		{name: "port too large", mutate: func(c *Config) { c.OSC.Port = 65536 }},
		{name: "no ceiling", mutate: func(c *Config) { c.Loop.MaxEmptyFrames = 0 }},
		{name: "no log interval", mutate: func(c *Config) { c.Loop.LogEvery = 0 }},
		{name: "negative backoff", mutate: func(c *Config) { c.Loop.EmptyBackoff = -time.Millisecond }},
		{name: "no hands", mutate: func(c *Config) { c.Detector.MaxHands = 0 }},
		{name: "confidence above one", mutate: func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{name: "negative tracking confidence", mutate: func(c *Config) { c.Detector.MinTrackingConfidence = -0.1 }},
		{name: "bad camera index", mutate: func(c *Config) { c.Camera.Device = -2 }},
		{name: "nothing to read from", mutate: func(c *Config) { c.NDI.Disabled = true; c.Camera.Disabled = true }},
		{name: "unknown log mode", mutate: func(c *Config) { c.Log.Mode = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}

func TestOSCTarget_IPv6(t *testing.T) {
	cfg := Config{OSC: OSCConfig{IP: "::1", Port: 8000}}
	assert.Equal(t, "[::1]:8000", cfg.OSCTarget())
}
