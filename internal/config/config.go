// Package config loads tracker settings from defaults, an optional YAML
// file, environment variables, and command-line flags, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MUDRA_OSC_PORT.
const EnvPrefix = "MUDRA"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	NDI      NDIConfig      `mapstructure:"ndi"`
	OSC      OSCConfig      `mapstructure:"osc"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Record   RecordConfig   `mapstructure:"record"`
	Log      LogConfig      `mapstructure:"log"`
	Tray     bool           `mapstructure:"tray"`
	Headless bool           `mapstructure:"headless"`
}

type NDIConfig struct {
	Source            string        `mapstructure:"source"`
	Disabled          bool          `mapstructure:"disabled"`
	DiscoveryTimeout  time.Duration `mapstructure:"discovery_timeout"`
	FirstFrameTimeout time.Duration `mapstructure:"first_frame_timeout"`
	// Bridge is the command that streams frames for a source. Empty means
	// scripts/ndi_bridge.py run by the detected Python interpreter.
	Bridge []string `mapstructure:"bridge"`
}

type OSCConfig struct {
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`
}

type CameraConfig struct {
	// Device is the preferred camera index; -1 probes from 0.
	Device   int  `mapstructure:"device"`
	MaxProbe int  `mapstructure:"max_probe"`
	Mirror   bool `mapstructure:"mirror"`
	Disabled bool `mapstructure:"disabled"`
}

type DetectorConfig struct {
	MaxHands              int     `mapstructure:"max_hands"`
	MinConfidence         float64 `mapstructure:"min_confidence"`
	MinTrackingConfidence float64 `mapstructure:"min_tracking_confidence"`
	Script                string  `mapstructure:"script"`
	Python                string  `mapstructure:"python"`
	// Mock swaps MediaPipe for the synthetic detector.
	Mock bool `mapstructure:"mock"`
}

type LoopConfig struct {
	MaxEmptyFrames int           `mapstructure:"max_empty_frames"`
	LogEvery       int           `mapstructure:"log_every"`
	EmptyBackoff   time.Duration `mapstructure:"empty_backoff"`
}

type MonitorConfig struct {
	// Addr enables the HTTP monitor when set, e.g. ":8080".
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type RecordConfig struct {
	// Path enables session recording to a SQLite file when set.
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Mode is "debug" for console output or "release" for JSON.
	Mode string `mapstructure:"mode"`
	File string `mapstructure:"file"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"ndi-source":    "ndi.source",
	"no-ndi":        "ndi.disabled",
	"osc-ip":        "osc.ip",
	"osc-port":      "osc.port",
	"camera":        "camera.device",
	"max-hands":     "detector.max_hands",
	"mock-detector": "detector.mock",
	"monitor-addr":  "monitor.addr",
	"record":        "record.path",
	"tray":          "tray",
	"headless":      "headless",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

// RegisterFlags adds the tracker flags to fs. The flag defaults are only
// shown in help; unset flags never override file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("ndi-source", "", "NDI source name to connect to (default: first found)")
	fs.Bool("no-ndi", false, "skip NDI and use the local camera")
	fs.String("osc-ip", "127.0.0.1", "OSC destination address")
	fs.Int("osc-port", 8000, "OSC destination port")
	fs.Int("camera", -1, "camera index to try first (-1 probes from 0)")
	fs.Int("max-hands", 2, "maximum number of hands to track")
	fs.Bool("mock-detector", false, "use synthetic landmarks instead of MediaPipe")
	fs.String("monitor-addr", "", "serve the HTTP monitor on this address, e.g. :8080")
	fs.String("record", "", "record sessions to this SQLite file")
	fs.Bool("tray", false, "show a system tray icon")
	fs.Bool("headless", false, "do not open the preview window")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "also write JSON logs to this rotated file")
	fs.Bool("list-sources", false, "list NDI sources and exit")
}

// LoadDotEnv loads variables such as CAMERA_DEVICE from .env files. Missing
// files are ignored and variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config. path and flags are both optional.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("camera.device", EnvPrefix+"_CAMERA_DEVICE", "CAMERA_DEVICE"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ndi.source", "")
	v.SetDefault("ndi.disabled", false)
	v.SetDefault("ndi.discovery_timeout", 10*time.Second)
	v.SetDefault("ndi.first_frame_timeout", 10*time.Second)
	v.SetDefault("ndi.bridge", []string{})

	v.SetDefault("osc.ip", "127.0.0.1")
	v.SetDefault("osc.port", 8000)

	v.SetDefault("camera.device", -1)
	v.SetDefault("camera.max_probe", 10)
	v.SetDefault("camera.mirror", true)
	v.SetDefault("camera.disabled", false)

	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.75)
	v.SetDefault("detector.min_tracking_confidence", 0.75)
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "")
	v.SetDefault("detector.mock", false)

	v.SetDefault("loop.max_empty_frames", 100)
	v.SetDefault("loop.log_every", 20)
	v.SetDefault("loop.empty_backoff", 10*time.Millisecond)

	v.SetDefault("monitor.addr", "")
	v.SetDefault("monitor.static_dir", "")

	v.SetDefault("record.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.mode", "debug")
	v.SetDefault("log.file", "")

	v.SetDefault("tray", false)
	v.SetDefault("headless", false)
}

// Validate reports the first setting the tracker cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.OSC.IP == "":
		return fmt.Errorf("%w: osc.ip is empty", ErrInvalid)
	case c.OSC.Port <= 0 || c.OSC.Port > 65535:
		return fmt.Errorf("%w: osc.port %d out of range", ErrInvalid, c.OSC.Port)
	case c.Loop.MaxEmptyFrames <= 0:
		return fmt.Errorf("%w: loop.max_empty_frames must be positive", ErrInvalid)
	case c.Loop.LogEvery <= 0:
		return fmt.Errorf("%w: loop.log_every must be positive", ErrInvalid)
	case c.Loop.EmptyBackoff < 0:
		return fmt.Errorf("%w: loop.empty_backoff is negative", ErrInvalid)
	case c.Detector.MaxHands <= 0:
		return fmt.Errorf("%w: detector.max_hands must be positive", ErrInvalid)
	case !unit(c.Detector.MinConfidence):
		return fmt.Errorf("%w: detector.min_confidence %v outside [0,1]", ErrInvalid, c.Detector.MinConfidence)
	case !unit(c.Detector.MinTrackingConfidence):
		return fmt.Errorf("%w: detector.min_tracking_confidence %v outside [0,1]", ErrInvalid, c.Detector.MinTrackingConfidence)
	case c.Camera.Device < -1:
		return fmt.Errorf("%w: camera.device %d", ErrInvalid, c.Camera.Device)
	case c.NDI.Disabled && c.Camera.Disabled:
		return fmt.Errorf("%w: both NDI and camera are disabled", ErrInvalid)
	case c.Log.Mode != "debug" && c.Log.Mode != "release":
		return fmt.Errorf("%w: log.mode %q", ErrInvalid, c.Log.Mode)
	}
	return nil
}

// OSCTarget returns the host:port the tracker sends to.
func (c *Config) OSCTarget() string {
	return net.JoinHostPort(c.OSC.IP, strconv.Itoa(c.OSC.Port))
}

func unit(f float64) bool {
	return f >= 0 && f <= 1
}
