// Package config loads the nritya configuration from defaults, an optional
// YAML file, NRITYA_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NRITYA_LOG_LEVEL.
const EnvPrefix = "NRITYA"

// Model backends.
const (
	BackendMoveNet = "movenet"
	BackendService = "service"
	BackendMock    = "mock"
)

// UI modes.
const (
	UITray     = "tray"
	UIWindow   = "window"
	UIHeadless = "headless"
)

// Config is the typed configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Model    ModelConfig    `mapstructure:"model"`
	Gesture  GestureConfig  `mapstructure:"gesture"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	UI       UIConfig       `mapstructure:"ui"`
	Plugins  PluginsConfig  `mapstructure:"plugins"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CameraConfig struct {
	Device int `mapstructure:"device"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type ModelConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	Size          int    `mapstructure:"size"`
	ServiceScript string `mapstructure:"service_script"`
	Python        string `mapstructure:"python"`
}

type GestureConfig struct {
	Confidence  float64       `mapstructure:"confidence"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	PointerHand string        `mapstructure:"pointer_hand"`
}

type PipelineConfig struct {
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	RefreshRate  int           `mapstructure:"refresh_rate"`
}

type DispatchConfig struct {
	Pulse        time.Duration `mapstructure:"pulse"`
	MaxDepth     int           `mapstructure:"max_depth"`
	TrustedInput bool          `mapstructure:"trusted_input"`
	Plugins      []string      `mapstructure:"plugins"`
}

type BrowserConfig struct {
	RemoteURL string `mapstructure:"remote_url"`
	URL       string `mapstructure:"url"`
	Headless  bool   `mapstructure:"headless"`
	Stealth   bool   `mapstructure:"stealth"`
	Bin       string `mapstructure:"bin"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type UIConfig struct {
	Mode string `mapstructure:"mode"`
}

type PluginsConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DataDir returns ~/.nritya, or .nritya when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nritya"
	}
	return filepath.Join(home, ".nritya")
}

func setDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 320)
	v.SetDefault("camera.height", 240)

	v.SetDefault("model.backend", BackendMoveNet)
	v.SetDefault("model.path", filepath.Join(dataDir, "models", "movenet_lightning.onnx"))
	v.SetDefault("model.size", 192)
	v.SetDefault("model.service_script", "")
	v.SetDefault("model.python", "python3")

	v.SetDefault("gesture.confidence", 0.2)
	v.SetDefault("gesture.cooldown", "1s")
	v.SetDefault("gesture.pointer_hand", "right")

	v.SetDefault("pipeline.retry_backoff", "1s")
	v.SetDefault("pipeline.refresh_rate", 60)

	v.SetDefault("dispatch.pulse", "500ms")
	v.SetDefault("dispatch.max_depth", 3)
	v.SetDefault("dispatch.trusted_input", false)
	v.SetDefault("dispatch.plugins", []string{})

	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.url", "about:blank")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.bin", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("store.path", filepath.Join(dataDir, "nritya.db"))

	v.SetDefault("ui.mode", UITray)

	v.SetDefault("plugins.dir", filepath.Join(dataDir, "plugins"))
	v.SetDefault("plugins.timeout", "5s")
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("nritya", pflag.ContinueOnError)
	fs.String("config", "", "config file (default: ./nritya.yaml or ~/.nritya/nritya.yaml)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (console, json)")
	fs.Int("camera", 0, "camera device id")
	fs.String("model", BackendMoveNet, "pose model backend (movenet, service, mock)")
	fs.String("model-path", "", "pose model file")
	fs.String("hand", "right", "wrist that drives the pointer (right, left)")
	fs.String("url", "about:blank", "page to control")
	fs.String("remote-url", "", "DevTools URL of a running Chrome")
	fs.Bool("headless", false, "launch Chrome without a window")
	fs.String("addr", ":8080", "HTTP control API address (empty disables it)")
	fs.String("ui", UITray, "control surface (tray, window, headless)")
	return fs
}

var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"camera":     "camera.device",
	"model":      "model.backend",
	"model-path": "model.path",
	"hand":       "gesture.pointer_hand",
	"url":        "browser.url",
	"remote-url": "browser.remote_url",
	"headless":   "browser.headless",
	"addr":       "server.addr",
	"ui":         "ui.mode",
}

// Load builds the configuration. fs may be nil; otherwise it must be parsed
// already, and only flags that were set override the other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	file := ""
	if fs != nil {
		file, _ = fs.GetString("config")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("nritya")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Model.Size <= 0 {
		errs = append(errs, fmt.Errorf("model.size must be positive, got %d", c.Model.Size))
	}
	if c.Gesture.Confidence < 0 || c.Gesture.Confidence > 1 {
		errs = append(errs, fmt.Errorf("gesture.confidence must be in [0,1], got %g", c.Gesture.Confidence))
	}
	if c.Gesture.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("gesture.cooldown must not be negative, got %s", c.Gesture.Cooldown))
	}

	switch c.Model.Backend {
	case BackendMoveNet, BackendService, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("unknown model.backend %q", c.Model.Backend))
	}

	switch c.Gesture.PointerHand {
	case "right", "left":
	default:
		errs = append(errs, fmt.Errorf("unknown gesture.pointer_hand %q", c.Gesture.PointerHand))
	}

	switch c.UI.Mode {
	case UITray, UIWindow, UIHeadless:
	default:
		errs = append(errs, fmt.Errorf("unknown ui.mode %q", c.UI.Mode))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
