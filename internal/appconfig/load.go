package appconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/vitrine/internal/persist"
	"pkt.systems/vitrine/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.hidpi", cfg.Window.HiDPI)
	v.SetDefault("compositor.exit_after_load", cfg.Compositor.ExitAfterLoad)
	v.SetDefault("compositor.convert_mouse_to_touch", cfg.Compositor.ConvertMouseToTouch)
	v.SetDefault("compositor.is_running_problem_test", cfg.Compositor.IsRunningProblemTest)
	v.SetDefault("compositor.capture_dir", cfg.Compositor.CaptureDir)
	v.SetDefault("renderer.clear_color", cfg.Renderer.ClearColor)
	v.SetDefault("renderer.profiler_depth", cfg.Renderer.ProfilerDepth)
	v.SetDefault("output.file", cfg.Output.File)
	v.SetDefault("output.timeout_seconds", cfg.Output.TimeoutSeconds)
	v.SetDefault("output.frame_interval_ms", cfg.Output.FrameInterval)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.structured", cfg.Logging.Structured)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Window.Width < 0 || cfg.Window.Height < 0 {
		return fmt.Errorf("window size must not be negative")
	}
	if cfg.Window.HiDPI <= 0 {
		return fmt.Errorf("window.hidpi must be positive")
	}
	if cfg.Output.TimeoutSeconds < 0 {
		return fmt.Errorf("output.timeout_seconds must not be negative")
	}
	if cfg.Output.FrameInterval <= 0 {
		return fmt.Errorf("output.frame_interval_ms must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "error":
	default:
		return fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level)
	}
	if _, err := schema.NormalizeCompositorConfig(cfg.CompositorConfig()); err != nil {
		return err
	}
	return nil
}

// CompositorConfig derives the options consumed by the compositor core.
func (c Config) CompositorConfig() schema.CompositorConfig {
	return schema.CompositorConfig{
		OutputFile:           c.Output.File,
		ExitAfterLoad:        c.Compositor.ExitAfterLoad,
		ConvertMouseToTouch:  c.Compositor.ConvertMouseToTouch,
		IsRunningProblemTest: c.Compositor.IsRunningProblemTest,
		CaptureDir:           c.Compositor.CaptureDir,
	}
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Output.File = expandEnv(cfg.Output.File)
	cfg.Compositor.CaptureDir = expandEnv(cfg.Compositor.CaptureDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	case "HOME":
		if home, err := os.UserHomeDir(); err == nil {
			return home, true
		}
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := persist.WriteBytes(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
