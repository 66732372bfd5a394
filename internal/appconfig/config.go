package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Window        WindowConfig     `mapstructure:"window" yaml:"window"`
	Compositor    CompositorConfig `mapstructure:"compositor" yaml:"compositor"`
	Renderer      RendererConfig   `mapstructure:"renderer" yaml:"renderer"`
	Output        OutputConfig     `mapstructure:"output" yaml:"output"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// WindowConfig sizes the headless window. Zero width or height defers to the
// scene file.
type WindowConfig struct {
	Width  int32   `mapstructure:"width" yaml:"width"`
	Height int32   `mapstructure:"height" yaml:"height"`
	HiDPI  float32 `mapstructure:"hidpi" yaml:"hidpi"`
}

// CompositorConfig controls compositor behaviour.
type CompositorConfig struct {
	ExitAfterLoad        bool   `mapstructure:"exit_after_load" yaml:"exit_after_load"`
	ConvertMouseToTouch  bool   `mapstructure:"convert_mouse_to_touch" yaml:"convert_mouse_to_touch"`
	IsRunningProblemTest bool   `mapstructure:"is_running_problem_test" yaml:"is_running_problem_test"`
	CaptureDir           string `mapstructure:"capture_dir" yaml:"capture_dir"`
}

// RendererConfig controls the software backend.
type RendererConfig struct {
	ClearColor    string `mapstructure:"clear_color" yaml:"clear_color"`
	ProfilerDepth int    `mapstructure:"profiler_depth" yaml:"profiler_depth"`
}

// OutputConfig controls snapshots and run limits.
type OutputConfig struct {
	File           string `mapstructure:"file" yaml:"file"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	FrameInterval  int    `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
}

// LoggingConfig controls log output. PSLOG_* environment variables still win.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Structured bool   `mapstructure:"structured" yaml:"structured"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Window: WindowConfig{
			Width:  0,
			Height: 0,
			HiDPI:  1,
		},
		Compositor: CompositorConfig{
			ExitAfterLoad:        false,
			ConvertMouseToTouch:  false,
			IsRunningProblemTest: false,
			CaptureDir:           "",
		},
		Renderer: RendererConfig{
			ClearColor:    "white",
			ProfilerDepth: 64,
		},
		Output: OutputConfig{
			File:           "",
			TimeoutSeconds: 30,
			FrameInterval:  16,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vitrine", "config.yaml"), nil
}
