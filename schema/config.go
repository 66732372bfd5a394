package schema

import (
	"fmt"
	"strings"
)

// Zoom bounds applied to page zoom.
const (
	MinPageZoom float32 = 0.1
	MaxPageZoom float32 = 8.0
)

// CompositorConfig defines the options consumed by the compositor core.
type CompositorConfig struct {
	// OutputFile switches composites to the PNG file target.
	OutputFile string
	// ExitAfterLoad shuts down after the first stable composite.
	ExitAfterLoad bool
	// ConvertMouseToTouch routes mouse input through the touch machine.
	ConvertMouseToTouch bool
	// IsRunningProblemTest enables verbose readiness tracing.
	IsRunningProblemTest bool
	// CaptureDir is the base directory for backend captures. Empty selects the
	// working directory, falling back to the temp dir.
	CaptureDir string
}

// WaitForStableImage reports whether composites must pass the readiness protocol.
func (c CompositorConfig) WaitForStableImage() bool {
	return c.OutputFile != "" || c.ExitAfterLoad
}

// NormalizeCompositorConfig applies defaults and validates the config.
func NormalizeCompositorConfig(cfg CompositorConfig) (CompositorConfig, error) {
	cfg.OutputFile = strings.TrimSpace(cfg.OutputFile)
	cfg.CaptureDir = strings.TrimSpace(cfg.CaptureDir)
	if cfg.OutputFile != "" && !strings.HasSuffix(strings.ToLower(cfg.OutputFile), ".png") {
		return CompositorConfig{}, fmt.Errorf("%w: output file %q must end in .png", ErrInvalidConfig, cfg.OutputFile)
	}
	return cfg, nil
}
