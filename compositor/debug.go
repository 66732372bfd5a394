package compositor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pkt.systems/vitrine/internal/persist"
	"pkt.systems/vitrine/internal/version"
	"pkt.systems/vitrine/render"
)

// DebugOption names a backend debug overlay group.
type DebugOption uint8

const (
	DebugProfiler DebugOption = iota
	DebugTextureCache
	DebugRenderTargets
)

func (o DebugOption) flags() render.DebugFlags {
	switch o {
	case DebugProfiler:
		return render.DebugProfiler | render.DebugGPUTimeQueries | render.DebugGPUSampleQueries
	case DebugTextureCache:
		return render.DebugTextureCache
	default:
		return render.DebugRenderTargets
	}
}

// ToggleDebug flips a backend debug overlay and regenerates every area's frame.
func (c *Compositor) ToggleDebug(option DebugOption) {
	flags := c.renderer.DebugFlags().Toggle(option.flags())
	c.renderer.SetDebugFlags(flags)
	c.log.Debug("compositor debug flags", "flags", uint32(flags))
	for _, area := range c.areas {
		area.GenerateFrame()
	}
}

// captureRevisionFile is written next to every capture.
const captureRevisionFile = "revision.txt"

// CaptureBackend saves a backend capture under <base>/capture_webrender/<id>,
// trying the configured directory, then the working directory, then the temp
// dir. It returns the capture directory.
func (c *Compositor) CaptureBackend() (string, error) {
	id := render.NewCaptureID()
	var bases []string
	if c.cfg.CaptureDir != "" {
		bases = append(bases, c.cfg.CaptureDir)
	}
	if wd, err := os.Getwd(); err == nil {
		bases = append(bases, wd)
	}
	bases = append(bases, os.TempDir())

	var errs []error
	for _, base := range bases {
		dir := filepath.Join(base, "capture_webrender", string(id))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.log.Warn("compositor capture dir unavailable", "path", dir, "err", err)
			errs = append(errs, err)
			continue
		}
		c.log.Debug("compositor saving capture", "path", dir)
		if err := c.api.SaveCapture(dir, render.CaptureAll); err != nil {
			return dir, fmt.Errorf("save capture: %w", err)
		}
		revision := version.Summary() + "\n"
		if err := persist.WriteBytes(filepath.Join(dir, captureRevisionFile), []byte(revision), 0o644); err != nil {
			c.log.Warn("compositor capture revision skipped", "err", err)
		}
		return dir, nil
	}
	return "", fmt.Errorf("no capture directory available: %w", errors.Join(errs...))
}
