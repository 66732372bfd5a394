package compositor

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gg"

	"pkt.systems/vitrine/internal/persist"
	"pkt.systems/vitrine/schema"
)

// Composite composites to the configured target. After a successful stable
// composite in headless mode it starts shutting down.
func (c *Compositor) Composite() {
	_, err := c.CompositeSpecificTarget(c.target)
	if err == nil {
		if c.cfg.WaitForStableImage() {
			c.log.Info("compositor output complete, shutting down", "output_file", c.cfg.OutputFile)
			c.startShuttingDown()
		}
		return
	}
	reason, _ := NotReadyReason(err)
	if c.cfg.IsRunningProblemTest && reason != NotReadyWaitingOnConstellation {
		c.log.Info("compositor not ready to composite", "err", err)
		return
	}
	c.log.Debug("compositor not ready to composite", "err", err)
}

// CompositeSpecificTarget runs one composite pass. For TargetWindowAndPng it
// returns the composited pixels. Not-ready outcomes are CompositeErrors.
func (c *Compositor) CompositeSpecificTarget(target CompositeTarget) (*image.RGBA, error) {
	if c.shutdown != NotShuttingDown {
		return nil, &CompositeError{Kind: CompositeShutdown, Err: schema.ErrShutdown}
	}
	framebuffer := c.embedder.Framebuffer
	if !c.window.PrepareForComposite(framebuffer.Width, framebuffer.Height) {
		return nil, ErrWindowUnprepared
	}

	c.renderer.Update()

	waitForStableImage := target != TargetWindow || c.cfg.ExitAfterLoad
	if waitForStableImage {
		// Keep ticking until the animations settle before checking content.
		if c.animationsActive() {
			c.ProcessAnimations()
			return nil, newNotReady(NotReadyAnimationsActive)
		}
		if reason, ok := c.isReadyToPaintImageOutput(); !ok {
			return nil, newNotReady(reason)
		}
	}

	c.profile(CategoryCompositing, func() {
		c.log.Trace("compositor compositing", "target", target.String())
		if err := c.renderer.Render(framebuffer); err != nil {
			c.log.Warn("compositor render failed", "err", err)
		}
	})

	c.resolvePaintMetrics()

	var out *image.RGBA
	switch target {
	case TargetWindowAndPng:
		img, err := c.renderer.ReadPixels(schema.IntRect{Size: framebuffer})
		if err != nil {
			c.log.Error("compositor read pixels failed", "err", err)
		}
		out = img
	case TargetPngFile:
		c.profile(CategoryImageSaving, func() {
			if err := c.savePNG(framebuffer); err != nil {
				c.log.Error("compositor png save failed", "path", c.cfg.OutputFile, "err", err)
			}
		})
	}

	c.window.Present()
	c.lastCompositeTime = c.now()
	c.frames++
	c.events.OnPresent(schema.PresentEvent{Frame: c.frames, Time: c.lastCompositeTime, Target: target.String()})
	c.request = CompositionRequest{}
	c.ProcessAnimations()
	for _, area := range c.areas {
		area.CompositeDone()
	}
	return out, nil
}

// resolvePaintMetrics reports paint times for pending epochs that are now shown.
func (c *Compositor) resolvePaintMetrics() {
	if len(c.pendingPaintMetrics) == 0 {
		return
	}
	paintTime := c.now()
	for id, pending := range c.pendingPaintMetrics {
		epoch, ok := c.renderer.CurrentEpoch(id)
		if !ok || epoch != pending {
			continue
		}
		delete(c.pendingPaintMetrics, id)
		if pipeline, ok := c.Pipeline(id); ok {
			c.sendLayout(pipeline, schema.PaintMetric{Epoch: epoch, Time: paintTime}, "paint metric")
		}
	}
}

// PendingPaintMetrics returns the number of unresolved paint metrics.
func (c *Compositor) PendingPaintMetrics() int {
	return len(c.pendingPaintMetrics)
}

func (c *Compositor) savePNG(framebuffer schema.IntSize) error {
	path := c.cfg.OutputFile
	if path == "" {
		return schema.ErrNoOutputFile
	}
	img, err := c.renderer.ReadPixels(schema.IntRect{Size: framebuffer})
	if err != nil {
		return fmt.Errorf("read pixels: %w", err)
	}
	dc := gg.NewContextForImage(img)
	defer func() { _ = dc.Close() }()
	return persist.WriteFile(path, 0o644, dc.EncodePNG)
}

func (c *Compositor) profile(category string, fn func()) {
	start := time.Now()
	fn()
	if c.profiler != nil {
		c.profiler.Record(category, time.Since(start))
	}
}
