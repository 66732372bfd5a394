package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/vitrine"
	"pkt.systems/vitrine/internal/appconfig"
	"pkt.systems/vitrine/internal/scene"
)

type renderOptions struct {
	configPath          string
	scenePath           string
	output              string
	exitAfterLoad       bool
	convertMouseToTouch bool
	timeout             time.Duration
	width               int32
	height              int32
	hidpi               float32
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Composite a scene headlessly and optionally save a PNG snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyRenderFlags(cmd, &cfg, opts)
			logger := newLogger(cfg.Logging.Level, cfg.Logging.Structured)
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)
			return runRender(ctx, cfg, opts.scenePath)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ~/.vitrine/config.yaml)")
	cmd.Flags().StringVarP(&opts.scenePath, "scene", "s", "", "scene file (default built-in scene)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write a PNG snapshot once the content is stable")
	cmd.Flags().BoolVar(&opts.exitAfterLoad, "exit-after-load", false, "exit after the first stable composite")
	cmd.Flags().BoolVar(&opts.convertMouseToTouch, "convert-mouse-to-touch", false, "route mouse input through touch handling")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "give up after this long (default from config)")
	cmd.Flags().Int32Var(&opts.width, "width", 0, "window width override")
	cmd.Flags().Int32Var(&opts.height, "height", 0, "window height override")
	cmd.Flags().Float32Var(&opts.hidpi, "hidpi", 0, "device pixel ratio override")
	return cmd
}

// applyRenderFlags lets explicitly set flags win over the config file.
func applyRenderFlags(cmd *cobra.Command, cfg *appconfig.Config, opts renderOptions) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.File = opts.output
	}
	if flags.Changed("exit-after-load") {
		cfg.Compositor.ExitAfterLoad = opts.exitAfterLoad
	}
	if flags.Changed("convert-mouse-to-touch") {
		cfg.Compositor.ConvertMouseToTouch = opts.convertMouseToTouch
	}
	if flags.Changed("timeout") {
		cfg.Output.TimeoutSeconds = int(opts.timeout.Round(time.Second) / time.Second)
	}
	if flags.Changed("width") {
		cfg.Window.Width = opts.width
	}
	if flags.Changed("height") {
		cfg.Window.Height = opts.height
	}
	if flags.Changed("hidpi") {
		cfg.Window.HiDPI = opts.hidpi
	}
}

func runRender(ctx context.Context, cfg appconfig.Config, scenePath string) error {
	logger := pslog.Ctx(ctx)
	sc := scene.Default()
	if scenePath != "" {
		loaded, err := scene.LoadFile(scenePath)
		if err != nil {
			return err
		}
		sc = loaded
	}
	background, err := scene.ParseColor(cfg.Renderer.ClearColor)
	if err != nil {
		return fmt.Errorf("renderer.clear_color: %w", err)
	}

	core := cfg.CompositorConfig()
	h, err := vitrine.NewHeadless(vitrine.HeadlessConfig{
		Compositor:    core,
		Scene:         sc,
		Width:         cfg.Window.Width,
		Height:        cfg.Window.Height,
		HiDPI:         cfg.Window.HiDPI,
		Clear:         background,
		ProfilerDepth: cfg.Renderer.ProfilerDepth,
		FrameInterval: time.Duration(cfg.Output.FrameInterval) * time.Millisecond,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer h.Close()

	timeout := time.Duration(cfg.Output.TimeoutSeconds) * time.Second
	runCtx := ctx
	if timeout > 0 {
		if core.WaitForStableImage() {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		} else {
			// Without a stable-image goal the timeout only bounds the session.
			timer := time.AfterFunc(timeout, func() {
				_ = h.Post(vitrine.Quit{})
			})
			defer timer.Stop()
		}
	}

	logger.Info("render start", "output", core.OutputFile, "exit_after_load", core.ExitAfterLoad, "timeout", timeout.String())
	if err := h.Run(runCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no stable image within %s: %w", timeout, err)
		}
		if errors.Is(err, context.Canceled) {
			logger.Info("render interrupted")
			return nil
		}
		return err
	}
	for _, stat := range h.Profiler.Snapshot() {
		logger.Debug("render profile", "category", stat.Category, "count", stat.Count, "mean", stat.Mean().String(), "max", stat.Max.String())
	}
	logger.Info("render done", "frames", h.Engine.Compositor().Frames(), "output", core.OutputFile)
	return nil
}
