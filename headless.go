package vitrine

import (
	"context"
	"image/color"
	"time"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/internal/headless"
	"pkt.systems/vitrine/internal/logx"
	"pkt.systems/vitrine/internal/mailbox"
	"pkt.systems/vitrine/internal/profiler"
	"pkt.systems/vitrine/internal/scene"
	"pkt.systems/vitrine/internal/softrender"
	"pkt.systems/vitrine/schema"
)

// DefaultFrameInterval paces the headless loop when nothing wakes it.
const DefaultFrameInterval = 16 * time.Millisecond

// HeadlessConfig configures NewHeadless.
type HeadlessConfig struct {
	Compositor schema.CompositorConfig
	// Scene defaults to the built-in scene.
	Scene *scene.Scene
	// Width, Height and HiDPI override the scene's window when set.
	Width  int32
	Height int32
	HiDPI  float32
	// Clear is the framebuffer background. Zero selects white.
	Clear         color.RGBA
	ProfilerDepth int
	FrameInterval time.Duration
	Logger        pslog.Logger
	Options       []Option
}

// Headless wires an offscreen window, the software backend and a scripted
// scene to an engine.
type Headless struct {
	Engine   *Engine
	Window   *headless.Window
	Backend  *softrender.Backend
	Scene    *scene.Coordinator
	Profiler *profiler.Profiler
	Document schema.DocumentID

	input    *mailbox.Mailbox[WindowEvent]
	interval time.Duration
	log      pslog.Logger
}

// NewHeadless builds and starts every component. The scene is loaded into a
// single area covering the window.
func NewHeadless(cfg HeadlessConfig) (*Headless, error) {
	log := logx.Or(cfg.Logger)
	sc := cfg.Scene
	if sc == nil {
		sc = scene.Default()
	}
	width, height, hidpi := sc.Window.Width, sc.Window.Height, sc.Window.HiDPI
	if cfg.Width > 0 {
		width = cfg.Width
	}
	if cfg.Height > 0 {
		height = cfg.Height
	}
	if cfg.HiDPI > 0 {
		hidpi = cfg.HiDPI
	}
	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	window := headless.New(headless.Options{Width: width, Height: height, HiDPIFactor: hidpi, Logger: log})
	proxy, receiver := compositor.NewMailbox(window.CreateEventLoopWaker())
	backend := softrender.New(softrender.Options{
		Logger:   log,
		Notifier: compositor.NewRenderNotifier(proxy),
		Clear:    cfg.Clear,
	})
	prof := profiler.New(log, cfg.ProfilerDepth)

	h := &Headless{
		Window:   window,
		Backend:  backend,
		Profiler: prof,
		input:    mailbox.New[WindowEvent](),
		interval: interval,
		log:      log,
	}
	// The engine sink is only known once the engine exists; cursors reach it
	// through this indirection.
	sink := &lateSink{}
	coord, err := scene.New(scene.Deps{
		Scene:      sc,
		Backend:    backend,
		Compositor: proxy,
		Events:     sink,
		Logger:     log,
	})
	if err != nil {
		backend.Close()
		prof.Exit(make(chan struct{}, 1))
		return nil, err
	}
	h.Scene = coord

	engine, err := New(cfg.Compositor, compositor.Deps{
		Window:        window,
		Receiver:      receiver,
		Constellation: coord,
		API:           backend,
		Renderer:      backend,
		Profiler:      prof,
		Logger:        log,
	}, cfg.Options...)
	if err != nil {
		backend.Close()
		prof.Exit(make(chan struct{}, 1))
		return nil, err
	}
	sink.target = engine.Sink()
	h.Engine = engine

	coords := window.GetCoordinates()
	h.Document = engine.Compositor().CreateArea(coords.Viewport, 0)
	if err := coord.Start(h.Document); err != nil {
		h.Close()
		return nil, err
	}
	log.Info("headless stack ready", "document", h.Document.String(), "width", width, "height", height, "hidpi", hidpi)
	return h, nil
}

// Post queues window events for the loop. It is safe from any goroutine.
func (h *Headless) Post(events ...WindowEvent) error {
	for _, event := range events {
		if err := h.input.Send(event); err != nil {
			return err
		}
	}
	return nil
}

// Run pumps the engine and the scene until shutdown completes or ctx ends.
func (h *Headless) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Scene.Run(gctx)
	})
	g.Go(func() error {
		return h.pump(gctx)
	})
	return g.Wait()
}

func (h *Headless) pump(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		if !h.Engine.HandleEvents(h.takeInput()) {
			h.log.Info("headless loop finished", "frames", h.Engine.Compositor().Frames())
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.Window.Wakeups():
		case <-h.input.Ready():
		case <-ticker.C:
		}
	}
}

func (h *Headless) takeInput() []WindowEvent {
	var events []WindowEvent
	for {
		event, ok := h.input.TryRecv()
		if !ok {
			return events
		}
		events = append(events, event)
	}
}

// Close releases the backend worker and the profiler.
func (h *Headless) Close() {
	h.input.Close()
	if h.Scene != nil {
		h.Scene.Close()
	}
	h.Backend.Close()
	ack := make(chan struct{})
	h.Profiler.Exit(ack)
	<-ack
}

type lateSink struct {
	target compositor.EventSink
}

func (s *lateSink) OnPresent(event schema.PresentEvent) {
	if s.target != nil {
		s.target.OnPresent(event)
	}
}

func (s *lateSink) OnAnimationState(event schema.AnimationStateEvent) {
	if s.target != nil {
		s.target.OnAnimationState(event)
	}
}

func (s *lateSink) OnCursor(event schema.CursorEvent) {
	if s.target != nil {
		s.target.OnCursor(event)
	}
}

func (s *lateSink) OnShutdown(event schema.ShutdownEvent) {
	if s.target != nil {
		s.target.OnShutdown(event)
	}
}
