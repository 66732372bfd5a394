package vitrine

import (
	"context"
	"image"
	"image/color"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/internal/scene"
	"pkt.systems/vitrine/schema"
)

func newTestHeadless(t *testing.T, cfg HeadlessConfig) *Headless {
	t.Helper()
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = 2 * time.Millisecond
	}
	h, err := NewHeadless(cfg)
	if err != nil {
		t.Fatalf("new headless: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func runWithTimeout(t *testing.T, h *Headless) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func eventTypes(events []Event) map[schema.EmbedderEventType]int {
	out := make(map[schema.EmbedderEventType]int)
	for _, ev := range events {
		out[ev.Type]++
	}
	return out
}

func TestHeadlessWritesSnapshotAfterAnimations(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	h := newTestHeadless(t, HeadlessConfig{
		Compositor: schema.CompositorConfig{OutputFile: out},
	})
	runWithTimeout(t, h)

	if h.Engine.Compositor().ShutdownState() != compositor.FinishedShuttingDown {
		t.Fatalf("expected finished shutdown, got %s", h.Engine.Compositor().ShutdownState())
	}
	if got := h.Scene.Epoch(scene.PipelineID(2)); got != 4 {
		t.Fatalf("expected the animation to run to epoch 4, got %d", got)
	}
	if !h.Scene.Stats().Exited {
		t.Fatalf("expected the scene to exit")
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("unexpected snapshot size %v", b)
	}
	assertColor(t, img, 300, 10, color.RGBA{R: 245, G: 245, B: 245, A: 255})
	assertColor(t, img, 100, 140, color.RGBA{R: 255, G: 99, B: 71, A: 255})

	types := eventTypes(h.Engine.Events())
	if types[schema.EmbedderPresent] != 1 || types[schema.EmbedderShutdown] != 1 {
		t.Fatalf("unexpected events: %+v", types)
	}
}

func assertColor(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	r, g, b, a := img.At(x, y).RGBA()
	got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	if got != want {
		t.Fatalf("pixel (%d,%d): expected %v, got %v", x, y, want, got)
	}
}

func TestHeadlessQuitCompletesHandshake(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{})
	if err := h.Post(Quit{}); err != nil {
		t.Fatalf("post: %v", err)
	}
	runWithTimeout(t, h)
	if !h.Scene.Stats().Exited {
		t.Fatalf("expected the scene to exit")
	}
	if h.Engine.HandleEvents(nil) {
		t.Fatalf("expected HandleEvents to report shutdown")
	}
}

func TestHeadlessRunHonoursContext(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); err == nil {
		t.Fatalf("expected a deadline error")
	}
}

func TestEngineRefreshPresentsAndPublishes(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{Options: []Option{WithEventBus()}})
	ch, cancel := h.Engine.Subscribe(schema.EmbedderPresent)
	defer cancel()

	if !h.Engine.HandleEvents([]WindowEvent{Refresh{}}) {
		t.Fatalf("unexpected shutdown")
	}
	if h.Window.Presents() != 1 {
		t.Fatalf("expected one present, got %d", h.Window.Presents())
	}
	events := h.Engine.Events()
	if len(events) == 0 || events[0].Type != schema.EmbedderPresent || events[0].Present.Frame != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
	select {
	case ev := <-ch:
		if ev.Present.Target != compositor.TargetWindow.String() {
			t.Fatalf("unexpected target %q", ev.Present.Target)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a bus event")
	}
	if again := h.Engine.Events(); len(again) != 0 {
		t.Fatalf("expected Events to drain, got %+v", again)
	}
}

func TestEngineSubscribeWithoutBus(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{})
	ch, cancel := h.Engine.Subscribe()
	cancel()
	if ch != nil {
		t.Fatalf("expected nil channel without an event bus")
	}
}

func TestEnginePinchZoomAndReset(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{})
	h.Engine.HandleEvents([]WindowEvent{PinchZoom{Document: h.Document, Magnification: 2}})
	if got := h.Engine.PinchZoomLevel(h.Document); got != 2 {
		t.Fatalf("expected pinch zoom 2, got %v", got)
	}
	h.Engine.HandleEvents([]WindowEvent{Zoom{Document: h.Document, Magnification: 1.5}})
	area, _ := h.Engine.Compositor().Area(h.Document)
	if area.PageZoom() != 1.5 {
		t.Fatalf("expected page zoom 1.5, got %v", area.PageZoom())
	}
	h.Engine.HandleEvents([]WindowEvent{ResetZoom{Document: h.Document}})
	if area.PageZoom() != 1 {
		t.Fatalf("expected page zoom reset, got %v", area.PageZoom())
	}
}

func TestEngineCaptureRender(t *testing.T) {
	dir := t.TempDir()
	h := newTestHeadless(t, HeadlessConfig{Compositor: schema.CompositorConfig{CaptureDir: dir}})
	h.Engine.HandleEvents([]WindowEvent{Refresh{}, CaptureRender{}})
	captured := h.Engine.LastCapture()
	if captured == "" || filepath.Dir(captured) != filepath.Join(dir, "capture_webrender") {
		t.Fatalf("unexpected capture dir %q", captured)
	}
	if _, err := os.Stat(filepath.Join(captured, "revision.txt")); err != nil {
		t.Fatalf("expected revision file: %v", err)
	}
}

func TestEngineToggleRenderDebug(t *testing.T) {
	h := newTestHeadless(t, HeadlessConfig{})
	h.Engine.HandleEvents([]WindowEvent{ToggleRenderDebug{Option: compositor.DebugRenderTargets}})
	if h.Backend.DebugFlags() == 0 {
		t.Fatalf("expected debug flags to be set")
	}
	h.Engine.HandleEvents([]WindowEvent{ToggleRenderDebug{Option: compositor.DebugRenderTargets}})
	if h.Backend.DebugFlags() != 0 {
		t.Fatalf("expected debug flags to toggle off")
	}
}

func TestEventQueueDropsWhileShuttingDown(t *testing.T) {
	q := &eventQueue{}
	q.OnCursor(schema.CursorEvent{Cursor: schema.CursorText})
	q.setState(compositor.ShuttingDown)
	q.OnPresent(schema.PresentEvent{Frame: 9})
	q.OnShutdown(schema.ShutdownEvent{})
	events := q.drain()
	if len(events) != 2 || events[0].Type != schema.EmbedderCursor || events[1].Type != schema.EmbedderShutdown {
		t.Fatalf("unexpected events: %+v", events)
	}
}

type countingSink struct {
	presents, animations, cursors, shutdowns int
}

func (s *countingSink) OnPresent(schema.PresentEvent)               { s.presents++ }
func (s *countingSink) OnAnimationState(schema.AnimationStateEvent) { s.animations++ }
func (s *countingSink) OnCursor(schema.CursorEvent)                 { s.cursors++ }
func (s *countingSink) OnShutdown(schema.ShutdownEvent)             { s.shutdowns++ }

func TestEventFanoutSkipsNilSinks(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	f := eventFanout{sinks: []compositor.EventSink{a, nil, b}}
	f.OnPresent(schema.PresentEvent{})
	f.OnAnimationState(schema.AnimationStateEvent{})
	f.OnCursor(schema.CursorEvent{})
	f.OnShutdown(schema.ShutdownEvent{})
	for _, s := range []*countingSink{a, b} {
		if s.presents != 1 || s.animations != 1 || s.cursors != 1 || s.shutdowns != 1 {
			t.Fatalf("unexpected counts: %+v", s)
		}
	}
}
