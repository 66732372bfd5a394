// Package headless provides an offscreen embedder window for the compositor.
package headless

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/schema"
)

// Options configures a headless window.
type Options struct {
	Width       int32
	Height      int32
	HiDPIFactor float32
	// Screen defaults to the window size.
	Screen schema.IntSize
	Logger pslog.Logger
}

// Window is a fixed-size offscreen surface. Wakes are coalesced into a
// single pending signal on Wakeups.
type Window struct {
	mu        sync.Mutex
	coords    schema.EmbedderCoordinates
	presents  uint64
	animation compositor.WindowAnimationState
	wake      chan struct{}
	log       pslog.Logger
}

// New constructs a window from opts.
func New(opts Options) *Window {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	hidpi := opts.HiDPIFactor
	if hidpi <= 0 {
		hidpi = 1
	}
	size := schema.IntSize{Width: opts.Width, Height: opts.Height}
	screen := opts.Screen
	if screen.Empty() {
		screen = size
	}
	w := &Window{
		wake: make(chan struct{}, 1),
		log:  log,
	}
	w.coords = coordinates(size, screen, hidpi)
	return w
}

func coordinates(size, screen schema.IntSize, hidpi float32) schema.EmbedderCoordinates {
	return schema.EmbedderCoordinates{
		HiDPIFactor: hidpi,
		Screen:      screen,
		ScreenAvail: screen,
		Window:      schema.IntRect{Size: size},
		Framebuffer: size,
		Viewport:    schema.IntRect{Size: size},
	}
}

// Resize changes the surface size. Callers follow up with a compositor resize.
func (w *Window) Resize(width, height int32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	size := schema.IntSize{Width: width, Height: height}
	screen := w.coords.Screen
	if screen.Empty() {
		screen = size
	}
	w.coords = coordinates(size, screen, w.coords.HiDPIFactor)
	w.log.Debug("headless window resized", "width", width, "height", height)
}

// GetCoordinates implements compositor.WindowMethods.
func (w *Window) GetCoordinates() schema.EmbedderCoordinates {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.coords
}

// PrepareForComposite reports false until the surface has a non-empty size.
func (w *Window) PrepareForComposite(width, height int32) bool {
	return width > 0 && height > 0
}

func (w *Window) Present() {
	w.mu.Lock()
	w.presents++
	w.mu.Unlock()
}

// Presents returns how many frames were presented.
func (w *Window) Presents() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presents
}

func (w *Window) SetAnimationState(state compositor.WindowAnimationState) {
	w.mu.Lock()
	changed := w.animation != state
	w.animation = state
	w.mu.Unlock()
	if changed {
		w.log.Trace("headless window animation state", "state", state.String())
	}
}

// AnimationState returns the last reported animation state.
func (w *Window) AnimationState() compositor.WindowAnimationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.animation
}

func (w *Window) CreateEventLoopWaker() compositor.EventLoopWaker {
	return waker{ch: w.wake}
}

// Wakeups delivers a signal whenever the compositor has posted work.
func (w *Window) Wakeups() <-chan struct{} {
	return w.wake
}

type waker struct {
	ch chan struct{}
}

func (k waker) Wake() {
	select {
	case k.ch <- struct{}{}:
	default:
	}
}
