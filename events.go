package vitrine

import (
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/schema"
)

// WindowEvent is an input or lifecycle event raised by the embedder's window.
type WindowEvent interface {
	windowEvent() string
}

// Idle wakes the engine without doing anything else.
type Idle struct{}

// Refresh composites immediately.
type Refresh struct{}

// Resize re-reads the window coordinates.
type Resize struct{}

// MouseWindowEventClass is a mouse button event.
type MouseWindowEventClass struct {
	Document schema.DocumentID
	Event    schema.MouseWindowEvent
}

// MouseWindowMoveEventClass is a pointer move.
type MouseWindowMoveEventClass struct {
	Document schema.DocumentID
	Point    schema.Point
}

// Touch is a raw touch event.
type Touch struct {
	Document schema.DocumentID
	Type     schema.TouchEventType
	ID       schema.TouchID
	Point    schema.Point
}

// Scroll is a wheel or trackpad scroll.
type Scroll struct {
	Document schema.DocumentID
	Location schema.ScrollLocation
	Cursor   schema.IntPoint
	Phase    schema.TouchEventType
}

// Zoom multiplies the page zoom.
type Zoom struct {
	Document      schema.DocumentID
	Magnification float32
}

// ResetZoom restores the page zoom to 1.
type ResetZoom struct {
	Document schema.DocumentID
}

// PinchZoom multiplies the pinch zoom.
type PinchZoom struct {
	Document      schema.DocumentID
	Magnification float32
}

// Quit starts the shutdown handshake.
type Quit struct{}

// ToggleRenderDebug flips a backend debug overlay.
type ToggleRenderDebug struct {
	Option compositor.DebugOption
}

// CaptureRender saves a backend capture.
type CaptureRender struct{}

func (Idle) windowEvent() string                      { return "idle" }
func (Refresh) windowEvent() string                   { return "refresh" }
func (Resize) windowEvent() string                    { return "resize" }
func (MouseWindowEventClass) windowEvent() string     { return "mouse_window_event" }
func (MouseWindowMoveEventClass) windowEvent() string { return "mouse_window_move" }
func (Touch) windowEvent() string                     { return "touch" }
func (Scroll) windowEvent() string                    { return "scroll" }
func (Zoom) windowEvent() string                      { return "zoom" }
func (ResetZoom) windowEvent() string                 { return "reset_zoom" }
func (PinchZoom) windowEvent() string                 { return "pinch_zoom" }
func (Quit) windowEvent() string                      { return "quit" }
func (ToggleRenderDebug) windowEvent() string         { return "toggle_render_debug" }
func (CaptureRender) windowEvent() string             { return "capture_render" }
