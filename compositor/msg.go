package compositor

import (
	"image"

	"pkt.systems/vitrine/schema"
)

// Msg is an inbound compositor mailbox message.
type Msg interface {
	msgName() string
}

// ChangeRunningAnimationsState reports a pipeline's animation activity.
type ChangeRunningAnimationsState struct {
	Pipeline schema.PipelineID
	State    schema.AnimationState
}

// SetFrameTree binds a pipeline tree to the area owning Document.
type SetFrameTree struct {
	Document schema.DocumentID
	Tree     schema.SendableFrameTree
}

// Recomposite requests a composite on the next update.
type Recomposite struct {
	Reason CompositingReason
}

// TouchEventProcessed carries content's verdict on a dispatched touch event.
type TouchEventProcessed struct {
	Pipeline schema.PipelineID
	Result   schema.EventResult
}

// CreatePng composites to the window and replies with the pixels, or nil when
// the compositor was not ready.
type CreatePng struct {
	Reply chan<- *image.RGBA
}

// ViewportConstrained carries content's pinch-zoom limits.
type ViewportConstrained struct {
	Pipeline    schema.PipelineID
	Constraints schema.ViewportConstraints
}

// IsReadyToSaveImageReply answers an IsReadyToSaveImage query.
type IsReadyToSaveImageReply struct {
	Ready bool
}

// PipelineVisibilityChanged toggles whether a pipeline is shown.
type PipelineVisibilityChanged struct {
	Pipeline schema.PipelineID
	Visible  bool
}

// PipelineExited removes a pipeline; Ack is signalled once it is forgotten.
type PipelineExited struct {
	Pipeline schema.PipelineID
	Ack      chan<- struct{}
}

// NewScrollFrameReady is posted by the backend after a scroll produced a frame.
type NewScrollFrameReady struct {
	Document        schema.DocumentID
	CompositeNeeded bool
}

// Dispatch runs Func on the compositor goroutine.
type Dispatch struct {
	Func func()
}

// LoadComplete reports that a top-level browsing context finished loading.
type LoadComplete struct {
	Browser schema.TopLevelBrowsingContextID
}

// PendingPaintMetric asks for the paint time of Epoch once it is shown.
type PendingPaintMetric struct {
	Pipeline schema.PipelineID
	Epoch    schema.Epoch
}

// GetClientWindow replies with the embedder window rectangle.
type GetClientWindow struct {
	Reply chan<- schema.IntRect
}

// GetScreenSize replies with the screen size.
type GetScreenSize struct {
	Reply chan<- schema.IntSize
}

// GetScreenAvailSize replies with the available screen size.
type GetScreenAvailSize struct {
	Reply chan<- schema.IntSize
}

// ShutdownComplete confirms that every pipeline has exited.
type ShutdownComplete struct{}

func (ChangeRunningAnimationsState) msgName() string { return "change_running_animations_state" }
func (SetFrameTree) msgName() string                 { return "set_frame_tree" }
func (Recomposite) msgName() string                  { return "recomposite" }
func (TouchEventProcessed) msgName() string          { return "touch_event_processed" }
func (CreatePng) msgName() string                    { return "create_png" }
func (ViewportConstrained) msgName() string          { return "viewport_constrained" }
func (IsReadyToSaveImageReply) msgName() string      { return "is_ready_to_save_image_reply" }
func (PipelineVisibilityChanged) msgName() string    { return "pipeline_visibility_changed" }
func (PipelineExited) msgName() string               { return "pipeline_exited" }
func (NewScrollFrameReady) msgName() string          { return "new_scroll_frame_ready" }
func (Dispatch) msgName() string                     { return "dispatch" }
func (LoadComplete) msgName() string                 { return "load_complete" }
func (PendingPaintMetric) msgName() string           { return "pending_paint_metric" }
func (GetClientWindow) msgName() string              { return "get_client_window" }
func (GetScreenSize) msgName() string                { return "get_screen_size" }
func (GetScreenAvailSize) msgName() string           { return "get_screen_avail_size" }
func (ShutdownComplete) msgName() string             { return "shutdown_complete" }

// CompositingReason records why a composite was requested.
type CompositingReason uint8

const (
	// ReasonDelayedCompositeTimeout is a delayed composition deadline.
	ReasonDelayedCompositeTimeout CompositingReason = iota
	// ReasonScroll is the first composite of a scroll.
	ReasonScroll
	// ReasonContinueScroll keeps a scroll going.
	ReasonContinueScroll
	// ReasonHeadless is the single composite of a headless run.
	ReasonHeadless
	// ReasonAnimation runs an animation frame.
	ReasonAnimation
	// ReasonNewFrameTree follows a new frame tree.
	ReasonNewFrameTree
	// ReasonNewPaintedBuffers follows newly painted content.
	ReasonNewPaintedBuffers
	// ReasonZoom follows a zoom change.
	ReasonZoom
	// ReasonNewFrame is a backend wake-up.
	ReasonNewFrame
	// ReasonNewScrollFrame is a backend frame produced by a scroll.
	ReasonNewScrollFrame
)

func (r CompositingReason) String() string {
	switch r {
	case ReasonDelayedCompositeTimeout:
		return "delayed_composite_timeout"
	case ReasonScroll:
		return "scroll"
	case ReasonContinueScroll:
		return "continue_scroll"
	case ReasonHeadless:
		return "headless"
	case ReasonAnimation:
		return "animation"
	case ReasonNewFrameTree:
		return "new_frame_tree"
	case ReasonNewPaintedBuffers:
		return "new_painted_buffers"
	case ReasonZoom:
		return "zoom"
	case ReasonNewFrame:
		return "new_frame"
	case ReasonNewScrollFrame:
		return "new_scroll_frame"
	default:
		return "unknown"
	}
}
