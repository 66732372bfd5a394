package viewport

import (
	"math"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/schema"
)

// TouchPanMinScreenPx is the distance a single touch must travel before it
// becomes a pan instead of a potential tap.
const TouchPanMinScreenPx float32 = 20.0

// TouchState is the gesture recognizer state.
type TouchState uint8

const (
	// TouchNothing means no touch points are active.
	TouchNothing TouchState = iota
	// TouchWaitingForScript means content has not yet answered whether it
	// prevents the default action of the first touch.
	TouchWaitingForScript
	// TouchTouching is a single touch that has not moved far enough to pan.
	TouchTouching
	// TouchPanning is a single touch scrolling the viewport.
	TouchPanning
	// TouchPinching is two touches zooming the viewport.
	TouchPinching
	// TouchMultiTouch is three or more touches; no default action.
	TouchMultiTouch
	// TouchDefaultPrevented routes every move to content.
	TouchDefaultPrevented
)

func (s TouchState) String() string {
	switch s {
	case TouchNothing:
		return "nothing"
	case TouchWaitingForScript:
		return "waiting_for_script"
	case TouchTouching:
		return "touching"
	case TouchPanning:
		return "panning"
	case TouchPinching:
		return "pinching"
	case TouchMultiTouch:
		return "multi_touch"
	case TouchDefaultPrevented:
		return "default_prevented"
	default:
		return "unknown"
	}
}

// TouchActionKind is what the area should do in response to a touch event.
type TouchActionKind uint8

const (
	ActionNone TouchActionKind = iota
	ActionScroll
	ActionZoom
	ActionDispatchEvent
	ActionClick
)

// TouchAction is the output of the gesture recognizer.
type TouchAction struct {
	Kind          TouchActionKind
	Delta         schema.Vector
	Magnification float32
}

type touchPoint struct {
	id    schema.TouchID
	point schema.Point
}

// TouchHandler recognizes taps, pans and pinches from raw touch points.
type TouchHandler struct {
	state  TouchState
	points []touchPoint
	log    pslog.Logger
}

// NewTouchHandler returns an idle recognizer.
func NewTouchHandler(log pslog.Logger) *TouchHandler {
	return &TouchHandler{log: log}
}

// State returns the current recognizer state.
func (h *TouchHandler) State() TouchState {
	return h.state
}

// TouchCount returns the number of active touch points.
func (h *TouchHandler) TouchCount() int {
	return len(h.points)
}

// OnTouchDown registers a new touch point.
func (h *TouchHandler) OnTouchDown(id schema.TouchID, point schema.Point) {
	h.points = append(h.points, touchPoint{id: id, point: point})
	switch h.state {
	case TouchNothing:
		h.state = TouchWaitingForScript
	case TouchTouching, TouchPanning:
		h.state = TouchPinching
	case TouchPinching, TouchMultiTouch:
		h.state = TouchMultiTouch
	}
}

// OnTouchMove updates a touch point and reports the resulting gesture action.
func (h *TouchHandler) OnTouchMove(id schema.TouchID, point schema.Point) TouchAction {
	idx := h.index(id)
	if idx < 0 {
		h.log.Warn("touch move for inactive touch point", "touch_id", int32(id))
		return TouchAction{}
	}
	old := h.points[idx].point

	var action TouchAction
	switch h.state {
	case TouchTouching:
		delta := point.Sub(old)
		if abs32(delta.X) > TouchPanMinScreenPx || abs32(delta.Y) > TouchPanMinScreenPx {
			h.state = TouchPanning
			action = TouchAction{Kind: ActionScroll, Delta: delta}
		}
	case TouchPanning:
		action = TouchAction{Kind: ActionScroll, Delta: point.Sub(old)}
	case TouchDefaultPrevented:
		action = TouchAction{Kind: ActionDispatchEvent}
	case TouchPinching:
		oldDistance, oldCenter := h.pinchDistanceAndCenter()
		h.points[idx].point = point
		newDistance, newCenter := h.pinchDistanceAndCenter()
		magnification := float32(1)
		if oldDistance != 0 {
			magnification = newDistance / oldDistance
		}
		delta := newCenter.Sub(oldCenter.Mul(magnification))
		action = TouchAction{Kind: ActionZoom, Magnification: magnification, Delta: delta}
	}

	// A touch that might still be a tap keeps its original location.
	if h.state != TouchTouching {
		h.points[idx].point = point
	}
	return action
}

// OnTouchUp removes a touch point and reports whether a tap was recognized.
func (h *TouchHandler) OnTouchUp(id schema.TouchID, _ schema.Point) TouchAction {
	if !h.remove(id) {
		h.log.Warn("touch up for inactive touch point", "touch_id", int32(id))
		return TouchAction{}
	}
	switch h.state {
	case TouchTouching:
		h.state = TouchNothing
		return TouchAction{Kind: ActionClick}
	case TouchNothing, TouchPanning:
		h.state = TouchNothing
	case TouchPinching:
		h.state = TouchPanning
	case TouchWaitingForScript, TouchDefaultPrevented, TouchMultiTouch:
		if len(h.points) == 0 {
			h.state = TouchNothing
		}
	}
	return TouchAction{}
}

// OnTouchCancel removes a touch point without recognizing a tap.
func (h *TouchHandler) OnTouchCancel(id schema.TouchID, _ schema.Point) {
	if !h.remove(id) {
		h.log.Warn("touch cancel for inactive touch point", "touch_id", int32(id))
		return
	}
	switch h.state {
	case TouchTouching, TouchPanning:
		h.state = TouchNothing
	case TouchPinching:
		h.state = TouchPanning
	case TouchWaitingForScript, TouchDefaultPrevented, TouchMultiTouch:
		if len(h.points) == 0 {
			h.state = TouchNothing
		}
	}
}

// OnEventProcessed applies content's verdict on the first touch of a gesture.
func (h *TouchHandler) OnEventProcessed(result schema.EventResult) {
	if h.state != TouchWaitingForScript {
		return
	}
	if result == schema.DefaultPrevented {
		h.state = TouchDefaultPrevented
		return
	}
	switch len(h.points) {
	case 1:
		h.state = TouchTouching
	case 2:
		h.state = TouchPinching
	default:
		h.state = TouchMultiTouch
	}
}

func (h *TouchHandler) index(id schema.TouchID) int {
	for i, p := range h.points {
		if p.id == id {
			return i
		}
	}
	return -1
}

func (h *TouchHandler) remove(id schema.TouchID) bool {
	idx := h.index(id)
	if idx < 0 {
		return false
	}
	last := len(h.points) - 1
	h.points[idx] = h.points[last]
	h.points = h.points[:last]
	return true
}

func (h *TouchHandler) pinchDistanceAndCenter() (float32, schema.Point) {
	if len(h.points) < 2 {
		return 0, schema.Point{}
	}
	p0 := h.points[0].point
	p1 := h.points[1].point
	distance := p0.Sub(p1).Length()
	center := schema.Pt((p0.X+p1.X)/2, (p0.Y+p1.Y)/2)
	return distance, center
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
