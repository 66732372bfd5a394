package viewport

import (
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// HitTest converts a device point to content space and asks the backend for
// the items under it, topmost first.
func (a *Area) HitTest(point schema.Point) render.HitTestResult {
	scaled := point.Div(a.scale)
	return a.api.HitTest(a.document, nil, scaled, 0)
}

// DispatchMouseEvent forwards a button event to the pipeline under the pointer.
func (a *Area) DispatchMouseEvent(event schema.MouseWindowEvent) {
	result := a.HitTest(event.Point)
	if len(result.Items) == 0 {
		a.log.Trace("area mouse event missed", "type", event.Type.String())
		return
	}
	item := result.Items[0]
	a.forward(item.Pipeline, schema.MouseButtonEvent{
		Type:        event.Type,
		Button:      event.Button,
		Point:       item.PointInViewport,
		Node:        schema.UntrustedNodeAddress(item.Tag.Node),
		PointInNode: item.PointRelativeToItem,
	})
}

// DispatchMouseMove forwards a move to the pipeline under the pointer and
// requests the item's cursor.
func (a *Area) DispatchMouseMove(point schema.Point) {
	if a.root == nil {
		return
	}
	result := a.HitTest(point)
	if len(result.Items) == 0 {
		return
	}
	item := result.Items[0]
	a.forward(item.Pipeline, schema.MouseMoveEvent{
		Point: item.PointInViewport,
		Node:  schema.UntrustedNodeAddress(item.Tag.Node),
	})
	if cursor, ok := schema.CursorFromTag(item.Tag.Cursor); ok {
		a.send(schema.SetCursorMsg{Cursor: cursor}, "set cursor")
	}
}

// OnTouchEvent routes a raw touch event by phase.
func (a *Area) OnTouchEvent(eventType schema.TouchEventType, id schema.TouchID, point schema.Point) {
	switch eventType {
	case schema.TouchDown:
		a.OnTouchDown(id, point)
	case schema.TouchMove:
		a.OnTouchMove(id, point)
	case schema.TouchUp:
		a.OnTouchUp(id, point)
	case schema.TouchCancel:
		a.OnTouchCancel(id, point)
	}
}

// OnTouchDown starts tracking a touch point and tells content about it.
func (a *Area) OnTouchDown(id schema.TouchID, point schema.Point) {
	a.touch.OnTouchDown(id, point)
	a.sendTouchEvent(schema.TouchDown, id, point)
}

// OnTouchMove runs the gesture recognizer and acts on its decision.
func (a *Area) OnTouchMove(id schema.TouchID, point schema.Point) {
	action := a.touch.OnTouchMove(id, point)
	switch action.Kind {
	case ActionScroll:
		a.pending.Push(ScrollZoomEvent{
			Magnification: 1,
			Location:      schema.DeltaScroll(action.Delta),
			Cursor:        point.Trunc(),
		})
	case ActionZoom:
		a.pending.Push(ScrollZoomEvent{
			Magnification: action.Magnification,
			Location:      schema.DeltaScroll(action.Delta),
			Cursor:        schema.IntPoint{X: -1, Y: -1},
		})
	case ActionDispatchEvent:
		a.sendTouchEvent(schema.TouchMove, id, point)
	}
}

// OnTouchUp tells content about the release and synthesizes a click on tap.
func (a *Area) OnTouchUp(id schema.TouchID, point schema.Point) {
	a.sendTouchEvent(schema.TouchUp, id, point)
	if a.touch.OnTouchUp(id, point).Kind == ActionClick {
		a.simulateMouseClick(point)
	}
}

// OnTouchCancel drops a touch point and tells content.
func (a *Area) OnTouchCancel(id schema.TouchID, point schema.Point) {
	a.touch.OnTouchCancel(id, point)
	a.sendTouchEvent(schema.TouchCancel, id, point)
}

// simulateMouseClick follows https://w3c.github.io/touch-events/#mouse-events.
func (a *Area) simulateMouseClick(point schema.Point) {
	a.DispatchMouseMove(point)
	for _, eventType := range []schema.MouseEventType{schema.MouseDown, schema.MouseUp, schema.MouseClick} {
		a.DispatchMouseEvent(schema.MouseWindowEvent{Type: eventType, Button: schema.MouseLeft, Point: point})
	}
}

func (a *Area) sendTouchEvent(eventType schema.TouchEventType, id schema.TouchID, point schema.Point) {
	result := a.HitTest(point)
	if len(result.Items) == 0 {
		return
	}
	item := result.Items[0]
	a.forward(item.Pipeline, schema.TouchEvent{
		Type:  eventType,
		ID:    id,
		Point: item.PointInViewport,
		Node:  schema.UntrustedNodeAddress(item.Tag.Node),
	})
}

func (a *Area) forward(pipeline schema.PipelineID, event schema.CompositorEvent) {
	a.send(schema.ForwardEventMsg{Pipeline: pipeline, Event: event}, "forward event")
}
