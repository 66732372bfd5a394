package compositor

import "pkt.systems/vitrine/schema"

// OnMouseEvent delivers a button event to the area for doc. When mouse input
// is converted to touch, presses and releases drive touch point 0.
func (c *Compositor) OnMouseEvent(doc schema.DocumentID, event schema.MouseWindowEvent) {
	area, ok := c.areaFor(doc)
	if !ok {
		return
	}
	if c.cfg.ConvertMouseToTouch {
		switch event.Type {
		case schema.MouseDown:
			area.OnTouchDown(0, event.Point)
		case schema.MouseUp:
			area.OnTouchUp(0, event.Point)
		}
		return
	}
	area.DispatchMouseEvent(event)
}

// OnMouseMove delivers a pointer move to the area for doc.
func (c *Compositor) OnMouseMove(doc schema.DocumentID, point schema.Point) {
	area, ok := c.areaFor(doc)
	if !ok {
		return
	}
	if c.cfg.ConvertMouseToTouch {
		area.OnTouchMove(0, point)
		return
	}
	area.DispatchMouseMove(point)
}

// OnTouchEvent delivers a touch event to the area for doc.
func (c *Compositor) OnTouchEvent(doc schema.DocumentID, eventType schema.TouchEventType, id schema.TouchID, point schema.Point) {
	if area, ok := c.areaFor(doc); ok {
		area.OnTouchEvent(eventType, id, point)
	}
}

// OnScrollEvent queues a scroll on the area for doc.
func (c *Compositor) OnScrollEvent(doc schema.DocumentID, location schema.ScrollLocation, cursor schema.IntPoint, phase schema.TouchEventType) {
	if area, ok := c.areaFor(doc); ok {
		area.OnScrollEvent(location, cursor, phase)
	}
}

// OnZoom changes the page zoom of the area for doc.
func (c *Compositor) OnZoom(doc schema.DocumentID, magnification float32) {
	if area, ok := c.areaFor(doc); ok {
		area.OnZoom(magnification)
	}
}

// OnZoomReset resets the page zoom of the area for doc.
func (c *Compositor) OnZoomReset(doc schema.DocumentID) {
	if area, ok := c.areaFor(doc); ok {
		area.OnZoomReset()
	}
}

// OnPinchZoom queues a pinch zoom on the area for doc.
func (c *Compositor) OnPinchZoom(doc schema.DocumentID, magnification float32) {
	if area, ok := c.areaFor(doc); ok {
		area.OnPinchZoom(magnification)
	}
}

// PinchZoomLevel returns the pinch zoom of the area for doc, or 1 when unknown.
func (c *Compositor) PinchZoomLevel(doc schema.DocumentID) float32 {
	if area, ok := c.Area(doc); ok {
		return area.PinchZoomLevel()
	}
	return 1
}
