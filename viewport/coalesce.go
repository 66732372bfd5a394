package viewport

import "pkt.systems/vitrine/schema"

// ScrollZoomEvent is one pending scroll or pinch input, in device pixels.
type ScrollZoomEvent struct {
	// Magnification changes the pinch zoom level by this factor.
	Magnification float32
	// Location scrolls by a delta or jumps to the start or end.
	Location schema.ScrollLocation
	// Cursor selects the scroll node under this device point.
	Cursor schema.IntPoint
	// Count is the number of raw events folded into this one.
	Count uint32
}

// Coalescer batches pending scroll/zoom events into a single event per flush.
type Coalescer struct {
	pending []ScrollZoomEvent
}

// Push appends a raw event.
func (c *Coalescer) Push(event ScrollZoomEvent) {
	if event.Count == 0 {
		event.Count = 1
	}
	c.pending = append(c.pending, event)
}

// Len reports how many raw events are queued.
func (c *Coalescer) Len() int {
	return len(c.pending)
}

// Drain empties the queue and returns the combined event, if any.
//
// Deltas are averaged rather than summed so that bunched-up OS events do not
// cause visible jumps; magnifications multiply. A Start/End location replaces
// whatever was accumulated and ends the batch, dropping everything after it.
func (c *Coalescer) Drain() (ScrollZoomEvent, bool) {
	pending := c.pending
	c.pending = nil

	var combined ScrollZoomEvent
	have := false
	for _, event := range pending {
		if event.Location.IsSentinel() {
			combined = event
			have = true
			break
		}
		if !have {
			combined = ScrollZoomEvent{
				Magnification: event.Magnification,
				Location:      schema.DeltaScroll(event.Location.Delta),
				Cursor:        event.Cursor,
				Count:         1,
			}
			have = true
			continue
		}
		if combined.Location.Kind == schema.ScrollDelta {
			oldCount := float32(combined.Count)
			combined.Count++
			newCount := float32(combined.Count)
			combined.Location.Delta = combined.Location.Delta.Mul(oldCount).Add(event.Location.Delta).Div(newCount)
		}
		combined.Magnification *= event.Magnification
	}
	return combined, have
}
