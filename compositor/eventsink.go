package compositor

import "pkt.systems/vitrine/schema"

// EventSink receives embedder notifications from the compositor.
type EventSink interface {
	OnPresent(event schema.PresentEvent)
	OnAnimationState(event schema.AnimationStateEvent)
	OnCursor(event schema.CursorEvent)
	OnShutdown(event schema.ShutdownEvent)
}

type nopSink struct{}

func (nopSink) OnPresent(schema.PresentEvent)               {}
func (nopSink) OnAnimationState(schema.AnimationStateEvent) {}
func (nopSink) OnCursor(schema.CursorEvent)                 {}
func (nopSink) OnShutdown(schema.ShutdownEvent)             {}
