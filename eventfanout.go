package vitrine

import (
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/schema"
)

type eventFanout struct {
	sinks []compositor.EventSink
}

func (f eventFanout) OnPresent(event schema.PresentEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnPresent(event)
	}
}

func (f eventFanout) OnAnimationState(event schema.AnimationStateEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnAnimationState(event)
	}
}

func (f eventFanout) OnCursor(event schema.CursorEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnCursor(event)
	}
}

func (f eventFanout) OnShutdown(event schema.ShutdownEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnShutdown(event)
	}
}
