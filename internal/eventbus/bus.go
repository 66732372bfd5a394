// Package eventbus fans embedder notifications out to subscribers.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/schema"
)

// Event represents an embedder-facing notification from the compositor.
type Event struct {
	Type      schema.EmbedderEventType
	Present   schema.PresentEvent
	Animation schema.AnimationStateEvent
	Cursor    schema.CursorEvent
	Shutdown  schema.ShutdownEvent
}

type subscription struct {
	ch    chan Event
	types map[schema.EmbedderEventType]bool
}

func (s *subscription) wants(t schema.EmbedderEventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus fanouts events to subscribers. A subscriber that falls behind loses
// events rather than stalling the compositor.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]*subscription
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]*subscription),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the given event types (all types when
// none are named) and returns a channel + cancel.
func (b *Bus) Subscribe(types ...schema.EmbedderEventType) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	sub := &subscription{ch: make(chan Event, b.depth)}
	if len(types) > 0 {
		sub.types = make(map[schema.EmbedderEventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	b.mu.Lock()
	b.subs[sub.ch] = sub
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count, "types", len(types))
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub.ch)
			b.mu.Unlock()
			close(sub.ch)
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// OnPresent publishes a present event.
func (b *Bus) OnPresent(event schema.PresentEvent) {
	b.publish(Event{Type: schema.EmbedderPresent, Present: event})
}

// OnAnimationState publishes an animation state event.
func (b *Bus) OnAnimationState(event schema.AnimationStateEvent) {
	b.publish(Event{Type: schema.EmbedderAnimationState, Animation: event})
}

// OnCursor publishes a cursor event.
func (b *Bus) OnCursor(event schema.CursorEvent) {
	b.publish(Event{Type: schema.EmbedderCursor, Cursor: event})
}

// OnShutdown publishes a shutdown event.
func (b *Bus) OnShutdown(event schema.ShutdownEvent) {
	b.publish(Event{Type: schema.EmbedderShutdown, Shutdown: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for _, sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}
