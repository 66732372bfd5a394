// Package vitrine drives a compositor from an embedder's event loop.
package vitrine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/internal/eventbus"
	"pkt.systems/vitrine/internal/logx"
	"pkt.systems/vitrine/schema"
)

// Event is an embedder notification.
type Event = eventbus.Event

// Option toggles engine components.
type Option func(*engineOptions)

type engineOptions struct {
	bus   bool
	sinks []compositor.EventSink
}

// WithEventBus enables Subscribe.
func WithEventBus() Option {
	return func(o *engineOptions) { o.bus = true }
}

// WithEventSink adds a sink that receives every embedder notification.
func WithEventSink(sink compositor.EventSink) Option {
	return func(o *engineOptions) { o.sinks = append(o.sinks, sink) }
}

// Engine owns a compositor and feeds it window events. HandleEvents,
// RepaintSynchronously and PinchZoomLevel must be called from one goroutine.
type Engine struct {
	comp  *compositor.Compositor
	bus   *eventbus.Bus
	queue *eventQueue
	sink  compositor.EventSink
	log   pslog.Logger

	lastCapture string
}

// New builds the compositor from cfg and deps and wraps it. deps.Events, when
// set, is kept alongside the engine's own sinks.
func New(cfg schema.CompositorConfig, deps compositor.Deps, opts ...Option) (*Engine, error) {
	options := engineOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	log := logx.Or(deps.Logger)
	e := &Engine{
		queue: &eventQueue{},
		log:   log,
	}
	sinks := []compositor.EventSink{e.queue}
	if options.bus {
		e.bus = eventbus.New(log)
		sinks = append(sinks, e.bus)
	}
	if deps.Events != nil {
		sinks = append(sinks, deps.Events)
	}
	sinks = append(sinks, options.sinks...)
	e.sink = eventFanout{sinks: sinks}
	deps.Events = e.sink

	comp, err := compositor.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	e.comp = comp
	return e, nil
}

// Compositor returns the wrapped compositor.
func (e *Engine) Compositor() *compositor.Compositor {
	return e.comp
}

// Sink returns the sink the compositor notifies. Other producers of embedder
// events, such as a content coordinator reporting cursors, should use it too.
func (e *Engine) Sink() compositor.EventSink {
	return e.sink
}

// Subscribe registers a bus subscriber. It returns a nil channel when the
// engine was built without WithEventBus.
func (e *Engine) Subscribe(types ...schema.EmbedderEventType) (<-chan Event, func()) {
	return e.bus.Subscribe(types...)
}

// Events drains queued embedder notifications.
func (e *Engine) Events() []Event {
	return e.queue.drain()
}

// LastCapture returns the directory of the last successful capture.
func (e *Engine) LastCapture() string {
	return e.lastCapture
}

// HandleEvents pumps the compositor mailbox, applies events and then performs
// pending updates. It returns false once the compositor has shut down.
func (e *Engine) HandleEvents(events []WindowEvent) bool {
	e.comp.ReceiveMessages()
	e.syncState()
	for _, event := range events {
		e.handleWindowEvent(event)
	}
	if e.comp.ShutdownState() == compositor.FinishedShuttingDown {
		e.syncState()
		return false
	}
	keepGoing := e.comp.PerformUpdates()
	e.syncState()
	return keepGoing
}

func (e *Engine) syncState() {
	e.queue.setState(e.comp.ShutdownState())
}

func (e *Engine) handleWindowEvent(event WindowEvent) {
	e.log.Trace("engine window event", "event", event.windowEvent())
	switch ev := event.(type) {
	case Idle:
	case Refresh:
		e.comp.Composite()
	case Resize:
		e.comp.OnResize()
	case MouseWindowEventClass:
		e.comp.OnMouseEvent(ev.Document, ev.Event)
	case MouseWindowMoveEventClass:
		e.comp.OnMouseMove(ev.Document, ev.Point)
	case Touch:
		e.comp.OnTouchEvent(ev.Document, ev.Type, ev.ID, ev.Point)
	case Scroll:
		e.comp.OnScrollEvent(ev.Document, ev.Location, ev.Cursor, ev.Phase)
	case Zoom:
		e.comp.OnZoom(ev.Document, ev.Magnification)
	case ResetZoom:
		e.comp.OnZoomReset(ev.Document)
	case PinchZoom:
		e.comp.OnPinchZoom(ev.Document, ev.Magnification)
	case Quit:
		e.comp.MaybeStartShuttingDown()
	case ToggleRenderDebug:
		e.comp.ToggleDebug(ev.Option)
	case CaptureRender:
		dir, err := e.comp.CaptureBackend()
		if err != nil {
			e.log.Warn("engine capture failed", "err", err)
			return
		}
		e.lastCapture = dir
		e.log.Info("engine capture saved", "path", dir)
	default:
		e.log.Warn("engine unknown window event", "event", event.windowEvent())
	}
}

// RepaintSynchronously blocks until the next recomposite request has been
// composited. A closed mailbox is not an error.
func (e *Engine) RepaintSynchronously(ctx context.Context) error {
	err := e.comp.RepaintSynchronously(ctx)
	e.syncState()
	if errors.Is(err, schema.ErrPeerClosed) {
		return nil
	}
	return err
}

// PinchZoomLevel returns the pinch zoom of doc.
func (e *Engine) PinchZoomLevel(doc schema.DocumentID) float32 {
	return e.comp.PinchZoomLevel(doc)
}

// eventQueue buffers notifications for Events. Only the shutdown notification
// is queued while the compositor is shutting down.
type eventQueue struct {
	state  atomic.Uint32
	mu     sync.Mutex
	events []Event
}

func (q *eventQueue) setState(state compositor.ShutdownState) {
	q.state.Store(uint32(state))
}

func (q *eventQueue) push(event Event) {
	if event.Type != schema.EmbedderShutdown && compositor.ShutdownState(q.state.Load()) == compositor.ShuttingDown {
		return
	}
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
}

func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

func (q *eventQueue) OnPresent(event schema.PresentEvent) {
	q.push(Event{Type: schema.EmbedderPresent, Present: event})
}

func (q *eventQueue) OnAnimationState(event schema.AnimationStateEvent) {
	q.push(Event{Type: schema.EmbedderAnimationState, Animation: event})
}

func (q *eventQueue) OnCursor(event schema.CursorEvent) {
	q.push(Event{Type: schema.EmbedderCursor, Cursor: event})
}

func (q *eventQueue) OnShutdown(event schema.ShutdownEvent) {
	q.push(Event{Type: schema.EmbedderShutdown, Shutdown: event})
}
