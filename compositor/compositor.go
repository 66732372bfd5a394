// Package compositor is the single-goroutine reactor that turns embedder
// input, content lifecycle messages and backend frame notifications into
// backend transactions and composite passes.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/internal/logx"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
	"pkt.systems/vitrine/viewport"
)

// ShutdownState tracks the shutdown handshake. It only moves forward.
type ShutdownState uint8

const (
	NotShuttingDown ShutdownState = iota
	ShuttingDown
	FinishedShuttingDown
)

func (s ShutdownState) String() string {
	switch s {
	case NotShuttingDown:
		return "not_shutting_down"
	case ShuttingDown:
		return "shutting_down"
	case FinishedShuttingDown:
		return "finished_shutting_down"
	default:
		return "unknown"
	}
}

// CompositeTarget selects where a composite goes.
type CompositeTarget uint8

const (
	// TargetWindow composites to the window only.
	TargetWindow CompositeTarget = iota
	// TargetWindowAndPng composites to the window and returns the pixels.
	TargetWindowAndPng
	// TargetPngFile composites and writes the pixels to the output file.
	TargetPngFile
)

func (t CompositeTarget) String() string {
	switch t {
	case TargetWindow:
		return "window"
	case TargetWindowAndPng:
		return "window_and_png"
	case TargetPngFile:
		return "png_file"
	default:
		return "unknown"
	}
}

// CompositionRequest remembers whether a composite is pending and why.
type CompositionRequest struct {
	Pending bool
	Reason  CompositingReason
}

// Compositor owns every area and the pipeline registry. All methods must be
// called from the goroutine that drives it.
type Compositor struct {
	cfg    schema.CompositorConfig
	window WindowMethods
	port   *Receiver

	embedder schema.EmbedderCoordinates

	pipelines map[schema.PipelineID]*PipelineDetails
	areas     []*viewport.Area

	target            CompositeTarget
	request           CompositionRequest
	shutdown          ShutdownState
	readyState        ReadyState
	lastCompositeTime time.Time
	frames            uint64
	animating         bool

	pendingPaintMetrics map[schema.PipelineID]schema.Epoch

	constellation schema.ConstellationChan
	api           render.API
	renderer      render.Renderer
	profiler      TimeProfiler
	events        EventSink
	log           pslog.Logger
	now           func() time.Time
}

// New constructs a compositor from a normalized config.
func New(cfg schema.CompositorConfig, deps Deps) (*Compositor, error) {
	normalized, err := schema.NormalizeCompositorConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	switch {
	case deps.Window == nil:
		return nil, fmt.Errorf("%w: window is required", schema.ErrInvalidConfig)
	case deps.Receiver == nil:
		return nil, fmt.Errorf("%w: receiver is required", schema.ErrInvalidConfig)
	case deps.API == nil || deps.Renderer == nil:
		return nil, fmt.Errorf("%w: render backend is required", schema.ErrInvalidConfig)
	case deps.Constellation == nil:
		return nil, fmt.Errorf("%w: constellation channel is required", schema.ErrInvalidConfig)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	var events EventSink = nopSink{}
	if deps.Events != nil {
		events = deps.Events
	}
	target := TargetWindow
	if cfg.OutputFile != "" {
		target = TargetPngFile
	}
	c := &Compositor{
		cfg:                 cfg,
		window:              deps.Window,
		port:                deps.Receiver,
		embedder:            deps.Window.GetCoordinates(),
		pipelines:           make(map[schema.PipelineID]*PipelineDetails),
		target:              target,
		pendingPaintMetrics: make(map[schema.PipelineID]schema.Epoch),
		constellation:       deps.Constellation,
		api:                 deps.API,
		renderer:            deps.Renderer,
		profiler:            deps.Profiler,
		events:              events,
		log:                 logx.Or(deps.Logger),
		now:                 now,
	}
	c.log.Info("compositor created", "target", target.String(), "hidpi", c.embedder.HiDPIFactor)
	return c, nil
}

// CreateArea adds a viewport covering coords and returns its document id.
func (c *Compositor) CreateArea(coords schema.AreaCoordinates, layer schema.DocumentLayer) schema.DocumentID {
	area := viewport.New(viewport.Deps{
		Logger:        c.log,
		API:           c.api,
		Constellation: c.constellation,
	}, coords, c.embedder, layer)
	c.areas = append(c.areas, area)
	return area.ID()
}

// Area returns the area for doc.
func (c *Compositor) Area(doc schema.DocumentID) (*viewport.Area, bool) {
	for _, area := range c.areas {
		if area.ID() == doc {
			return area, true
		}
	}
	return nil, false
}

// Areas returns every area in creation order.
func (c *Compositor) Areas() []*viewport.Area {
	return c.areas
}

// ShutdownState returns the shutdown handshake state.
func (c *Compositor) ShutdownState() ShutdownState {
	return c.shutdown
}

// ReadyState returns the snapshot readiness state.
func (c *Compositor) ReadyState() ReadyState {
	return c.readyState
}

// CompositionRequest returns the pending composite request.
func (c *Compositor) CompositionRequest() CompositionRequest {
	return c.request
}

// Target returns the composite target used by Composite.
func (c *Compositor) Target() CompositeTarget {
	return c.target
}

// LastCompositeTime returns when the last composite was presented.
func (c *Compositor) LastCompositeTime() time.Time {
	return c.lastCompositeTime
}

// Frames returns the number of presented composites.
func (c *Compositor) Frames() uint64 {
	return c.frames
}

// EmbedderCoordinates returns the last known embedder coordinates.
func (c *Compositor) EmbedderCoordinates() schema.EmbedderCoordinates {
	return c.embedder
}

func (c *Compositor) areaFor(doc schema.DocumentID) (*viewport.Area, bool) {
	area, ok := c.Area(doc)
	if !ok {
		c.log.Warn("compositor area not found", "document", doc.String(), "err", schema.ErrUnknownDocument)
	}
	return area, ok
}

func (c *Compositor) areaForRoot(id schema.PipelineID) (*viewport.Area, bool) {
	for _, area := range c.areas {
		if area.HasRoot(id) {
			return area, true
		}
	}
	return nil, false
}

// MaybeStartShuttingDown begins the shutdown handshake once.
func (c *Compositor) MaybeStartShuttingDown() {
	if c.shutdown == NotShuttingDown {
		c.log.Debug("compositor shutdown requested")
		c.startShuttingDown()
	}
}

func (c *Compositor) startShuttingDown() {
	c.log.Info("compositor shutting down")
	c.sendConstellation(schema.ExitMsg{}, "exit")
	c.setShutdownState(ShuttingDown)
}

func (c *Compositor) finishShuttingDown() {
	c.log.Info("compositor shutdown confirmed")

	// Queued messages may carry reply channels other goroutines block on.
	c.port.Close()
	drained := 0
	for {
		msg, ok := c.port.TryRecv()
		if !ok {
			break
		}
		drained++
		releaseMsg(msg)
	}
	if drained > 0 {
		c.log.Debug("compositor drained mailbox", "messages", drained)
	}

	if c.profiler != nil {
		ack := make(chan struct{})
		c.profiler.Exit(ack)
		<-ack
	}
	c.setShutdownState(FinishedShuttingDown)
	c.events.OnShutdown(schema.ShutdownEvent{Time: c.now()})
}

func (c *Compositor) setShutdownState(next ShutdownState) {
	if next <= c.shutdown {
		return
	}
	c.log.Debug("compositor shutdown state", "from", c.shutdown.String(), "to", next.String())
	c.shutdown = next
}

// releaseMsg unblocks senders waiting on a discarded message.
func releaseMsg(msg Msg) {
	switch m := msg.(type) {
	case PipelineExited:
		closeAck(m.Ack)
	case CreatePng:
		if m.Reply != nil {
			close(m.Reply)
		}
	}
}

func closeAck(ack chan<- struct{}) {
	if ack == nil {
		return
	}
	close(ack)
}

// ReceiveMessages drains the mailbox and handles every message. Consecutive
// recomposite requests in one drain collapse into the first. It returns false
// once the compositor should stop pumping.
func (c *Compositor) ReceiveMessages() bool {
	var batch []Msg
	foundRecomposite := false
	for {
		msg, ok := c.port.TryRecv()
		if !ok {
			break
		}
		if _, isRecomposite := msg.(Recomposite); isRecomposite {
			if foundRecomposite {
				continue
			}
			foundRecomposite = true
		}
		batch = append(batch, msg)
	}
	for i, msg := range batch {
		if !c.HandleMessage(msg) {
			for _, rest := range batch[i+1:] {
				releaseMsg(rest)
			}
			return false
		}
	}
	return true
}

// HandleMessage applies one mailbox message. It returns false when the
// compositor has finished or just finished shutting down.
func (c *Compositor) HandleMessage(msg Msg) bool {
	if c.shutdown == FinishedShuttingDown {
		c.log.Error("compositor message after shutdown", "msg", msg.msgName(), "err", schema.ErrShutdown)
		releaseMsg(msg)
		return false
	}
	c.log.Trace("compositor message", "msg", msg.msgName(), "state", c.shutdown.String())

	switch m := msg.(type) {
	case ShutdownComplete:
		c.finishShuttingDown()
		return false
	case PipelineExited:
		c.log.Debug("compositor pipeline exited", "pipeline", m.Pipeline.String())
		c.removePipeline(m.Pipeline)
		closeAck(m.Ack)
		return true
	case PendingPaintMetric:
		c.pendingPaintMetrics[m.Pipeline] = m.Epoch
		return true
	}

	// Paint work and most bookkeeping stop once shutdown has begun.
	if c.shutdown == ShuttingDown {
		releaseMsg(msg)
		return true
	}

	switch m := msg.(type) {
	case ChangeRunningAnimationsState:
		c.changeRunningAnimationsState(m.Pipeline, m.State)
	case SetFrameTree:
		c.setFrameTree(m.Document, &m.Tree)
	case Recomposite:
		c.request = CompositionRequest{Pending: true, Reason: m.Reason}
	case TouchEventProcessed:
		if area, ok := c.areaForPipeline(m.Pipeline); ok {
			area.OnTouchEventProcessed(m.Result)
		}
	case CreatePng:
		img, err := c.CompositeSpecificTarget(TargetWindowAndPng)
		if err != nil {
			c.log.Info("compositor png not produced", "err", err)
			img = nil
		}
		replyTo(c.log, m.Reply, img, "create png")
	case ViewportConstrained:
		if area, ok := c.areaForPipeline(m.Pipeline); ok {
			area.ConstrainViewport(m.Constraints)
		}
	case IsReadyToSaveImageReply:
		c.onReadyReply(m.Ready)
	case PipelineVisibilityChanged:
		c.details(m.Pipeline).Visible = m.Visible
		if m.Visible {
			c.ProcessAnimations()
		}
	case NewScrollFrameReady:
		if area, ok := c.areaFor(m.Document); ok {
			area.CompositeDone()
		}
		if m.CompositeNeeded {
			c.request = CompositionRequest{Pending: true, Reason: ReasonNewScrollFrame}
		}
	case Dispatch:
		if m.Func != nil {
			m.Func()
		}
	case LoadComplete:
		if c.cfg.WaitForStableImage() {
			c.compositeIfNecessary(ReasonHeadless)
		}
	case GetClientWindow:
		replyTo(c.log, m.Reply, c.embedder.Window, "client window")
	case GetScreenSize:
		replyTo(c.log, m.Reply, c.embedder.Screen, "screen size")
	case GetScreenAvailSize:
		replyTo(c.log, m.Reply, c.embedder.ScreenAvail, "screen avail size")
	default:
		c.log.Warn("compositor unknown message", "msg", msg.msgName())
	}
	return true
}

func replyTo[T any](log pslog.Logger, reply chan<- T, value T, what string) {
	if reply == nil {
		return
	}
	select {
	case reply <- value:
	default:
		log.Warn("compositor reply dropped", "reply", what, "err", schema.ErrPeerClosed)
	}
}

func (c *Compositor) setFrameTree(doc schema.DocumentID, tree *schema.SendableFrameTree) {
	c.createPipelineDetailsForFrameTree(tree)
	area, ok := c.areaFor(doc)
	if !ok {
		return
	}
	c.updateScrollStates(area.SetFrameTree(tree))
}

func (c *Compositor) compositeIfNecessary(reason CompositingReason) {
	if !c.request.Pending {
		if c.cfg.IsRunningProblemTest {
			c.log.Info("compositor composition request updated", "reason", reason.String())
		}
		c.request = CompositionRequest{Pending: true, Reason: reason}
		return
	}
	if c.cfg.IsRunningProblemTest {
		c.log.Info("compositor composition request already pending", "reason", c.request.Reason.String())
	}
}

// PerformUpdates composites if one was requested, then flushes every area's
// pending scroll/zoom events. It returns false once shutdown has finished.
func (c *Compositor) PerformUpdates() bool {
	if c.shutdown == FinishedShuttingDown {
		return false
	}
	if c.request.Pending {
		c.Composite()
	}
	for _, area := range c.areas {
		if states, ok := area.FlushPendingEvents(); ok {
			c.updateScrollStates(states)
		}
	}
	return c.shutdown != FinishedShuttingDown
}

// RepaintSynchronously blocks on the mailbox until a recomposite arrives and
// composites it. Callers must ensure a composite will be scheduled.
func (c *Compositor) RepaintSynchronously(ctx context.Context) error {
	for c.shutdown != ShuttingDown && c.shutdown != FinishedShuttingDown {
		msg, err := c.port.Recv(ctx)
		if err != nil {
			if errors.Is(err, schema.ErrPeerClosed) {
				return nil
			}
			return err
		}
		_, needRecomposite := msg.(Recomposite)
		keepGoing := c.HandleMessage(msg)
		if needRecomposite {
			c.Composite()
			return nil
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}

// OnResize re-reads the embedder coordinates and propagates them to every area.
func (c *Compositor) OnResize() {
	c.log.Debug("compositor resize")
	c.embedder = c.window.GetCoordinates()
	for _, area := range c.areas {
		area.OnResize(c.embedder)
	}
}

func (c *Compositor) updateScrollStates(states schema.ScrollStates) {
	for id, list := range states {
		details, ok := c.pipelines[id]
		if !ok || details.Pipeline == nil {
			c.log.Warn("compositor scroll states for unknown pipeline", "pipeline", id.String(), "err", schema.ErrUnknownPipeline)
			continue
		}
		c.sendLayout(details.Pipeline, schema.SetScrollStates{States: list}, "scroll states")
	}
}

func (c *Compositor) sendLayout(pipeline *schema.CompositionPipeline, msg schema.LayoutControlMsg, what string) {
	if pipeline.LayoutChan == nil {
		return
	}
	if err := pipeline.LayoutChan.SendLayout(msg); err != nil {
		logx.WithPipeline(c.log, pipeline.ID).Warn("compositor send to layout failed", "msg", what, "err", err)
	}
}

func (c *Compositor) sendConstellation(msg schema.ConstellationMsg, what string) {
	if err := c.constellation.Send(msg); err != nil {
		c.log.Warn("compositor send to constellation failed", "msg", what, "err", err)
	}
}
