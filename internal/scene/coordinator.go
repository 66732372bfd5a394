package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/compositor"
	"pkt.systems/vitrine/internal/logx"
	"pkt.systems/vitrine/internal/mailbox"
	"pkt.systems/vitrine/internal/softrender"
	"pkt.systems/vitrine/schema"
)

// DisplayListSink receives published display lists.
type DisplayListSink interface {
	SetDisplayList(list softrender.DisplayList)
	RemovePipeline(id schema.PipelineID)
}

// Deps captures the collaborators of a Coordinator.
type Deps struct {
	Scene      *Scene
	Backend    DisplayListSink
	Compositor compositor.Proxy
	// Events receives cursor changes. Optional.
	Events compositor.EventSink
	Logger pslog.Logger
}

// Stats counts what content has seen.
type Stats struct {
	Clicks           int
	LastClickNode    uint64
	TouchEvents      int
	MouseMoves       int
	Ticks            int
	ReadinessQueries int
	ReadyReplies     int
	WindowSizes      int
	Cursor           schema.CursorKind
	Exited           bool
}

type pipelineState struct {
	def    *Pipeline
	epoch  schema.Epoch
	ticks  int
	layout *LayoutChannel
}

func (p *pipelineState) animating() bool {
	return p.def.Animation != nil && p.ticks < p.def.Animation.Frames
}

// Coordinator plays the coordinating authority for a scene. Send may be called
// from any goroutine; messages are handled by Run.
type Coordinator struct {
	scene   *Scene
	backend DisplayListSink
	proxy   compositor.Proxy
	events  compositor.EventSink
	log     pslog.Logger
	inbox   *mailbox.Mailbox[schema.ConstellationMsg]

	mu        sync.Mutex
	pipelines map[schema.PipelineID]*pipelineState
	window    schema.WindowSizeData
	stats     Stats
}

// New validates deps and builds a coordinator.
func New(deps Deps) (*Coordinator, error) {
	if deps.Scene == nil {
		return nil, fmt.Errorf("%w: scene is required", schema.ErrInvalidScene)
	}
	if deps.Backend == nil {
		return nil, errors.New("scene: display list sink is required")
	}
	if err := deps.Scene.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		scene:     deps.Scene,
		backend:   deps.Backend,
		proxy:     deps.Compositor,
		events:    deps.Events,
		log:       logx.Or(deps.Logger),
		inbox:     mailbox.New[schema.ConstellationMsg](),
		pipelines: make(map[schema.PipelineID]*pipelineState),
	}
	for i := range deps.Scene.Pipelines {
		def := &deps.Scene.Pipelines[i]
		id := PipelineID(def.ID)
		c.pipelines[id] = &pipelineState{def: def, layout: newLayoutChannel(id)}
	}
	return c, nil
}

// Send implements schema.ConstellationChan.
func (c *Coordinator) Send(msg schema.ConstellationMsg) error {
	return c.inbox.Send(msg)
}

// Layout returns the layout channel of a scene pipeline.
func (c *Coordinator) Layout(id schema.PipelineID) (*LayoutChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[id]
	if !ok {
		return nil, false
	}
	return p.layout, true
}

// Epoch returns the latest published epoch of a pipeline.
func (c *Coordinator) Epoch(id schema.PipelineID) schema.Epoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pipelines[id]; ok {
		return p.epoch
	}
	return 0
}

// Stats returns a copy of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// WindowSize returns the last window size reported by the compositor.
func (c *Coordinator) WindowSize() schema.WindowSizeData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

func (c *Coordinator) sortedIDs() []schema.PipelineID {
	ids := make([]schema.PipelineID, 0, len(c.pipelines))
	for id := range c.pipelines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Index < ids[j].Index })
	return ids
}

// FrameTree returns the scene's pipeline tree.
func (c *Coordinator) FrameTree() schema.SendableFrameTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameTree(c.scene.root())
}

func (c *Coordinator) frameTree(p *Pipeline) schema.SendableFrameTree {
	id := PipelineID(p.ID)
	tree := schema.SendableFrameTree{Pipeline: schema.CompositionPipeline{
		ID:                        id,
		TopLevelBrowsingContextID: schema.TopLevelBrowsingContextID{Namespace: 1, Index: p.Browser},
		LayoutChan:                c.pipelines[id].layout,
	}}
	for _, child := range c.scene.children(p.ID) {
		tree.Children = append(tree.Children, c.frameTree(child))
	}
	return tree
}

// Start publishes the first display lists and binds the scene to doc.
func (c *Coordinator) Start(doc schema.DocumentID) error {
	c.mu.Lock()
	for _, id := range c.sortedIDs() {
		c.publishLocked(c.pipelines[id])
	}
	root := c.scene.root()
	tree := c.frameTree(root)
	c.mu.Unlock()

	c.log.Info("scene start", "document", doc.String(), "pipelines", len(c.scene.Pipelines), "root", tree.Pipeline.ID.String())
	if err := c.proxy.Send(compositor.SetFrameTree{Document: doc, Tree: tree}); err != nil {
		return fmt.Errorf("set frame tree: %w", err)
	}
	for _, id := range c.sortedIDs() {
		def := c.pipelines[id].def
		if def.Viewport != nil {
			c.post(compositor.ViewportConstrained{Pipeline: id, Constraints: schema.ViewportConstraints{
				InitialZoom: def.Viewport.InitialZoom,
				MinZoom:     def.Viewport.MinZoom,
				MaxZoom:     def.Viewport.MaxZoom,
				UserZoom:    def.Viewport.UserZoom,
			}})
		}
		if def.Animation != nil && def.Animation.Frames > 0 {
			c.post(compositor.ChangeRunningAnimationsState{Pipeline: id, State: runningState(def.Animation)})
		}
	}
	c.post(compositor.LoadComplete{Browser: tree.Pipeline.TopLevelBrowsingContextID})
	return nil
}

func runningState(a *Animation) schema.AnimationState {
	if a.Callbacks {
		return schema.AnimationCallbacksPresent
	}
	return schema.AnimationsPresent
}

func stoppedState(a *Animation) schema.AnimationState {
	if a.Callbacks {
		return schema.NoAnimationCallbacksPresent
	}
	return schema.NoAnimationsPresent
}

// publishLocked submits the next epoch of p's display list.
func (c *Coordinator) publishLocked(p *pipelineState) {
	p.epoch = p.epoch.Next()
	var offset schema.Vector
	if a := p.def.Animation; a != nil {
		offset = schema.Vec(a.Step[0], a.Step[1]).Mul(float32(p.ticks))
	}
	id := PipelineID(p.def.ID)
	c.backend.SetDisplayList(c.scene.displayList(p.def, p.epoch, offset))
	c.post(compositor.PendingPaintMetric{Pipeline: id, Epoch: p.epoch})
}

func (c *Coordinator) post(msg compositor.Msg) {
	if err := c.proxy.Send(msg); err != nil {
		c.log.Warn("scene send to compositor failed", "err", err)
	}
}

// Run handles messages until the shutdown handshake completes or ctx ends.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		msg, err := c.inbox.Recv(ctx)
		if err != nil {
			if errors.Is(err, schema.ErrPeerClosed) {
				return nil
			}
			return err
		}
		if !c.HandleMessage(msg) {
			return nil
		}
	}
}

// Close rejects further messages.
func (c *Coordinator) Close() {
	c.inbox.Close()
}

// HandleMessage applies one message. It returns false after Exit.
func (c *Coordinator) HandleMessage(msg schema.ConstellationMsg) bool {
	switch m := msg.(type) {
	case schema.ExitMsg:
		c.exit()
		return false
	case schema.WindowSizeMsg:
		c.mu.Lock()
		c.window = m.Data
		c.stats.WindowSizes++
		c.mu.Unlock()
		c.log.Debug("scene window size", "type", m.Type.String(), "width", m.Data.InitialViewport.Width, "height", m.Data.InitialViewport.Height, "dppx", m.Data.DevicePixelRatio)
	case schema.ForwardEventMsg:
		c.forward(m.Pipeline, m.Event)
	case schema.SetCursorMsg:
		c.mu.Lock()
		c.stats.Cursor = m.Cursor
		c.mu.Unlock()
		if c.events != nil {
			c.events.OnCursor(schema.CursorEvent{Cursor: m.Cursor})
		}
	case schema.TickAnimationMsg:
		c.tick(m.Pipeline, m.Type)
	case schema.IsReadyToSaveImageMsg:
		ready := c.isReady(m.Epochs)
		c.post(compositor.IsReadyToSaveImageReply{Ready: ready})
	default:
		c.log.Warn("scene unknown message", "type", fmt.Sprintf("%T", msg))
	}
	return true
}

func (c *Coordinator) forward(id schema.PipelineID, event schema.CompositorEvent) {
	log := logx.WithPipeline(c.log, id)
	c.mu.Lock()
	p, ok := c.pipelines[id]
	switch e := event.(type) {
	case schema.MouseButtonEvent:
		if e.Type == schema.MouseClick {
			c.stats.Clicks++
			c.stats.LastClickNode = uint64(e.Node)
		}
	case schema.MouseMoveEvent:
		c.stats.MouseMoves++
	case schema.TouchEvent:
		c.stats.TouchEvents++
	}
	c.mu.Unlock()
	if !ok {
		log.Warn("scene event for unknown pipeline", "err", schema.ErrUnknownPipeline)
		return
	}
	if touch, isTouch := event.(schema.TouchEvent); isTouch {
		result := schema.DefaultAllowed
		if p.def.PreventTouch {
			result = schema.DefaultPrevented
		}
		log.Trace("scene touch event", "type", touch.Type.String(), "touch_id", int32(touch.ID))
		c.post(compositor.TouchEventProcessed{Pipeline: id, Result: result})
	}
}

func (c *Coordinator) tick(id schema.PipelineID, tickType schema.AnimationTickType) {
	c.mu.Lock()
	c.stats.Ticks++
	p, ok := c.pipelines[id]
	if !ok || !p.animating() {
		c.mu.Unlock()
		c.log.Debug("scene tick ignored", "pipeline", id.String())
		return
	}
	p.ticks++
	c.publishLocked(p)
	finished := !p.animating()
	ticks := p.ticks
	c.mu.Unlock()

	c.log.Debug("scene animation tick", "pipeline", id.String(), "tick", ticks, "script", tickType == schema.TickScript)
	if finished {
		c.post(compositor.ChangeRunningAnimationsState{Pipeline: id, State: stoppedState(p.def.Animation)})
	}
}

// isReady reports whether every pipeline's painted epoch is its latest one and
// no animation still has frames to run.
func (c *Coordinator) isReady(painted map[schema.PipelineID]schema.Epoch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.ReadinessQueries++
	for id, p := range c.pipelines {
		if p.animating() {
			return false
		}
		if painted[id] != p.epoch {
			return false
		}
	}
	c.stats.ReadyReplies++
	return true
}

func (c *Coordinator) exit() {
	c.log.Info("scene exit requested")
	c.mu.Lock()
	ids := c.sortedIDs()
	for _, id := range ids {
		c.pipelines[id].layout.close()
	}
	c.stats.Exited = true
	c.mu.Unlock()

	for _, id := range ids {
		c.backend.RemovePipeline(id)
		c.post(compositor.PipelineExited{Pipeline: id})
	}
	c.post(compositor.ShutdownComplete{})
	c.inbox.Close()
}
