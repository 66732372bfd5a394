// Package viewport implements one compositor area: a rendering backend
// document with its own zoom, scroll coalescing and input dispatch.
package viewport

import (
	"math"
	"sort"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/internal/logx"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// Deps wires an area to its collaborators.
type Deps struct {
	Logger        pslog.Logger
	API           render.API
	Constellation schema.ConstellationChan
}

// Area owns one backend document and mediates between embedder input and the
// content pipelines rooted in it. An Area is not safe for concurrent use.
type Area struct {
	coordinates schema.AreaCoordinates
	embedder    schema.EmbedderCoordinates

	api           render.API
	constellation schema.ConstellationChan
	log           pslog.Logger

	document schema.DocumentID
	root     *schema.CompositionPipeline

	// scrollInProgress is true while the user's fingers are down.
	scrollInProgress bool
	// waitingForResults is set after a flush until the composite that shows it.
	waitingForResults bool

	scale    float32
	pageZoom float32

	pinchZoom    float32
	minPinchZoom *float32
	maxPinchZoom *float32

	touch   *TouchHandler
	pending Coalescer
}

// New registers a backend document for the area and announces its size.
func New(deps Deps, coordinates schema.AreaCoordinates, embedder schema.EmbedderCoordinates, layer schema.DocumentLayer) *Area {
	log := logx.Or(deps.Logger)
	doc := deps.API.AddDocument(coordinates.Size, layer)
	a := &Area{
		coordinates:   coordinates,
		embedder:      embedder,
		api:           deps.API,
		constellation: deps.Constellation,
		log:           log.With("document", doc.String()),
		document:      doc,
		scale:         1,
		pageZoom:      1,
		pinchZoom:     1,
	}
	a.touch = NewTouchHandler(a.log)
	a.updateZoomTransform()
	a.log.Info("area created", "width", coordinates.Size.Width, "height", coordinates.Size.Height, "layer", int(layer))
	a.sendWindowSize(schema.WindowSizeInitial)
	return a
}

// ID returns the backend document id.
func (a *Area) ID() schema.DocumentID {
	return a.document
}

// Root returns the root pipeline, or nil before a frame tree is set.
func (a *Area) Root() *schema.CompositionPipeline {
	return a.root
}

// HasRoot reports whether id is the area's root pipeline.
func (a *Area) HasRoot(id schema.PipelineID) bool {
	return a.root != nil && a.root.ID == id
}

// Coordinates returns the area's output rectangle.
func (a *Area) Coordinates() schema.AreaCoordinates {
	return a.coordinates
}

// Scale returns the composite scale, page zoom times the hidpi factor.
func (a *Area) Scale() float32 {
	return a.scale
}

// PageZoom returns the reflowing zoom factor.
func (a *Area) PageZoom() float32 {
	return a.pageZoom
}

// PinchZoomLevel returns the non-reflowing zoom factor.
func (a *Area) PinchZoomLevel() float32 {
	return a.pinchZoom
}

// ScrollInProgress reports whether a touch-driven scroll is active.
func (a *Area) ScrollInProgress() bool {
	return a.scrollInProgress
}

// WaitingForResults reports whether a flush is awaiting its composite.
func (a *Area) WaitingForResults() bool {
	return a.waitingForResults
}

// PendingEvents returns the number of queued scroll/zoom events.
func (a *Area) PendingEvents() int {
	return a.pending.Len()
}

// TouchState exposes the gesture recognizer state.
func (a *Area) TouchState() TouchState {
	return a.touch.State()
}

// SetFrameTree binds the area to a pipeline tree and returns the scroll
// offsets of every tracked scroll node.
func (a *Area) SetFrameTree(tree *schema.SendableFrameTree) schema.ScrollStates {
	pipeline := tree.Pipeline
	a.root = &pipeline
	a.log.Info("area frame tree set", "pipeline", pipeline.ID.String(), "children", len(tree.Children))

	txn := render.NewTransaction().SetRootPipeline(pipeline.ID).GenerateFrame()
	a.api.SendTransaction(a.document, txn)

	a.sendWindowSize(schema.WindowSizeInitial)
	return a.scrollStates()
}

// OnTouchEventProcessed feeds content's default-prevented verdict to the
// gesture recognizer.
func (a *Area) OnTouchEventProcessed(result schema.EventResult) {
	a.touch.OnEventProcessed(result)
}

// OnScrollEvent queues a scroll, classified by gesture phase.
func (a *Area) OnScrollEvent(location schema.ScrollLocation, cursor schema.IntPoint, phase schema.TouchEventType) {
	switch phase {
	case schema.TouchDown:
		a.scrollInProgress = true
	case schema.TouchUp, schema.TouchCancel:
		a.scrollInProgress = false
	}
	a.log.Trace("area scroll queued", "phase", phase.String(), "kind", location.Kind.String(), "dx", location.Delta.X, "dy", location.Delta.Y)
	a.pending.Push(ScrollZoomEvent{Magnification: 1, Location: location, Cursor: cursor})
}

// OnPinchZoom queues a pinch zoom centred on the base layer.
func (a *Area) OnPinchZoom(magnification float32) {
	a.pending.Push(ScrollZoomEvent{
		Magnification: magnification,
		Location:      schema.DeltaScroll(schema.Vector{}),
		Cursor:        schema.IntPoint{X: -1, Y: -1},
	})
}

// FlushPendingEvents sends the coalesced scroll/zoom transaction unless one is
// still awaiting its composite. It returns scroll states when events were
// consumed.
func (a *Area) FlushPendingEvents() (schema.ScrollStates, bool) {
	if a.pending.Len() == 0 || a.waitingForResults {
		return nil, false
	}
	combined, ok := a.pending.Drain()
	if ok {
		location := combined.Location
		if location.Kind == schema.ScrollDelta {
			location.Delta = location.Delta.Div(a.scale)
		}
		cursor := combined.Cursor.ToPoint().Div(a.scale)

		txn := render.NewTransaction().Scroll(location, cursor)
		if combined.Magnification != 1 {
			a.setPinchZoomLevel(a.pinchZoom * combined.Magnification)
			txn.SetPinchZoom(a.pinchZoom)
		}
		txn.GenerateFrame()
		a.api.SendTransaction(a.document, txn)
		a.waitingForResults = true
		a.log.Debug("area scroll flushed", "events", combined.Count, "kind", location.Kind.String(), "dx", location.Delta.X, "dy", location.Delta.Y, "pinch_zoom", a.pinchZoom)
	}
	return a.scrollStates(), true
}

// CompositeDone acknowledges the last flush.
func (a *Area) CompositeDone() {
	a.waitingForResults = false
}

// ConstrainViewport applies content's pinch-zoom limits.
func (a *Area) ConstrainViewport(constraints schema.ViewportConstraints) {
	a.minPinchZoom = constraints.MinZoom
	a.maxPinchZoom = constraints.MaxZoom
	a.setPinchZoomLevel(constraints.InitialZoom)
	a.updateZoomTransform()
	a.log.Debug("area viewport constrained", "pinch_zoom", a.pinchZoom)
}

// OnZoom multiplies the page zoom, clamped to the supported range.
func (a *Area) OnZoom(magnification float32) {
	a.pageZoom = clamp(a.pageZoom*magnification, schema.MinPageZoom, schema.MaxPageZoom)
	a.updateZoomTransform()
	a.sendWindowSize(schema.WindowSizeResize)
	a.updatePageZoom()
}

// OnZoomReset restores the page zoom to 1.
func (a *Area) OnZoomReset() {
	a.pageZoom = 1
	a.updateZoomTransform()
	a.sendWindowSize(schema.WindowSizeResize)
	a.updatePageZoom()
}

// OnResize adopts new embedder coordinates and re-announces the window size.
func (a *Area) OnResize(embedder schema.EmbedderCoordinates) {
	old := a.embedder
	a.embedder = embedder
	if embedder.HiDPIFactor != old.HiDPIFactor {
		a.updateZoomTransform()
	}
	a.sendWindowSize(schema.WindowSizeResize)
}

// GenerateFrame asks the backend to rebuild the area's frame.
func (a *Area) GenerateFrame() {
	a.api.SendTransaction(a.document, render.NewTransaction().GenerateFrame())
}

func (a *Area) setPinchZoomLevel(zoom float32) {
	if math.IsNaN(float64(zoom)) {
		zoom = 1
		if a.minPinchZoom != nil {
			zoom = *a.minPinchZoom
		}
	}
	if a.minPinchZoom != nil && zoom < *a.minPinchZoom {
		zoom = *a.minPinchZoom
	}
	if a.maxPinchZoom != nil && zoom > *a.maxPinchZoom {
		zoom = *a.maxPinchZoom
	}
	a.pinchZoom = zoom
}

func (a *Area) updateZoomTransform() {
	hidpi := a.embedder.HiDPIFactor
	if hidpi <= 0 {
		hidpi = 1
	}
	a.scale = a.pageZoom * hidpi
}

func (a *Area) updatePageZoom() {
	a.api.SendTransaction(a.document, render.NewTransaction().SetPageZoom(a.pageZoom))
}

func (a *Area) sendWindowSize(sizeType schema.WindowSizeType) {
	dppx := a.scale
	a.api.SetWindowParameters(a.document, a.embedder.Framebuffer, a.coordinates, a.embedder.HiDPIFactor)

	msg := schema.WindowSizeMsg{
		Data: schema.WindowSizeData{
			InitialViewport:  a.coordinates.Size.ToSize().Div(dppx),
			DevicePixelRatio: dppx,
		},
		Type: sizeType,
	}
	if a.root != nil {
		browser := a.root.TopLevelBrowsingContextID
		msg.TopLevel = &browser
	}
	a.send(msg, "window size")
}

func (a *Area) scrollStates() schema.ScrollStates {
	states := schema.ScrollStates{}
	for _, node := range a.api.ScrollNodeState(a.document) {
		pipeline := node.ID.Pipeline
		states[pipeline] = append(states[pipeline], schema.ScrollState{ScrollID: node.ID, Offset: node.Offset})
	}
	for _, list := range states {
		sort.Slice(list, func(i, j int) bool { return list[i].ScrollID.ID < list[j].ScrollID.ID })
	}
	return states
}

func (a *Area) send(msg schema.ConstellationMsg, what string) {
	if a.constellation == nil {
		return
	}
	if err := a.constellation.Send(msg); err != nil {
		a.log.Warn("area send to constellation failed", "msg", what, "err", err)
	}
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float32) float32 {
	if math.IsNaN(float64(v)) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
