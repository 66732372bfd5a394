package compositor

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

type fakeWindow struct {
	coords     schema.EmbedderCoordinates
	unprepared bool
	presents   int
	states     []WindowAnimationState
	wakes      int
}

func (w *fakeWindow) GetCoordinates() schema.EmbedderCoordinates { return w.coords }
func (w *fakeWindow) PrepareForComposite(int32, int32) bool      { return !w.unprepared }
func (w *fakeWindow) Present()                                   { w.presents++ }
func (w *fakeWindow) SetAnimationState(s WindowAnimationState)   { w.states = append(w.states, s) }
func (w *fakeWindow) CreateEventLoopWaker() EventLoopWaker       { return w }
func (w *fakeWindow) Wake()                                      { w.wakes++ }

func (w *fakeWindow) lastState() WindowAnimationState {
	if len(w.states) == 0 {
		return AnimationIdle
	}
	return w.states[len(w.states)-1]
}

type fakeBackend struct {
	nextDoc     schema.DocumentID
	txns        int
	frames      int
	updates     int
	renders     int
	epochs      map[schema.PipelineID]schema.Epoch
	flags       render.DebugFlags
	captures    []string
	scrollNodes []render.ScrollNodeState
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{epochs: map[schema.PipelineID]schema.Epoch{}}
}

func (b *fakeBackend) AddDocument(schema.IntSize, schema.DocumentLayer) schema.DocumentID {
	b.nextDoc++
	return b.nextDoc
}

func (b *fakeBackend) SendTransaction(_ schema.DocumentID, txn *render.Transaction) {
	b.txns++
	if txn.GeneratesFrame() {
		b.frames++
	}
}

func (b *fakeBackend) SetWindowParameters(schema.DocumentID, schema.IntSize, schema.IntRect, float32) {
}

func (b *fakeBackend) HitTest(schema.DocumentID, *schema.PipelineID, schema.Point, render.HitTestFlags) render.HitTestResult {
	return render.HitTestResult{}
}

func (b *fakeBackend) ScrollNodeState(schema.DocumentID) []render.ScrollNodeState {
	return b.scrollNodes
}

func (b *fakeBackend) SaveCapture(dir string, _ render.CaptureBits) error {
	b.captures = append(b.captures, dir)
	return nil
}

func (b *fakeBackend) Update() { b.updates++ }

func (b *fakeBackend) Render(schema.IntSize) error {
	b.renders++
	return nil
}

func (b *fakeBackend) DebugFlags() render.DebugFlags { return b.flags }

func (b *fakeBackend) SetDebugFlags(flags render.DebugFlags) { b.flags = flags }

func (b *fakeBackend) CurrentEpoch(id schema.PipelineID) (schema.Epoch, bool) {
	e, ok := b.epochs[id]
	return e, ok
}

func (b *fakeBackend) ReadPixels(rect schema.IntRect) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, int(rect.Size.Width), int(rect.Size.Height)))
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img, nil
}

type fakeConstellation struct {
	msgs []schema.ConstellationMsg
}

func (f *fakeConstellation) Send(msg schema.ConstellationMsg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConstellation) count(match func(schema.ConstellationMsg) bool) int {
	n := 0
	for _, msg := range f.msgs {
		if match(msg) {
			n++
		}
	}
	return n
}

func (f *fakeConstellation) readinessQueries() int {
	return f.count(func(m schema.ConstellationMsg) bool { _, ok := m.(schema.IsReadyToSaveImageMsg); return ok })
}

func (f *fakeConstellation) exits() int {
	return f.count(func(m schema.ConstellationMsg) bool { _, ok := m.(schema.ExitMsg); return ok })
}

func (f *fakeConstellation) ticks() []schema.TickAnimationMsg {
	var out []schema.TickAnimationMsg
	for _, msg := range f.msgs {
		if tick, ok := msg.(schema.TickAnimationMsg); ok {
			out = append(out, tick)
		}
	}
	return out
}

type fakeLayout struct {
	mu   sync.Mutex
	msgs []schema.LayoutControlMsg
}

func (l *fakeLayout) SendLayout(msg schema.LayoutControlMsg) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
	return nil
}

type fakeProfiler struct {
	records map[string]int
	exited  bool
}

func (p *fakeProfiler) Record(category string, _ time.Duration) {
	if p.records == nil {
		p.records = map[string]int{}
	}
	p.records[category]++
}

func (p *fakeProfiler) Exit(ack chan<- struct{}) {
	p.exited = true
	go func() { ack <- struct{}{} }()
}

type harness struct {
	c             *Compositor
	proxy         Proxy
	window        *fakeWindow
	backend       *fakeBackend
	constellation *fakeConstellation
	profiler      *fakeProfiler
	now           time.Time
}

func newHarness(t *testing.T, cfg schema.CompositorConfig) *harness {
	t.Helper()
	h := &harness{
		window: &fakeWindow{coords: schema.EmbedderCoordinates{
			HiDPIFactor: 1,
			Screen:      schema.IntSize{Width: 1920, Height: 1080},
			ScreenAvail: schema.IntSize{Width: 1920, Height: 1040},
			Window:      schema.Rect(10, 20, 64, 48),
			Framebuffer: schema.IntSize{Width: 64, Height: 48},
			Viewport:    schema.Rect(0, 0, 64, 48),
		}},
		backend:       newFakeBackend(),
		constellation: &fakeConstellation{},
		profiler:      &fakeProfiler{},
		now:           time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	proxy, receiver := NewMailbox(h.window.CreateEventLoopWaker())
	h.proxy = proxy
	c, err := New(cfg, Deps{
		Window:        h.window,
		Receiver:      receiver,
		Constellation: h.constellation,
		API:           h.backend,
		Renderer:      h.backend,
		Profiler:      h.profiler,
		Now:           func() time.Time { return h.now },
	})
	if err != nil {
		t.Fatalf("new compositor: %v", err)
	}
	h.c = c
	return h
}

func pipelineID(index uint32) schema.PipelineID {
	return schema.PipelineID{Namespace: 1, Index: schema.PipelineIndex(index)}
}

func (h *harness) frameTree(doc schema.DocumentID, layout *fakeLayout, ids ...uint32) {
	tree := schema.SendableFrameTree{Pipeline: schema.CompositionPipeline{
		ID:                        pipelineID(ids[0]),
		TopLevelBrowsingContextID: schema.TopLevelBrowsingContextID{Namespace: 1, Index: 1},
		LayoutChan:                layout,
	}}
	for _, id := range ids[1:] {
		tree.Children = append(tree.Children, schema.SendableFrameTree{Pipeline: schema.CompositionPipeline{
			ID:         pipelineID(id),
			LayoutChan: layout,
		}})
	}
	h.c.HandleMessage(SetFrameTree{Document: doc, Tree: tree})
}
