package viewport

import (
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

type sentTxn struct {
	doc schema.DocumentID
	txn *render.Transaction
}

type fakeAPI struct {
	nextDoc      schema.DocumentID
	txns         []sentTxn
	windowParams int
	hitPoints    []schema.Point
	hits         []render.HitTestItem
	scrollNodes  []render.ScrollNodeState
}

func (f *fakeAPI) AddDocument(schema.IntSize, schema.DocumentLayer) schema.DocumentID {
	f.nextDoc++
	return f.nextDoc
}

func (f *fakeAPI) SendTransaction(doc schema.DocumentID, txn *render.Transaction) {
	f.txns = append(f.txns, sentTxn{doc: doc, txn: txn})
}

func (f *fakeAPI) SetWindowParameters(schema.DocumentID, schema.IntSize, schema.IntRect, float32) {
	f.windowParams++
}

func (f *fakeAPI) HitTest(_ schema.DocumentID, _ *schema.PipelineID, point schema.Point, _ render.HitTestFlags) render.HitTestResult {
	f.hitPoints = append(f.hitPoints, point)
	return render.HitTestResult{Items: f.hits}
}

func (f *fakeAPI) ScrollNodeState(schema.DocumentID) []render.ScrollNodeState {
	return f.scrollNodes
}

func (f *fakeAPI) SaveCapture(string, render.CaptureBits) error {
	return nil
}

func (f *fakeAPI) scrollOps() []render.ScrollOp {
	var ops []render.ScrollOp
	for _, sent := range f.txns {
		for _, op := range sent.txn.Ops() {
			if scroll, ok := op.(render.ScrollOp); ok {
				ops = append(ops, scroll)
			}
		}
	}
	return ops
}

type fakeConstellation struct {
	msgs []schema.ConstellationMsg
	err  error
}

func (f *fakeConstellation) Send(msg schema.ConstellationMsg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConstellation) forwarded() []schema.CompositorEvent {
	var events []schema.CompositorEvent
	for _, msg := range f.msgs {
		if fwd, ok := msg.(schema.ForwardEventMsg); ok {
			events = append(events, fwd.Event)
		}
	}
	return events
}

func (f *fakeConstellation) windowSizes() []schema.WindowSizeMsg {
	var out []schema.WindowSizeMsg
	for _, msg := range f.msgs {
		if ws, ok := msg.(schema.WindowSizeMsg); ok {
			out = append(out, ws)
		}
	}
	return out
}

func newTestArea(hidpi float32) (*Area, *fakeAPI, *fakeConstellation) {
	api := &fakeAPI{}
	constellation := &fakeConstellation{}
	embedder := schema.EmbedderCoordinates{
		HiDPIFactor: hidpi,
		Framebuffer: schema.IntSize{Width: 800, Height: 600},
		Viewport:    schema.Rect(0, 0, 800, 600),
	}
	area := New(Deps{API: api, Constellation: constellation}, schema.Rect(0, 0, 800, 600), embedder, 0)
	return area, api, constellation
}
