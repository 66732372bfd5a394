// Package softrender is a CPU rendering backend built on gogpu/gg. Scene
// updates are applied on a worker goroutine; rasterization happens on the
// goroutine that drives the compositor.
package softrender

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sort"
	"sync"

	"golang.org/x/image/colornames"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/internal/mailbox"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// ErrNoFrame is returned when pixels are read before the first render.
var ErrNoFrame = errors.New("no frame rendered")

// maxNesting bounds child pipeline recursion.
const maxNesting = 16

// Options configures a Backend.
type Options struct {
	Logger   pslog.Logger
	Notifier render.Notifier
	// Clear is the framebuffer background. Zero selects white.
	Clear color.RGBA
}

type document struct {
	id          schema.DocumentID
	layer       schema.DocumentLayer
	root        schema.PipelineID
	framebuffer schema.IntSize
	viewport    schema.IntRect
	hidpi       float32
	pageZoom    float32
	pinchZoom   float32
	scroll      map[schema.ExternalScrollID]schema.Vector
	pending     *frame
	current     *frame
}

// frame is an immutable snapshot built by the worker and promoted by Update.
type frame struct {
	root      schema.PipelineID
	viewport  schema.IntRect
	scale     float32
	scroll    map[schema.ExternalScrollID]schema.Vector
	lists     map[schema.PipelineID]*DisplayList
	generated uint64
}

// Backend implements render.API and render.Renderer.
type Backend struct {
	mu        sync.Mutex
	docs      map[schema.DocumentID]*document
	nextDoc   schema.DocumentID
	lists     map[schema.PipelineID]*DisplayList
	painted   map[schema.PipelineID]schema.Epoch
	flags     render.DebugFlags
	last      *image.RGBA
	generated uint64
	updates   uint64

	clear    color.RGBA
	notifier render.Notifier
	tasks    *mailbox.Mailbox[func()]
	done     chan struct{}
	log      pslog.Logger
}

// New starts a backend. Close stops its worker.
func New(opts Options) *Backend {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	background := opts.Clear
	if background == (color.RGBA{}) {
		background = colornames.White
	}
	b := &Backend{
		docs:     make(map[schema.DocumentID]*document),
		lists:    make(map[schema.PipelineID]*DisplayList),
		painted:  make(map[schema.PipelineID]schema.Epoch),
		clear:    background,
		notifier: opts.Notifier,
		tasks:    mailbox.New[func()](),
		done:     make(chan struct{}),
		log:      log,
	}
	go b.run()
	return b
}

func (b *Backend) run() {
	defer close(b.done)
	for {
		task, err := b.tasks.Recv(context.Background())
		if err != nil {
			return
		}
		task()
	}
}

// Close stops accepting work and waits for queued work to finish.
func (b *Backend) Close() {
	b.tasks.Close()
	<-b.done
}

// Flush waits until every previously queued update has been applied.
func (b *Backend) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := b.tasks.Send(func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) enqueue(what string, task func()) {
	if err := b.tasks.Send(task); err != nil {
		b.log.Warn("softrender update dropped", "update", what, "err", err)
	}
}

// AddDocument registers a document covering size.
func (b *Backend) AddDocument(size schema.IntSize, layer schema.DocumentLayer) schema.DocumentID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextDoc++
	doc := &document{
		id:          b.nextDoc,
		layer:       layer,
		framebuffer: size,
		viewport:    schema.IntRect{Size: size},
		hidpi:       1,
		pageZoom:    1,
		pinchZoom:   1,
		scroll:      make(map[schema.ExternalScrollID]schema.Vector),
	}
	b.docs[doc.id] = doc
	b.log.Debug("softrender document added", "document", doc.id.String(), "layer", int(layer))
	return doc.id
}

// SetWindowParameters updates the device geometry of a document.
func (b *Backend) SetWindowParameters(id schema.DocumentID, framebuffer schema.IntSize, viewport schema.IntRect, hidpi float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		b.log.Warn("softrender unknown document", "document", id.String(), "err", schema.ErrUnknownDocument)
		return
	}
	doc.framebuffer = framebuffer
	doc.viewport = viewport
	if hidpi > 0 {
		doc.hidpi = hidpi
	}
}

// SendTransaction queues txn for the worker.
func (b *Backend) SendTransaction(id schema.DocumentID, txn *render.Transaction) {
	ops := append([]render.Op(nil), txn.Ops()...)
	b.enqueue("transaction", func() { b.apply(id, ops) })
}

func (b *Backend) apply(id schema.DocumentID, ops []render.Op) {
	b.mu.Lock()
	doc, ok := b.docs[id]
	if !ok {
		b.mu.Unlock()
		b.log.Warn("softrender transaction for unknown document", "document", id.String(), "err", schema.ErrUnknownDocument)
		return
	}
	scrolled, generate := false, false
	for _, op := range ops {
		switch op := op.(type) {
		case render.SetRootPipelineOp:
			doc.root = op.Pipeline
		case render.ScrollOp:
			if b.scrollLocked(doc, op.Location, op.Cursor) {
				scrolled = true
			}
		case render.SetPinchZoomOp:
			doc.pinchZoom = op.Factor
		case render.SetPageZoomOp:
			doc.pageZoom = op.Factor
		case render.GenerateFrameOp:
			generate = true
		}
	}
	if generate {
		b.buildFrameLocked(doc)
	}
	b.mu.Unlock()

	b.log.Trace("softrender transaction applied", "document", id.String(), "ops", len(ops), "scrolled", scrolled, "frame", generate)
	if generate && b.notifier != nil {
		b.notifier.NewFrameReady(id, scrolled, true)
	}
}

// SetDisplayList publishes a pipeline's display list and rebuilds the frame of
// every document that shows it.
func (b *Backend) SetDisplayList(list DisplayList) {
	snapshot := list.clone()
	b.enqueue("display list", func() {
		b.mu.Lock()
		b.lists[snapshot.Pipeline] = snapshot
		var rebuilt []schema.DocumentID
		for _, doc := range b.sortedDocsLocked() {
			if !doc.root.Valid() {
				continue
			}
			if _, ok := b.reachableLocked(doc.root)[snapshot.Pipeline]; !ok {
				continue
			}
			b.buildFrameLocked(doc)
			rebuilt = append(rebuilt, doc.id)
		}
		b.mu.Unlock()
		b.log.Trace("softrender display list", "pipeline", snapshot.Pipeline.String(), "epoch", uint32(snapshot.Epoch), "documents", len(rebuilt))
		if b.notifier == nil {
			return
		}
		for _, id := range rebuilt {
			b.notifier.NewFrameReady(id, false, true)
		}
	})
}

// RemovePipeline forgets a pipeline's display list.
func (b *Backend) RemovePipeline(id schema.PipelineID) {
	b.enqueue("remove pipeline", func() {
		b.mu.Lock()
		delete(b.lists, id)
		delete(b.painted, id)
		b.mu.Unlock()
	})
}

func (b *Backend) buildFrameLocked(doc *document) {
	lists := make(map[schema.PipelineID]*DisplayList)
	for id := range b.reachableLocked(doc.root) {
		if list, ok := b.lists[id]; ok {
			lists[id] = list
		}
	}
	scroll := make(map[schema.ExternalScrollID]schema.Vector, len(doc.scroll))
	for k, v := range doc.scroll {
		scroll[k] = v
	}
	b.generated++
	doc.pending = &frame{
		root:      doc.root,
		viewport:  doc.viewport,
		scale:     doc.hidpi * doc.pageZoom * doc.pinchZoom,
		scroll:    scroll,
		lists:     lists,
		generated: b.generated,
	}
}

// reachableLocked returns root and every pipeline embedded below it.
func (b *Backend) reachableLocked(root schema.PipelineID) map[schema.PipelineID]struct{} {
	seen := map[schema.PipelineID]struct{}{root: {}}
	queue := []schema.PipelineID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		list, ok := b.lists[id]
		if !ok {
			continue
		}
		for _, item := range list.Items {
			if !item.Child.Valid() {
				continue
			}
			if _, dup := seen[item.Child]; dup {
				continue
			}
			seen[item.Child] = struct{}{}
			queue = append(queue, item.Child)
		}
	}
	return seen
}

func (b *Backend) sortedDocsLocked() []*document {
	docs := make([]*document, 0, len(b.docs))
	for _, doc := range b.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].layer != docs[j].layer {
			return docs[i].layer < docs[j].layer
		}
		return docs[i].id < docs[j].id
	})
	return docs
}

// Update promotes frames built since the last call.
func (b *Backend) Update() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates++
	for _, doc := range b.docs {
		if doc.pending != nil {
			doc.current = doc.pending
			doc.pending = nil
			for id, list := range doc.current.lists {
				b.painted[id] = list.Epoch
			}
		}
	}
}

// CurrentEpoch returns the epoch of pipeline's display list in the frame the
// next Render draws.
func (b *Backend) CurrentEpoch(id schema.PipelineID) (schema.Epoch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	epoch, ok := b.painted[id]
	return epoch, ok
}

func (b *Backend) DebugFlags() render.DebugFlags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags
}

func (b *Backend) SetDebugFlags(flags render.DebugFlags) {
	b.mu.Lock()
	b.flags = flags
	b.mu.Unlock()
	b.log.Debug("softrender debug flags", "flags", uint32(flags))
}

// DocumentState is a read-only view of a document.
type DocumentState struct {
	Root      schema.PipelineID
	Viewport  schema.IntRect
	HiDPI     float32
	PageZoom  float32
	PinchZoom float32
}

// Document returns the current state of id.
func (b *Backend) Document(id schema.DocumentID) (DocumentState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok {
		return DocumentState{}, false
	}
	return DocumentState{
		Root:      doc.root,
		Viewport:  doc.viewport,
		HiDPI:     doc.hidpi,
		PageZoom:  doc.pageZoom,
		PinchZoom: doc.pinchZoom,
	}, true
}
