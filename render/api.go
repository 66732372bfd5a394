package render

import (
	"image"

	"github.com/google/uuid"

	"pkt.systems/vitrine/schema"
)

// ItemTag is attached to display items. Node is an opaque content handle,
// Cursor encodes the requested CursorKind.
type ItemTag struct {
	Node   uint64
	Cursor uint16
}

// HitTestFlags tune hit testing.
type HitTestFlags uint8

const (
	// HitTestFindAll returns every item under the point instead of the topmost.
	HitTestFindAll HitTestFlags = 1 << iota
)

// HitTestItem is one display item under the tested point.
type HitTestItem struct {
	Pipeline            schema.PipelineID
	Tag                 ItemTag
	PointInViewport     schema.Point
	PointRelativeToItem schema.Point
}

// HitTestResult lists items topmost first.
type HitTestResult struct {
	Items []HitTestItem
}

// ScrollNodeState is the current offset of one scroll node.
type ScrollNodeState struct {
	ID     schema.ExternalScrollID
	Offset schema.Vector
}

// DebugFlags select backend debug overlays.
type DebugFlags uint32

const (
	DebugProfiler DebugFlags = 1 << iota
	DebugGPUTimeQueries
	DebugGPUSampleQueries
	DebugTextureCache
	DebugRenderTargets
)

// Toggle flips the bits in f.
func (d DebugFlags) Toggle(f DebugFlags) DebugFlags {
	return d ^ f
}

// Has reports whether every bit of f is set.
func (d DebugFlags) Has(f DebugFlags) bool {
	return d&f == f
}

// CaptureBits select what SaveCapture writes.
type CaptureBits uint8

const (
	CaptureScene CaptureBits = 1 << iota
	CaptureFrame
	CaptureAll = CaptureScene | CaptureFrame
)

// CaptureID names one capture directory.
type CaptureID string

// NewCaptureID returns a fresh capture id.
func NewCaptureID() CaptureID {
	return CaptureID(uuid.NewString())
}

// API is the document-scoped, non-blocking half of the backend.
type API interface {
	AddDocument(size schema.IntSize, layer schema.DocumentLayer) schema.DocumentID
	SendTransaction(doc schema.DocumentID, txn *Transaction)
	SetWindowParameters(doc schema.DocumentID, framebuffer schema.IntSize, viewport schema.IntRect, hidpi float32)
	HitTest(doc schema.DocumentID, pipeline *schema.PipelineID, point schema.Point, flags HitTestFlags) HitTestResult
	ScrollNodeState(doc schema.DocumentID) []ScrollNodeState
	SaveCapture(dir string, bits CaptureBits) error
}

// Renderer is the frame-producing half of the backend. It is driven only by
// the compositor goroutine.
type Renderer interface {
	// Update processes transactions that have been built since the last call.
	Update()
	// Render draws every document into a framebuffer of the given size.
	Render(framebuffer schema.IntSize) error
	// CurrentEpoch returns the last painted epoch of pipeline.
	CurrentEpoch(pipeline schema.PipelineID) (schema.Epoch, bool)
	// ReadPixels copies the last rendered framebuffer region.
	ReadPixels(rect schema.IntRect) (*image.RGBA, error)
	DebugFlags() DebugFlags
	SetDebugFlags(flags DebugFlags)
}

// Notifier receives asynchronous frame completions from the backend.
// Implementations must not touch compositor state; they only post messages.
type Notifier interface {
	WakeUp()
	NewFrameReady(doc schema.DocumentID, scrolled bool, compositeNeeded bool)
}
