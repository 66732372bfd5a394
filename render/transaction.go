// Package render defines the contract between the compositor and a rendering
// backend: document-scoped transactions, hit testing, scroll node state,
// frame rendering and the asynchronous frame-ready notifier.
package render

import (
	"fmt"
	"strings"

	"pkt.systems/vitrine/schema"
)

// Op is one operation inside a transaction.
type Op interface {
	opName() string
}

// SetRootPipelineOp binds the document to a pipeline tree root.
type SetRootPipelineOp struct {
	Pipeline schema.PipelineID
}

// GenerateFrameOp asks the backend to build a new frame for the document.
type GenerateFrameOp struct{}

// ScrollOp scrolls the node under Cursor, in content coordinates.
type ScrollOp struct {
	Location schema.ScrollLocation
	Cursor   schema.Point
}

// SetPinchZoomOp sets the non-reflowing zoom factor.
type SetPinchZoomOp struct {
	Factor float32
}

// SetPageZoomOp sets the reflowing zoom factor.
type SetPageZoomOp struct {
	Factor float32
}

func (SetRootPipelineOp) opName() string { return "set_root_pipeline" }
func (GenerateFrameOp) opName() string   { return "generate_frame" }
func (ScrollOp) opName() string          { return "scroll" }
func (SetPinchZoomOp) opName() string    { return "set_pinch_zoom" }
func (SetPageZoomOp) opName() string     { return "set_page_zoom" }

// Transaction batches operations applied atomically to one document.
type Transaction struct {
	ops []Op
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{}
}

// SetRootPipeline appends a root binding.
func (t *Transaction) SetRootPipeline(id schema.PipelineID) *Transaction {
	t.ops = append(t.ops, SetRootPipelineOp{Pipeline: id})
	return t
}

// GenerateFrame appends a frame build request.
func (t *Transaction) GenerateFrame() *Transaction {
	t.ops = append(t.ops, GenerateFrameOp{})
	return t
}

// Scroll appends a scroll.
func (t *Transaction) Scroll(location schema.ScrollLocation, cursor schema.Point) *Transaction {
	t.ops = append(t.ops, ScrollOp{Location: location, Cursor: cursor})
	return t
}

// SetPinchZoom appends a pinch zoom change.
func (t *Transaction) SetPinchZoom(factor float32) *Transaction {
	t.ops = append(t.ops, SetPinchZoomOp{Factor: factor})
	return t
}

// SetPageZoom appends a page zoom change.
func (t *Transaction) SetPageZoom(factor float32) *Transaction {
	t.ops = append(t.ops, SetPageZoomOp{Factor: factor})
	return t
}

// Ops returns the queued operations in order.
func (t *Transaction) Ops() []Op {
	if t == nil {
		return nil
	}
	return t.ops
}

// Len returns the number of queued operations.
func (t *Transaction) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ops)
}

// GeneratesFrame reports whether the transaction requests a new frame.
func (t *Transaction) GeneratesFrame() bool {
	for _, op := range t.Ops() {
		if _, ok := op.(GenerateFrameOp); ok {
			return true
		}
	}
	return false
}

func (t *Transaction) String() string {
	names := make([]string, 0, t.Len())
	for _, op := range t.Ops() {
		names = append(names, op.opName())
	}
	return fmt.Sprintf("[%s]", strings.Join(names, " "))
}
