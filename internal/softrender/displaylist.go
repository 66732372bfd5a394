package softrender

import (
	"image/color"

	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// Rect is an axis-aligned rectangle in layout pixels.
type Rect struct {
	X, Y, W, H float32
}

// R constructs a Rect.
func R(x, y, w, h float32) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Origin returns the top-left corner.
func (r Rect) Origin() schema.Point {
	return schema.Pt(r.X, r.Y)
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p schema.Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X < r.X+r.W && p.Y < r.Y+r.H
}

// Translate moves r by v.
func (r Rect) Translate(v schema.Vector) Rect {
	return Rect{X: r.X + v.X, Y: r.Y + v.Y, W: r.W, H: r.H}
}

// Scale multiplies every coordinate by f.
func (r Rect) Scale(f float32) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, W: r.W * f, H: r.H * f}
}

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func rectFromInt(r schema.IntRect) Rect {
	return Rect{X: float32(r.Origin.X), Y: float32(r.Origin.Y), W: float32(r.Size.Width), H: float32(r.Size.Height)}
}

// Item is one display item. Items with a valid Child embed that pipeline's
// display list, clipped to Bounds. Items without a Tag are not hit-testable.
type Item struct {
	Bounds     Rect
	Color      color.RGBA
	Tag        *render.ItemTag
	ScrollNode uint64
	Child      schema.PipelineID
}

// ScrollNode is a scrollable region of a pipeline. Items that reference it
// are shifted by the node's offset and clipped to Clip.
type ScrollNode struct {
	ID      uint64
	Clip    Rect
	Content schema.Size
}

// maxOffset returns the largest scroll position of the node.
func (n ScrollNode) maxOffset() schema.Vector {
	return schema.Vec(max(n.Content.Width-n.Clip.W, 0), max(n.Content.Height-n.Clip.H, 0))
}

// DisplayList is everything a pipeline wants painted at one epoch.
type DisplayList struct {
	Pipeline    schema.PipelineID
	Epoch       schema.Epoch
	Items       []Item
	ScrollNodes []ScrollNode
}

func (l *DisplayList) clone() *DisplayList {
	out := *l
	out.Items = append([]Item(nil), l.Items...)
	out.ScrollNodes = append([]ScrollNode(nil), l.ScrollNodes...)
	for i, item := range out.Items {
		if item.Tag != nil {
			tag := *item.Tag
			out.Items[i].Tag = &tag
		}
	}
	return &out
}

func (l *DisplayList) scrollNode(id uint64) (ScrollNode, bool) {
	for _, node := range l.ScrollNodes {
		if node.ID == id {
			return node, true
		}
	}
	return ScrollNode{}, false
}
