package softrender

import (
	"sort"

	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// contentPoint maps a point from zoomed document space (device pixels over
// page zoom and hidpi) to unzoomed layout space.
func contentPoint(doc *document, p schema.Point) schema.Point {
	base := doc.hidpi * doc.pageZoom
	origin := doc.viewport.Origin.ToPoint().Div(base)
	local := schema.Pt(p.X-origin.X, p.Y-origin.Y)
	if doc.pinchZoom > 0 {
		local = local.Div(doc.pinchZoom)
	}
	return local
}

func localTo(p schema.Point, r Rect) schema.Point {
	return schema.Pt(p.X-r.X, p.Y-r.Y)
}

// itemRect returns the item bounds after scrolling, and false when p falls
// outside the item's scroll clip.
func itemRect(list *DisplayList, scroll map[schema.ExternalScrollID]schema.Vector, item Item) (Rect, Rect, bool) {
	r := item.Bounds
	if item.ScrollNode == 0 {
		return r, Rect{}, false
	}
	node, ok := list.scrollNode(item.ScrollNode)
	if !ok {
		return r, Rect{}, false
	}
	offset := scroll[schema.ExternalScrollID{ID: node.ID, Pipeline: list.Pipeline}]
	return r.Translate(offset.Mul(-1)), node.Clip, true
}

// HitTest returns the tagged items under point, topmost first.
func (b *Backend) HitTest(id schema.DocumentID, pipeline *schema.PipelineID, point schema.Point, flags render.HitTestFlags) render.HitTestResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok || !doc.root.Valid() {
		return render.HitTestResult{}
	}
	var items []render.HitTestItem
	b.hitLocked(doc, doc.root, contentPoint(doc, point), pipeline, flags&render.HitTestFindAll != 0, 0, &items)
	return render.HitTestResult{Items: items}
}

func (b *Backend) hitLocked(doc *document, id schema.PipelineID, p schema.Point, filter *schema.PipelineID, all bool, depth int, out *[]render.HitTestItem) bool {
	list, ok := b.lists[id]
	if !ok || depth > maxNesting {
		return false
	}
	for i := len(list.Items) - 1; i >= 0; i-- {
		item := list.Items[i]
		r, clip, clipped := itemRect(list, doc.scroll, item)
		if clipped && !clip.Contains(p) {
			continue
		}
		if !r.Contains(p) {
			continue
		}
		if item.Child.Valid() {
			if b.hitLocked(doc, item.Child, localTo(p, r), filter, all, depth+1, out) {
				return true
			}
			continue
		}
		if item.Tag == nil || (filter != nil && *filter != id) {
			continue
		}
		*out = append(*out, render.HitTestItem{
			Pipeline:            id,
			Tag:                 *item.Tag,
			PointInViewport:     p,
			PointRelativeToItem: localTo(p, r),
		})
		if !all {
			return true
		}
	}
	return false
}

// scrollLocked applies a scroll to the node under cursor, or to the root
// pipeline's first scroll node when nothing scrollable is under it.
func (b *Backend) scrollLocked(doc *document, location schema.ScrollLocation, cursor schema.Point) bool {
	if !doc.root.Valid() {
		return false
	}
	pipeline, node, ok := b.scrollTargetLocked(doc, doc.root, contentPoint(doc, cursor), 0)
	if !ok {
		root, found := b.lists[doc.root]
		if !found || len(root.ScrollNodes) == 0 {
			return false
		}
		pipeline, node = doc.root, root.ScrollNodes[0]
	}
	key := schema.ExternalScrollID{ID: node.ID, Pipeline: pipeline}
	old := doc.scroll[key]
	limit := node.maxOffset()
	next := old
	switch location.Kind {
	case schema.ScrollDelta:
		// Positive deltas move content down and right.
		next = schema.Vec(old.X-location.Delta.X, old.Y-location.Delta.Y)
	case schema.ScrollStart:
		next = schema.Vec(old.X, 0)
	case schema.ScrollEnd:
		next = schema.Vec(old.X, limit.Y)
	}
	next = schema.Vec(min(max(next.X, 0), limit.X), min(max(next.Y, 0), limit.Y))
	if next == old {
		return false
	}
	doc.scroll[key] = next
	return true
}

func (b *Backend) scrollTargetLocked(doc *document, id schema.PipelineID, p schema.Point, depth int) (schema.PipelineID, ScrollNode, bool) {
	list, ok := b.lists[id]
	if !ok || depth > maxNesting {
		return schema.PipelineID{}, ScrollNode{}, false
	}
	for i := len(list.Items) - 1; i >= 0; i-- {
		item := list.Items[i]
		if !item.Child.Valid() {
			continue
		}
		r, clip, clipped := itemRect(list, doc.scroll, item)
		if (clipped && !clip.Contains(p)) || !r.Contains(p) {
			continue
		}
		if pipeline, node, ok := b.scrollTargetLocked(doc, item.Child, localTo(p, r), depth+1); ok {
			return pipeline, node, true
		}
	}
	for i := len(list.ScrollNodes) - 1; i >= 0; i-- {
		node := list.ScrollNodes[i]
		if node.Clip.Contains(p) && node.maxOffset() != (schema.Vector{}) {
			return id, node, true
		}
	}
	return schema.PipelineID{}, ScrollNode{}, false
}

// ScrollNodeState reports the offset of every scroll node shown by the document.
func (b *Backend) ScrollNodeState(id schema.DocumentID) []render.ScrollNodeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[id]
	if !ok || !doc.root.Valid() {
		return nil
	}
	var states []render.ScrollNodeState
	for pipeline := range b.reachableLocked(doc.root) {
		list, ok := b.lists[pipeline]
		if !ok {
			continue
		}
		for _, node := range list.ScrollNodes {
			key := schema.ExternalScrollID{ID: node.ID, Pipeline: pipeline}
			states = append(states, render.ScrollNodeState{ID: key, Offset: doc.scroll[key]})
		}
	}
	sort.Slice(states, func(i, j int) bool {
		a, c := states[i].ID, states[j].ID
		if a.Pipeline != c.Pipeline {
			if a.Pipeline.Namespace != c.Pipeline.Namespace {
				return a.Pipeline.Namespace < c.Pipeline.Namespace
			}
			return a.Pipeline.Index < c.Pipeline.Index
		}
		return a.ID < c.ID
	})
	return states
}
