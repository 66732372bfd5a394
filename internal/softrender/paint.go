package softrender

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"

	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// Render rasterizes the current frame of every document, lowest layer first.
func (b *Backend) Render(framebuffer schema.IntSize) error {
	if framebuffer.Empty() {
		return fmt.Errorf("render: empty framebuffer %dx%d", framebuffer.Width, framebuffer.Height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	dc := gg.NewContext(int(framebuffer.Width), int(framebuffer.Height))
	defer func() { _ = dc.Close() }()
	dc.ClearWithColor(gg.FromColor(b.clear))

	painted := make(map[schema.PipelineID]schema.Epoch)
	for _, doc := range b.sortedDocsLocked() {
		f := doc.current
		if f == nil || !f.root.Valid() {
			continue
		}
		viewport := rectFromInt(f.viewport)
		origin := schema.Vec(viewport.X, viewport.Y)
		if err := b.paint(dc, f, f.root, origin, f.scale, viewport, 0, painted); err != nil {
			return fmt.Errorf("render document %s: %w", doc.id, err)
		}
		if b.flags.Has(render.DebugRenderTargets) {
			dc.SetColor(colornames.Magenta)
			dc.SetLineWidth(1)
			dc.DrawRectangle(float64(viewport.X)+0.5, float64(viewport.Y)+0.5, float64(viewport.W)-1, float64(viewport.H)-1)
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
	}
	for id, epoch := range painted {
		b.painted[id] = epoch
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("render: unexpected image type %T", dc.Image())
	}
	b.last = img
	return nil
}

func (b *Backend) paint(dc *gg.Context, f *frame, id schema.PipelineID, origin schema.Vector, scale float32, clip Rect, depth int, painted map[schema.PipelineID]schema.Epoch) error {
	list, ok := f.lists[id]
	if !ok || depth > maxNesting {
		return nil
	}
	painted[id] = list.Epoch
	for _, item := range list.Items {
		r, nodeClip, clipped := itemRect(list, f.scroll, item)
		device := r.Scale(scale).Translate(origin)
		bounds := clip
		if clipped {
			bounds = bounds.Intersect(nodeClip.Scale(scale).Translate(origin))
		}
		visible := device.Intersect(bounds)
		if visible.Empty() {
			continue
		}
		if item.Child.Valid() {
			if err := b.paint(dc, f, item.Child, schema.Vec(device.X, device.Y), scale, visible, depth+1, painted); err != nil {
				return err
			}
			continue
		}
		dc.SetColor(item.Color)
		dc.DrawRectangle(float64(visible.X), float64(visible.Y), float64(visible.W), float64(visible.H))
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

// ReadPixels copies rect out of the last rendered framebuffer.
func (b *Backend) ReadPixels(rect schema.IntRect) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return nil, ErrNoFrame
	}
	src := image.Rect(int(rect.Origin.X), int(rect.Origin.Y), int(rect.Origin.X+rect.Size.Width), int(rect.Origin.Y+rect.Size.Height))
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	visible := src.Intersect(b.last.Bounds())
	if !visible.Empty() {
		draw.Draw(dst, visible.Sub(src.Min), b.last, visible.Min, draw.Src)
	}
	return dst, nil
}
