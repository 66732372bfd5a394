package softrender

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"

	"pkt.systems/vitrine/internal/persist"
	"pkt.systems/vitrine/render"
)

// Capture file names written by SaveCapture.
const (
	CaptureFrameFile = "frame.png"
	CaptureSceneFile = "scene.yaml"
)

type captureScene struct {
	Documents []captureDocument `yaml:"documents"`
	Pipelines []captureList     `yaml:"pipelines"`
}

type captureDocument struct {
	ID        string          `yaml:"id"`
	Layer     int8            `yaml:"layer"`
	Root      string          `yaml:"root,omitempty"`
	Viewport  [4]int32        `yaml:"viewport,flow"`
	HiDPI     float32         `yaml:"hidpi"`
	PageZoom  float32         `yaml:"page_zoom"`
	PinchZoom float32         `yaml:"pinch_zoom"`
	Scroll    []captureScroll `yaml:"scroll,omitempty"`
}

type captureScroll struct {
	Pipeline string     `yaml:"pipeline"`
	Node     uint64     `yaml:"node"`
	Offset   [2]float32 `yaml:"offset,flow"`
}

type captureList struct {
	Pipeline string        `yaml:"pipeline"`
	Epoch    uint32        `yaml:"epoch"`
	Painted  *uint32       `yaml:"painted,omitempty"`
	Items    []captureItem `yaml:"items"`
}

type captureItem struct {
	Bounds     [4]float32 `yaml:"bounds,flow"`
	Color      string     `yaml:"color"`
	Node       uint64     `yaml:"node,omitempty"`
	Cursor     uint16     `yaml:"cursor,omitempty"`
	ScrollNode uint64     `yaml:"scroll_node,omitempty"`
	Child      string     `yaml:"child,omitempty"`
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// SaveCapture writes the last frame and a dump of the scene into dir.
func (b *Backend) SaveCapture(dir string, bits render.CaptureBits) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var errs []error
	if bits&render.CaptureFrame != 0 {
		if err := b.saveFrame(filepath.Join(dir, CaptureFrameFile)); err != nil {
			errs = append(errs, err)
		}
	}
	if bits&render.CaptureScene != 0 {
		data, err := yaml.Marshal(b.captureScene())
		if err != nil {
			errs = append(errs, err)
		} else if err := persist.WriteBytes(filepath.Join(dir, CaptureSceneFile), data, 0o644); err != nil {
			errs = append(errs, err)
		}
	}
	b.log.Info("softrender capture saved", "path", dir, "errors", len(errs))
	return errors.Join(errs...)
}

func (b *Backend) saveFrame(path string) error {
	b.mu.Lock()
	last := b.last
	b.mu.Unlock()
	if last == nil {
		return ErrNoFrame
	}
	dc := gg.NewContextForImage(last)
	defer func() { _ = dc.Close() }()
	return persist.WriteFile(path, 0o644, dc.EncodePNG)
}

func (b *Backend) captureScene() captureScene {
	b.mu.Lock()
	defer b.mu.Unlock()
	var scene captureScene
	for _, doc := range b.sortedDocsLocked() {
		cd := captureDocument{
			ID:        doc.id.String(),
			Layer:     int8(doc.layer),
			Viewport:  [4]int32{doc.viewport.Origin.X, doc.viewport.Origin.Y, doc.viewport.Size.Width, doc.viewport.Size.Height},
			HiDPI:     doc.hidpi,
			PageZoom:  doc.pageZoom,
			PinchZoom: doc.pinchZoom,
		}
		if doc.root.Valid() {
			cd.Root = doc.root.String()
		}
		for key, offset := range doc.scroll {
			cd.Scroll = append(cd.Scroll, captureScroll{Pipeline: key.Pipeline.String(), Node: key.ID, Offset: [2]float32{offset.X, offset.Y}})
		}
		sort.Slice(cd.Scroll, func(i, j int) bool {
			if cd.Scroll[i].Pipeline != cd.Scroll[j].Pipeline {
				return cd.Scroll[i].Pipeline < cd.Scroll[j].Pipeline
			}
			return cd.Scroll[i].Node < cd.Scroll[j].Node
		})
		scene.Documents = append(scene.Documents, cd)
	}
	ids := make([]string, 0, len(b.lists))
	byName := make(map[string]*DisplayList, len(b.lists))
	for id, list := range b.lists {
		ids = append(ids, id.String())
		byName[id.String()] = list
	}
	sort.Strings(ids)
	for _, name := range ids {
		list := byName[name]
		cl := captureList{Pipeline: name, Epoch: uint32(list.Epoch)}
		if epoch, ok := b.painted[list.Pipeline]; ok {
			painted := uint32(epoch)
			cl.Painted = &painted
		}
		for _, item := range list.Items {
			ci := captureItem{
				Bounds:     [4]float32{item.Bounds.X, item.Bounds.Y, item.Bounds.W, item.Bounds.H},
				Color:      hexColor(item.Color),
				ScrollNode: item.ScrollNode,
			}
			if item.Tag != nil {
				ci.Node, ci.Cursor = item.Tag.Node, item.Tag.Cursor
			}
			if item.Child.Valid() {
				ci.Child = item.Child.String()
			}
			cl.Items = append(cl.Items, ci)
		}
		scene.Pipelines = append(scene.Pipelines, cl)
	}
	return scene
}
