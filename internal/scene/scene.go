// Package scene describes scripted content in YAML and plays the
// coordinating authority for it: it publishes display lists, answers
// readiness queries, ticks animations and completes the shutdown handshake.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"pkt.systems/vitrine/internal/softrender"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// NoCursor is the item tag cursor value that leaves the cursor unchanged.
const NoCursor = 0xffff

// Scene is the root of a scene file.
type Scene struct {
	Window    Window     `yaml:"window"`
	Pipelines []Pipeline `yaml:"pipelines"`
}

// Window is the requested window geometry.
type Window struct {
	Width  int32   `yaml:"width"`
	Height int32   `yaml:"height"`
	HiDPI  float32 `yaml:"hidpi"`
}

// Pipeline is one content pipeline. Pipelines with a parent are embedded in
// it at Frame.
type Pipeline struct {
	ID           uint32       `yaml:"id"`
	Browser      uint32       `yaml:"browser"`
	Parent       uint32       `yaml:"parent"`
	Frame        [4]float32   `yaml:"frame,flow"`
	Items        []Item       `yaml:"items"`
	ScrollNodes  []ScrollNode `yaml:"scroll_nodes"`
	Animation    *Animation   `yaml:"animation"`
	Viewport     *Viewport    `yaml:"viewport"`
	PreventTouch bool         `yaml:"prevent_touch"`
}

// Item is a solid rectangle.
type Item struct {
	Rect     [4]float32 `yaml:"rect,flow"`
	Color    string     `yaml:"color"`
	Node     uint64     `yaml:"node"`
	Cursor   string     `yaml:"cursor"`
	Scroll   uint64     `yaml:"scroll"`
	Animated bool       `yaml:"animated"`
}

// ScrollNode is a scrollable region.
type ScrollNode struct {
	ID      uint64     `yaml:"id"`
	Clip    [4]float32 `yaml:"clip,flow"`
	Content [2]float32 `yaml:"content,flow"`
}

// Animation moves the pipeline's animated items by Step on every tick until
// Frames ticks have run. Callbacks selects script ticks instead of layout ticks.
type Animation struct {
	Frames    int        `yaml:"frames"`
	Step      [2]float32 `yaml:"step,flow"`
	Callbacks bool       `yaml:"callbacks"`
}

// Viewport carries pinch-zoom constraints for the pipeline.
type Viewport struct {
	InitialZoom float32  `yaml:"initial_zoom"`
	MinZoom     *float32 `yaml:"min_zoom"`
	MaxZoom     *float32 `yaml:"max_zoom"`
	UserZoom    bool     `yaml:"user_zoom"`
}

// Load decodes and validates a scene.
func Load(r io.Reader) (*Scene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scene
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidScene, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a scene from path.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data))
}

// Default returns the built-in scene.
func Default() *Scene {
	s, err := Load(strings.NewReader(defaultScene))
	if err != nil {
		panic(err)
	}
	return s
}

const defaultScene = `
window: {width: 320, height: 240, hidpi: 1}
pipelines:
  - id: 1
    browser: 1
    scroll_nodes:
      - {id: 1, clip: [0, 0, 320, 240], content: [320, 480]}
    items:
      - {rect: [0, 0, 320, 480], color: whitesmoke, node: 1, cursor: default, scroll: 1}
      - {rect: [16, 16, 288, 40], color: steelblue, node: 2, cursor: pointer, scroll: 1}
      - {rect: [16, 280, 288, 120], color: darkseagreen, node: 3, cursor: text, scroll: 1}
  - id: 2
    browser: 1
    parent: 1
    frame: [16, 72, 180, 150]
    animation: {frames: 3, step: [20, 0]}
    items:
      - {rect: [0, 0, 180, 150], color: lightyellow, node: 10}
      - {rect: [10, 55, 40, 40], color: tomato, node: 11, cursor: grab, animated: true}
`

// Validate checks ids, parents and colours.
func (s *Scene) Validate() error {
	var errs []error
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", s.Window.Width, s.Window.Height))
	}
	ids := make(map[uint32]bool, len(s.Pipelines))
	roots := 0
	for _, p := range s.Pipelines {
		if p.ID == 0 {
			errs = append(errs, errors.New("pipeline id must be non-zero"))
		}
		if ids[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate pipeline id %d", p.ID))
		}
		ids[p.ID] = true
		if p.Parent == 0 {
			roots++
		}
		for i, item := range p.Items {
			if item.Color != "" {
				if _, err := ParseColor(item.Color); err != nil {
					errs = append(errs, fmt.Errorf("pipeline %d item %d: %w", p.ID, i, err))
				}
			}
			if item.Cursor != "" {
				if _, ok := schema.ParseCursorKind(item.Cursor); !ok {
					errs = append(errs, fmt.Errorf("pipeline %d item %d: unknown cursor %q", p.ID, i, item.Cursor))
				}
			}
		}
		if p.Animation != nil && p.Animation.Frames < 0 {
			errs = append(errs, fmt.Errorf("pipeline %d: animation frames must not be negative", p.ID))
		}
	}
	if roots != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one root pipeline, got %d", roots))
	}
	for _, p := range s.Pipelines {
		if p.Parent != 0 && !ids[p.Parent] {
			errs = append(errs, fmt.Errorf("pipeline %d: unknown parent %d", p.ID, p.Parent))
		}
		if p.Parent == p.ID && p.ID != 0 {
			errs = append(errs, fmt.Errorf("pipeline %d: parent is itself", p.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", schema.ErrInvalidScene, errors.Join(errs...))
	}
	return nil
}

// ParseColor accepts CSS colour names and #rrggbb / #rrggbbaa.
func ParseColor(value string) (color.RGBA, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if c, ok := colornames.Map[value]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(value, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return color.RGBA{}, fmt.Errorf("unknown colour %q", value)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", value, err)
	}
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// PipelineID maps a scene pipeline id to a content pipeline id.
func PipelineID(id uint32) schema.PipelineID {
	return schema.PipelineID{Namespace: 1, Index: schema.PipelineIndex(id)}
}

func (s *Scene) root() *Pipeline {
	for i := range s.Pipelines {
		if s.Pipelines[i].Parent == 0 {
			return &s.Pipelines[i]
		}
	}
	return nil
}

func (s *Scene) children(parent uint32) []*Pipeline {
	var out []*Pipeline
	for i := range s.Pipelines {
		if s.Pipelines[i].Parent == parent && parent != 0 {
			out = append(out, &s.Pipelines[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func rect(v [4]float32) softrender.Rect {
	return softrender.R(v[0], v[1], v[2], v[3])
}

// displayList renders p at epoch. offset is added to animated items.
func (s *Scene) displayList(p *Pipeline, epoch schema.Epoch, offset schema.Vector) softrender.DisplayList {
	list := softrender.DisplayList{Pipeline: PipelineID(p.ID), Epoch: epoch}
	for _, node := range p.ScrollNodes {
		list.ScrollNodes = append(list.ScrollNodes, softrender.ScrollNode{
			ID:      node.ID,
			Clip:    rect(node.Clip),
			Content: schema.Size{Width: node.Content[0], Height: node.Content[1]},
		})
	}
	for _, item := range p.Items {
		out := softrender.Item{Bounds: rect(item.Rect), ScrollNode: item.Scroll}
		if item.Animated {
			out.Bounds = out.Bounds.Translate(offset)
		}
		if item.Color != "" {
			out.Color, _ = ParseColor(item.Color)
		}
		if item.Node != 0 || item.Cursor != "" {
			tag := render.ItemTag{Node: item.Node, Cursor: NoCursor}
			if kind, ok := schema.ParseCursorKind(item.Cursor); ok {
				tag.Cursor = uint16(kind)
			}
			out.Tag = &tag
		}
		list.Items = append(list.Items, out)
	}
	// Children are embedded after the parent's own items.
	for _, child := range s.children(p.ID) {
		list.Items = append(list.Items, softrender.Item{Bounds: rect(child.Frame), Child: PipelineID(child.ID)})
	}
	return list
}
