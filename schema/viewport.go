package schema

// ViewportConstraints are the pinch-zoom limits requested by content.
type ViewportConstraints struct {
	Size        Size
	InitialZoom float32
	MinZoom     *float32
	MaxZoom     *float32
	UserZoom    bool
}

// WindowSizeType tells content whether a size report is the first one.
type WindowSizeType uint8

const (
	WindowSizeInitial WindowSizeType = iota
	WindowSizeResize
)

func (t WindowSizeType) String() string {
	if t == WindowSizeInitial {
		return "initial"
	}
	return "resize"
}

// WindowSizeData is the viewport description sent to content.
type WindowSizeData struct {
	InitialViewport  Size
	DevicePixelRatio float32
}

// ScrollState is the current offset of one scroll node.
type ScrollState struct {
	ScrollID ExternalScrollID
	Offset   Vector
}

// ScrollStates groups scroll node offsets by owning pipeline.
type ScrollStates map[PipelineID][]ScrollState

// EmbedderCoordinates describe the embedder's surfaces in device pixels.
type EmbedderCoordinates struct {
	HiDPIFactor float32
	Screen      IntSize
	ScreenAvail IntSize
	Window      IntRect
	Framebuffer IntSize
	Viewport    IntRect
}

// AreaCoordinates is the output rectangle of one area inside the framebuffer.
type AreaCoordinates = IntRect
