package schema

// ScrollLocationKind distinguishes relative scrolls from absolute jumps.
type ScrollLocationKind uint8

const (
	// ScrollDelta scrolls by a relative offset.
	ScrollDelta ScrollLocationKind = iota
	// ScrollStart jumps to the start of the scrollable area.
	ScrollStart
	// ScrollEnd jumps to the end of the scrollable area.
	ScrollEnd
)

func (k ScrollLocationKind) String() string {
	switch k {
	case ScrollDelta:
		return "delta"
	case ScrollStart:
		return "start"
	case ScrollEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ScrollLocation is either a delta or one of the Start/End sentinels.
type ScrollLocation struct {
	Kind  ScrollLocationKind
	Delta Vector
}

// DeltaScroll builds a relative scroll location.
func DeltaScroll(delta Vector) ScrollLocation {
	return ScrollLocation{Kind: ScrollDelta, Delta: delta}
}

// StartScroll builds the jump-to-start sentinel.
func StartScroll() ScrollLocation {
	return ScrollLocation{Kind: ScrollStart}
}

// EndScroll builds the jump-to-end sentinel.
func EndScroll() ScrollLocation {
	return ScrollLocation{Kind: ScrollEnd}
}

// IsSentinel reports whether the location is Start or End.
func (l ScrollLocation) IsSentinel() bool {
	return l.Kind == ScrollStart || l.Kind == ScrollEnd
}

// TouchEventType is the phase of a touch or scroll gesture.
type TouchEventType uint8

const (
	TouchDown TouchEventType = iota
	TouchMove
	TouchUp
	TouchCancel
)

func (t TouchEventType) String() string {
	switch t {
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	case TouchCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// TouchID identifies one touch point for the duration of a gesture.
type TouchID int32

// MouseButton names a mouse button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
)

// MouseEventType is the kind of a button event delivered to content.
type MouseEventType uint8

const (
	MouseClick MouseEventType = iota
	MouseDown
	MouseUp
)

func (t MouseEventType) String() string {
	switch t {
	case MouseClick:
		return "click"
	case MouseDown:
		return "mousedown"
	case MouseUp:
		return "mouseup"
	default:
		return "unknown"
	}
}

// MouseWindowEvent is a button event in embedder device pixels.
type MouseWindowEvent struct {
	Type   MouseEventType
	Button MouseButton
	Point  Point
}

// EventResult is content's verdict on a dispatched touch event.
type EventResult uint8

const (
	DefaultAllowed EventResult = iota
	DefaultPrevented
)

// UntrustedNodeAddress is an opaque node handle taken from a hit-test tag.
type UntrustedNodeAddress uint64

// CompositorEvent is a typed input event forwarded to a content pipeline.
type CompositorEvent interface {
	compositorEvent()
}

// MouseButtonEvent is delivered for button presses, releases and clicks.
type MouseButtonEvent struct {
	Type        MouseEventType
	Button      MouseButton
	Point       Point
	Node        UntrustedNodeAddress
	PointInNode Point
}

// MouseMoveEvent is delivered when the pointer moves over content.
type MouseMoveEvent struct {
	Point Point
	Node  UntrustedNodeAddress
}

// TouchEvent is a raw touch event delivered to content.
type TouchEvent struct {
	Type  TouchEventType
	ID    TouchID
	Point Point
	Node  UntrustedNodeAddress
}

func (MouseButtonEvent) compositorEvent() {}
func (MouseMoveEvent) compositorEvent()   {}
func (TouchEvent) compositorEvent()       {}
