package schema

// CursorKind is the pointer shape requested by content.
type CursorKind uint8

const (
	CursorNone CursorKind = iota
	CursorDefault
	CursorPointer
	CursorContextMenu
	CursorHelp
	CursorProgress
	CursorWait
	CursorCell
	CursorCrosshair
	CursorText
	CursorVerticalText
	CursorAlias
	CursorCopy
	CursorMove
	CursorNoDrop
	CursorNotAllowed
	CursorGrab
	CursorGrabbing
	CursorEResize
	CursorNResize
	CursorNeResize
	CursorNwResize
	CursorSResize
	CursorSeResize
	CursorSwResize
	CursorWResize
	CursorEwResize
	CursorNsResize
	CursorNeswResize
	CursorNwseResize
	CursorColResize
	CursorRowResize
	CursorAllScroll
	CursorZoomIn
	CursorZoomOut
	cursorKindCount
)

var cursorNames = [...]string{
	"none", "default", "pointer", "context-menu", "help", "progress", "wait", "cell",
	"crosshair", "text", "vertical-text", "alias", "copy", "move", "no-drop", "not-allowed",
	"grab", "grabbing", "e-resize", "n-resize", "ne-resize", "nw-resize", "s-resize",
	"se-resize", "sw-resize", "w-resize", "ew-resize", "ns-resize", "nesw-resize",
	"nwse-resize", "col-resize", "row-resize", "all-scroll", "zoom-in", "zoom-out",
}

// CursorFromTag decodes the cursor half of a hit-test tag.
// It reports false when the value does not name a cursor.
func CursorFromTag(tag uint16) (CursorKind, bool) {
	if tag >= uint16(cursorKindCount) {
		return CursorNone, false
	}
	return CursorKind(tag), true
}

// ParseCursorKind maps a CSS cursor keyword to a CursorKind.
func ParseCursorKind(name string) (CursorKind, bool) {
	for i, n := range cursorNames {
		if n == name {
			return CursorKind(i), true
		}
	}
	return CursorNone, false
}

func (c CursorKind) String() string {
	if int(c) < len(cursorNames) {
		return cursorNames[c]
	}
	return "unknown"
}
