package schema

import "time"

// EmbedderEventType identifies a notification for the embedder.
type EmbedderEventType string

const (
	// EmbedderPresent is emitted after every presented composite.
	EmbedderPresent EmbedderEventType = "present"
	// EmbedderAnimationState is emitted when the aggregate animation state flips.
	EmbedderAnimationState EmbedderEventType = "animation_state"
	// EmbedderCursor is emitted when content asks for a new cursor.
	EmbedderCursor EmbedderEventType = "cursor"
	// EmbedderShutdown is emitted once the shutdown handshake completes.
	EmbedderShutdown EmbedderEventType = "shutdown"
)

// PresentEvent reports a presented frame.
type PresentEvent struct {
	Frame  uint64
	Time   time.Time
	Target string
}

// AnimationStateEvent reports whether any visible pipeline is animating.
type AnimationStateEvent struct {
	Animating bool
}

// CursorEvent carries the cursor requested by content.
type CursorEvent struct {
	Cursor CursorKind
}

// ShutdownEvent reports the end of the shutdown handshake.
type ShutdownEvent struct {
	Time time.Time
}
