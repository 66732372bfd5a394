package compositor

import "pkt.systems/vitrine/schema"

// WindowAnimationState is the aggregate animation activity reported to the embedder.
type WindowAnimationState uint8

const (
	AnimationIdle WindowAnimationState = iota
	AnimationAnimating
)

func (s WindowAnimationState) String() string {
	if s == AnimationAnimating {
		return "animating"
	}
	return "idle"
}

// EventLoopWaker wakes the embedder's event loop from any goroutine.
type EventLoopWaker interface {
	Wake()
}

// WindowMethods is the capability set the compositor needs from an embedder.
type WindowMethods interface {
	// GetCoordinates returns the current device coordinates.
	GetCoordinates() schema.EmbedderCoordinates
	// PrepareForComposite readies the surface; false means it cannot be drawn yet.
	PrepareForComposite(width, height int32) bool
	// Present flips the surface. It may block on vsync.
	Present()
	SetAnimationState(state WindowAnimationState)
	CreateEventLoopWaker() EventLoopWaker
}
