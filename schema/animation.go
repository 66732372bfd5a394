package schema

// AnimationState is reported by content when its animation activity changes.
type AnimationState uint8

const (
	AnimationsPresent AnimationState = iota
	AnimationCallbacksPresent
	NoAnimationsPresent
	NoAnimationCallbacksPresent
)

func (s AnimationState) String() string {
	switch s {
	case AnimationsPresent:
		return "animations_present"
	case AnimationCallbacksPresent:
		return "animation_callbacks_present"
	case NoAnimationsPresent:
		return "no_animations_present"
	case NoAnimationCallbacksPresent:
		return "no_animation_callbacks_present"
	default:
		return "unknown"
	}
}

// AnimationTickType selects which side of a pipeline is ticked.
type AnimationTickType uint8

const (
	// TickScript runs requestAnimationFrame callbacks.
	TickScript AnimationTickType = iota
	// TickLayout advances CSS animations and transitions.
	TickLayout
)

func (t AnimationTickType) String() string {
	if t == TickScript {
		return "script"
	}
	return "layout"
}
