package schema

// ConstellationMsg is sent from the compositor to the coordinating authority.
type ConstellationMsg interface {
	constellationMsg()
}

// ExitMsg asks the coordinating authority to shut every pipeline down.
type ExitMsg struct{}

// WindowSizeMsg reports the size of an area to content.
type WindowSizeMsg struct {
	// TopLevel is nil before a frame tree is bound to the area.
	TopLevel *TopLevelBrowsingContextID
	Data     WindowSizeData
	Type     WindowSizeType
}

// ForwardEventMsg delivers a hit-tested input event to a pipeline.
type ForwardEventMsg struct {
	Pipeline PipelineID
	Event    CompositorEvent
}

// SetCursorMsg requests a pointer shape change.
type SetCursorMsg struct {
	Cursor CursorKind
}

// TickAnimationMsg asks a pipeline to advance its animations.
type TickAnimationMsg struct {
	Pipeline PipelineID
	Type     AnimationTickType
}

// IsReadyToSaveImageMsg asks whether the painted epochs are the latest content
// state for every pipeline.
type IsReadyToSaveImageMsg struct {
	Epochs map[PipelineID]Epoch
}

func (ExitMsg) constellationMsg()               {}
func (WindowSizeMsg) constellationMsg()         {}
func (ForwardEventMsg) constellationMsg()       {}
func (SetCursorMsg) constellationMsg()          {}
func (TickAnimationMsg) constellationMsg()      {}
func (IsReadyToSaveImageMsg) constellationMsg() {}

// ConstellationChan is a write-only handle to the coordinating authority.
type ConstellationChan interface {
	Send(msg ConstellationMsg) error
}
