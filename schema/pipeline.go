package schema

import "time"

// LayoutControlMsg is delivered to a pipeline's layout side.
type LayoutControlMsg interface {
	layoutControlMsg()
}

// SetScrollStates reports the current scroll node offsets of a pipeline.
type SetScrollStates struct {
	States []ScrollState
}

// PaintMetric reports the wall-clock time a display list epoch was painted.
type PaintMetric struct {
	Epoch Epoch
	Time  time.Time
}

func (SetScrollStates) layoutControlMsg() {}
func (PaintMetric) layoutControlMsg()     {}

// LayoutChan is a write-only handle to a pipeline's layout control channel.
type LayoutChan interface {
	SendLayout(msg LayoutControlMsg) error
}

// CompositionPipeline is the compositor's view of one content pipeline.
type CompositionPipeline struct {
	ID                        PipelineID
	TopLevelBrowsingContextID TopLevelBrowsingContextID
	LayoutChan                LayoutChan
}

// SendableFrameTree is a pipeline and its child frames.
type SendableFrameTree struct {
	Pipeline CompositionPipeline
	Children []SendableFrameTree
}

// Walk visits the tree depth-first, parents before children.
func (t *SendableFrameTree) Walk(fn func(*SendableFrameTree)) {
	stack := []*SendableFrameTree{t}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(node)
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}
}
