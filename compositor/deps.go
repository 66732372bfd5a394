package compositor

import (
	"time"

	"pkt.systems/pslog"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// Profiler categories recorded by the compositor.
const (
	CategoryCompositing = "compositing"
	CategoryImageSaving = "image_saving"
)

// TimeProfiler records how long compositor phases take.
type TimeProfiler interface {
	Record(category string, elapsed time.Duration)
	// Exit stops the profiler and closes ack once it has flushed.
	Exit(ack chan<- struct{})
}

// Deps captures the collaborators of a compositor.
type Deps struct {
	Window        WindowMethods
	Receiver      *Receiver
	Constellation schema.ConstellationChan
	API           render.API
	Renderer      render.Renderer
	Profiler      TimeProfiler
	// Events receives embedder notifications. Optional.
	Events EventSink
	Logger pslog.Logger
	// Now overrides the clock used for paint metrics.
	Now func() time.Time
}
