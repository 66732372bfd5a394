package scene

import (
	"sync"

	"pkt.systems/vitrine/schema"
)

// LayoutChannel records control messages sent to one pipeline's layout.
type LayoutChannel struct {
	mu       sync.Mutex
	pipeline schema.PipelineID
	scroll   []schema.ScrollState
	paints   []schema.PaintMetric
	closed   bool
}

func newLayoutChannel(id schema.PipelineID) *LayoutChannel {
	return &LayoutChannel{pipeline: id}
}

// SendLayout implements schema.LayoutChan.
func (l *LayoutChannel) SendLayout(msg schema.LayoutControlMsg) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return schema.ErrPeerClosed
	}
	switch m := msg.(type) {
	case schema.SetScrollStates:
		l.scroll = append(l.scroll[:0], m.States...)
	case schema.PaintMetric:
		l.paints = append(l.paints, m)
	}
	return nil
}

// ScrollStates returns the last scroll states reported for the pipeline.
func (l *LayoutChannel) ScrollStates() []schema.ScrollState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schema.ScrollState(nil), l.scroll...)
}

// PaintMetrics returns every paint metric reported for the pipeline.
func (l *LayoutChannel) PaintMetrics() []schema.PaintMetric {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schema.PaintMetric(nil), l.paints...)
}

func (l *LayoutChannel) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
