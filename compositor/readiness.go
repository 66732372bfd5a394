package compositor

import "pkt.systems/vitrine/schema"

// ReadyState is the snapshot readiness handshake with the coordinating authority.
type ReadyState uint8

const (
	// ReadyUnknown means the next check must query the coordinating authority.
	ReadyUnknown ReadyState = iota
	// ReadyWaitingForReply means a query is outstanding.
	ReadyWaitingForReply
	// ReadyToSave means a positive reply arrived and has not been consumed.
	ReadyToSave
)

func (s ReadyState) String() string {
	switch s {
	case ReadyUnknown:
		return "unknown"
	case ReadyWaitingForReply:
		return "waiting_for_reply"
	case ReadyToSave:
		return "ready_to_save"
	default:
		return "invalid"
	}
}

// isReadyToPaintImageOutput runs one step of the readiness handshake. A
// positive answer is consumed by the call that observes it.
func (c *Compositor) isReadyToPaintImageOutput() (NotReadyToPaint, bool) {
	switch c.readyState {
	case ReadyUnknown:
		epochs := make(map[schema.PipelineID]schema.Epoch, len(c.pipelines))
		for id := range c.pipelines {
			if epoch, ok := c.renderer.CurrentEpoch(id); ok {
				epochs[id] = epoch
			}
		}
		c.sendConstellation(schema.IsReadyToSaveImageMsg{Epochs: epochs}, "is ready to save image")
		c.setReadyState(ReadyWaitingForReply)
		return NotReadyJustNotifiedConstellation, false
	case ReadyWaitingForReply:
		return NotReadyWaitingOnConstellation, false
	default:
		c.setReadyState(ReadyUnknown)
		return NotReadyNone, true
	}
}

func (c *Compositor) onReadyReply(ready bool) {
	if c.readyState != ReadyWaitingForReply {
		c.log.Error("compositor unexpected readiness reply", "state", c.readyState.String(), "ready", ready)
	}
	if ready {
		c.setReadyState(ReadyToSave)
	} else {
		c.setReadyState(ReadyUnknown)
	}
	c.compositeIfNecessary(ReasonHeadless)
}

func (c *Compositor) setReadyState(next ReadyState) {
	if c.cfg.IsRunningProblemTest {
		c.log.Info("compositor ready state", "from", c.readyState.String(), "to", next.String())
	} else {
		c.log.Debug("compositor ready state", "from", c.readyState.String(), "to", next.String())
	}
	c.readyState = next
}
