package compositor

import "pkt.systems/vitrine/schema"

func (c *Compositor) changeRunningAnimationsState(id schema.PipelineID, state schema.AnimationState) {
	d := c.details(id)
	c.log.Debug("compositor animation state", "pipeline", id.String(), "state", state.String(), "visible", d.Visible)
	switch state {
	case schema.AnimationsPresent:
		d.AnimationsRunning = true
		if d.Visible {
			c.compositeIfNecessary(ReasonAnimation)
		}
	case schema.AnimationCallbacksPresent:
		d.AnimationCallbacksRunning = true
		if d.Visible {
			c.tickAnimationsForPipeline(id)
		}
	case schema.NoAnimationsPresent:
		d.AnimationsRunning = false
	case schema.NoAnimationCallbacksPresent:
		d.AnimationCallbacksRunning = false
	}
}

// ProcessAnimations reports the aggregate animation state to the window and
// ticks every visible, animating pipeline.
func (c *Compositor) ProcessAnimations() {
	var animating []schema.PipelineID
	for id, d := range c.pipelines {
		if (d.AnimationsRunning || d.AnimationCallbacksRunning) && d.Visible {
			animating = append(animating, id)
		}
	}
	sortPipelineIDs(animating)

	state := AnimationIdle
	if len(animating) > 0 {
		state = AnimationAnimating
	}
	c.window.SetAnimationState(state)
	if animating := state == AnimationAnimating; animating != c.animating {
		c.animating = animating
		c.events.OnAnimationState(schema.AnimationStateEvent{Animating: animating})
	}
	for _, id := range animating {
		c.tickAnimationsForPipeline(id)
	}
}

func (c *Compositor) tickAnimationsForPipeline(id schema.PipelineID) {
	d := c.details(id)
	if d.AnimationCallbacksRunning {
		c.sendConstellation(schema.TickAnimationMsg{Pipeline: id, Type: schema.TickScript}, "tick animation")
	}
	if d.AnimationsRunning {
		c.sendConstellation(schema.TickAnimationMsg{Pipeline: id, Type: schema.TickLayout}, "tick animation")
	}
}

// animationsActive reports whether any pipeline, visible or not, is animating.
func (c *Compositor) animationsActive() bool {
	for _, d := range c.pipelines {
		if d.AnimationsRunning || d.AnimationCallbacksRunning {
			return true
		}
	}
	return false
}
