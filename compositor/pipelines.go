package compositor

import (
	"sort"

	"pkt.systems/vitrine/schema"
	"pkt.systems/vitrine/viewport"
)

// PipelineDetails are the compositor's runtime flags for one pipeline.
type PipelineDetails struct {
	// Pipeline is set once the pipeline appears in a frame tree.
	Pipeline                  *schema.CompositionPipeline
	AnimationsRunning         bool
	AnimationCallbacksRunning bool
	Visible                   bool
}

func newPipelineDetails() *PipelineDetails {
	return &PipelineDetails{Visible: true}
}

// details returns the entry for id, creating an inert one on first use.
func (c *Compositor) details(id schema.PipelineID) *PipelineDetails {
	d, ok := c.pipelines[id]
	if !ok {
		d = newPipelineDetails()
		c.pipelines[id] = d
	}
	return d
}

// Pipeline returns the composition pipeline for id when it is known.
func (c *Compositor) Pipeline(id schema.PipelineID) (*schema.CompositionPipeline, bool) {
	d, ok := c.pipelines[id]
	if !ok {
		c.log.Warn("compositor unknown pipeline", "pipeline", id.String(), "err", schema.ErrUnknownPipeline)
		return nil, false
	}
	if d.Pipeline == nil {
		return nil, false
	}
	return d.Pipeline, true
}

// PipelineDetails returns a copy of the flags for id.
func (c *Compositor) PipelineDetails(id schema.PipelineID) (PipelineDetails, bool) {
	d, ok := c.pipelines[id]
	if !ok {
		return PipelineDetails{}, false
	}
	return *d, true
}

// PipelineIDs returns the registered pipeline ids in a stable order.
func (c *Compositor) PipelineIDs() []schema.PipelineID {
	ids := make([]schema.PipelineID, 0, len(c.pipelines))
	for id := range c.pipelines {
		ids = append(ids, id)
	}
	sortPipelineIDs(ids)
	return ids
}

func sortPipelineIDs(ids []schema.PipelineID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Namespace != ids[j].Namespace {
			return ids[i].Namespace < ids[j].Namespace
		}
		return ids[i].Index < ids[j].Index
	})
}

func (c *Compositor) createPipelineDetailsForFrameTree(tree *schema.SendableFrameTree) {
	tree.Walk(func(node *schema.SendableFrameTree) {
		pipeline := node.Pipeline
		c.details(pipeline.ID).Pipeline = &pipeline
	})
}

func (c *Compositor) removePipeline(id schema.PipelineID) {
	delete(c.pipelines, id)
}

// areaForPipeline finds the area rooted at a known pipeline.
func (c *Compositor) areaForPipeline(id schema.PipelineID) (*viewport.Area, bool) {
	pipeline, ok := c.Pipeline(id)
	if !ok {
		return nil, false
	}
	area, ok := c.areaForRoot(pipeline.ID)
	if !ok {
		c.log.Warn("compositor area for pipeline not found", "pipeline", id.String())
	}
	return area, ok
}
