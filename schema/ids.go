package schema

import "fmt"

// PipelineNamespaceID identifies the namespace a pipeline id was allocated in.
type PipelineNamespaceID uint32

// PipelineIndex is the per-namespace pipeline counter. Zero is never allocated.
type PipelineIndex uint32

// PipelineID identifies one content pipeline.
type PipelineID struct {
	Namespace PipelineNamespaceID
	Index     PipelineIndex
}

// Valid reports whether the id could have been allocated.
func (id PipelineID) Valid() bool {
	return id.Index != 0
}

func (id PipelineID) String() string {
	return fmt.Sprintf("(%d,%d)", id.Namespace, id.Index)
}

// BrowsingContextID identifies a browsing context.
type BrowsingContextID struct {
	Namespace PipelineNamespaceID
	Index     uint32
}

// TopLevelBrowsingContextID identifies a top-level browsing context.
type TopLevelBrowsingContextID BrowsingContextID

func (id TopLevelBrowsingContextID) String() string {
	return fmt.Sprintf("(%d,%d)", id.Namespace, id.Index)
}

// DocumentID identifies a rendering backend document.
type DocumentID uint32

func (id DocumentID) String() string {
	return fmt.Sprintf("doc-%d", uint32(id))
}

// DocumentLayer orders documents when presenting. Higher layers are drawn on top.
type DocumentLayer int8

// Epoch identifies a display list generation for one pipeline.
type Epoch uint32

// Next returns the following epoch.
func (e Epoch) Next() Epoch {
	return e + 1
}

// ExternalScrollID identifies a scroll node inside a pipeline.
type ExternalScrollID struct {
	ID       uint64
	Pipeline PipelineID
}
