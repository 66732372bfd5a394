package schema

import "errors"

var (
	// ErrPeerClosed indicates the receiving side of a channel has gone away.
	ErrPeerClosed = errors.New("peer closed")
	// ErrUnknownDocument indicates a message referenced an unregistered document.
	ErrUnknownDocument = errors.New("unknown document")
	// ErrUnknownPipeline indicates a message referenced an unregistered pipeline.
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrShutdown indicates the compositor has finished shutting down.
	ErrShutdown = errors.New("compositor shut down")
	// ErrNoOutputFile indicates a file snapshot was requested without a path.
	ErrNoOutputFile = errors.New("no output file configured")
	// ErrInvalidConfig indicates the compositor configuration is invalid.
	ErrInvalidConfig = errors.New("invalid compositor config")
	// ErrInvalidScene indicates a scene description could not be used.
	ErrInvalidScene = errors.New("invalid scene")
)
