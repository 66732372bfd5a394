package compositor

import (
	"errors"
	"fmt"
)

// CompositeErrorKind classifies why a composite did not happen.
type CompositeErrorKind string

const (
	// CompositeWindowUnprepared means the embedder surface is not ready.
	CompositeWindowUnprepared CompositeErrorKind = "window_unprepared"
	// CompositeNotReadyToPaint means a stable image was requested but is not available yet.
	CompositeNotReadyToPaint CompositeErrorKind = "not_ready_to_paint"
	// CompositeShutdown means the compositor is shutting down.
	CompositeShutdown CompositeErrorKind = "shutdown"
)

// NotReadyToPaint details a CompositeNotReadyToPaint error.
type NotReadyToPaint string

const (
	NotReadyNone                      NotReadyToPaint = ""
	NotReadyAnimationsActive          NotReadyToPaint = "animations_active"
	NotReadyJustNotifiedConstellation NotReadyToPaint = "just_notified_constellation"
	NotReadyWaitingOnConstellation    NotReadyToPaint = "waiting_on_constellation"
)

// ErrWindowUnprepared is returned when the embedder surface cannot be drawn.
var ErrWindowUnprepared = &CompositeError{Kind: CompositeWindowUnprepared}

// CompositeError reports a composite that was skipped. These are retried on a
// later update and are not user-visible failures.
type CompositeError struct {
	Kind     CompositeErrorKind
	NotReady NotReadyToPaint
	Err      error
}

func newNotReady(reason NotReadyToPaint) *CompositeError {
	return &CompositeError{Kind: CompositeNotReadyToPaint, NotReady: reason}
}

func (e *CompositeError) Error() string {
	if e == nil {
		return "composite error"
	}
	if e.Err != nil {
		return fmt.Sprintf("composite %s: %v", e.Kind, e.Err)
	}
	if e.NotReady != NotReadyNone {
		return fmt.Sprintf("composite %s: %s", e.Kind, e.NotReady)
	}
	return fmt.Sprintf("composite %s", e.Kind)
}

func (e *CompositeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches CompositeErrors by kind and, when set on target, reason.
func (e *CompositeError) Is(target error) bool {
	t, ok := target.(*CompositeError)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.NotReady == NotReadyNone || t.NotReady == e.NotReady
}

// NotReadyReason returns the readiness detail of err, if any.
func NotReadyReason(err error) (NotReadyToPaint, bool) {
	var ce *CompositeError
	if errors.As(err, &ce) && ce.Kind == CompositeNotReadyToPaint {
		return ce.NotReady, true
	}
	return NotReadyNone, false
}

// IsNotReady reports whether err is a recoverable not-ready outcome.
func IsNotReady(err error) bool {
	var ce *CompositeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == CompositeWindowUnprepared || ce.Kind == CompositeNotReadyToPaint
}
