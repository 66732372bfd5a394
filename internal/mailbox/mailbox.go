// Package mailbox provides an unbounded multi-producer, single-consumer queue.
//
// Send never blocks the producer. The consumer either polls with TryRecv or
// blocks in Recv until a value or a close arrives.
package mailbox

import (
	"context"
	"sync"

	"pkt.systems/vitrine/schema"
)

// Mailbox is an unbounded MPSC queue. The zero value is not usable; use New.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	notify chan struct{}
}

// New constructs an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Send enqueues value. It returns schema.ErrPeerClosed once the mailbox is closed.
func (m *Mailbox[T]) Send(value T) error {
	if m == nil {
		return schema.ErrPeerClosed
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return schema.ErrPeerClosed
	}
	m.queue = append(m.queue, value)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// TryRecv dequeues the oldest value without blocking.
func (m *Mailbox[T]) TryRecv() (T, bool) {
	var zero T
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return zero, false
	}
	value := m.queue[0]
	m.queue[0] = zero
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		m.queue = nil
	}
	return value, true
}

// Recv blocks until a value is available, the mailbox is closed and drained,
// or ctx is done.
func (m *Mailbox[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		if value, ok := m.TryRecv(); ok {
			return value, nil
		}
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return zero, schema.ErrPeerClosed
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-m.notify:
		}
	}
}

// Ready returns a channel that receives a token after at least one Send.
// Spurious wake-ups are possible; callers must re-check with TryRecv.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.notify
}

// Len reports the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close rejects further sends. Values already queued remain receivable.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
