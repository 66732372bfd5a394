package compositor

import (
	"context"

	"pkt.systems/vitrine/internal/mailbox"
	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

// Proxy posts messages to the compositor mailbox. It is safe for concurrent
// use and never blocks.
type Proxy struct {
	box   *mailbox.Mailbox[Msg]
	waker EventLoopWaker
}

// Receiver is the compositor's end of the mailbox.
type Receiver struct {
	box *mailbox.Mailbox[Msg]
}

// NewMailbox creates a connected proxy/receiver pair. waker, when set, is
// poked after every send so a sleeping embedder loop pumps the compositor.
func NewMailbox(waker EventLoopWaker) (Proxy, *Receiver) {
	box := mailbox.New[Msg]()
	return Proxy{box: box, waker: waker}, &Receiver{box: box}
}

// Send enqueues msg and wakes the event loop.
func (p Proxy) Send(msg Msg) error {
	if err := p.box.Send(msg); err != nil {
		return err
	}
	if p.waker != nil {
		p.waker.Wake()
	}
	return nil
}

// Recomposite requests a composite for reason.
func (p Proxy) Recomposite(reason CompositingReason) error {
	return p.Send(Recomposite{Reason: reason})
}

// TryRecv returns the next message without blocking.
func (r *Receiver) TryRecv() (Msg, bool) {
	return r.box.TryRecv()
}

// Recv blocks for the next message.
func (r *Receiver) Recv(ctx context.Context) (Msg, error) {
	return r.box.Recv(ctx)
}

// Close rejects further sends.
func (r *Receiver) Close() {
	r.box.Close()
}

type renderNotifier struct {
	proxy Proxy
}

// NewRenderNotifier adapts a proxy to the backend's frame notifications.
// Notifications only post mailbox messages.
func NewRenderNotifier(proxy Proxy) render.Notifier {
	return renderNotifier{proxy: proxy}
}

func (n renderNotifier) WakeUp() {
	_ = n.proxy.Recomposite(ReasonNewFrame)
}

func (n renderNotifier) NewFrameReady(doc schema.DocumentID, scrolled bool, compositeNeeded bool) {
	if scrolled {
		_ = n.proxy.Send(NewScrollFrameReady{Document: doc, CompositeNeeded: compositeNeeded})
		return
	}
	n.WakeUp()
}
