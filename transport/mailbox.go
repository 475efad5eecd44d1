package transport

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/heatslab/heatslab/types"
)

// defaultMailboxDepth bounds rows buffered per sender. A neighbor can run at most
// one exchange ahead, so two slots per direction are always enough.
const defaultMailboxDepth = 4

// mailbox holds inbound halo rows of one endpoint, one FIFO per sending rank.
type mailbox struct {
	boxes *xsync.Map[int, chan types.HaloMessage]
	depth int
}

func newMailbox(depth int) *mailbox {
	if depth <= 0 {
		depth = defaultMailboxDepth
	}

	return &mailbox{boxes: xsync.NewMap[int, chan types.HaloMessage](), depth: depth}
}

func (m *mailbox) box(from int) chan types.HaloMessage {
	if ch, ok := m.boxes.Load(from); ok {
		return ch
	}
	ch, _ := m.boxes.LoadOrStore(from, make(chan types.HaloMessage, m.depth))

	return ch
}

// deliver queues msg, blocking while the sender's FIFO is full.
func (m *mailbox) deliver(ctx context.Context, abort *abortSignal, msg types.HaloMessage) error {
	select {
	case m.box(msg.From) <- msg:
		return nil
	case <-abort.done:
		return abort.wrap()
	case <-ctx.Done():
		return ctxError(ctx)
	}
}

// receive takes the next row from peer and copies it into buf after checking that
// it belongs to step and has the expected length.
func (m *mailbox) receive(ctx context.Context, abort *abortSignal, peer, step int, buf []float64) error {
	var msg types.HaloMessage
	select {
	case msg = <-m.box(peer):
	case <-abort.done:
		return abort.wrap()
	case <-ctx.Done():
		return ctxError(ctx)
	}

	if msg.Step != step {
		return fmt.Errorf("%w: row from rank %d is for step %d, expected %d",
			types.ErrHaloMismatch, peer, msg.Step, step)
	}
	if len(msg.Values) != len(buf) {
		return fmt.Errorf("%w: row from rank %d has %d values, expected %d",
			types.ErrHaloMismatch, peer, len(msg.Values), len(buf))
	}
	copy(buf, msg.Values)

	return nil
}
