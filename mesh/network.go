package mesh

import "sync"

// Network is a site's point-to-point message transport.
//
// Delivery is lossless and order-preserving from any single sender to any
// single receiver; no ordering is assumed across senders. Sends are
// non-blocking on the in-process Fabric; a bounded transport
// may block in SendTo and SendToWhere, and those are then the only
// permitted suspension points besides the engine's idle sleep.
type Network interface {
	// SendTo enqueues one copy of msg to peer sid.
	SendTo(msg Msg, sid SiteId) error

	// SendToWhere enqueues one copy of msg to every peer for which pred
	// returns true. pred is invoked at most once per peer. An error means
	// transport failure, not predicate rejection.
	SendToWhere(msg Msg, pred func(sid SiteId) bool) error

	// TryRecv dequeues one pending message from this site's inbox without
	// blocking. ok is false when the inbox is empty.
	TryRecv() (msg Msg, ok bool)
}

// inbox is an unbounded FIFO queue of messages, the in-process stand-in
// for an unbounded channel. Senders append under the lock;
// the owning site pops from the front.
type inbox struct {
	mu     sync.Mutex
	queue  []Msg
	closed bool
}

func (b *inbox) push(m Msg) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrFabricClosed
	}
	b.queue = append(b.queue, m)
	return nil
}

func (b *inbox) pop() (Msg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	m := b.queue[0]
	b.queue = b.queue[1:]
	return m, true
}

func (b *inbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Fabric is the in-process message transport connecting a fixed fleet:
// one unbounded inbox per site, fully connected. No serialization is
// involved; messages pass as in-memory values.
//
// Create one Fabric per fleet with NewFabric, then hand each site its
// Endpoint.
type Fabric struct {
	inboxes map[SiteId]*inbox
	sids    []SiteId // deterministic send fan-out order
}

// NewFabric creates a fabric connecting the given sites. Membership is
// fixed for the fabric's lifetime.
//
// Fan-out order for SendToWhere follows the order of sids, so callers
// that want reproducible runs should pass a stable ordering.
func NewFabric(sids []SiteId) *Fabric {
	f := &Fabric{
		inboxes: make(map[SiteId]*inbox, len(sids)),
		sids:    append([]SiteId(nil), sids...),
	}
	for _, sid := range sids {
		f.inboxes[sid] = &inbox{}
	}
	return f
}

// Endpoint returns the per-site view of the fabric for sid.
func (f *Fabric) Endpoint(sid SiteId) *Endpoint {
	return &Endpoint{fabric: f, self: sid}
}

// Close shuts the fabric down; subsequent sends fail with
// ErrFabricClosed. Pending messages remain receivable.
func (f *Fabric) Close() {
	for _, box := range f.inboxes {
		box.close()
	}
}

// Endpoint is one site's handle on a Fabric. It implements Network.
type Endpoint struct {
	fabric *Fabric
	self   SiteId
}

// SendTo implements Network.
func (e *Endpoint) SendTo(msg Msg, sid SiteId) error {
	box, ok := e.fabric.inboxes[sid]
	if !ok {
		return ErrUnknownPeer
	}
	return box.push(msg)
}

// SendToWhere implements Network.
func (e *Endpoint) SendToWhere(msg Msg, pred func(sid SiteId) bool) error {
	for _, sid := range e.fabric.sids {
		if !pred(sid) {
			continue
		}
		if err := e.fabric.inboxes[sid].push(msg); err != nil {
			return err
		}
	}
	return nil
}

// TryRecv implements Network.
func (e *Endpoint) TryRecv() (Msg, bool) {
	return e.fabric.inboxes[e.self].pop()
}
