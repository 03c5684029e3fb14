// Package loopback provides an in-process link between two endpoints
// sharing a pair of ring buffers.
package loopback

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/ring"
)

// DefaultCapacity is the ring capacity used when none is specified.
const DefaultCapacity = 2048

// Role selects which side of the Shared state an Endpoint plays.
type Role int

// Roles.
const (
	RoleA Role = iota
	RoleB
)

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleB {
		return "B"
	}
	return "A"
}

// direction is one half of the wire. cond is bound to Shared.lock and is
// broadcast whenever data is written or drained.
type direction struct {
	ring *ring.Buffer
	cond *sync.Cond
}

// Shared holds both directions under a single lock.
type Shared struct {
	lock   sync.Mutex
	a2b    direction
	b2a    direction
	closed bool

	endpoints [2]*Endpoint
}

// NewShared creates the shared state with rings of the given capacity.
// A capacity below 2 selects DefaultCapacity.
func NewShared(capacity int) *Shared {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	s := &Shared{}
	s.a2b = direction{ring: ring.New(capacity), cond: sync.NewCond(&s.lock)}
	s.b2a = direction{ring: ring.New(capacity), cond: sync.NewCond(&s.lock)}
	s.endpoints[RoleA] = &Endpoint{shared: s, role: RoleA}
	s.endpoints[RoleB] = &Endpoint{shared: s, role: RoleB}
	return s
}

// NewPair creates a new Shared state and returns both of its endpoints.
func NewPair(capacity int) (a, b *Endpoint) {
	s := NewShared(capacity)
	return s.Endpoint(RoleA), s.Endpoint(RoleB)
}

// Endpoint returns the endpoint playing role.
func (s *Shared) Endpoint(role Role) *Endpoint {
	return s.endpoints[role&1]
}

// Capacity returns the ring capacity of each direction.
func (s *Shared) Capacity() int {
	return s.a2b.ring.Capacity()
}

// Close tears down both endpoints. Blocked and future calls fail with
// link.ErrClosed.
func (s *Shared) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	s.a2b.cond.Broadcast()
	s.b2a.cond.Broadcast()
	glog.V(2).Info("loopback closed")
	return nil
}

// Endpoint is one side of a loopback link. It owns no buffer memory.
type Endpoint struct {
	shared *Shared
	role   Role
	stats  link.Stats
}

// Role returns the role of the endpoint.
func (e *Endpoint) Role() Role {
	return e.role
}

// Peer returns the endpoint on the other side.
func (e *Endpoint) Peer() *Endpoint {
	return e.shared.Endpoint(e.role ^ 1)
}

// Shared returns the state shared with the peer.
func (e *Endpoint) Shared() *Shared {
	return e.shared
}

// Init implements link.Transport.
func (e *Endpoint) Init() error {
	return nil
}

func (e *Endpoint) outbound() *direction {
	if e.role == RoleB {
		return &e.shared.b2a
	}
	return &e.shared.a2b
}

func (e *Endpoint) inbound() *direction {
	if e.role == RoleB {
		return &e.shared.a2b
	}
	return &e.shared.b2a
}

// Send implements link.Transport.
func (e *Endpoint) Send(p []byte) error {
	out := e.outbound()
	sent := 0
	for sent < len(p) {
		e.shared.lock.Lock()
		for !e.shared.closed && out.ring.Free() == 0 {
			e.stats.SendWait()
			out.cond.Wait()
		}
		if e.shared.closed {
			e.shared.lock.Unlock()
			return link.ErrClosed
		}
		n := out.ring.Write(p[sent:])
		e.shared.lock.Unlock()
		out.cond.Broadcast()
		sent += n
	}
	e.stats.Sent(len(p))
	link.Dump("[loopback "+e.role.String()+" TX]", p)
	return nil
}

// Receive implements link.Transport.
func (e *Endpoint) Receive(p []byte) error {
	in := e.inbound()
	got := 0
	for got < len(p) {
		e.shared.lock.Lock()
		for !e.shared.closed && in.ring.Empty() {
			e.stats.ReceiveWait()
			in.cond.Wait()
		}
		if e.shared.closed {
			e.shared.lock.Unlock()
			return link.ErrClosed
		}
		n := in.ring.Read(p[got:])
		e.shared.lock.Unlock()
		in.cond.Broadcast()
		got += n
	}
	e.stats.Received(len(p))
	link.Dump("[loopback "+e.role.String()+" RX]", p)
	return nil
}

// Close implements io.Closer by tearing down the shared state.
func (e *Endpoint) Close() error {
	return e.shared.Close()
}

// Stats implements link.StatsReporter.
func (e *Endpoint) Stats() link.StatsSnapshot {
	return e.stats.Snapshot()
}
