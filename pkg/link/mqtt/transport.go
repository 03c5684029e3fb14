// Package mqtt bridges a link through an MQTT broker, one topic per
// direction.
//
// Payloads are published with QoS 1, which is at-least-once: after an
// automatic reconnect the broker may redeliver a payload that was already
// received, and its bytes are then appended again. Ordering and loss-free
// delivery hold only within a single broker session.
package mqtt

import (
	"errors"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/link"
)

// Role selects which direction a Transport publishes.
type Role int

// Roles.
const (
	RoleA Role = iota
	RoleB
)

// Topics relative to the queue prefix.
const (
	TopicAToB = "a2b"
	TopicBToA = "b2a"
)

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleB {
		return "b"
	}
	return "a"
}

// ParseRole parses "a" or "b", case-insensitive. Empty means RoleA.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "", "a":
		return RoleA, nil
	case "b":
		return RoleB, nil
	}
	return RoleA, errors.New("invalid role " + s)
}

// Transport implements link.Transport over a Broker. Each Send is one
// message and received payloads are concatenated, so message boundaries
// are not preserved.
type Transport struct {
	PubTopic string
	SubTopic string

	broker Broker

	initLock sync.Mutex
	lock     sync.Mutex
	cond    *sync.Cond
	inbound []byte
	ready   bool
	closed  bool

	stats link.Stats
}

// New creates a Transport playing role on broker.
func New(broker Broker, role Role) *Transport {
	t := &Transport{broker: broker, PubTopic: TopicAToB, SubTopic: TopicBToA}
	if role == RoleB {
		t.PubTopic, t.SubTopic = TopicBToA, TopicAToB
	}
	t.cond = sync.NewCond(&t.lock)
	return t
}

// Init implements link.Transport.
func (t *Transport) Init() error {
	t.initLock.Lock()
	defer t.initLock.Unlock()
	t.lock.Lock()
	closed, ready := t.closed, t.ready
	t.lock.Unlock()
	if closed {
		return link.ErrClosed
	}
	if ready {
		return nil
	}
	// the broker may deliver messages before Subscribe returns, so t.lock
	// must not be held here.
	if err := t.broker.Connect(); err != nil {
		return &link.ConfigError{Op: "mqtt connect", Err: err}
	}
	if err := t.broker.Subscribe(t.SubTopic, t.onMessage); err != nil {
		t.broker.Close()
		return &link.ConfigError{Op: "mqtt subscribe " + t.SubTopic, Err: err}
	}
	t.lock.Lock()
	t.ready = true
	t.lock.Unlock()
	glog.V(2).Infof("mqtt ready pub=%s sub=%s", t.PubTopic, t.SubTopic)
	return nil
}

func (t *Transport) onMessage(topic string, payload []byte) {
	t.lock.Lock()
	if !t.closed {
		t.inbound = append(t.inbound, payload...)
	}
	t.lock.Unlock()
	t.cond.Broadcast()
}

func (t *Transport) check() error {
	if t.closed {
		return link.ErrClosed
	}
	if !t.ready {
		return link.ErrNotInitialized
	}
	return nil
}

// Send implements link.Transport.
func (t *Transport) Send(p []byte) error {
	t.lock.Lock()
	err := t.check()
	t.lock.Unlock()
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if err := t.broker.Publish(t.PubTopic, append([]byte(nil), p...)); err != nil {
		t.stats.Fail()
		glog.Warningf("mqtt publish failed: %v", err)
		return &link.MediumError{Op: "mqtt publish " + t.PubTopic, Err: err}
	}
	t.stats.Sent(len(p))
	link.Dump("[mqtt "+t.PubTopic+" TX]", p)
	return nil
}

// Receive implements link.Transport.
func (t *Transport) Receive(p []byte) error {
	t.lock.Lock()
	for t.check() == nil && len(t.inbound) < len(p) {
		t.stats.ReceiveWait()
		t.cond.Wait()
	}
	if err := t.check(); err != nil {
		t.lock.Unlock()
		return err
	}
	n := copy(p, t.inbound)
	t.inbound = append(t.inbound[:0], t.inbound[n:]...)
	t.lock.Unlock()
	t.stats.Received(len(p))
	link.Dump("[mqtt "+t.SubTopic+" RX]", p)
	return nil
}

// Close disconnects from the broker. Blocked and future calls fail with
// link.ErrClosed.
func (t *Transport) Close() error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.closed = true
	ready := t.ready
	t.inbound = nil
	t.lock.Unlock()
	t.cond.Broadcast()
	if ready {
		return t.broker.Close()
	}
	return nil
}

// Stats implements link.StatsReporter.
func (t *Transport) Stats() link.StatsSnapshot {
	return t.stats.Snapshot()
}
