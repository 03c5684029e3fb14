// Package uart provides a link over a microcontroller UART whose received
// bytes are delivered one at a time by an asynchronous notification.
package uart

import (
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/ring"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultBaud         = 115200
	DefaultRxCapacity   = 256
	DefaultPollInterval = time.Millisecond
)

// Driver is the peripheral below the link.
type Driver interface {
	// Configure sets up the peripheral and registers rx, which is called
	// once per received byte, possibly from interrupt context.
	Configure(baud uint32, rx func(byte)) error
	// Write hands bytes to the peripheral. It may accept fewer than len(p).
	Write(p []byte) (int, error)
}

// OverflowPolicy decides what happens to a received byte when the receive
// ring is full.
type OverflowPolicy int

// Overflow policies.
const (
	// OverflowOverwrite discards the oldest unread byte. Nothing is reported,
	// so sustained traffic faster than the consumer silently corrupts the
	// stream.
	OverflowOverwrite OverflowPolicy = iota
	// OverflowDrop discards the incoming byte and counts it in Stats.
	OverflowDrop
	// OverflowReport discards the incoming byte and fails the next Receive
	// with link.ErrOverflow.
	OverflowReport
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowOverwrite:
		return "overwrite"
	case OverflowDrop:
		return "drop"
	case OverflowReport:
		return "report"
	}
	return "unknown"
}

// ParseOverflowPolicy parses the String form of a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	for _, p := range []OverflowPolicy{OverflowOverwrite, OverflowDrop, OverflowReport} {
		if p.String() == s {
			return p, nil
		}
	}
	return OverflowOverwrite, errors.New("unknown overflow policy " + s)
}

// Config configures a Transport.
type Config struct {
	Baud         uint32
	RxCapacity   int
	Overflow     OverflowPolicy
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.RxCapacity < 2 {
		c.RxCapacity = DefaultRxCapacity
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Transport implements link.Transport over a Driver.
type Transport struct {
	drv Driver
	cfg Config

	lock       sync.Mutex
	rx         *ring.Buffer
	overflowed bool
	ready      bool

	stats link.Stats
}

// New creates a Transport. Init must be called before use.
func New(drv Driver, cfg Config) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		drv: drv,
		cfg: cfg,
		rx:  ring.New(cfg.RxCapacity),
	}
}

// Config returns the effective configuration.
func (t *Transport) Config() Config {
	return t.cfg
}

// Init implements link.Transport.
func (t *Transport) Init() error {
	t.lock.Lock()
	t.rx.Reset()
	t.overflowed = false
	t.ready = false
	t.lock.Unlock()
	if err := t.drv.Configure(t.cfg.Baud, t.onByte); err != nil {
		return &link.ConfigError{Op: "uart configure", Err: err}
	}
	t.lock.Lock()
	t.ready = true
	t.lock.Unlock()
	glog.V(2).Infof("uart ready baud=%d rx=%d overflow=%s", t.cfg.Baud, t.cfg.RxCapacity, t.cfg.Overflow)
	return nil
}

func (t *Transport) onByte(c byte) {
	t.lock.Lock()
	defer t.lock.Unlock()
	switch t.cfg.Overflow {
	case OverflowOverwrite:
		if t.rx.Overwrite(c) {
			t.stats.Drop()
		}
	default:
		if !t.rx.Put(c) {
			t.stats.Drop()
			t.overflowed = true
		}
	}
}

func (t *Transport) initialized() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.ready
}

// Send implements link.Transport.
func (t *Transport) Send(p []byte) error {
	if !t.initialized() {
		return link.ErrNotInitialized
	}
	for sent := 0; sent < len(p); {
		n, err := t.drv.Write(p[sent:])
		if err != nil {
			t.stats.Fail()
			glog.Warningf("uart write failed: %v", err)
			return &link.MediumError{Op: "uart write", Err: err}
		}
		if n <= 0 {
			t.stats.SendWait()
			time.Sleep(t.cfg.PollInterval)
			continue
		}
		sent += n
	}
	t.stats.Sent(len(p))
	link.Dump("[uart TX]", p)
	return nil
}

// Receive implements link.Transport.
func (t *Transport) Receive(p []byte) error {
	for got := 0; got < len(p); {
		t.lock.Lock()
		if !t.ready {
			t.lock.Unlock()
			return link.ErrNotInitialized
		}
		if t.overflowed && t.cfg.Overflow == OverflowReport {
			t.overflowed = false
			t.lock.Unlock()
			return link.ErrOverflow
		}
		n := t.rx.Read(p[got:])
		t.lock.Unlock()
		if n == 0 {
			t.stats.ReceiveWait()
			time.Sleep(t.cfg.PollInterval)
			continue
		}
		got += n
	}
	t.stats.Received(len(p))
	link.Dump("[uart RX]", p)
	return nil
}

// Buffered returns the number of received bytes not yet consumed.
func (t *Transport) Buffered() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rx.Available()
}

// Stats implements link.StatsReporter.
func (t *Transport) Stats() link.StatsSnapshot {
	return t.stats.Snapshot()
}
