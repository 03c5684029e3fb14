// Package serial provides a link over a host serial device configured for
// raw 8-bit passthrough.
package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/golang/glog"
	bugst "go.bug.st/serial"

	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/link/stream"
)

// DefaultBaud is used when no rate is configured.
const DefaultBaud = 115200

// Environment variables read by ConfigFromEnv.
const (
	EnvDevice = "BYTELINK_TTY"
	EnvBaud   = "BYTELINK_BAUD"
)

var (
	// ErrNoDevice indicates no device path was configured.
	ErrNoDevice = errors.New("serial device path is required")

	supportedBauds = map[int]bool{
		9600:   true,
		19200:  true,
		38400:  true,
		57600:  true,
		115200: true,
	}
)

// SupportedBauds lists the accepted rates in ascending order.
func SupportedBauds() []int {
	rates := make([]int, 0, len(supportedBauds))
	for rate := range supportedBauds {
		rates = append(rates, rate)
	}
	sort.Ints(rates)
	return rates
}

// Config describes the device to open.
type Config struct {
	Device string
	Baud   int
}

// ConfigFromEnv builds a Config from BYTELINK_TTY and BYTELINK_BAUD.
func ConfigFromEnv() (Config, error) {
	cfg := Config{Device: os.Getenv(EnvDevice), Baud: DefaultBaud}
	if val := os.Getenv(EnvBaud); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return cfg, &link.ConfigError{Op: "serial baud", Err: fmt.Errorf("invalid %s %q", EnvBaud, val)}
		}
		cfg.Baud = baud
	}
	return cfg, nil
}

// Mode validates the config and converts it to the mode passed to the
// device: 8 data bits, no parity, one stop bit. Unsupported rates are
// rejected.
func (c Config) Mode() (*bugst.Mode, error) {
	if c.Device == "" {
		return nil, &link.ConfigError{Op: "serial device", Err: ErrNoDevice}
	}
	baud := c.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	if !supportedBauds[baud] {
		return nil, &link.ConfigError{
			Op:  "serial baud",
			Err: fmt.Errorf("unsupported baud rate %d, expected one of %v", baud, SupportedBauds()),
		}
	}
	return &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}, nil
}

// Port is the subset of serial.Port used by the link.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Opener opens a device. It is replaced in tests.
type Opener func(path string, mode *bugst.Mode) (Port, error)

// OpenDevice is the default Opener. go.bug.st/serial configures the line
// in raw mode (no canonical input, echo, signals or output processing)
// with the receiver enabled, modem lines ignored and RTS/CTS disabled.
func OpenDevice(path string, mode *bugst.Mode) (Port, error) {
	return bugst.Open(path, mode)
}

// Transport implements link.Transport over a serial device. It owns the
// device exclusively.
type Transport struct {
	cfg  Config
	open Opener

	lock   sync.Mutex
	port   Port
	stream *stream.Transport
	closed bool
}

// New creates a Transport. The device is opened by Init.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg, open: OpenDevice}
}

// WithOpener replaces the function used to open the device.
func (t *Transport) WithOpener(open Opener) *Transport {
	t.open = open
	return t
}

// Config returns the configuration.
func (t *Transport) Config() Config {
	return t.cfg
}

// Init validates the configuration, opens the device and discards stale
// buffered bytes in both directions.
func (t *Transport) Init() error {
	mode, err := t.cfg.Mode()
	if err != nil {
		return err
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return link.ErrClosed
	}
	if t.port != nil {
		return nil
	}
	port, err := t.open(t.cfg.Device, mode)
	if err != nil {
		return &link.ConfigError{Op: "serial open " + t.cfg.Device, Err: err}
	}
	if err = port.ResetInputBuffer(); err == nil {
		err = port.ResetOutputBuffer()
	}
	if err != nil {
		port.Close()
		return &link.ConfigError{Op: "serial flush " + t.cfg.Device, Err: err}
	}
	t.port = port
	t.stream = stream.New(port).Named("serial " + t.cfg.Device)
	glog.V(2).Infof("serial %s opened at %d baud", t.cfg.Device, mode.BaudRate)
	return nil
}

func (t *Transport) current() (*stream.Transport, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil, link.ErrClosed
	}
	if t.stream == nil {
		return nil, link.ErrNotInitialized
	}
	return t.stream, nil
}

// Send implements link.Transport.
func (t *Transport) Send(p []byte) error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.Send(p)
}

// Receive implements link.Transport.
func (t *Transport) Receive(p []byte) error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.Receive(p)
}

// Close releases the device. It is safe to call more than once and before
// Init; the device is closed exactly once.
func (t *Transport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.stream != nil {
		return t.stream.Close()
	}
	return nil
}

// Stats implements link.StatsReporter.
func (t *Transport) Stats() link.StatsSnapshot {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stream == nil {
		return link.StatsSnapshot{}
	}
	return t.stream.Stats()
}
