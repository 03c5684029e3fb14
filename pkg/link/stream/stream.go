// Package stream provides total-transfer send and receive over an
// io.ReadWriter such as a character device, a pipe or stdio.
package stream

import (
	"io"
	"os"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/link"
)

// Transport implements link.Transport over an io.ReadWriter.
// A zero-progress read or write is a medium failure, never retried.
type Transport struct {
	rw   io.ReadWriter
	name string

	closeOnce sync.Once
	closeErr  error

	stats link.Stats
}

// New wraps rw. If rw is also an io.Closer, Close closes it.
func New(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw, name: "stream"}
}

// Named sets the name used in logs.
func (t *Transport) Named(name string) *Transport {
	t.name = name
	return t
}

type stdio struct {
	io.Reader
	io.Writer
}

// Stdio creates a Transport over standard input and output. Close leaves
// them open.
func Stdio() *Transport {
	return New(stdio{Reader: os.Stdin, Writer: os.Stdout}).Named("stdio")
}

// Init implements link.Transport.
func (t *Transport) Init() error {
	if t.rw == nil {
		return &link.ConfigError{Op: t.name, Err: io.ErrClosedPipe}
	}
	return nil
}

// Send implements link.Transport.
func (t *Transport) Send(p []byte) error {
	for sent := 0; sent < len(p); {
		n, err := t.rw.Write(p[sent:])
		if n > 0 {
			sent += n
		}
		if sent < len(p) && (err != nil || n <= 0) {
			return t.fail("write", err)
		}
	}
	t.stats.Sent(len(p))
	link.Dump("["+t.name+" TX]", p)
	return nil
}

// Receive implements link.Transport.
func (t *Transport) Receive(p []byte) error {
	for got := 0; got < len(p); {
		n, err := t.rw.Read(p[got:])
		if n > 0 {
			got += n
		}
		if got < len(p) && (err != nil || n <= 0) {
			if err == nil {
				err = io.EOF
			}
			return t.fail("read", err)
		}
	}
	t.stats.Received(len(p))
	link.Dump("["+t.name+" RX]", p)
	return nil
}

func (t *Transport) fail(op string, err error) error {
	if err == nil {
		err = link.ErrNoProgress
	}
	t.stats.Fail()
	glog.Warningf("%s %s failed: %v", t.name, op, err)
	return &link.MediumError{Op: t.name + " " + op, Err: err}
}

// Close closes the underlying stream once. Later calls return the result
// of the first.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		if closer, ok := t.rw.(io.Closer); ok {
			t.closeErr = closer.Close()
		}
		glog.V(2).Infof("%s closed", t.name)
	})
	return t.closeErr
}

// Stats implements link.StatsReporter.
func (t *Transport) Stats() link.StatsSnapshot {
	return t.stats.Snapshot()
}
