// Package frame exchanges length-prefixed packets over a link.
//
// Each packet is prefixed by a 4-byte little-endian length.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/robotalks/bytelink/pkg/link"
)

// DefaultMaxSize is the largest packet accepted unless configured otherwise.
const DefaultMaxSize = 64 * 1024

// SizeError indicates a packet exceeding the maximum size. On receive the
// link is out of sync afterwards.
type SizeError struct {
	Size, Max uint32
}

// Error implements error.
func (e *SizeError) Error() string {
	return fmt.Sprintf("packet size %d exceeds %d", e.Size, e.Max)
}

// ReadWriter reads and writes packets on a link.Transport.
type ReadWriter struct {
	Link    link.Transport
	MaxSize uint32
}

// New creates a ReadWriter with DefaultMaxSize.
func New(t link.Transport) *ReadWriter {
	return &ReadWriter{Link: t, MaxSize: DefaultMaxSize}
}

// WritePacket sends pkt with its length prefix.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	size := uint32(len(pkt))
	if p.MaxSize > 0 && size > p.MaxSize {
		return &SizeError{Size: size, Max: p.MaxSize}
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], size)
	if err := p.Link.Send(hdr[:]); err != nil {
		return err
	}
	return p.Link.Send(pkt)
}

// ReadPacket receives one packet.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var hdr [4]byte
	if err := p.Link.Receive(hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if p.MaxSize > 0 && size > p.MaxSize {
		return nil, &SizeError{Size: size, Max: p.MaxSize}
	}
	pkt := make([]byte, size)
	if err := p.Link.Receive(pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}
