package main

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/bytelink/pkg/frame"
	fx "github.com/robotalks/bytelink/pkg/framework"
	"github.com/robotalks/bytelink/pkg/link"
)

// A call is two request packets, one per operand, answered by one packet
// with the product. Each packet holds an encoded Int32Value.

func writeInt32(p *frame.ReadWriter, v int32) error {
	data, err := proto.Marshal(&wrappers.Int32Value{Value: v})
	if err != nil {
		return err
	}
	return p.WritePacket(data)
}

func readInt32(p *frame.ReadWriter) (int32, error) {
	pkt, err := p.ReadPacket()
	if err != nil {
		return 0, err
	}
	var msg wrappers.Int32Value
	if err := proto.Unmarshal(pkt, &msg); err != nil {
		return 0, fmt.Errorf("decode operand: %w", err)
	}
	return msg.Value, nil
}

// Server answers multiply calls on a link.
type Server struct {
	Link link.TransportCloser
}

// Name implements fx.Named.
func (s *Server) Name() string {
	return "multiply-server"
}

// Run implements fx.Runnable. It serves until the link fails or ctx is
// canceled, which closes the link.
func (s *Server) Run(ctx context.Context) error {
	p := frame.New(s.Link)
	return fx.RunWithContextCloser(ctx, s.Link, func() error {
		for {
			a, err := readInt32(p)
			if err != nil {
				return err
			}
			b, err := readInt32(p)
			if err != nil {
				return err
			}
			result := a * b
			glog.Infof("server received: %d * %d = %d", a, b, result)
			if err := writeInt32(p, result); err != nil {
				return err
			}
		}
	})
}

// Client makes multiply calls on a link. Calls must not overlap.
type Client struct {
	p *frame.ReadWriter
}

// NewClient creates a Client.
func NewClient(t link.Transport) *Client {
	return &Client{p: frame.New(t)}
}

// Multiply sends a and b and waits for the product.
func (c *Client) Multiply(a, b int32) (int32, error) {
	if err := writeInt32(c.p, a); err != nil {
		return 0, err
	}
	if err := writeInt32(c.p, b); err != nil {
		return 0, err
	}
	return readInt32(c.p)
}
