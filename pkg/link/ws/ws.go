// Package ws carries a link over a websocket connection.
package ws

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/link/stream"
)

// DefaultOrigin is used when Dial is given no origin.
const DefaultOrigin = "http://localhost/"

// Dial connects to a websocket server. Frames are sent as binary and the
// receiving side sees a plain byte stream.
func Dial(url, origin string) (*stream.Transport, error) {
	if origin == "" {
		origin = DefaultOrigin
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, &link.ConfigError{Op: "ws dial " + url, Err: err}
	}
	return Wrap(conn), nil
}

// Wrap creates a Transport on an established connection, either dialed or
// accepted by a websocket.Handler.
func Wrap(conn *websocket.Conn) *stream.Transport {
	conn.PayloadType = websocket.BinaryFrame
	return stream.New(conn).Named("ws " + conn.RemoteAddr().String())
}
