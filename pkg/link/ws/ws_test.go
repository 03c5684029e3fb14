package ws

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/bytelink/pkg/link"
)

func echoServer(t *testing.T) string {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		tr := Wrap(conn)
		p := make([]byte, 4)
		for {
			if err := tr.Receive(p); err != nil {
				return
			}
			if err := tr.Send(p); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialEcho(t *testing.T) {
	tr, err := Dial(echoServer(t), "")
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.Init())
	// crosses the server's 4-byte receive boundary.
	require.NoError(t, tr.Send([]byte{1, 2, 3}))
	require.NoError(t, tr.Send([]byte{4, 5, 6, 7, 8}))
	got, err := link.ReceiveN(tr, 8)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestDialFailure(t *testing.T) {
	_, err := Dial("ws://127.0.0.1:1/nothing", "")
	require.True(t, link.IsConfigError(err))
}
