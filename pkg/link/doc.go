// Package link defines the byte transport contract used below the RPC
// framing layer.
//
// A link moves raw bytes between exactly two endpoints. Both directions are
// total-transfer: Send returns once every byte is accepted by the medium and
// Receive returns once the requested count has arrived. Nothing is framed or
// interpreted at this layer.
//
// Implementations:
//
//	loopback - two endpoints in one process over shared ring buffers
//	uart     - microcontroller UART fed by a per-byte receive notification
//	serial   - host serial device in raw mode
//	stream   - any io.ReadWriter, including stdio
//	mqtt, ws - bridged links through a broker or a websocket
package link
