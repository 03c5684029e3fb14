package link

import "io"

// Transport is the contract the framing layer depends on.
type Transport interface {
	// Init performs one-time setup and must be called before Send or Receive.
	Init() error
	// Send blocks until all of p has been accepted by the medium.
	Send(p []byte) error
	// Receive blocks until len(p) bytes have arrived and fills p.
	Receive(p []byte) error
}

// TransportCloser is a Transport which can be torn down. Close unblocks
// pending calls where the medium allows it.
type TransportCloser interface {
	Transport
	io.Closer
}

// StatsReporter is implemented by transports keeping transfer counters.
type StatsReporter interface {
	Stats() StatsSnapshot
}

// ReceiveN receives exactly n bytes.
func ReceiveN(t Transport, n int) ([]byte, error) {
	p := make([]byte, n)
	if err := t.Receive(p); err != nil {
		return nil, err
	}
	return p, nil
}
