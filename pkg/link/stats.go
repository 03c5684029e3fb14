package link

import "sync/atomic"

// Stats keeps transfer counters. The zero value is ready to use.
type Stats struct {
	bytesSent     uint64
	bytesReceived uint64
	sendWaits     uint64
	receiveWaits  uint64
	errors        uint64
	dropped       uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	BytesSent     uint64 // bytes accepted by the medium
	BytesReceived uint64 // bytes delivered to the caller
	SendWaits     uint64 // times Send waited for the medium
	ReceiveWaits  uint64 // times Receive waited for data
	Errors        uint64 // fatal transfer failures
	Dropped       uint64 // received bytes lost to overflow
}

// Sent records n bytes sent.
func (s *Stats) Sent(n int) {
	atomic.AddUint64(&s.bytesSent, uint64(n))
}

// Received records n bytes received.
func (s *Stats) Received(n int) {
	atomic.AddUint64(&s.bytesReceived, uint64(n))
}

// SendWait records Send waiting for space.
func (s *Stats) SendWait() {
	atomic.AddUint64(&s.sendWaits, 1)
}

// ReceiveWait records Receive waiting for data.
func (s *Stats) ReceiveWait() {
	atomic.AddUint64(&s.receiveWaits, 1)
}

// Fail records a fatal failure.
func (s *Stats) Fail() {
	atomic.AddUint64(&s.errors, 1)
}

// Drop records a received byte lost to overflow.
func (s *Stats) Drop() {
	atomic.AddUint64(&s.dropped, 1)
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesSent:     atomic.LoadUint64(&s.bytesSent),
		BytesReceived: atomic.LoadUint64(&s.bytesReceived),
		SendWaits:     atomic.LoadUint64(&s.sendWaits),
		ReceiveWaits:  atomic.LoadUint64(&s.receiveWaits),
		Errors:        atomic.LoadUint64(&s.errors),
		Dropped:       atomic.LoadUint64(&s.dropped),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.bytesSent, 0)
	atomic.StoreUint64(&s.bytesReceived, 0)
	atomic.StoreUint64(&s.sendWaits, 0)
	atomic.StoreUint64(&s.receiveWaits, 0)
	atomic.StoreUint64(&s.errors, 0)
	atomic.StoreUint64(&s.dropped, 0)
}
