// Package ring provides a fixed-capacity circular byte buffer.
package ring

// Buffer is a single-producer/single-consumer circular byte buffer.
//
// One slot is always kept free to tell a full buffer from an empty one, so a
// Buffer of capacity C stores at most C-1 bytes. Buffer has no lock of its
// own: the owner must serialize access.
type Buffer struct {
	buf  []byte
	head int // next write position
	tail int // next read position
}

// New creates a Buffer with the given capacity, which must be at least 2.
func New(capacity int) *Buffer {
	if capacity < 2 {
		panic("ring: capacity must be at least 2")
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// Capacity returns the size of the backing storage.
func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Available returns the number of unread bytes.
func (b *Buffer) Available() int {
	c := len(b.buf)
	return (b.head - b.tail + c) % c
}

// Free returns the number of bytes that can be written without overwriting.
func (b *Buffer) Free() int {
	return len(b.buf) - 1 - b.Available()
}

// Empty reports whether there is nothing to read.
func (b *Buffer) Empty() bool {
	return b.head == b.tail
}

// Write copies as many bytes of p as fit into the free space and returns the
// count copied. It never overwrites unread data.
func (b *Buffer) Write(p []byte) int {
	n := b.Free()
	if n > len(p) {
		n = len(p)
	}
	// at most two contiguous copies: up to the end of storage, then from 0.
	first := copy(b.buf[b.head:], p[:n])
	copy(b.buf, p[first:n])
	b.head = (b.head + n) % len(b.buf)
	return n
}

// Read copies up to len(p) unread bytes into p and returns the count copied.
func (b *Buffer) Read(p []byte) int {
	n := b.Available()
	if n > len(p) {
		n = len(p)
	}
	end := b.tail + n
	if end <= len(b.buf) {
		copy(p, b.buf[b.tail:end])
	} else {
		first := copy(p, b.buf[b.tail:])
		copy(p[first:n], b.buf[:n-first])
	}
	b.tail = (b.tail + n) % len(b.buf)
	return n
}

// Put stores a single byte. It returns false if the buffer is full.
func (b *Buffer) Put(c byte) bool {
	next := (b.head + 1) % len(b.buf)
	if next == b.tail {
		return false
	}
	b.buf[b.head] = c
	b.head = next
	return true
}

// Get removes and returns the oldest byte. ok is false if the buffer is empty.
func (b *Buffer) Get() (c byte, ok bool) {
	if b.head == b.tail {
		return 0, false
	}
	c = b.buf[b.tail]
	b.tail = (b.tail + 1) % len(b.buf)
	return c, true
}

// Overwrite stores a single byte, discarding the oldest unread byte when the
// buffer is full. It reports whether a byte was discarded.
func (b *Buffer) Overwrite(c byte) (dropped bool) {
	if !b.Put(c) {
		b.tail = (b.tail + 1) % len(b.buf)
		dropped = true
		b.Put(c)
	}
	return
}

// Reset discards all unread bytes.
func (b *Buffer) Reset() {
	b.head, b.tail = 0, 0
}
