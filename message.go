package asio

import "github.com/sockloop/asio/internal/queue"

// segment is one {pointer, length} scatter/gather descriptor, backed by a
// Go byte slice (which already carries pointer+length+cap; length is the
// slice's len, used directly rather than duplicating it).
type segment struct {
	data []byte
}

// Buffer is an ordered sequence of scatter/gather descriptors with
// partial-drain arithmetic, the Go analogue of a POSIX iovec array.
type Buffer struct {
	segs []segment
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// PushBack appends a descriptor covering b. b is referenced, not copied;
// callers must keep it alive and not mutate it concurrently with in-flight
// I/O.
func (m *Buffer) PushBack(b []byte) {
	if len(b) == 0 {
		return
	}
	m.segs = append(m.segs, segment{data: b})
}

// Advance drains the first n bytes across the sequence, front to back: a
// descriptor fully covered by the remaining count is dropped entirely
// (decrementing the count by its length); the descriptor straddling the
// boundary has its front trimmed and the operation stops. Advancing by more
// than the total length empties the buffer and sets no other state.
func (m *Buffer) Advance(n int) {
	i := 0
	for i < len(m.segs) && n > 0 {
		seg := &m.segs[i]
		if n >= len(seg.data) {
			n -= len(seg.data)
			i++
			continue
		}
		seg.data = seg.data[n:]
		n = 0
	}
	m.segs = m.segs[i:]
}

// Empty reports whether the buffer's total remaining length is zero; this
// is defined by total bytes, not descriptor count, so a buffer holding only
// zero-length descriptors (which PushBack never creates) would still count
// as empty.
func (m *Buffer) Empty() bool {
	return m.Total() == 0
}

// Total returns the sum of all descriptor lengths currently held.
func (m *Buffer) Total() int {
	total := 0
	for _, s := range m.segs {
		total += len(s.data)
	}
	return total
}

// Len returns the number of descriptors currently held.
func (m *Buffer) Len() int {
	return len(m.segs)
}

// Segments returns the raw [][]byte view suitable for a vectored
// sendmsg/recvmsg call. The returned slices alias the buffer's storage.
func (m *Buffer) Segments() [][]byte {
	out := make([][]byte, len(m.segs))
	for i, s := range m.segs {
		out[i] = s.data
	}
	return out
}

// NewPooledBuffer returns a Buffer backed by one bucketed pooled segment of
// at least size bytes, plus a release function the caller must invoke once
// done with the buffer (typically via defer). This is the scatter/gather
// analogue of a single get/put scratch allocation scoped to one recvmsg
// call, avoiding a fresh allocation per receive on the hot path.
func NewPooledBuffer(size uint32) (buf *Buffer, release func()) {
	scratch := queue.GetBuffer(size)
	buf = NewBuffer()
	buf.PushBack(scratch)
	return buf, func() { queue.PutBuffer(scratch) }
}

// Iterator returns a BufferIterator positioned at the first descriptor.
func (m *Buffer) Iterator() *BufferIterator {
	return &BufferIterator{buf: m, idx: 0}
}

// BufferIterator is a random-access proxy iterator over a Buffer's
// descriptors. Dereferencing it produces a freshly constructed byte-span
// view rather than a persistent pointer, matching the module's "proxy value
// type is a byte span" rule.
type BufferIterator struct {
	buf *Buffer
	idx int
}

// Valid reports whether the iterator currently refers to a descriptor.
func (it *BufferIterator) Valid() bool {
	return it.idx >= 0 && it.idx < len(it.buf.segs)
}

// Deref returns the byte-span view at the iterator's current position.
func (it *BufferIterator) Deref() []byte {
	return it.buf.segs[it.idx].data
}

// At returns the byte-span view n positions ahead of the iterator, without
// moving it (subscript is dereference of self+n).
func (it *BufferIterator) At(n int) []byte {
	return it.buf.segs[it.idx+n].data
}

// Next advances the iterator by one position.
func (it *BufferIterator) Next() {
	it.idx++
}

// Advance moves the iterator by n positions (may be negative).
func (it *BufferIterator) Advance(n int) {
	it.idx += n
}

// Distance returns the number of positions between it and other.
func (it *BufferIterator) Distance(other *BufferIterator) int {
	return other.idx - it.idx
}

// Compare orders two iterators over the same buffer by position.
func (it *BufferIterator) Compare(other *BufferIterator) int {
	switch {
	case it.idx < other.idx:
		return -1
	case it.idx > other.idx:
		return 1
	default:
		return 0
	}
}

// Message bundles an optional address, a scatter/gather Buffer, an
// ancillary/control byte sequence, and a flags field — the Go analogue of a
// platform msghdr, filled from owned storage rather than pointing directly
// into kernel structures.
type Message struct {
	Addr    *Address
	Buf     *Buffer
	Control []byte
	Flags   int
}

// NewMessage returns a Message with a fresh empty Buffer and no address.
func NewMessage() *Message {
	return &Message{Buf: NewBuffer()}
}
