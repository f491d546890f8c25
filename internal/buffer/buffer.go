package buffer

// Buffer is an append-only byte arena with a hard size cap. Values parsed out
// of the socket (request line tokens, header keys and values) are written here
// segment by segment, so they all live in one allocation and stay valid until
// the buffer is cleared for the next request.
type Buffer struct {
	memory []byte
	begin  int
	cap    int
}

func New(initial, max int) *Buffer {
	return &Buffer{
		memory: make([]byte, 0, initial),
		cap:    max,
	}
}

// Append writes data to the current segment. Returns false if the cap would
// be exceeded, leaving the buffer untouched.
func (b *Buffer) Append(data []byte) (ok bool) {
	if len(b.memory)+len(data) > b.cap {
		return false
	}

	b.memory = append(b.memory, data...)
	return true
}

// SegmentLength reports how many bytes the segment under construction holds.
func (b *Buffer) SegmentLength() int {
	return len(b.memory) - b.begin
}

// Trunc drops the last n bytes of the current segment. Completed segments are
// never affected.
func (b *Buffer) Trunc(n int) {
	if seglen := b.SegmentLength(); n > seglen {
		n = seglen
	}

	b.memory = b.memory[:len(b.memory)-n]
}

// Preview returns the segment under construction without completing it.
func (b *Buffer) Preview() []byte {
	return b.memory[b.begin:]
}

// Finish completes the current segment and returns it. The returned slice
// stays valid until Clear.
func (b *Buffer) Finish() []byte {
	segment := b.memory[b.begin:]
	b.begin = len(b.memory)

	return segment
}

// Clear resets the buffer for reuse. Segments handed out before the call must
// not be used afterwards.
func (b *Buffer) Clear() {
	b.begin = 0
	b.memory = b.memory[:0]
}
