package wire

// Buffer is the one reusable, elastic allocation the whole response path
// shares (spec §5 "Shared resources"). Every position into it is kept as an
// int offset rather than a slice, because Grow may reallocate the backing
// array - holding a []byte across a Grow call would alias stale memory
// (Design Note "Elastic buffer with live pointers").
type Buffer struct {
	data []byte
	len  int
}

// NewBuffer allocates a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of valid bytes currently stored.
func (b *Buffer) Len() int { return b.len }

// Cap returns the current backing capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the valid prefix of the buffer. The returned slice is only
// valid until the next Grow/Reset/Append call.
func (b *Buffer) Bytes() []byte { return b.data[:b.len] }

// At returns the byte at offset i.
func (b *Buffer) At(i int) byte { return b.data[i] }

// Slice returns data[from:to]. Only valid until the next mutation.
func (b *Buffer) Slice(from, to int) []byte { return b.data[from:to] }

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() { b.len = 0 }

// Grow ensures the backing array can hold at least n more bytes beyond the
// current length, growing by the given factor (HTTP mode wants x1.5, SVN
// mode wants power-of-two) and relocating atomically. Callers must have
// converted any retained position into an int offset beforehand, since the
// backing array identity may change here.
func (b *Buffer) Grow(n int, factor float64) {
	need := b.len + n
	if need <= len(b.data) {
		return
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = 4096
	}
	for newCap < need {
		newCap = int(float64(newCap) * factor)
		if newCap <= 0 {
			newCap = need
		}
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.len])
	b.data = grown
}

// Append writes p at the current end of the buffer, growing first if
// necessary, and advances the length.
func (b *Buffer) Append(p []byte, factor float64) {
	b.Grow(len(p), factor)
	copy(b.data[b.len:], p)
	b.len += len(p)
}

// Truncate discards everything from offset on, used once a response group
// has been fully consumed and copied out.
func (b *Buffer) Truncate(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > b.len {
		offset = b.len
	}
	b.len = offset
}

// Compact removes the first n bytes, shifting the remainder down to offset
// 0. Used to drop a consumed response group so the next read starts at a
// stable offset 0 again.
func (b *Buffer) Compact(n int) {
	if n <= 0 {
		return
	}
	if n >= b.len {
		b.len = 0
		return
	}
	copy(b.data, b.data[n:b.len])
	b.len -= n
}
