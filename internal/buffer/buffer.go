// Package buffer provides the growable byte buffer used by the conversion layer.
//
// Hints:
//   - Any index parameter can be negative, meaning "count from end" (-1 is the last byte).
//   - AppendRepeat with a negative count deletes from the end.
//   - Slices returned by Bytes, Reserve and Terminated are invalidated by the next modification.
//   - One 0x00 byte always follows the live data.
//   - Removing from the front and clearing are O(1).
package buffer

import (
	"bytes"
	"fmt"
)

const localSize = 64

// Buffer is a byte container with a consumed prefix, live data and spare capacity.
// A Buffer must not be copied after first use.
type Buffer struct {
	local [localSize]byte
	buf   []byte
	offs  int
	n     int
}

// New returns an empty buffer.
func New() *Buffer {
	b := &Buffer{}
	b.init(nil, 0)
	return b
}

// NewSize returns an empty buffer with room for at least size bytes.
func NewSize(size int) *Buffer {
	b := &Buffer{}
	b.init(nil, size)
	return b
}

// NewBytes returns a buffer holding a copy of p.
func NewBytes(p []byte) *Buffer {
	b := &Buffer{}
	b.init(p, len(p))
	return b
}

// NewString returns a buffer holding s.
func NewString(s string) *Buffer {
	return NewBytes([]byte(s))
}

func (b *Buffer) init(p []byte, minsize int) {
	b.offs = 0
	b.n = 0
	if minsize < len(p) {
		minsize = len(p)
	}
	if minsize < localSize {
		b.local = [localSize]byte{}
		b.buf = b.local[:]
	} else {
		b.buf = make([]byte, growSize(localSize, minsize+1))
	}
	if len(p) > 0 {
		copy(b.buf, p)
		b.n = len(p)
	}
	b.buf[b.n] = 0
}

func (b *Buffer) ensureInit() {
	if b.buf == nil {
		b.init(nil, 0)
	}
}

// growSize doubles from cur until more than minsize bytes fit.
func growSize(cur, minsize int) int {
	if cur < localSize {
		cur = localSize
	}
	for cur <= minsize {
		cur *= 2
	}
	return cur
}

// check guarantees room for size more bytes plus the terminator.
func (b *Buffer) check(size int) {
	b.ensureInit()
	if b.offs+b.n+size >= len(b.buf) {
		b.grow(b.n + size)
	}
}

// grow makes space for minsize bytes plus the terminator. When the consumed
// prefix alone frees enough room the live data is moved to the front,
// otherwise a larger array is allocated. Capacity never shrinks.
func (b *Buffer) grow(minsize int) {
	if minsize < len(b.buf) {
		copy(b.buf, b.buf[b.offs:b.offs+b.n])
		clear(b.buf[b.n:])
		b.offs = 0
		return
	}
	next := make([]byte, growSize(len(b.buf), minsize))
	copy(next, b.buf[b.offs:b.offs+b.n])
	b.buf = next
	b.offs = 0
}

func (b *Buffer) terminate() {
	b.buf[b.offs+b.n] = 0
}

// index converts a possibly negative index to an offset into the live data.
func (b *Buffer) index(i int) int {
	if i < 0 {
		return i + b.n
	}
	return i
}

// Len returns the live data length.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the largest live length that fits without reallocation.
func (b *Buffer) Cap() int {
	b.ensureInit()
	return len(b.buf) - 1
}

// Empty reports whether the buffer holds no live data.
func (b *Buffer) Empty() bool {
	return b.n == 0
}

// Bytes returns the live data.
func (b *Buffer) Bytes() []byte {
	b.ensureInit()
	return b.buf[b.offs : b.offs+b.n : b.offs+b.n]
}

// Terminated returns the live data followed by the 0x00 terminator.
func (b *Buffer) Terminated() []byte {
	b.ensureInit()
	return b.buf[b.offs : b.offs+b.n+1 : b.offs+b.n+1]
}

// From returns the live data starting at index i.
func (b *Buffer) From(i int) []byte {
	return b.Bytes()[b.index(i):]
}

func (b *Buffer) String() string {
	return string(b.Bytes())
}

// At returns the byte at index i. Indexes outside [-Len, Len] panic; At(Len) is the terminator.
func (b *Buffer) At(i int) byte {
	b.ensureInit()
	i = b.index(i)
	if i < 0 || i > b.n {
		panic(fmt.Sprintf("buffer: index %d out of range [0:%d]", i, b.n))
	}
	return b.buf[b.offs+i]
}

// SetAt overwrites the byte at index i.
func (b *Buffer) SetAt(i int, c byte) {
	b.Bytes()[b.index(i)] = c
}

// Clear sets the length to 0 without releasing or blanking memory.
func (b *Buffer) Clear() *Buffer {
	b.ensureInit()
	b.offs += b.n
	b.n = 0
	return b
}

// Reserve appends size bytes and returns them for the caller to fill.
func (b *Buffer) Reserve(size int) []byte {
	b.check(size)
	p := b.buf[b.offs+b.n : b.offs+b.n+size : b.offs+b.n+size]
	b.n += size
	b.terminate()
	return p
}

// AppendByte appends one byte.
func (b *Buffer) AppendByte(c byte) *Buffer {
	b.check(1)
	b.buf[b.offs+b.n] = c
	b.n++
	b.terminate()
	return b
}

// AppendRepeat appends count copies of c. A negative count truncates -count bytes from the end.
func (b *Buffer) AppendRepeat(c byte, count int) *Buffer {
	if count < 0 {
		return b.Truncate(count)
	}
	b.check(count)
	region := b.buf[b.offs+b.n : b.offs+b.n+count]
	for i := range region {
		region[i] = c
	}
	b.n += count
	b.terminate()
	return b
}

// Append appends p.
func (b *Buffer) Append(p []byte) *Buffer {
	b.check(len(p))
	copy(b.buf[b.offs+b.n:], p)
	b.n += len(p)
	b.terminate()
	return b
}

// AppendString appends s.
func (b *Buffer) AppendString(s string) *Buffer {
	b.check(len(s))
	copy(b.buf[b.offs+b.n:], s)
	b.n += len(s)
	b.terminate()
	return b
}

// AppendBuffer appends the live data of other.
func (b *Buffer) AppendBuffer(other *Buffer) *Buffer {
	return b.Append(other.Bytes())
}

// Set replaces the content with p.
func (b *Buffer) Set(p []byte) *Buffer {
	b.Clear()
	return b.Append(p)
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	b.AppendByte(c)
	return nil
}

// WriteString implements io.StringWriter.
func (b *Buffer) WriteString(s string) (int, error) {
	b.AppendString(s)
	return len(s), nil
}

// Printf appends formatted text.
func (b *Buffer) Printf(format string, args ...any) *Buffer {
	fmt.Fprintf(b, format, args...)
	return b
}

// Replace deletes length bytes at pos and inserts p there. A negative length
// removes bytes before pos. The range is clamped to the live data.
func (b *Buffer) Replace(pos, length int, p []byte) *Buffer {
	b.ensureInit()
	pos = b.index(pos)
	if length < 0 {
		pos += length
		length = -length
	}
	if pos < 0 {
		length += pos
		pos = 0
	}
	if pos > b.n {
		pos = b.n
	}
	if length < 0 {
		length = 0
	}
	if length > b.n-pos {
		length = b.n - pos
	}

	if len(p) > 0 {
		// p may alias the live data that is about to move
		p = bytes.Clone(p)
	}
	newLen := b.n + len(p) - length
	if b.offs+newLen >= len(b.buf) {
		b.grow(newLen)
	}

	start := b.offs + pos
	tail := b.buf[start+length : b.offs+b.n]
	copy(b.buf[start+len(p):], tail)
	copy(b.buf[start:], p)
	if newLen < b.n {
		clear(b.buf[b.offs+newLen : b.offs+b.n])
	}
	b.n = newLen
	b.terminate()
	return b
}

// Insert inserts p at pos.
func (b *Buffer) Insert(pos int, p []byte) *Buffer {
	return b.Replace(pos, 0, p)
}

// Remove deletes length bytes at pos.
func (b *Buffer) Remove(pos, length int) *Buffer {
	return b.Replace(pos, length, nil)
}

// RemoveFront drops the first n bytes by advancing the offset.
func (b *Buffer) RemoveFront(n int) *Buffer {
	if n > b.n {
		n = b.n
	}
	if n < 0 {
		n = 0
	}
	b.offs += n
	b.n -= n
	return b
}

// Truncate deletes everything from pos to the end.
func (b *Buffer) Truncate(pos int) *Buffer {
	b.ensureInit()
	pos = b.index(pos)
	if pos < 0 {
		pos = 0
	}
	if pos >= b.n {
		return b
	}
	clear(b.buf[b.offs+pos : b.offs+b.n])
	b.n = pos
	return b
}

// FindByte returns the index of c at or after start, or -1.
func (b *Buffer) FindByte(c byte, start int) int {
	start = b.index(start)
	if start < 0 || start >= b.n {
		return -1
	}
	i := bytes.IndexByte(b.Bytes()[start:], c)
	if i < 0 {
		return -1
	}
	return start + i
}

// Find returns the index of needle at or after start, or -1.
func (b *Buffer) Find(needle []byte, start int) int {
	start = b.index(start)
	if start < 0 || start > b.n {
		return -1
	}
	i := bytes.Index(b.Bytes()[start:], needle)
	if i < 0 {
		return -1
	}
	return start + i
}

// HasPrefix reports whether the live data starts with p.
func (b *Buffer) HasPrefix(p []byte) bool {
	return bytes.HasPrefix(b.Bytes(), p)
}

// Expand renders length bytes from start with non-printable bytes as <xx>.
func (b *Buffer) Expand(start, length int) string {
	start = b.index(start)
	if start < 0 {
		start = 0
	}
	end := start + length
	if length < 0 || end > b.n {
		end = b.n
	}
	if start >= end {
		return ""
	}
	return Expand(b.Bytes()[start:end])
}

// Expand renders p with non-printable bytes as <xx>.
func Expand(p []byte) string {
	var out bytes.Buffer
	for _, c := range p {
		if c < 0x20 || c >= 0x7f || c == '<' || c == '>' {
			fmt.Fprintf(&out, "<%02x>", c)
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}
