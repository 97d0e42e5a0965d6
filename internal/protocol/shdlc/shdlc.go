// Package shdlc implements the byte-stuffed, checksummed link layer used by
// SHDLC sensors.
//
// Request frame (host to device), before stuffing:
//
//	7E  ADDR  CMD  LEN  DATA[0..LEN)  CHK  7E
//
// Response frame (device to host), before stuffing:
//
//	7E  ADDR  CMD  STATE  LEN  DATA[0..LEN)  CHK  7E
//
// CHK is the one's complement of the 8-bit sum of every byte between the
// delimiters except CHK itself. Every byte between the delimiters is stuffed.
package shdlc

import (
	"errors"
	"fmt"
)

const (
	Delimiter byte = 0x7E
	Escape    byte = 0x7D
	XON       byte = 0x11
	XOFF      byte = 0x13

	// MaxData is the largest payload a LEN byte can announce.
	MaxData = 255
)

var (
	ErrShortFrame    = errors.New("shdlc: short frame")
	ErrInvalidEscape = errors.New("shdlc: invalid escape sequence")
	ErrDataTooLarge  = errors.New("shdlc: data too large")
	ErrDelimiter     = errors.New("shdlc: missing frame delimiter")
	ErrChecksum      = errors.New("shdlc: checksum mismatch")
)

// stuffed maps a reserved byte to its escaped second byte.
func stuffed(c byte) (byte, bool) {
	switch c {
	case Delimiter:
		return 0x5E, true
	case Escape:
		return 0x5D, true
	case XON:
		return 0x31, true
	case XOFF:
		return 0x33, true
	}
	return 0, false
}

func unstuffed(c byte) (byte, bool) {
	switch c {
	case 0x5E:
		return Delimiter, true
	case 0x5D:
		return Escape, true
	case 0x31:
		return XON, true
	case 0x33:
		return XOFF, true
	}
	return 0, false
}

// AppendStuffed appends c to dst, escaping it when reserved.
func AppendStuffed(dst []byte, c byte) []byte {
	if e, ok := stuffed(c); ok {
		return append(dst, Escape, e)
	}
	return append(dst, c)
}

// Stuff appends the escaped form of src to dst.
func Stuff(dst, src []byte) []byte {
	for _, c := range src {
		dst = AppendStuffed(dst, c)
	}
	return dst
}

// Unstuff reverses Stuff.
func Unstuff(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	c := NewCursor(src)
	for !c.Done() {
		b, err := c.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Checksum returns the one's complement of the 8-bit sum of p.
func Checksum(p []byte) byte {
	var sum byte
	for _, c := range p {
		sum += c
	}
	return ^sum
}

// AppendRequest appends a complete stuffed request frame to dst.
func AppendRequest(dst []byte, addr, cmd byte, data []byte) ([]byte, error) {
	if len(data) > MaxData {
		return dst, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(data))
	}
	logical := make([]byte, 0, 3+len(data))
	logical = append(logical, addr, cmd, byte(len(data)))
	logical = append(logical, data...)
	return appendFrame(dst, logical), nil
}

// AppendResponse appends a complete stuffed response frame to dst.
func AppendResponse(dst []byte, addr, cmd, state byte, data []byte) ([]byte, error) {
	if len(data) > MaxData {
		return dst, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(data))
	}
	logical := make([]byte, 0, 4+len(data))
	logical = append(logical, addr, cmd, state, byte(len(data)))
	logical = append(logical, data...)
	return appendFrame(dst, logical), nil
}

func appendFrame(dst, logical []byte) []byte {
	dst = append(dst, Delimiter)
	dst = Stuff(dst, logical)
	dst = AppendStuffed(dst, Checksum(logical))
	return append(dst, Delimiter)
}

// Response is a decoded device-to-host frame.
type Response struct {
	Addr  byte
	Cmd   byte
	State byte
	Data  []byte
}

// DecodeResponse decodes the response frame at the start of in and returns it
// with the number of wire bytes consumed.
func DecodeResponse(in []byte) (Response, int, error) {
	c := NewCursor(in)
	if b, err := c.Raw(); err != nil {
		return Response{}, 0, err
	} else if b != Delimiter {
		return Response{}, 0, fmt.Errorf("%w: start byte %02X", ErrDelimiter, b)
	}
	var head [4]byte
	for i := range head {
		b, err := c.Next()
		if err != nil {
			return Response{}, 0, err
		}
		head[i] = b
	}
	resp := Response{Addr: head[0], Cmd: head[1], State: head[2], Data: make([]byte, head[3])}
	for i := range resp.Data {
		b, err := c.Next()
		if err != nil {
			return Response{}, 0, err
		}
		resp.Data[i] = b
	}
	want := ^c.Sum()
	chk, err := c.Unstuff()
	if err != nil {
		return Response{}, 0, err
	}
	if chk != want {
		return Response{}, 0, fmt.Errorf("%w: got %02X want %02X", ErrChecksum, chk, want)
	}
	end, err := c.Raw()
	if err != nil {
		return Response{}, 0, err
	}
	if end != Delimiter {
		return Response{}, 0, fmt.Errorf("%w: end byte %02X", ErrDelimiter, end)
	}
	return resp, c.Pos(), nil
}

// Cursor walks stuffed input one logical byte at a time while keeping the
// running sum and the number of wire bytes consumed.
type Cursor struct {
	in  []byte
	pos int
	sum byte
}

func NewCursor(in []byte) *Cursor {
	return &Cursor{in: in}
}

// Done reports whether all input has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.in)
}

// Pos returns the number of wire bytes consumed so far.
func (c *Cursor) Pos() int {
	return c.pos
}

// Sum returns the 8-bit sum of the logical bytes read by Next.
func (c *Cursor) Sum() byte {
	return c.sum
}

// Skip consumes n raw bytes without unstuffing or summing them.
func (c *Cursor) Skip(n int) error {
	if c.pos+n > len(c.in) {
		return ErrShortFrame
	}
	c.pos += n
	return nil
}

// Raw returns the next wire byte without unstuffing or summing it.
func (c *Cursor) Raw() (byte, error) {
	if c.pos >= len(c.in) {
		return 0, ErrShortFrame
	}
	b := c.in[c.pos]
	c.pos++
	return b, nil
}

// Next returns the next logical byte and adds it to the running sum.
func (c *Cursor) Next() (byte, error) {
	b, err := c.Unstuff()
	if err != nil {
		return 0, err
	}
	c.sum += b
	return b, nil
}

// Unstuff returns the next logical byte without adding it to the sum.
func (c *Cursor) Unstuff() (byte, error) {
	b, err := c.Raw()
	if err != nil {
		return 0, err
	}
	if b != Escape {
		return b, nil
	}
	e, err := c.Raw()
	if err != nil {
		return 0, err
	}
	v, ok := unstuffed(e)
	if !ok {
		return 0, fmt.Errorf("%w: 7D %02X", ErrInvalidEscape, e)
	}
	return v, nil
}
