package convert

import (
	"fortio.org/safecast"

	"github.com/slac-epics/streamdevice/internal/buffer"
	"github.com/slac-epics/streamdevice/internal/protocol/shdlc"
)

// maxSHDLCData is the largest payload an integer field can carry.
const maxSHDLCData = 8

// SHDLC is the %Z codec. Width is the command byte and precision the payload
// length. Print emits a request frame with the value MSB first; scan reads a
// response frame and checks command, state, length, checksum and delimiters.
//
// Unless Strict is set, a scan whose first byte is not the start delimiter
// assumes the delimiter and a zero address were already consumed and starts
// at the command byte.
type SHDLC struct {
	Unsupported
	Strict bool
}

func (SHDLC) Classify(f Format) (Kind, error) {
	if _, err := safecast.Conv[uint8](f.Width); err != nil {
		return 0, configErrorf(f.Conv, "command %d does not fit a byte", f.Width)
	}
	if f.Prec < 0 || f.Prec > maxSHDLCData {
		return 0, configErrorf(f.Conv, "length %d, expected 0..%d", f.Prec, maxSHDLCData)
	}
	switch {
	case f.Flags.Has(FlagLeft):
		return KindString, nil
	case f.Flags.Has(FlagSign):
		return KindSigned, nil
	}
	return KindUnsigned, nil
}

func (c SHDLC) PrintSigned(f Format, out *buffer.Buffer, v int64) error {
	return c.print(f, out, uint64(v))
}

func (c SHDLC) PrintUnsigned(f Format, out *buffer.Buffer, v uint64) error {
	return c.print(f, out, v)
}

func (c SHDLC) print(f Format, out *buffer.Buffer, v uint64) error {
	if _, err := c.Classify(f); err != nil {
		return err
	}
	cmd, err := safecast.Conv[uint8](f.Width)
	if err != nil {
		return configErrorf(f.Conv, "command %d does not fit a byte", f.Width)
	}
	var data [maxSHDLCData]byte
	for i := f.Prec - 1; i >= 0; i-- {
		data[i] = byte(v)
		v >>= 8
	}
	var scratch [2 * (maxSHDLCData + 5)]byte
	frame, err := shdlc.AppendRequest(scratch[:0], 0x00, cmd, data[:f.Prec])
	if err != nil {
		return err
	}
	out.Append(frame)
	return nil
}

func (c SHDLC) ScanSigned(f Format, in []byte) (int, int64, error) {
	n, raw, err := c.scan(f, in)
	if err != nil || f.Flags.Has(FlagSkip) {
		return n, 0, err
	}
	if !f.Flags.Has(FlagSign) {
		return n, int64(truncate(raw, f.Prec)), nil
	}
	switch f.Prec {
	case 1:
		return n, int64(int8(raw)), nil
	case 2:
		return n, int64(int16(raw)), nil
	case 3:
		return n, int64(int32(uint32(raw)<<8) >> 8), nil
	case 4:
		return n, int64(int32(uint32(raw))), nil
	}
	return n, 0, nil
}

func (c SHDLC) ScanUnsigned(f Format, in []byte) (int, uint64, error) {
	n, raw, err := c.scan(f, in)
	if err != nil || f.Flags.Has(FlagSkip) {
		return n, 0, err
	}
	return n, truncate(raw, f.Prec), nil
}

// truncate keeps payloads of one to four bytes; other lengths yield zero.
func truncate(raw uint64, length int) uint64 {
	if length < 1 || length > 4 {
		return 0
	}
	return raw & (1<<(8*length) - 1)
}

func (c SHDLC) scan(f Format, in []byte) (int, uint64, error) {
	if _, err := c.Classify(f); err != nil {
		return -1, 0, err
	}
	if len(in) == 0 {
		return -1, 0, c.mismatch(f, "start delimiter", shdlc.ErrShortFrame)
	}
	cur := shdlc.NewCursor(in)
	if in[0] == shdlc.Delimiter {
		_ = cur.Skip(1)
		if _, err := cur.Next(); err != nil {
			return -1, 0, c.mismatch(f, "address", err)
		}
	} else if c.Strict {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "start delimiter", Expected: int(shdlc.Delimiter), Got: int(in[0])}
	}

	cmd, err := cur.Next()
	if err != nil {
		return -1, 0, c.mismatch(f, "command", err)
	}
	if int(cmd) != f.Width {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "command", Expected: f.Width, Got: int(cmd)}
	}
	state, err := cur.Next()
	if err != nil {
		return -1, 0, c.mismatch(f, "state", err)
	}
	if state != 0 {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "state", Expected: 0, Got: int(state)}
	}
	length, err := cur.Next()
	if err != nil {
		return -1, 0, c.mismatch(f, "length", err)
	}
	if int(length) != f.Prec {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "length", Expected: f.Prec, Got: int(length)}
	}

	var raw uint64
	for i := 0; i < int(length); i++ {
		b, err := cur.Next()
		if err != nil {
			return -1, 0, c.mismatch(f, "data", err)
		}
		raw = raw<<8 | uint64(b)
	}

	want := ^cur.Sum()
	chk, err := cur.Unstuff()
	if err != nil {
		return -1, 0, c.mismatch(f, "checksum", err)
	}
	if chk != want {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "checksum", Expected: int(want), Got: int(chk)}
	}
	end, err := cur.Raw()
	if err != nil {
		return -1, 0, c.mismatch(f, "end delimiter", err)
	}
	if end != shdlc.Delimiter {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "end delimiter", Expected: int(shdlc.Delimiter), Got: int(end)}
	}
	return cur.Pos(), raw, nil
}

func (SHDLC) mismatch(f Format, field string, cause error) error {
	return MismatchError{Conv: f.Conv, Field: field, Cause: cause}
}
