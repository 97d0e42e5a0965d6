package convert

import (
	"encoding/binary"
	"math"

	"github.com/slac-epics/streamdevice/internal/buffer"
)

// RawFloat is the %R codec: an IEEE-754 value copied as 4 or 8 raw bytes.
// The '#' flag selects the byte order opposite to the configured one.
type RawFloat struct {
	Unsupported
	bigEndian bool
}

// NewRawFloat returns a codec whose default link order is order. A nil order
// means big-endian.
func NewRawFloat(order binary.ByteOrder) RawFloat {
	return RawFloat{bigEndian: order == nil || order.Uint16([]byte{0x01, 0x02}) == 0x0102}
}

func (RawFloat) Classify(f Format) (Kind, error) {
	switch f.Width {
	case 0, 4, 8:
		return KindDouble, nil
	}
	return 0, configErrorf(f.Conv, "width %d, expected 4 or 8", f.Width)
}

func rawWidth(f Format) int {
	if f.Width == 0 {
		return 4
	}
	return f.Width
}

func (c RawFloat) order(f Format) binary.ByteOrder {
	if c.bigEndian != f.Flags.Has(FlagAlt) {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c RawFloat) PrintDouble(f Format, out *buffer.Buffer, v float64) error {
	if _, err := c.Classify(f); err != nil {
		return err
	}
	var raw [8]byte
	w := rawWidth(f)
	if w == 4 {
		c.order(f).PutUint32(raw[:4], math.Float32bits(float32(v)))
	} else {
		c.order(f).PutUint64(raw[:8], math.Float64bits(v))
	}
	out.Append(raw[:w])
	return nil
}

func (c RawFloat) ScanDouble(f Format, in []byte) (int, float64, error) {
	if _, err := c.Classify(f); err != nil {
		return -1, 0, err
	}
	w := rawWidth(f)
	if len(in) < w {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "length", Expected: w, Got: len(in), Cause: ErrShortInput}
	}
	if f.Flags.Has(FlagSkip) {
		return w, 0, nil
	}
	if w == 4 {
		return w, float64(math.Float32frombits(c.order(f).Uint32(in))), nil
	}
	return w, math.Float64frombits(c.order(f).Uint64(in)), nil
}
