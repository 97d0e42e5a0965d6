package stream

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/slac-epics/streamdevice/internal/convert"
)

var ErrCoerce = errors.New("stream: value cannot be converted")

// Value carries one record value. Only the member selected by Kind is
// meaningful; enum indices travel in Signed.
type Value struct {
	Kind     convert.Kind
	Double   float64
	Signed   int64
	Unsigned uint64
	String   string
}

func Double(v float64) Value { return Value{Kind: convert.KindDouble, Double: v} }
func Signed(v int64) Value { return Value{Kind: convert.KindSigned, Signed: v} }
func Unsigned(v uint64) Value { return Value{Kind: convert.KindUnsigned, Unsigned: v} }
func Enum(index int64) Value { return Value{Kind: convert.KindEnum, Signed: index} }
func String(v string) Value { return Value{Kind: convert.KindString, String: v} }
func skipped() Value { return Value{Kind: convert.KindSkip} }

// Float64 coerces v to a double.
func (v Value) Float64() (float64, error) {
	switch v.Kind {
	case convert.KindDouble:
		return v.Double, nil
	case convert.KindSigned, convert.KindEnum:
		return float64(v.Signed), nil
	case convert.KindUnsigned:
		return float64(v.Unsigned), nil
	case convert.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q to double", ErrCoerce, v.String)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s to double", ErrCoerce, v.Kind)
}

// Int64 coerces v to a signed integer; doubles are truncated toward zero.
func (v Value) Int64() (int64, error) {
	switch v.Kind {
	case convert.KindSigned, convert.KindEnum:
		return v.Signed, nil
	case convert.KindUnsigned:
		if v.Unsigned > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrCoerce, v.Unsigned)
		}
		return int64(v.Unsigned), nil
	case convert.KindDouble:
		if math.IsNaN(v.Double) || v.Double >= math.MaxInt64 || v.Double < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v to int64", ErrCoerce, v.Double)
		}
		return int64(v.Double), nil
	case convert.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q to int64", ErrCoerce, v.String)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s to int64", ErrCoerce, v.Kind)
}

// Uint64 coerces v to an unsigned integer. Negative signed values keep their
// two's complement bits so they can be framed as raw payloads.
func (v Value) Uint64() (uint64, error) {
	switch v.Kind {
	case convert.KindUnsigned:
		return v.Unsigned, nil
	case convert.KindSigned, convert.KindEnum:
		return uint64(v.Signed), nil
	case convert.KindDouble:
		if math.IsNaN(v.Double) || v.Double >= math.MaxUint64 || v.Double <= -1 {
			return 0, fmt.Errorf("%w: %v to uint64", ErrCoerce, v.Double)
		}
		return uint64(v.Double), nil
	case convert.KindString:
		n, err := strconv.ParseUint(strings.TrimSpace(v.String), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q to uint64", ErrCoerce, v.String)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s to uint64", ErrCoerce, v.Kind)
}

// Text renders v for display.
func (v Value) Text() string {
	switch v.Kind {
	case convert.KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case convert.KindSigned, convert.KindEnum:
		return strconv.FormatInt(v.Signed, 10)
	case convert.KindUnsigned:
		return strconv.FormatUint(v.Unsigned, 10)
	case convert.KindString:
		return v.String
	}
	return ""
}

// ParseValue reads text as a value of the given kind. Integers accept the
// 0x, 0o and 0b prefixes.
func ParseValue(kind convert.Kind, text string) (Value, error) {
	v := String(text)
	switch kind {
	case convert.KindDouble:
		f, err := v.Float64()
		return Double(f), err
	case convert.KindSigned:
		n, err := v.Int64()
		return Signed(n), err
	case convert.KindEnum:
		n, err := v.Int64()
		return Enum(n), err
	case convert.KindUnsigned:
		if strings.HasPrefix(strings.TrimSpace(text), "-") {
			n, err := v.Int64()
			return Unsigned(uint64(n)), err
		}
		n, err := v.Uint64()
		return Unsigned(n), err
	case convert.KindString:
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: no value for %s fields", ErrCoerce, kind)
}
