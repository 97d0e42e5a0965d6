package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/slac-epics/streamdevice/internal/buffer"
)

const (
	// defaultExpPrec matches six fractional digits of C %e.
	defaultExpPrec = 7
	// maxExpPrec keeps the printed mantissa inside an int64 on read-back.
	maxExpPrec = 18
)

// Exponential is the %m codec: a signed integer mantissa directly followed by
// a signed exponent, "+00011-01" meaning 11e-1.
type Exponential struct {
	Unsupported
}

func (Exponential) Classify(f Format) (Kind, error) {
	if f.Prec > maxExpPrec {
		return 0, configErrorf(f.Conv, "precision %d exceeds %d digits", f.Prec, maxExpPrec)
	}
	return KindDouble, nil
}

func (c Exponential) PrintDouble(f Format, out *buffer.Buffer, v float64) error {
	if _, err := c.Classify(f); err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrRange
	}
	prec := f.Prec
	if prec <= 0 {
		prec = defaultExpPrec
	}

	s := strconv.FormatFloat(math.Abs(v), 'e', prec-1, 64)
	e := strings.IndexByte(s, 'e')
	exp, err := strconv.Atoi(s[e+1:])
	if err != nil {
		return ErrRange
	}
	digits := make([]byte, 0, prec+8)
	digits = append(digits, s[0])
	if e > 1 {
		digits = append(digits, s[2:e]...)
	}
	exp -= prec - 1
	if exp < 0 {
		digits = append(digits, '-')
		exp = -exp
	} else {
		digits = append(digits, '+')
	}
	if exp < 10 {
		digits = append(digits, '0')
	}
	digits = strconv.AppendInt(digits, int64(exp), 10)

	var sign byte
	switch {
	case math.Signbit(v):
		sign = '-'
	case f.Flags.Has(FlagSign):
		sign = '+'
	case f.Flags.Has(FlagSpace):
		sign = ' '
	}
	pad := f.Width - len(digits)
	if sign != 0 {
		pad--
	}

	left := f.Flags.Has(FlagLeft)
	field := make([]byte, 0, max(pad, 0)+1+len(digits))
	for ; !left && pad > 0; pad-- {
		field = append(field, ' ')
	}
	if sign != 0 {
		field = append(field, sign)
	}
	field = append(field, digits...)
	for ; pad > 0; pad-- {
		field = append(field, ' ')
	}
	out.Append(field)
	return nil
}

func (Exponential) ScanDouble(f Format, in []byte) (int, float64, error) {
	mantissa, n, err := scanDecimal(in, 0)
	if err != nil {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "mantissa", Cause: err}
	}
	exp, n, err := scanDecimal(in, n)
	if err != nil {
		return -1, 0, MismatchError{Conv: f.Conv, Field: "exponent", Cause: err}
	}
	if f.Flags.Has(FlagSkip) {
		return n, 0, nil
	}
	v := float64(mantissa)
	switch {
	case exp < 0 && exp >= -308:
		v /= math.Pow10(int(-exp))
	default:
		v *= math.Pow10(int(max(min(exp, 1000), -1000)))
	}
	return n, v, nil
}

// scanDecimal reads an optionally signed decimal integer at in[pos:],
// skipping leading white space.
func scanDecimal(in []byte, pos int) (int64, int, error) {
	i := pos
	for i < len(in) && isSpace(in[i]) {
		i++
	}
	start := i
	if i < len(in) && (in[i] == '+' || in[i] == '-') {
		i++
	}
	digits := i
	for i < len(in) && in[i] >= '0' && in[i] <= '9' {
		i++
	}
	if i == digits {
		if i >= len(in) {
			return 0, pos, ErrShortInput
		}
		return 0, pos, strconv.ErrSyntax
	}
	v, err := strconv.ParseInt(string(in[start:i]), 10, 64)
	if err != nil {
		return 0, pos, err
	}
	return v, i, nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
