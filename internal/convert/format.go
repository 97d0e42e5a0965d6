package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// Flags is the per-field flag set. Bit positions are shared by all
// converters; a converter ignores the flags it does not define.
type Flags uint16

const (
	FlagLeft  Flags = 1 << iota // '-'
	FlagSign                    // '+'
	FlagSpace                   // ' '
	FlagAlt                     // '#'
	FlagZero                    // '0'
	FlagSkip                    // '*' parse but discard
)

var flagChars = []struct {
	flag Flags
	char byte
}{
	{FlagLeft, '-'},
	{FlagSign, '+'},
	{FlagSpace, ' '},
	{FlagAlt, '#'},
	{FlagZero, '0'},
	{FlagSkip, '*'},
}

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

func (f Flags) String() string {
	var b strings.Builder
	for _, fc := range flagChars {
		if f.Has(fc.flag) {
			b.WriteByte(fc.char)
		}
	}
	return b.String()
}

// Format is the immutable per-field descriptor handed to every converter call.
// Prec is -1 when no precision was given.
type Format struct {
	Conv  byte
	Flags Flags
	Width int
	Prec  int
}

func (f Format) String() string {
	var b strings.Builder
	b.WriteByte('%')
	b.WriteString(f.Flags.String())
	if f.Width > 0 {
		b.WriteString(strconv.Itoa(f.Width))
	}
	if f.Prec >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(f.Prec))
	}
	b.WriteByte(f.Conv)
	return b.String()
}

// Kind selects the typed entry point a caller must use for a format.
type Kind int

const (
	KindDouble Kind = iota + 1
	KindSigned
	KindUnsigned
	KindEnum
	KindString
	// KindSkip marks fields that consume input without producing a value.
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindDouble:
		return "double"
	case KindSigned:
		return "signed"
	case KindUnsigned:
		return "unsigned"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

const maxFieldNumber = 1 << 16

// ParseFormat parses "%[flags][width][.prec]conv". It does not check that
// the conversion character is registered; see Registry.Compile.
func ParseFormat(desc string) (Format, error) {
	f := Format{Prec: -1}
	s := desc
	if !strings.HasPrefix(s, "%") {
		return Format{}, fmt.Errorf("%w: %q does not start with %%", ErrSyntax, desc)
	}
	s = s[1:]

flags:
	for len(s) > 0 {
		for _, fc := range flagChars {
			if s[0] == fc.char {
				f.Flags |= fc.flag
				s = s[1:]
				continue flags
			}
		}
		break
	}

	var err error
	f.Width, s, err = parseNumber(s)
	if err != nil {
		return Format{}, fmt.Errorf("%w: width in %q: %v", ErrSyntax, desc, err)
	}
	if strings.HasPrefix(s, ".") {
		f.Prec, s, err = parseNumber(s[1:])
		if err != nil {
			return Format{}, fmt.Errorf("%w: precision in %q: %v", ErrSyntax, desc, err)
		}
	}

	if len(s) == 0 {
		return Format{}, fmt.Errorf("%w: %q has no conversion character", ErrSyntax, desc)
	}
	if len(s) > 1 {
		return Format{}, fmt.Errorf("%w: trailing %q after conversion in %q", ErrSyntax, s[1:], desc)
	}
	f.Conv = s[0]
	return f, nil
}

// parseNumber reads leading decimal digits; no digits yields 0.
func parseNumber(s string) (int, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, nil
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, err
	}
	if n >= maxFieldNumber {
		return 0, s, fmt.Errorf("%d too large", n)
	}
	return n, s[i:], nil
}
