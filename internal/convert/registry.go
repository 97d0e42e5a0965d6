package convert

import (
	"encoding/binary"
	"fmt"
)

// Registry maps conversion characters to converters. It is populated once at
// startup and then sealed; lookups after Seal are safe for concurrent use.
type Registry struct {
	table  [256]Converter
	sealed bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds code to c. A code can only be bound once.
func (r *Registry) Register(code byte, c Converter) error {
	if r.sealed {
		return fmt.Errorf("%w: cannot register %%%c", ErrSealed, code)
	}
	if c == nil {
		return fmt.Errorf("%w: %%%c", ErrNilConverter, code)
	}
	if r.table[code] != nil {
		return fmt.Errorf("%w: %%%c", ErrDuplicate, code)
	}
	r.table[code] = c
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	return r.sealed
}

func (r *Registry) Lookup(code byte) (Converter, bool) {
	c := r.table[code]
	return c, c != nil
}

// Codes returns every registered conversion character in ascending order.
func (r *Registry) Codes() []byte {
	out := make([]byte, 0, 8)
	for i, c := range r.table {
		if c != nil {
			out = append(out, byte(i))
		}
	}
	return out
}

// Field is a parsed, classified format bound to its converter.
type Field struct {
	Format    Format
	Kind      Kind
	Converter Converter
}

// Compile parses desc, finds its converter and classifies it.
func (r *Registry) Compile(desc string) (Field, error) {
	f, err := ParseFormat(desc)
	if err != nil {
		return Field{}, err
	}
	return r.Resolve(f)
}

// Resolve binds an already parsed format to its converter.
func (r *Registry) Resolve(f Format) (Field, error) {
	c, ok := r.Lookup(f.Conv)
	if !ok {
		return Field{}, fmt.Errorf("%w: %%%c", ErrUnknownConversion, f.Conv)
	}
	kind, err := c.Classify(f)
	if err != nil {
		return Field{}, err
	}
	if f.Flags.Has(FlagSkip) {
		kind = KindSkip
	}
	return Field{Format: f, Kind: kind, Converter: c}, nil
}

// Options configures the built-in codecs.
type Options struct {
	// FloatOrder is the byte order %R uses without the '#' flag.
	FloatOrder binary.ByteOrder
	// StrictFraming disables %Z resynchronisation on a missing start delimiter.
	StrictFraming bool
}

func DefaultOptions() Options {
	return Options{FloatOrder: binary.BigEndian}
}

const (
	ExponentialCode byte = 'm'
	RawFloatCode    byte = 'R'
	SHDLCCode       byte = 'Z'
)

// RegisterBuiltins registers %m, %R and %Z.
func RegisterBuiltins(r *Registry, opts Options) error {
	builtins := []struct {
		code byte
		conv Converter
	}{
		{ExponentialCode, Exponential{}},
		{RawFloatCode, NewRawFloat(opts.FloatOrder)},
		{SHDLCCode, SHDLC{Strict: opts.StrictFraming}},
	}
	for _, b := range builtins {
		if err := r.Register(b.code, b.conv); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a sealed registry holding the built-in codecs.
func NewDefaultRegistry(opts Options) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r, opts); err != nil {
		return nil, err
	}
	r.Seal()
	return r, nil
}
