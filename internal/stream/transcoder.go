// Package stream binds named record fields to converters and moves typed
// values through them.
package stream

import (
	"errors"
	"fmt"

	"github.com/slac-epics/streamdevice/internal/buffer"
	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/observability"
	"github.com/slac-epics/streamdevice/internal/reporter"
)

// Field is a compiled format bound to a record field name.
type Field struct {
	Name string
	convert.Field
}

// ValueKind is the typed entry point the field dispatches to. Skip fields
// report the kind of the value they discard.
func (f Field) ValueKind() convert.Kind {
	if f.Kind != convert.KindSkip {
		return f.Kind
	}
	kind, err := f.Converter.Classify(f.Format)
	if err != nil {
		return convert.KindSkip
	}
	return kind
}

// Transcoder dispatches print and scan calls to the typed converter entry
// points and reports failures.
type Transcoder struct {
	registry *convert.Registry
	diag     *reporter.Diagnostics
}

// New returns a transcoder over registry. diag may be nil.
func New(registry *convert.Registry, diag *reporter.Diagnostics) *Transcoder {
	return &Transcoder{registry: registry, diag: diag}
}

func (t *Transcoder) Registry() *convert.Registry {
	return t.registry
}

// Compile parses format for the named field.
func (t *Transcoder) Compile(name, format string) (Field, error) {
	cf, err := t.registry.Compile(format)
	if err != nil {
		err = fmt.Errorf("stream: field %q: %w", name, err)
		t.report(reporter.CategoryProtoFormat, err)
		return Field{}, err
	}
	return Field{Name: name, Field: cf}, nil
}

// Print appends the wire form of v to out. out is unchanged on failure.
func (t *Transcoder) Print(out *buffer.Buffer, f Field, v Value) error {
	before := out.Len()
	err := t.print(out, f, v)
	if err != nil {
		observability.RecordConversion(f.Format.Conv, "print", resultLabel(err), 0)
		err = fmt.Errorf("stream: print %s with %s: %w", f.Name, f.Format, err)
		t.report(category(err), err)
		return err
	}
	observability.RecordConversion(f.Format.Conv, "print", "ok", out.Len()-before)
	return nil
}

func (t *Transcoder) print(out *buffer.Buffer, f Field, v Value) error {
	c := f.Converter
	switch f.Kind {
	case convert.KindDouble:
		d, err := v.Float64()
		if err != nil {
			return err
		}
		return c.PrintDouble(f.Format, out, d)
	case convert.KindSigned, convert.KindEnum:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		return c.PrintSigned(f.Format, out, n)
	case convert.KindUnsigned:
		n, err := v.Uint64()
		if err != nil {
			return err
		}
		return c.PrintUnsigned(f.Format, out, n)
	case convert.KindString:
		return c.PrintString(f.Format, out, v.Text())
	}
	return fmt.Errorf("%w: %s fields have no output", convert.ErrUnsupported, f.Kind)
}

// Scan reads one field from the start of in and returns the bytes consumed.
func (t *Transcoder) Scan(in []byte, f Field) (int, Value, error) {
	n, v, err := t.scan(in, f)
	if err != nil {
		observability.RecordConversion(f.Format.Conv, "scan", resultLabel(err), 0)
		err = fmt.Errorf("stream: scan %s with %s: %w", f.Name, f.Format, err)
		t.report(category(err), err)
		return -1, Value{}, err
	}
	observability.RecordConversion(f.Format.Conv, "scan", "ok", n)
	if f.Kind == convert.KindSkip {
		return n, skipped(), nil
	}
	return n, v, nil
}

func (t *Transcoder) scan(in []byte, f Field) (int, Value, error) {
	c := f.Converter
	switch kind := f.ValueKind(); kind {
	case convert.KindDouble:
		n, d, err := c.ScanDouble(f.Format, in)
		return n, Double(d), err
	case convert.KindSigned:
		n, s, err := c.ScanSigned(f.Format, in)
		return n, Signed(s), err
	case convert.KindEnum:
		n, s, err := c.ScanSigned(f.Format, in)
		return n, Enum(s), err
	case convert.KindUnsigned:
		n, u, err := c.ScanUnsigned(f.Format, in)
		return n, Unsigned(u), err
	case convert.KindString:
		n, s, err := c.ScanString(f.Format, in)
		return n, String(s), err
	default:
		return -1, Value{}, fmt.Errorf("%w: cannot scan %s fields", convert.ErrUnsupported, kind)
	}
}

func (t *Transcoder) report(cat reporter.Category, err error) {
	if t.diag == nil {
		return
	}
	t.diag.Errorf(cat, "%v\n", err)
}

func category(err error) reporter.Category {
	switch {
	case errors.Is(err, convert.ErrMismatch):
		return reporter.CategoryScanMismatch
	case errors.Is(err, convert.ErrConfig), errors.Is(err, convert.ErrSyntax), errors.Is(err, convert.ErrUnknownConversion):
		return reporter.CategoryProtoFormat
	}
	return reporter.CategoryConversion
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, convert.ErrMismatch):
		return "mismatch"
	case errors.Is(err, convert.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, convert.ErrConfig):
		return "config"
	}
	return "error"
}
