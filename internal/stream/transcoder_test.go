package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slac-epics/streamdevice/internal/buffer"
	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/protocol/shdlc"
	"github.com/slac-epics/streamdevice/internal/reporter"
	"github.com/slac-epics/streamdevice/internal/testutil/testlog"
)

func newTranscoder(t *testing.T, out *bytes.Buffer) *Transcoder {
	t.Helper()
	registry, err := convert.NewDefaultRegistry(convert.DefaultOptions())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	var diag *reporter.Diagnostics
	if out != nil {
		diag = reporter.New(out, reporter.Options{Enabled: true, Log: zerolog.Nop(), PollInterval: time.Hour})
		t.Cleanup(diag.Close)
	}
	return New(registry, diag)
}

func mustCompile(t *testing.T, tr *Transcoder, name, format string) Field {
	t.Helper()
	f, err := tr.Compile(name, format)
	if err != nil {
		t.Fatalf("compile %s %q: %v", name, format, err)
	}
	return f
}

func TestPrintCoercesAcrossKinds(t *testing.T) {
	testlog.Start(t)
	tr := newTranscoder(t, nil)

	out := buffer.New()
	if err := tr.Print(out, mustCompile(t, tr, "temp", "%+.3m"), Signed(-42)); err != nil {
		t.Fatalf("print: %v", err)
	}
	if out.String() != "-420-01" {
		t.Fatalf("expected -420-01, got %q", out.String())
	}

	out.Clear()
	if err := tr.Print(out, mustCompile(t, tr, "cmd", "%3.2Z"), Double(4660.9)); err != nil {
		t.Fatalf("print: %v", err)
	}
	if want := []byte{0x7E, 0x00, 0x03, 0x02, 0x12, 0x34, 0xB4, 0x7E}; !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got % X want % X", out.Bytes(), want)
	}

	out.Clear()
	if err := tr.Print(out, mustCompile(t, tr, "gain", "%R"), String("1.5")); err != nil {
		t.Fatalf("print: %v", err)
	}
	if want := []byte{0x3F, 0xC0, 0x00, 0x00}; !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got % X want % X", out.Bytes(), want)
	}
}

func TestScanDispatchesByKind(t *testing.T) {
	testlog.Start(t)
	tr := newTranscoder(t, nil)

	frame, err := shdlc.AppendResponse(nil, 0, 0x03, 0, []byte{0xFF, 0xFE})
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	n, v, err := tr.Scan(frame, mustCompile(t, tr, "offset", "%+3.2Z"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != len(frame) || v.Kind != convert.KindSigned || v.Signed != -2 {
		t.Fatalf("expected signed -2 over %d bytes, got %+v over %d", len(frame), v, n)
	}

	n, v, err = tr.Scan(frame, mustCompile(t, tr, "raw", "%3.2Z"))
	if err != nil || v.Kind != convert.KindUnsigned || v.Unsigned != 0xFFFE {
		t.Fatalf("expected unsigned 0xFFFE, got %+v, %v", v, err)
	}

	n, v, err = tr.Scan(frame, mustCompile(t, tr, "ignored", "%*3.2Z"))
	if err != nil || n != len(frame) || v.Kind != convert.KindSkip {
		t.Fatalf("expected skip over %d bytes, got %+v over %d, %v", len(frame), v, n, err)
	}

	n, v, err = tr.Scan([]byte("+00011-01"), mustCompile(t, tr, "flow", "%m"))
	if err != nil || n != 9 || v.Double != 1.1 {
		t.Fatalf("expected 1.1 over 9 bytes, got %+v over %d, %v", v, n, err)
	}
}

func TestFailuresAreReported(t *testing.T) {
	testlog.Start(t)
	var diag bytes.Buffer
	tr := newTranscoder(t, &diag)

	_, _, err := tr.Scan([]byte{0x7E, 0x00, 0x04}, mustCompile(t, tr, "status", "%3.2Z"))
	if !errors.Is(err, convert.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if !strings.Contains(diag.String(), "scan status with %3.2Z") {
		t.Fatalf("expected mismatch in diagnostics, got %q", diag.String())
	}

	if _, err := tr.Compile("bad", "%3Z"); !errors.Is(err, convert.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !strings.Contains(diag.String(), `field "bad"`) {
		t.Fatalf("expected config error in diagnostics, got %q", diag.String())
	}

	out := buffer.NewString("keep")
	err = tr.Print(out, mustCompile(t, tr, "label", "%-3.2Z"), String("x"))
	if !errors.Is(err, convert.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if out.String() != "keep" {
		t.Fatalf("expected output untouched, got %q", out.String())
	}
}

func TestPrintRejectsSkipFieldsAndBadCoercion(t *testing.T) {
	testlog.Start(t)
	tr := newTranscoder(t, nil)
	out := buffer.New()
	if err := tr.Print(out, mustCompile(t, tr, "s", "%*m"), Double(1)); !errors.Is(err, convert.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for skip field, got %v", err)
	}
	if err := tr.Print(out, mustCompile(t, tr, "d", "%m"), String("warm")); !errors.Is(err, ErrCoerce) {
		t.Fatalf("expected ErrCoerce, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing appended, got %q", out.String())
	}
}

func TestCompileTable(t *testing.T) {
	testlog.Start(t)
	tr := newTranscoder(t, nil)
	tb, err := tr.CompileTable([]Definition{
		{Name: "temperature", Format: "%.4m"},
		{Name: "setpoint", Format: "%#8R"},
	})
	if err != nil {
		t.Fatalf("compile table: %v", err)
	}
	if got := strings.Join(tb.Names(), ","); got != "setpoint,temperature" {
		t.Fatalf("unexpected names %s", got)
	}
	if _, err := tb.Get("pressure"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	_, err = tr.CompileTable([]Definition{{Name: "a", Format: "%m"}, {Name: "a", Format: "%R"}})
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(convert.KindUnsigned, "0x1234")
	if err != nil || v.Unsigned != 0x1234 {
		t.Fatalf("expected 0x1234, got %+v, %v", v, err)
	}
	v, err = ParseValue(convert.KindUnsigned, "-2")
	if err != nil || v.Unsigned != 0xFFFFFFFFFFFFFFFE {
		t.Fatalf("expected two's complement -2, got %+v, %v", v, err)
	}
	if _, err := ParseValue(convert.KindSigned, "1.5"); !errors.Is(err, ErrCoerce) {
		t.Fatalf("expected ErrCoerce, got %v", err)
	}
	if v, _ := ParseValue(convert.KindDouble, " 2.5 "); v.Text() != "2.5" {
		t.Fatalf("expected 2.5, got %q", v.Text())
	}
}
