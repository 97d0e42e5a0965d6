package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slac-epics/streamdevice/internal/testutil/testlog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	testlog.Start(t)
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPrintCommand(t *testing.T) {
	out, err := run(t, "print", "%3.2Z", "0x1234")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out, "hex:    7E0003021234B47E") || !strings.Contains(out, "length: 8") {
		t.Fatalf("unexpected print output %q", out)
	}

	out, err = run(t, "print", "--raw", "%m", "1.1")
	if err != nil {
		t.Fatalf("print raw: %v", err)
	}
	if out != "1100000-06" {
		t.Fatalf("expected raw exponential bytes, got %q", out)
	}
}

func TestPrintFloatOrderFlag(t *testing.T) {
	out, err := run(t, "--float-order", "little", "print", "%8R", "1")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out, "hex:    000000000000F03F") {
		t.Fatalf("expected little-endian double, got %q", out)
	}

	out, err = run(t, "--float-order", "little", "print", "%#8R", "1")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out, "hex:    3FF0000000000000") {
		t.Fatalf("expected swapped order, got %q", out)
	}
}

func TestScanCommand(t *testing.T) {
	out, err := run(t, "scan", "%m", "2B3030303131", "2D3031")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "consumed: 9 of 9") || !strings.Contains(out, "value:    1.1") {
		t.Fatalf("unexpected scan output %q", out)
	}

	if _, err := run(t, "scan", "%3.2Z", "7E0004"); err == nil {
		t.Fatalf("expected scan of a truncated frame to fail")
	}
	if _, err := run(t, "scan", "%m"); err == nil {
		t.Fatalf("expected missing operand to fail")
	}
}

func TestStrictFramingFlag(t *testing.T) {
	frame := "030002FFFEFD7E"
	if _, err := run(t, "scan", "%+3.2Z", frame); err != nil {
		t.Fatalf("expected resync without strict framing, got %v", err)
	}
	if _, err := run(t, "--strict-framing", "scan", "%+3.2Z", frame); err == nil {
		t.Fatalf("expected strict framing to reject a missing delimiter")
	}
}

func TestReplyRoundTrip(t *testing.T) {
	out, err := run(t, "reply", "0x03", "1234")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	frame := strings.TrimSpace(out)
	if frame != "7E000300021234B47E" {
		t.Fatalf("unexpected frame %q", frame)
	}

	out, err = run(t, "scan", "%3.2Z", frame)
	if err != nil {
		t.Fatalf("scan reply: %v", err)
	}
	if !strings.Contains(out, "value:    4660") {
		t.Fatalf("unexpected scan output %q", out)
	}

	out, err = run(t, "frame", frame)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if !strings.Contains(out, "cmd:      0x03") || !strings.Contains(out, "data:     1234") {
		t.Fatalf("unexpected frame output %q", out)
	}
	if _, err := run(t, "frame", "7E000300021234B57E"); err == nil {
		t.Fatalf("expected checksum failure")
	}

	if _, err := run(t, "reply", "0x100"); err == nil {
		t.Fatalf("expected out of range command to fail")
	}
}

func TestCodecsCommand(t *testing.T) {
	out, err := run(t, "codecs")
	if err != nil {
		t.Fatalf("codecs: %v", err)
	}
	for _, want := range []string{"%R    raw_float", "%Z    shdlc", "%m    exponential"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestFieldsFromConfig(t *testing.T) {
	out, err := run(t, "-c", "ex.config.toml", "fields")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if !strings.Contains(out, "temperature") || !strings.Contains(out, "%+.5m") {
		t.Fatalf("expected table listing, got %q", out)
	}

	out, err = run(t, "-c", "ex.config.toml", "print", "--field", "fan_speed_offset", "0x10")
	if err != nil {
		t.Fatalf("print field: %v", err)
	}
	if !strings.Contains(out, "hex:    7E00600200108D7E") {
		t.Fatalf("unexpected field print %q", out)
	}

	out, err = run(t, "fields")
	if err != nil || !strings.Contains(out, "no field table loaded") {
		t.Fatalf("expected empty table, got %q %v", out, err)
	}
}

func TestConfigCommands(t *testing.T) {
	out, err := run(t, "config", "validate", "ex.fields.toml")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, `VALID: table "sps30.lab", 5 field(s)`) {
		t.Fatalf("unexpected validate output %q", out)
	}

	path := filepath.Join(t.TempDir(), "fields.toml")
	if _, err := run(t, "config", "init", "--kind", "fields", "-o", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := run(t, "config", "init", "--kind", "fields", "-o", path); err == nil {
		t.Fatalf("expected init to refuse an existing file")
	}
	if _, err := run(t, "config", "init", "--kind", "fields", "-o", path, "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	out, err = run(t, "config", "validate", path)
	if err != nil || !strings.Contains(out, "VALID:") {
		t.Fatalf("expected generated template to validate, got %q %v", out, err)
	}

	if _, err := run(t, "config", "init", "--kind", "nodes", "-o", path+".x"); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	root := newRootCmd()
	root.SetErr(&bytes.Buffer{})
	a := &app{}
	if err := a.setup(root, nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer a.diag.Close()
	a.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("serve did not stop")
	}
}
