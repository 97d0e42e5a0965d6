package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/slac-epics/streamdevice/internal/observability"
)

const (
	timestampLayout = "2006/01/02 15:04:05.000000"
	summaryFormat   = "Stream Device: this message was received %d times in the last %d seconds:\n"
)

type Options struct {
	// Enabled gates Errorf; Debug gates Debugf.
	Enabled bool
	Debug   bool
	Color   bool
	// Timestamps prefixes every line with the local time.
	Timestamps bool
	// ThreadName, when set, names the caller in each line.
	ThreadName func() string
	// Log receives every message, including suppressed repeats, and all
	// debug traces.
	Log          zerolog.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

// DefaultOptions enables error output, colored when stderr is a terminal.
func DefaultOptions() Options {
	fd := os.Stderr.Fd()
	return Options{
		Enabled: true,
		Color:   isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		Log:     zerolog.Nop(),
	}
}

// Diagnostics formats error and debug messages and routes errors through a
// lazily created Engine once a message timeout has been configured.
type Diagnostics struct {
	opts Options
	out  io.Writer
	red  *color.Color

	writeMu sync.Mutex

	engineMu sync.Mutex
	engine   *Engine
}

func New(out io.Writer, opts Options) *Diagnostics {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	red := color.New(color.FgRed, color.Bold)
	if opts.Color {
		red.EnableColor()
	} else {
		red.DisableColor()
	}
	return &Diagnostics{opts: opts, out: out, red: red}
}

// SetMessageTimeout configures the rate-limit window. The engine is created
// and started on first use; timeout <= 0 turns rate limiting off.
func (d *Diagnostics) SetMessageTimeout(timeout time.Duration) {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()
	if d.engine == nil {
		d.engine = NewEngine(d, EngineConfig{
			Timeout:      timeout,
			PollInterval: d.opts.PollInterval,
			Now:          d.opts.Now,
		})
		d.engine.Start()
		return
	}
	d.engine.SetTimeout(timeout)
}

// MessageTimeout returns the configured window, zero when none is set.
func (d *Diagnostics) MessageTimeout() time.Duration {
	if e := d.currentEngine(); e != nil {
		return e.Timeout()
	}
	return 0
}

func (d *Diagnostics) currentEngine() *Engine {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()
	return d.engine
}

// Errorf prints an error message, subject to rate limiting for cat.
func (d *Diagnostics) Errorf(cat Category, format string, args ...any) {
	if !d.opts.Enabled {
		return
	}
	text := fmt.Sprintf(format, args...)
	d.opts.Log.Error().Str("category", cat.String()).Msg(strings.TrimRight(text, "\n"))

	line := d.red.Sprint(strings.TrimRight(d.prefix()+text, "\n")) + "\n"

	e := d.currentEngine()
	if cat == CategoryNone || e == nil || e.Timeout() <= 0 {
		d.write(line)
		observability.RecordReport(cat.String(), "direct")
		return
	}
	e.Report(cat, line)
}

// Debugf writes a debug trace to the log.
func (d *Diagnostics) Debugf(format string, args ...any) {
	if !d.opts.Debug {
		return
	}
	event := d.opts.Log.Debug()
	if d.opts.ThreadName != nil {
		event = event.Str("thread", d.opts.ThreadName())
	}
	event.Msg(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Close stops the engine, if one was created.
func (d *Diagnostics) Close() {
	if e := d.currentEngine(); e != nil {
		e.Close()
	}
}

func (d *Diagnostics) prefix() string {
	var b strings.Builder
	if d.opts.Timestamps {
		b.WriteString(d.opts.Now().Format(timestampLayout))
		b.WriteByte(' ')
	}
	if d.opts.ThreadName != nil {
		if name := d.opts.ThreadName(); name != "" {
			b.WriteString(name)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (d *Diagnostics) write(s string) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	_, _ = io.WriteString(d.out, s)
}

// Message implements Sink.
func (d *Diagnostics) Message(_ Category, msg string) {
	d.write(msg)
}

// Summary implements Sink.
func (d *Diagnostics) Summary(cat Category, count int, elapsed time.Duration, last string) {
	secs := int(elapsed / time.Second)
	d.opts.Log.Warn().
		Str("category", cat.String()).
		Int("count", count).
		Int("seconds", secs).
		Msg("message_suppressed")
	d.write(fmt.Sprintf(summaryFormat, count, secs) + last)
}
