package reporter

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/slac-epics/streamdevice/internal/observability"
)

const DefaultPollInterval = time.Second

// Sink receives what the engine decides to print. Calls are made while the
// category lock is held.
type Sink interface {
	Message(cat Category, msg string)
	Summary(cat Category, count int, elapsed time.Duration, last string)
}

type EngineConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// Now replaces the wall clock; nil uses time.Now.
	Now func() time.Time
}

type entry struct {
	mu          sync.Mutex
	suppressing bool
	pending     int
	lastPrint   time.Time
	lastMessage string
}

// Engine prints the first message of a category immediately, counts repeats
// while the category is suppressing, and has a background sweep print a
// summary once the timeout has passed.
type Engine struct {
	sink    Sink
	poll    time.Duration
	now     func() time.Time
	timeout atomic.Int64

	entries [categoryCount]entry

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

func NewEngine(sink Sink, cfg EngineConfig) *Engine {
	e := &Engine{
		sink: sink,
		poll: cfg.PollInterval,
		now:  cfg.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if e.poll <= 0 {
		e.poll = DefaultPollInterval
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.timeout.Store(int64(cfg.Timeout))
	return e
}

func (e *Engine) SetTimeout(d time.Duration) {
	e.timeout.Store(int64(d))
}

func (e *Engine) Timeout() time.Duration {
	return time.Duration(e.timeout.Load())
}

// Report prints msg now or counts it against the open window. Unknown
// categories are ignored.
func (e *Engine) Report(cat Category, msg string) {
	if !cat.Valid() {
		return
	}
	en := &e.entries[cat]
	en.mu.Lock()
	defer en.mu.Unlock()

	if en.suppressing {
		en.pending++
		observability.RecordReport(cat.String(), "suppressed")
		return
	}
	e.sink.Message(cat, msg)
	en.suppressing = true
	en.pending = 0
	en.lastPrint = e.now()
	en.lastMessage = msg
	observability.RecordReport(cat.String(), "printed")
}

// Pending returns the number of suppressed calls in the open window.
func (e *Engine) Pending(cat Category) int {
	if !cat.Valid() {
		return 0
	}
	en := &e.entries[cat]
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.pending
}

// Start launches the sweep goroutine. Calling it again has no effect.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.started.Store(true)
		go e.run()
	})
}

func (e *Engine) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.sweep(e.now())
		}
	}
}

// Close stops the sweep goroutine and waits for it to exit. Suppressed
// counts that were never summarized are dropped.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.stop)
		if e.started.Load() {
			<-e.done
		}
	})
}

func (e *Engine) sweep(now time.Time) {
	timeout := e.Timeout()
	for i := range e.entries {
		cat := Category(i)
		en := &e.entries[i]
		en.mu.Lock()
		if en.suppressing {
			elapsed := now.Sub(en.lastPrint)
			if elapsed >= timeout {
				if en.pending > 0 {
					e.sink.Summary(cat, en.pending, elapsed, en.lastMessage)
					observability.RecordReport(cat.String(), "summarized")
					en.pending = 0
					en.lastPrint = now
				} else {
					en.suppressing = false
				}
			}
		}
		en.mu.Unlock()
	}
}
