package sim

import "sync/atomic"

// ProgressSink forwards progress to a buffered channel without ever
// blocking the step loop. Reports that find the buffer full are dropped.
type ProgressSink struct {
	ch      chan Progress
	dropped atomic.Int64
	closed  atomic.Bool
}

func NewProgressSink(buffer int) *ProgressSink {
	return &ProgressSink{ch: make(chan Progress, max(1, buffer))}
}

func (p *ProgressSink) OnStep(pr Progress) {
	if p.closed.Load() {
		return
	}
	select {
	case p.ch <- pr:
	default:
		p.dropped.Add(1)
	}
}

// C returns the report channel. It is closed by Close.
func (p *ProgressSink) C() <-chan Progress { return p.ch }

// Dropped returns how many reports were discarded.
func (p *ProgressSink) Dropped() int64 { return p.dropped.Load() }

// Close must be called by the goroutine that ran the simulation, after
// Run returns.
func (p *ProgressSink) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.ch)
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

func (f ObserverFunc) OnStep(p Progress) { f(p) }
