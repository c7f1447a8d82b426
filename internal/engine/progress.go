package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrProgressMismatch is returned when the drained progress total does not
// equal the number of samples in the run.
var ErrProgressMismatch = errors.New("progress total does not match sample count")

// Reporter receives the completion percentage after every progress signal.
type Reporter interface {
	Report(percent float64)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(percent float64)

// Report calls f(percent).
func (f ReporterFunc) Report(percent float64) { f(percent) }

type noopReporter struct{}

func (noopReporter) Report(float64) {}

// TerminalReporter rewrites a single console line with the current percentage.
type TerminalReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalReporter returns a reporter writing to w.
func NewTerminalReporter(w io.Writer) *TerminalReporter {
	return &TerminalReporter{w: w}
}

// Report writes "\r<pct>%" with two decimals.
func (r *TerminalReporter) Report(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "\r%.2f%%", percent)
}

// Finish terminates the progress line.
func (r *TerminalReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w)
}

// Aggregator folds progress signals into a running total.
type Aggregator struct {
	total    int
	done     int
	signals  int
	reporter Reporter
}

// NewAggregator returns an aggregator expecting total samples.
func NewAggregator(total int, reporter Reporter) *Aggregator {
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &Aggregator{total: total, reporter: reporter}
}

// Drain consumes signals until progress is closed. It always drains to the
// end so senders never block, and reports a mismatch only afterwards.
func (a *Aggregator) Drain(progress <-chan int) error {
	var bad error
	for n := range progress {
		a.signals++
		if n < 0 && bad == nil {
			bad = fmt.Errorf("%w: negative signal %d", ErrProgressMismatch, n)
			continue
		}
		a.done += n
		a.reporter.Report(a.Percent())
	}
	if bad != nil {
		return bad
	}
	if a.done != a.total {
		return fmt.Errorf("%w: drained %d of %d", ErrProgressMismatch, a.done, a.total)
	}
	return nil
}

// Done returns the accumulated total.
func (a *Aggregator) Done() int { return a.done }

// Signals returns how many signals were received.
func (a *Aggregator) Signals() int { return a.signals }

// Percent returns the completion percentage. An empty run reports 100.
func (a *Aggregator) Percent() float64 {
	if a.total == 0 {
		return 100
	}
	return float64(a.done) / float64(a.total) * 100
}
