package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker reports progress of a bulk operation whose tasks finish in any
// order. It is safe for concurrent use; a nil out disables output.
type Tracker struct {
	out         io.Writer
	label       string
	total       int
	done        int
	mu          sync.Mutex
	lastPrinted time.Time
	interval    time.Duration
}

// NewTracker creates a Tracker for total tasks.
func NewTracker(out io.Writer, label string, total int) *Tracker {
	return &Tracker{out: out, label: label, total: total, interval: 200 * time.Millisecond}
}

// Done marks one task finished and prints "[label n/total] status item".
func (p *Tracker) Done(item, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.out == nil {
		return
	}
	fmt.Fprintf(p.out, "[%s %d/%d] %s %s\n", p.label, p.done, p.total, status, item)
}

// Update prints an in-flight percentage for item, at most once per interval
// across all tasks.
func (p *Tracker) Update(item string, fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return
	}
	now := time.Now()
	if now.Sub(p.lastPrinted) < p.interval {
		return
	}
	p.lastPrinted = now
	fmt.Fprintf(p.out, "[%s %d/%d] %.1f%% %s\n", p.label, p.done, p.total, fraction*100, item)
}

// Completed returns how many tasks have finished.
func (p *Tracker) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
