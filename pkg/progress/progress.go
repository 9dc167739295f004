// Package progress implements the sync engine's progress-reporting
// contract: a callback interface the engine polls between blocks, plus a
// console reporter with human-readable throughput.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Reporter receives progress updates from a running sync pass and may
// request early termination. When the hash pass runs first, it calls
// only Update, with the number of blocks it has hashed so far.
type Reporter interface {
	// Begin is called once by the sync pass, before its first index,
	// with the number of indices in its range.
	Begin(total uint64)
	// Update is called after each index of the sync pass with the
	// cumulative count of indices done so far. A true return requests
	// the pass stop after completing its current index.
	Update(done uint64) bool
	// End is called once, after the sync pass finishes its range or
	// stops on a true Update return.
	End()
}

// Noop is a Reporter that never requests abort and prints nothing.
type Noop struct{}

func (Noop) Begin(uint64)      {}
func (Noop) Update(uint64) bool { return false }
func (Noop) End()              {}

// ConsoleReporter writes periodic human-readable progress lines to w.
type ConsoleReporter struct {
	W         io.Writer
	Every     time.Duration
	blockSize uint64

	total     uint64
	start     time.Time
	lastPrint time.Time
}

// NewConsoleReporter creates a ConsoleReporter that formats throughput
// assuming blockSize bytes per unit of progress.
func NewConsoleReporter(w io.Writer, blockSize uint64) *ConsoleReporter {
	return &ConsoleReporter{W: w, Every: 2 * time.Second, blockSize: blockSize}
}

// Begin implements Reporter.
func (r *ConsoleReporter) Begin(total uint64) {
	r.total = total
	r.start = time.Now()
	r.lastPrint = r.start
	fmt.Fprintf(r.W, "sync: starting, %s to process\n", humanize.Bytes(total*r.blockSize))
}

// Update implements Reporter.
func (r *ConsoleReporter) Update(done uint64) bool {
	now := time.Now()
	if now.Sub(r.lastPrint) < r.Every {
		return false
	}
	r.lastPrint = now

	elapsed := now.Sub(r.start)
	rate := float64(done*r.blockSize) / elapsed.Seconds()
	pct := 0
	if r.total > 0 {
		pct = int(done * 100 / r.total)
	}
	fmt.Fprintf(r.W, "sync: %d%% (%s/%s) %s/s\n",
		pct,
		humanize.Bytes(done*r.blockSize),
		humanize.Bytes(r.total*r.blockSize),
		humanize.Bytes(uint64(rate)))
	return false
}

// End implements Reporter.
func (r *ConsoleReporter) End() {
	fmt.Fprintf(r.W, "sync: finished in %s\n", humanize.RelTime(r.start, time.Now(), "", ""))
}
