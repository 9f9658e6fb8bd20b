// Package progress reports how many bytes an archive operation has processed.
//
// A Tracker prints synchronously from the goroutine that feeds it, so it adds
// no background work to the operation it observes. A nil *Tracker is valid and
// discards everything.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker accumulates processed bytes and periodically writes a status line.
type Tracker struct {
	out   io.Writer
	label string
	total uint64

	processed  uint64
	start      time.Time
	lastOutput time.Time
	lastPct    float64

	// Interval is the minimum time between two status lines.
	Interval time.Duration
	// now is swapped in tests.
	now func() time.Time
}

// New returns a Tracker that writes status lines to out.
func New(out io.Writer) *Tracker {
	return &Tracker{
		out:      out,
		Interval: time.Second,
		now:      time.Now,
	}
}

// Start resets the tracker for an operation expected to process total bytes.
func (t *Tracker) Start(label string, total uint64) {
	if t == nil {
		return
	}
	t.label = label
	t.total = total
	t.processed = 0
	t.lastPct = 0
	t.start = t.now()
	t.lastOutput = t.start
	fmt.Fprintf(t.out, "%s %s...\n", t.label, humanize.IBytes(total))
}

// Add records n processed bytes.
func (t *Tracker) Add(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed += n

	now := t.now()
	pct := t.percent()
	if now.Sub(t.lastOutput) < t.Interval && pct-t.lastPct < 10 {
		return
	}
	t.lastOutput = now
	t.lastPct = pct
	t.report(now)
}

// Write implements io.Writer so a Tracker can sit in an io.MultiWriter or
// io.TeeReader next to the real destination.
func (t *Tracker) Write(p []byte) (int, error) {
	t.Add(uint64(len(p)))
	return len(p), nil
}

// Processed returns the bytes recorded since Start.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed
}

// Finish writes the summary line.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	elapsed := t.now().Sub(t.start)
	fmt.Fprintf(t.out, "%s: %s in %.1fs (%s)\n", t.label,
		humanize.IBytes(t.processed), elapsed.Seconds(), rate(t.processed, elapsed))
}

func (t *Tracker) percent() float64 {
	if t.total == 0 {
		return 100
	}
	return float64(t.processed) / float64(t.total) * 100
}

func (t *Tracker) report(now time.Time) {
	elapsed := now.Sub(t.start)
	if t.total == 0 {
		fmt.Fprintf(t.out, "%s: %s | %s\n", t.label, humanize.IBytes(t.processed), rate(t.processed, elapsed))
		return
	}
	fmt.Fprintf(t.out, "%s: %s of %s (%.1f%%) | %s | ETA %s\n", t.label,
		humanize.IBytes(t.processed), humanize.IBytes(t.total), t.percent(),
		rate(t.processed, elapsed), eta(t.processed, t.total, elapsed))
}

func rate(n uint64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-- /s"
	}
	return humanize.IBytes(uint64(float64(n)/elapsed.Seconds())) + "/s"
}

func eta(done, total uint64, elapsed time.Duration) string {
	if done == 0 || done >= total || elapsed <= 0 {
		return "--"
	}
	remaining := time.Duration(float64(elapsed) * float64(total-done) / float64(done))
	return remaining.Round(time.Second).String()
}
