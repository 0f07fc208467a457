package engine

import "sync/atomic"

// Tracker counts downloaded bytes for one job. It is safe for concurrent use
// and never blocks.
type Tracker struct {
	downloaded atomic.Int64
	total      int64
}

func NewTracker(total int64) *Tracker {
	return &Tracker{total: total}
}

func (t *Tracker) Add(n int64) {
	if n > 0 {
		t.downloaded.Add(n)
	}
}

func (t *Tracker) Current() int64 {
	return t.downloaded.Load()
}

func (t *Tracker) Total() int64 {
	return t.total
}

func (t *Tracker) Percent() float64 {
	if t.total <= 0 {
		return 100
	}
	return float64(t.Current()) / float64(t.total) * 100
}

// progressCredit forwards bytes written for one chunk to the tracker. Bytes
// rewritten by a retried attempt are only credited beyond the previous
// high-water mark, so the tracker never double counts.
type progressCredit struct {
	tracker  *Tracker
	credited int64
}

func (c *progressCredit) report(written int64) {
	if c.tracker == nil || written <= c.credited {
		return
	}
	c.tracker.Add(written - c.credited)
	c.credited = written
}
