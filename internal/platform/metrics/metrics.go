package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	runsFinalized   uint64
	recordsWritten  uint64
	recordsEdited   uint64
	loanPayments    uint64
	finalizeErrors  uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RunFinalized counts one finalized run with the records and loan payments it wrote.
func (c *Collector) RunFinalized(records, loanPayments int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.runsFinalized, 1)
	atomic.AddUint64(&c.recordsWritten, uint64(records))
	atomic.AddUint64(&c.loanPayments, uint64(loanPayments))
}

func (c *Collector) RecordEdited() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.recordsEdited, 1)
}

func (c *Collector) FinalizeFailed() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.finalizeErrors, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":       total,
		"errorsTotal":         errs,
		"rateLimitedTotal":    limited,
		"avgDurationMs":       avg,
		"totalDurationMs":     totalMs,
		"runsFinalizedTotal":  atomic.LoadUint64(&c.runsFinalized),
		"recordsWrittenTotal": atomic.LoadUint64(&c.recordsWritten),
		"recordsEditedTotal":  atomic.LoadUint64(&c.recordsEdited),
		"loanPaymentsTotal":   atomic.LoadUint64(&c.loanPayments),
		"finalizeErrorsTotal": atomic.LoadUint64(&c.finalizeErrors),
	}
}
