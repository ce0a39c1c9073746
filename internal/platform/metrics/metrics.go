package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"marketingops/internal/domain/compliance"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	sweepRuns        uint64
	policiesFailed   uint64
	recordsProcessed uint64
	recordsArchived  uint64
	recordsDeleted   uint64
	recordsPurged    uint64
	lastSweepUnix    int64
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

// RecordSweep satisfies compliance.SweepRecorder.
func (c *Collector) RecordSweep(report compliance.RetentionReport) {
	atomic.AddUint64(&c.sweepRuns, 1)
	for _, result := range report.Results {
		if result.Status == compliance.ExecutionStatusError {
			atomic.AddUint64(&c.policiesFailed, 1)
		}
	}
	atomic.AddUint64(&c.recordsProcessed, uint64(report.TotalProcessed))
	atomic.AddUint64(&c.recordsArchived, uint64(report.TotalArchived))
	atomic.AddUint64(&c.recordsDeleted, uint64(report.TotalDeleted))
	atomic.StoreInt64(&c.lastSweepUnix, time.Now().Unix())
}

func (c *Collector) RecordPurge(purged map[string]int64) {
	var total int64
	for _, n := range purged {
		total += n
	}
	atomic.AddUint64(&c.recordsPurged, uint64(total))
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
		"requestsTotal":             total,
		"errorsTotal":               errs,
		"rateLimitedTotal":          limited,
		"avgDurationMs":             avg,
		"totalDurationMs":           totalMs,
		"retentionSweepsTotal":      atomic.LoadUint64(&c.sweepRuns),
		"retentionPoliciesFailed":   atomic.LoadUint64(&c.policiesFailed),
		"retentionRecordsProcessed": atomic.LoadUint64(&c.recordsProcessed),
		"retentionRecordsArchived":  atomic.LoadUint64(&c.recordsArchived),
		"retentionRecordsDeleted":   atomic.LoadUint64(&c.recordsDeleted),
		"retentionRecordsPurged":    atomic.LoadUint64(&c.recordsPurged),
		"retentionLastSweepUnix":    atomic.LoadInt64(&c.lastSweepUnix),
	}
}

// WriteText writes the snapshot in the plain-text exposition format, one
// sample per line, sorted by name.
func (c *Collector) WriteText(w io.Writer) error {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "marketingops_%s %v\n", name, snap[name]); err != nil {
			return err
		}
	}
	return nil
}
