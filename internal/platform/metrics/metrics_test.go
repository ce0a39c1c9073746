package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketingops/internal/domain/compliance"
)

func TestRecordRequests(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.Record(429, 0)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.InDelta(t, 40.0/3.0, snap["avgDurationMs"], 0.001)
}

func TestRecordSweep(t *testing.T) {
	c := New()
	c.RecordSweep(compliance.RetentionReport{
		Results: []compliance.PolicyResult{
			{EntityType: "user", Status: compliance.ExecutionStatusSuccess},
			{EntityType: "content", Status: compliance.ExecutionStatusError},
		},
		TotalProcessed: 5,
		TotalArchived:  2,
		TotalDeleted:   3,
	})
	c.RecordPurge(map[string]int64{"user": 2, "content": 1})

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap["retentionSweepsTotal"])
	assert.Equal(t, uint64(1), snap["retentionPoliciesFailed"])
	assert.Equal(t, uint64(5), snap["retentionRecordsProcessed"])
	assert.Equal(t, uint64(2), snap["retentionRecordsArchived"])
	assert.Equal(t, uint64(3), snap["retentionRecordsDeleted"])
	assert.Equal(t, uint64(3), snap["retentionRecordsPurged"])
	assert.NotZero(t, snap["retentionLastSweepUnix"])
}

func TestWriteText(t *testing.T) {
	c := New()
	c.Record(200, time.Millisecond)

	var sb strings.Builder
	require.NoError(t, c.WriteText(&sb))
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	assert.Contains(t, lines, "marketingops_requestsTotal 1")
	assert.True(t, strings.HasPrefix(lines[0], "marketingops_avgDurationMs"))
}
