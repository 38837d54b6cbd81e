package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/pipeline"
)

func newTestAggregator(t *testing.T, batchSize int) *Aggregator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.csv")
	a, err := New(Config{
		LogPath:   path,
		BatchSize: batchSize,
		Clock:     func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func agentWinsRecord(id string) pipeline.Record {
	return pipeline.Record{
		RequestID: id,
		Agent: pipeline.StrategyResult{
			Success: true, Path: []string{"a"},
			LatencyMS: 5, Uplink: 100, Downlink: 100, Reliability: 0.99, CPU: 0.9, Power: 0.9,
		},
		Planner: pipeline.StrategyResult{
			Success: true, Path: []string{"a", "b", "c"},
			LatencyMS: 50, Uplink: 10, Downlink: 10, Reliability: 0.5, CPU: 0.1, Power: 0.1,
		},
	}
}

func plannerWinsRecord(id string) pipeline.Record {
	return pipeline.Record{
		RequestID: id,
		Agent: pipeline.StrategyResult{
			Success: false, Path: nil,
			LatencyMS: 500, Uplink: 1, Downlink: 1, Reliability: 0.1, CPU: 0.1, Power: 0.1,
		},
		Planner: pipeline.StrategyResult{
			Success: true, Path: []string{"a"},
			LatencyMS: 10, Uplink: 100, Downlink: 100, Reliability: 0.99, CPU: 0.9, Power: 0.9,
		},
	}
}

func TestAggregatorRecordRequestUpdatesSnapshot(t *testing.T) {
	a := newTestAggregator(t, 50)

	a.RecordRequest(agentWinsRecord("r-1"))
	a.RecordRequest(plannerWinsRecord("r-2"))

	snap := a.AggregateStats()
	require.Equal(t, int64(2), snap.TotalRequests)
	require.InDelta(t, 50.0, snap.AgentSuccessRate, 1e-9)
	require.InDelta(t, 100.0, snap.PlannerSuccessRate, 1e-9)
	require.InDelta(t, 50.0, snap.AgentWinRate, 1e-9)
	require.InDelta(t, 50.0, snap.PlannerWinRate, 1e-9)
	require.InDelta(t, 0.0, snap.DrawRate, 1e-9)
}

func TestAggregatorFlushesBatchAtBoundary(t *testing.T) {
	a := newTestAggregator(t, 4)

	for i := 0; i < 3; i++ {
		a.RecordRequest(agentWinsRecord("r"))
	}
	require.Empty(t, a.TimeSeries(), "batch not yet full")

	a.RecordRequest(plannerWinsRecord("r-4"))
	series := a.TimeSeries()
	require.Len(t, series, 1)
	require.Equal(t, "Batch 1", series[0].Name)
	require.InDelta(t, 75.0, series[0].AgentWinRate, 1e-9)
	require.InDelta(t, 25.0, series[0].PlannerWinRate, 1e-9)
}

func TestAggregatorThousandRequestsProduceTwentyBatches(t *testing.T) {
	a := newTestAggregator(t, 50)

	for i := 0; i < 500; i++ {
		a.RecordRequest(agentWinsRecord("a-win"))
	}
	for i := 0; i < 500; i++ {
		a.RecordRequest(plannerWinsRecord("p-win"))
	}

	snap := a.AggregateStats()
	require.Equal(t, int64(1000), snap.TotalRequests)
	require.InDelta(t, 0.0, snap.DrawRate, 1e-9) // no draws constructed above

	require.Len(t, a.timeSeries, 20, "1000 requests at batch size 50 is 20 complete batches")
	require.Len(t, a.TimeSeries(), 10, "TimeSeries serves only the most recent ten")
}

func TestAggregatorTimeSeriesWindowIsOldestFirstWithinLastTen(t *testing.T) {
	a := newTestAggregator(t, 10)
	for i := 0; i < 150; i++ {
		a.RecordRequest(agentWinsRecord("r"))
	}
	series := a.TimeSeries()
	require.Len(t, series, 10)
	require.Equal(t, "Batch 6", series[0].Name)
	require.Equal(t, "Batch 15", series[9].Name)
}

func TestAggregatorReplaysExistingLogOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	a, err := New(Config{LogPath: path, BatchSize: 50, Clock: func() time.Time { return time.Unix(1, 0) }})
	require.NoError(t, err)
	a.RecordRequest(agentWinsRecord("r-1"))
	a.RecordRequest(plannerWinsRecord("r-2"))
	require.NoError(t, a.Close())

	reopened, err := New(Config{LogPath: path, BatchSize: 50, Clock: func() time.Time { return time.Unix(2, 0) }})
	require.NoError(t, err)
	defer reopened.Close()

	snap := reopened.AggregateStats()
	require.Equal(t, int64(2), snap.TotalRequests)
}
