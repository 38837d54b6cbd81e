package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saginctl/pkg/logger"
	"saginctl/pkg/pipeline"
	"saginctl/pkg/store"
)

// defaultBatchSize matches §4.8's default time-series grouping.
const defaultBatchSize = 50

// timeSeriesWindow is how many of the most recent batches
// AggregateTimeSeries serves.
const timeSeriesWindow = 10

// Batch is one fixed-size group's win-rate summary.
type Batch struct {
	Name           string
	AgentWinRate   float64
	PlannerWinRate float64
	DrawRate       float64
}

// Snapshot is the aggregator's cumulative view, served by
// GET /get_aggregate_stats.
type Snapshot struct {
	TotalRequests int64

	AgentSuccessRate   float64
	PlannerSuccessRate float64

	AgentWinRate   float64
	PlannerWinRate float64
	DrawRate       float64

	Agent   MetricSnapshot
	Planner MetricSnapshot
}

// Repository is the durable-store side of the aggregator; pkg/store's
// AggregatorRepository implements it. Kept narrow so this package does
// not need pgx types in its own signature.
type Repository interface {
	Insert(ctx context.Context, row store.AggregatorRow) error
}

// Config supplies the aggregator's collaborators. LogPath is required for
// durability; Repo is optional (a nil Repo only writes the CSV log).
type Config struct {
	LogPath   string
	BatchSize int
	Repo      Repository
	Clock     func() time.Time
}

// Aggregator is the statistics subsystem of §4.8: per-request comparison,
// Welford running stats, batched time series, and durable persistence.
// Safe for concurrent use; pkg/pipeline calls RecordRequest from its
// single routing-plane goroutine, but AggregateStats/TimeSeries may be
// read concurrently from HTTP handlers.
type Aggregator struct {
	mu sync.Mutex

	batchSize int
	clock     func() time.Time
	csv       *csvLog
	repo      Repository

	totalRequests  int64
	agentSuccess   int64
	plannerSuccess int64
	agentWins      int64
	plannerWins    int64
	draws          int64

	agent   metricSet
	planner metricSet

	currentBatch []int // winners (+1/-1/0) accumulated toward the next batch
	timeSeries   []Batch
}

var _ pipeline.Recorder = (*Aggregator)(nil)

// New builds an Aggregator, opening (and, if necessary, replaying) its
// durable CSV log. An empty LogPath defaults to "stats.csv"; BatchSize
// defaults to 50.
func New(cfg Config) (*Aggregator, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	log, err := openCSVLog(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		batchSize: cfg.BatchSize,
		clock:     cfg.Clock,
		csv:       log,
		repo:      cfg.Repo,
	}

	rows, err := log.replayRows()
	if err != nil {
		log.Close()
		return nil, err
	}
	for _, row := range rows {
		a.applyLocked(row)
	}
	return a, nil
}

// Close flushes and closes the durable log.
func (a *Aggregator) Close() error {
	return a.csv.Close()
}

// RecordRequest implements pipeline.Recorder: folds one finished
// request's comparison into the running statistics, appends it to the
// durable log, and (if wired) persists it to the store.
func (a *Aggregator) RecordRequest(rec pipeline.Record) {
	row := logRow{
		Timestamp:      a.clock(),
		RequestID:      rec.RequestID,
		AgentSuccess:   rec.Agent.Success,
		PlannerSuccess: rec.Planner.Success,
		Agent:          toMetrics(rec.Agent),
		Planner:        toMetrics(rec.Planner),
	}

	a.mu.Lock()
	win := a.applyLocked(row)
	a.mu.Unlock()

	if err := a.csv.Append(row); err != nil {
		logger.Log.Warn("stats: durable log append failed", "error", err, "request_id", rec.RequestID)
	}
	if a.repo != nil {
		if err := a.repo.Insert(context.Background(), toStoreRow(row, win)); err != nil {
			logger.Log.Warn("stats: store insert failed", "error", err, "request_id", rec.RequestID)
		}
	}
}

// applyLocked folds row into the running totals/metrics/batch and
// returns the request's winner. Caller holds a.mu.
func (a *Aggregator) applyLocked(row logRow) int {
	a.totalRequests++
	if row.AgentSuccess {
		a.agentSuccess++
	}
	if row.PlannerSuccess {
		a.plannerSuccess++
	}

	a.agent.update(len(row.Agent.path), row.Agent.latency, row.Agent.uplink, row.Agent.downlink, row.Agent.reliability, row.Agent.cpu, row.Agent.power)
	a.planner.update(len(row.Planner.path), row.Planner.latency, row.Planner.uplink, row.Planner.downlink, row.Planner.reliability, row.Planner.cpu, row.Planner.power)

	win := winner(row.Agent, row.Planner)
	switch {
	case win > 0:
		a.agentWins++
	case win < 0:
		a.plannerWins++
	default:
		a.draws++
	}

	a.currentBatch = append(a.currentBatch, win)
	if len(a.currentBatch) >= a.batchSize {
		a.flushBatchLocked()
	}
	return win
}

func (a *Aggregator) flushBatchLocked() {
	n := len(a.currentBatch)
	if n == 0 {
		return
	}
	var agentWins, plannerWins, draws int
	for _, w := range a.currentBatch {
		switch {
		case w > 0:
			agentWins++
		case w < 0:
			plannerWins++
		default:
			draws++
		}
	}

	a.timeSeries = append(a.timeSeries, Batch{
		Name:           fmt.Sprintf("Batch %d", len(a.timeSeries)+1),
		AgentWinRate:   100 * float64(agentWins) / float64(n),
		PlannerWinRate: 100 * float64(plannerWins) / float64(n),
		DrawRate:       100 * float64(draws) / float64(n),
	})
	a.currentBatch = a.currentBatch[:0]
}

// AggregateStats returns the cumulative snapshot served by
// GET /get_aggregate_stats.
func (a *Aggregator) AggregateStats() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.totalRequests == 0 {
		return Snapshot{Agent: a.agent.snapshot(), Planner: a.planner.snapshot()}
	}
	total := float64(a.totalRequests)
	return Snapshot{
		TotalRequests:      a.totalRequests,
		AgentSuccessRate:   100 * float64(a.agentSuccess) / total,
		PlannerSuccessRate: 100 * float64(a.plannerSuccess) / total,
		AgentWinRate:       100 * float64(a.agentWins) / total,
		PlannerWinRate:     100 * float64(a.plannerWins) / total,
		DrawRate:           100 * float64(a.draws) / total,
		Agent:              a.agent.snapshot(),
		Planner:            a.planner.snapshot(),
	}
}

// TimeSeries returns up to the last ten completed batches, oldest first
// (spec §4.8: "serve the last ten batches"). A partial batch still
// accumulating is not included.
func (a *Aggregator) TimeSeries() []Batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.timeSeries) <= timeSeriesWindow {
		out := make([]Batch, len(a.timeSeries))
		copy(out, a.timeSeries)
		return out
	}
	out := make([]Batch, timeSeriesWindow)
	copy(out, a.timeSeries[len(a.timeSeries)-timeSeriesWindow:])
	return out
}

func toMetrics(s pipeline.StrategyResult) strategyMetrics {
	return strategyMetrics{
		path:        s.Path,
		latency:     s.LatencyMS,
		uplink:      s.Uplink,
		downlink:    s.Downlink,
		reliability: s.Reliability,
		cpu:         s.CPU,
		power:       s.Power,
	}
}

func toStoreRow(row logRow, win int) store.AggregatorRow {
	winnerLabel := "draw"
	switch {
	case win > 0:
		winnerLabel = "agent"
	case win < 0:
		winnerLabel = "planner"
	}
	return store.AggregatorRow{
		Timestamp:          row.Timestamp,
		RequestID:          row.RequestID,
		AgentSuccess:       row.AgentSuccess,
		AgentHops:          len(row.Agent.path),
		AgentLatency:       row.Agent.latency,
		AgentUplink:        row.Agent.uplink,
		AgentDownlink:      row.Agent.downlink,
		AgentReliability:   row.Agent.reliability,
		AgentCPU:           row.Agent.cpu,
		AgentPower:         row.Agent.power,
		PlannerSuccess:     row.PlannerSuccess,
		PlannerHops:        len(row.Planner.path),
		PlannerLatency:     row.Planner.latency,
		PlannerUplink:      row.Planner.uplink,
		PlannerDownlink:    row.Planner.downlink,
		PlannerReliability: row.Planner.reliability,
		PlannerCPU:         row.Planner.cpu,
		PlannerPower:       row.Planner.power,
		Winner:             winnerLabel,
	}
}
