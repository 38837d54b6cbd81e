// Package stats implements the statistics aggregator: per-request
// agent/planner comparison, Welford running mean/variance per metric,
// batched win-rate time series, and a durable append-only log replayed
// on startup (spec §4.8).
package stats

import "math"

// RunningStats computes mean and variance online via Welford's algorithm,
// grounded on the reference service's RunningStats dataclass.
type RunningStats struct {
	n    int64
	mean float64
	m2   float64
}

// Update folds x into the running statistics.
func (r *RunningStats) Update(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	delta2 := x - r.mean
	r.m2 += delta * delta2
}

// Count returns the number of values folded in.
func (r *RunningStats) Count() int64 { return r.n }

// Mean returns the running mean, zero if no values have been folded in.
func (r *RunningStats) Mean() float64 { return r.mean }

// Variance returns the sample variance, zero until at least two values
// have been folded in.
func (r *RunningStats) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// StdDev returns the sample standard deviation.
func (r *RunningStats) StdDev() float64 {
	return math.Sqrt(r.Variance())
}

// metricSet holds one strategy's running statistics across every metric
// the aggregator tracks.
type metricSet struct {
	Hops        RunningStats
	Latency     RunningStats
	Uplink      RunningStats
	Downlink    RunningStats
	Reliability RunningStats
	CPU         RunningStats
	Power       RunningStats
}

func (m *metricSet) update(hops int, latency, uplink, downlink, reliability, cpu, power float64) {
	m.Hops.Update(float64(hops))
	m.Latency.Update(latency)
	m.Uplink.Update(uplink)
	m.Downlink.Update(downlink)
	m.Reliability.Update(reliability)
	m.CPU.Update(cpu)
	m.Power.Update(power)
}

// MetricSnapshot is the read-only view of one strategy's running stats
// returned from AggregateStats.
type MetricSnapshot struct {
	AvgHops        float64
	AvgLatency     float64
	AvgUplink      float64
	AvgDownlink    float64
	AvgReliability float64
	AvgCPU         float64
	AvgPower       float64
	UplinkStdDev   float64
	DownlinkStdDev float64
	CPUStdDev      float64
	PowerStdDev    float64
}

func (m *metricSet) snapshot() MetricSnapshot {
	return MetricSnapshot{
		AvgHops:        m.Hops.Mean(),
		AvgLatency:     m.Latency.Mean(),
		AvgUplink:      m.Uplink.Mean(),
		AvgDownlink:    m.Downlink.Mean(),
		AvgReliability: m.Reliability.Mean(),
		AvgCPU:         m.CPU.Mean(),
		AvgPower:       m.Power.Mean(),
		UplinkStdDev:   m.Uplink.StdDev(),
		DownlinkStdDev: m.Downlink.StdDev(),
		CPUStdDev:      m.CPU.StdDev(),
		PowerStdDev:    m.Power.StdDev(),
	}
}
