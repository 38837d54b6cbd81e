package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWinnerPlannerNoPathAlwaysLoses(t *testing.T) {
	agent := strategyMetrics{path: nil, latency: 1000}
	planner := strategyMetrics{path: nil}
	require.Equal(t, 1, winner(agent, planner))

	agent = strategyMetrics{path: []string{"a", "b", "c"}, latency: 1000}
	require.Equal(t, 1, winner(agent, planner))
}

func TestWinnerLowerIsBetterForHopsAndLatency(t *testing.T) {
	agent := strategyMetrics{path: []string{"a"}, latency: 10}
	planner := strategyMetrics{path: []string{"a", "b", "c"}, latency: 50}
	require.Equal(t, 1, winner(agent, planner))
}

func TestWinnerHigherIsBetterForBandwidthReliabilityCPUPower(t *testing.T) {
	agent := strategyMetrics{
		path: []string{"a"}, latency: 10,
		uplink: 100, downlink: 100, reliability: 0.99, cpu: 0.9, power: 0.9,
	}
	planner := strategyMetrics{
		path: []string{"a"}, latency: 10,
		uplink: 10, downlink: 10, reliability: 0.5, cpu: 0.1, power: 0.1,
	}
	require.Equal(t, 1, winner(agent, planner))
}

func TestWinnerMixedComparisonsPlannerAhead(t *testing.T) {
	agent := strategyMetrics{
		path: []string{"a", "b"}, latency: 10,
		uplink: 100, downlink: 10, reliability: 0.5, cpu: 0.5, power: 0.1,
	}
	planner := strategyMetrics{
		path: []string{"a", "b"}, latency: 10,
		uplink: 10, downlink: 100, reliability: 0.5, cpu: 0.5, power: 0.9,
	}
	// hops tie, latency tie, uplink agent+1, downlink planner+1, reliability
	// tie, cpu tie, power planner+1 -> agent 1, planner 2: planner should win
	require.Equal(t, -1, winner(agent, planner))
}

func TestWinnerPlannerBetterAcrossTheBoard(t *testing.T) {
	agent := strategyMetrics{
		path: []string{"a", "b", "c"}, latency: 500,
		uplink: 1, downlink: 1, reliability: 0.1, cpu: 0.1, power: 0.1,
	}
	planner := strategyMetrics{
		path: []string{"a"}, latency: 10,
		uplink: 100, downlink: 100, reliability: 0.99, cpu: 0.9, power: 0.9,
	}
	require.Equal(t, -1, winner(agent, planner))
}
