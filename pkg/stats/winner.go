package stats

// winner scores one finished request's two strategies against each other
// (spec §4.8): lower is better for hops and latency, higher is better for
// bandwidth/reliability/cpu/power; the per-metric comparisons are summed
// and the side with the higher count wins. A planner that produced no
// path loses unconditionally, regardless of the agent's own outcome.
//
// Note: the reference service's own scorer compares uplink/downlink/cpu/
// power the opposite way (lower wins); this package follows the
// distilled ranking directly since the two disagree and the distilled
// text is what binds this rewrite.
func winner(agent, planner strategyMetrics) int {
	if len(planner.path) == 0 {
		return 1
	}

	agentScore, plannerScore := 0, 0
	lowerWins := func(a, b float64) {
		switch {
		case a < b:
			agentScore++
		case a > b:
			plannerScore++
		}
	}
	higherWins := func(a, b float64) {
		switch {
		case a > b:
			agentScore++
		case a < b:
			plannerScore++
		}
	}

	lowerWins(float64(len(agent.path)), float64(len(planner.path)))
	lowerWins(agent.latency, planner.latency)
	higherWins(agent.uplink, planner.uplink)
	higherWins(agent.downlink, planner.downlink)
	higherWins(agent.reliability, planner.reliability)
	higherWins(agent.cpu, planner.cpu)
	higherWins(agent.power, planner.power)

	switch {
	case agentScore > plannerScore:
		return 1
	case agentScore < plannerScore:
		return -1
	default:
		return 0
	}
}

// strategyMetrics is the subset of a strategy's result the winner
// comparison and metric aggregation need.
type strategyMetrics struct {
	path        []string
	latency     float64
	uplink      float64
	downlink    float64
	reliability float64
	cpu         float64
	power       float64
}
