package routeenv

import (
	"saginctl/pkg/apperror"
	"saginctl/pkg/request"
)

// Step applies action against the currently cached neighbour slots,
// advances the episode on a valid action, and returns the resulting
// observation and outcome (spec §4.6's transition/reward semantics).
//
// An invalid action (empty slot) leaves all state unchanged except the
// terminal-flag-adjacent "previous action was invalid" marker; the
// episode continues. A valid action always advances steps by one and
// may end the episode in success (GS reached — resources committed and
// the request registered in the spatial index) or step-limit truncation.
// A dead end (the current node, not a GS, has no feasible neighbour) is
// reported by the next Step call, before its action is looked at.
func (e *Env) Step(action int) (Observation, StepResult) {
	// A dead end is diagnosed against the neighbour cache the agent was
	// just shown (built on Reset or by the previous valid transition):
	// if no slot was occupied there, every action is unreachable and the
	// episode ends rather than looping on invalid-action penalties.
	if e.neighbors[0] == nil && !e.atGroundStation() {
		return e.buildObservation(), e.finishDeadEnd(e.current)
	}

	if action < 0 || action >= NumNeighborSlots || e.neighbors[action] == nil {
		e.lastInvalid = true
		obs := e.buildObservation()
		return obs, StepResult{Reward: InvalidActionPenalty / NormBase}
	}

	chosen := e.neighbors[action]
	req := e.current

	req.Path = append(req.Path, chosen.node.ID)
	e.passed[chosen.node.ID] = true
	req.LatencyActualMS += chosen.latencyMS
	req.ReliabilityActual *= chosen.reliability
	req.UplinkAllocated = min(chosen.freeUplink, req.UplinkAllocated)
	req.DownlinkAllocated = min(chosen.freeDownlink, req.DownlinkAllocated)
	if chosen.isGS {
		req.CPUAllocated = min(chosen.freeCPU, req.CPURequired)
		req.PowerAllocated = min(chosen.freePower, req.PowerRequired)
	}

	e.currentNode = chosen.node
	e.steps++
	e.lastInvalid = false
	e.refreshNeighbors()

	obs := e.buildObservation()

	switch {
	case e.atGroundStation():
		return obs, e.finishSuccess(req)
	case e.steps > MaxStep:
		return obs, e.finishStepLimit(req)
	default:
		r := e.commonReward(req)
		r = clampRange(r/NormBase, -2, 2) / InterStepNorm
		return obs, StepResult{Reward: r}
	}
}

// commonReward sums every contribution shared by terminal and
// non-terminal steps: base, efficiency, hop, timeout, QoS, and
// GS-proximity terms (spec §4.6).
func (e *Env) commonReward(req *request.Request) float64 {
	meanUsage := 0.0
	if e.currentNode != nil {
		meanUsage = e.currentNode.MeanUsage()
	}

	w := req.Weights()
	latRatio := safeRatio(req.LatencyRequiredMS, req.LatencyActualMS)
	relRatio := safeRatio(req.ReliabilityActual, req.ReliabilityRequired)
	upRatio := safeRatio(req.UplinkAllocated, req.UplinkRequired)
	downRatio := safeRatio(req.DownlinkAllocated, req.DownlinkRequired)

	now := e.clock()
	loc := e.currentLocation()
	distRate := 1.0
	score := 0.0
	if dist, gsID, ok := e.net.NearestGSDistance(loc, now); ok {
		distRate = dist / NearestGSNormM
		if gs, ok := e.net.Get(gsID); ok {
			score = healthScore(gs, req, req.AdmissionCap())
		}
	}

	return baseReward(e.steps) +
		efficiencyBonus(meanUsage) +
		hopReward(e.steps) +
		TimeoutPool*clamp01(safeRatio(float64(req.RealTimeout), float64(req.DemandTimeout))) +
		qosTerm(w, latRatio, relRatio, upRatio, downRatio) +
		gsProximityTerm(distRate, score)
}

// finishSuccess commits resource holds on every node in the path,
// registers the request in the spatial index, and returns the
// success-terminal reward. A commit failure (defensive only, see spec
// §7) downgrades the outcome to a terminal failure with no commits
// persisted.
func (e *Env) finishSuccess(req *request.Request) StepResult {
	if err := e.commitHolds(req); err != nil {
		return StepResult{
			Reward:  clampRange(DeadEndPenalty/NormBase, -2, 2),
			Done:    true,
			Outcome: OutcomeDeadEnd,
			Err:     err,
		}
	}
	e.connections = append(e.connections, req)
	e.space.Add(req.ID, req.Source)

	r := e.commonReward(req)
	r += FinishedPool / 2
	if e.steps <= MaxStep/3 {
		r += earlyFinishBonus(e.steps)
	}
	r += FinishedPool / 4 * clamp01(safeRatio(req.CPUAllocated, req.CPURequired))
	r += FinishedPool / 4 * clamp01(safeRatio(req.PowerAllocated, req.PowerRequired))

	return StepResult{
		Reward:  clampRange(r/NormBase, -2, 2),
		Done:    true,
		Outcome: OutcomeSuccess,
	}
}

func (e *Env) finishDeadEnd(req *request.Request) StepResult {
	r := e.commonReward(req) + DeadEndPenalty
	return StepResult{
		Reward:  clampRange(r/NormBase, -2, 2),
		Done:    true,
		Outcome: OutcomeDeadEnd,
		Err:     apperror.ErrDeadEnd,
	}
}

func (e *Env) finishStepLimit(req *request.Request) StepResult {
	r := e.commonReward(req) + StepLimitPenalty
	return StepResult{
		Reward:  clampRange(r/NormBase, -2, 2),
		Done:    true,
		Outcome: OutcomeStepLimit,
		Err:     apperror.ErrStepLimit,
	}
}

// Score is the aggregator-facing quality figure for a successfully
// completed episode, distinct from the shaped training reward (spec
// §4.8's per-request scoring used to decide agent-vs-planner wins).
func Score(req *request.Request) float64 {
	w := req.Weights()
	latRatio := clamp01(safeRatio(req.LatencyRequiredMS, req.LatencyActualMS))
	relRatio := clamp01(safeRatio(req.ReliabilityActual, req.ReliabilityRequired))
	upRatio := clamp01(safeRatio(req.UplinkAllocated, req.UplinkRequired))
	downRatio := clamp01(safeRatio(req.DownlinkAllocated, req.DownlinkRequired))
	timeoutRatio := clamp01(safeRatio(float64(req.RealTimeout), float64(req.DemandTimeout)))

	score := 10*w.Latency*latRatio + 10*w.Reliability*relRatio +
		10*w.Uplink*upRatio + 10*w.Downlink*downRatio + 2*timeoutRatio
	return roundTo2dp(score)
}

func roundTo2dp(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
