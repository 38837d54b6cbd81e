package routeenv

import (
	"math"

	"saginctl/pkg/request"
)

// Reward-shaping constants, all part of the contract (spec §4.6).
const (
	MaxStep = 15

	BaseReward       = 5.0
	HopPenalty       = 5.0
	UsagePool        = 10.0
	QoSPool          = 55.0
	TimeoutPool      = 8.0
	FinishedPool     = 42.0
	GSProximityBonus = 16.0
	SpecialBonus     = 8.0

	InvalidActionPenalty = -80.0
	DeadEndPenalty       = -120.0
	StepLimitPenalty     = -100.0

	NormBase      = 70.0
	InterStepNorm = 100.0
)

// baseReward is BASE_REWARD*(1-steps/MAX_STEP).
func baseReward(steps int) float64 {
	return BaseReward * (1 - float64(steps)/MaxStep)
}

// efficiencyBonus is full UsagePool under 60% mean usage, tapering
// linearly to 0 at 100% usage.
func efficiencyBonus(meanUsage float64) float64 {
	if meanUsage < 0.6 {
		return UsagePool
	}
	return UsagePool * clamp01((1-meanUsage)/(1-0.6))
}

// hopReward is HOP_PENALTY - 0.35*steps^2 (named for the reference's
// hop-count shaping term, not itself always positive).
func hopReward(steps int) float64 {
	return HopPenalty - 0.35*float64(steps*steps)
}

// qosTerm is QOS_pool * sum(weight_k * ratio_k^power_k), latency and
// reliability exponentiated to 1.5, bandwidth ratios linear.
func qosTerm(w request.Weights, latRatio, relRatio, upRatio, downRatio float64) float64 {
	return QoSPool * (w.Latency*math.Pow(clamp01(latRatio), 1.5) +
		w.Reliability*math.Pow(clamp01(relRatio), 1.5) +
		w.Uplink*clamp01(upRatio) +
		w.Downlink*clamp01(downRatio))
}

// gsProximityTerm combines the distance-to-nearest-GS term and the
// health-score term of the GS-proximity bonus (spec §4.6).
func gsProximityTerm(distRateToNearestGS, score float64) float64 {
	return GSProximityBonus*(1-clamp01(distRateToNearestGS))*0.75 +
		GSProximityBonus*(score-7)/40
}

// earlyFinishBonus rewards reaching a GS well within the hop budget.
func earlyFinishBonus(steps int) float64 {
	if steps > MaxStep/3 {
		return 0
	}
	frac := 1 - float64(steps-1)/(MaxStep/3)
	return SpecialBonus * frac * frac
}

// clampRange restricts v to [lo, hi].
func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
