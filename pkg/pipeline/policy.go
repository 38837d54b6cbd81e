package pipeline

import "saginctl/pkg/routeenv"

// GreedyPolicy is a dependency-free stand-in for the learned policy named
// out of scope by spec §1 ("the specific learned policy... only its
// inference contract is used"). It implements the same Predict contract
// by reading the observation's own neighbour-block features directly,
// favouring an occupied ground-station slot and otherwise the healthiest
// occupied neighbour. Useful as the pipeline's default when no real
// inference backend is wired, and in tests that exercise the pipeline
// without a model.
type GreedyPolicy struct{}

func (GreedyPolicy) Predict(obs routeenv.Observation) (int, error) {
	best := -1
	bestScore := -1.0
	for i := 0; i < routeenv.NumNeighborSlots; i++ {
		if obs[158+i] != 1 {
			continue
		}
		base := 28 + i*13
		isGS := obs[base+7]
		health := obs[base+11]
		distancePenalty := obs[base+0]
		score := isGS*10 + health - distancePenalty
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best == -1 {
		return 0, nil
	}
	return best, nil
}
