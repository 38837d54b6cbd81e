package routeenv

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/apperror"
	"saginctl/pkg/geo"
	"saginctl/pkg/request"
	"saginctl/pkg/spatial"
	"saginctl/pkg/topology"
)

func gsFull(id string, lat, lon, coverageKm float64) *topology.Node {
	n := topology.NewNode(id, topology.KindGroundStation, geo.Point{LatDeg: lat, LonDeg: lon}, map[topology.ResourceKey]float64{
		topology.ResUplink: 100, topology.ResDownlink: 100, topology.ResCPU: 100, topology.ResPower: 100,
	})
	n.CoverageRadiusKm = coverageKm
	return n
}

func newTestEnv(nw *topology.Network) *Env {
	space := spatial.NewGroundSpace(50, 30*time.Second)
	now := time.Now()
	return New(nw, space, rand.New(rand.NewSource(7)), func() time.Time { return now })
}

func oneHopRequest(id string) *request.Request {
	r := request.New(id, request.ServiceData, geo.Point{LatDeg: 13.75, LonDeg: 100.50})
	r.UplinkRequired, r.DownlinkRequired = 1, 5
	r.CPURequired, r.PowerRequired = 5, 10
	r.LatencyRequiredMS = 150
	r.ReliabilityRequired = 0.95
	r.Priority = 3
	r.UplinkAllocated, r.DownlinkAllocated = r.UplinkRequired, r.DownlinkRequired
	r.DemandTimeout, r.RealTimeout = 1000, 1000
	return r
}

func TestObservationIsWellFormedAfterReset(t *testing.T) {
	nw := topology.NewNetwork()
	nw.AddNode(gsFull("gs-1", 13.76, 100.51, 500))
	env := newTestEnv(nw)

	obs := env.ResetWith(oneHopRequest("r-1"))

	ones := 0
	for i := 0; i < request.NumServiceClasses; i++ {
		if obs[i] == 1 {
			ones++
		}
	}
	require.Equal(t, 1, ones)

	for i, v := range obs {
		require.False(t, v < 0 || v > 1, "obs[%d]=%v out of [0,1]", i, v)
	}
	require.Contains(t, []float64{0, 0.5, 1}, obs[168])
}

func TestSingleHopReachesGroundStationAndCommits(t *testing.T) {
	nw := topology.NewNetwork()
	nw.AddNode(gsFull("gs-1", 13.76, 100.51, 500))
	env := newTestEnv(nw)

	_ = env.ResetWith(oneHopRequest("r-1"))
	_, res := env.Step(0)

	require.True(t, res.Done)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.NoError(t, res.Err)

	gs, _ := nw.Get("gs-1")
	require.Greater(t, gs.Used(topology.ResUplink), 0.0)
	require.Greater(t, gs.Used(topology.ResCPU), 0.0)
}

func TestInvalidActionPenalisesWithoutAdvancingState(t *testing.T) {
	nw := topology.NewNetwork()
	nw.AddNode(gsFull("gs-1", 13.76, 100.51, 500))
	env := newTestEnv(nw)

	_ = env.ResetWith(oneHopRequest("r-1"))
	obsBefore := env.buildObservation()
	steps := env.Steps()

	obs, res := env.Step(5) // slot 5 is empty with only one connectable node

	require.False(t, res.Done)
	require.InDelta(t, InvalidActionPenalty/NormBase, res.Reward, 1e-9)
	require.Equal(t, steps, env.Steps())
	require.Equal(t, 0.5, obs[168])
	require.NotEqual(t, obsBefore[168], obs[168])
}

func TestDeadEndWhenNoGroundStationReachable(t *testing.T) {
	nw := topology.NewNetwork()
	// No nodes at all: the user's source has no connectable neighbour, so
	// the very first observation already has an empty neighbour cache and
	// any action immediately ends the episode as a dead end.
	env := newTestEnv(nw)
	env.ResetWith(oneHopRequest("r-1"))
	require.Nil(t, env.neighbors[0])

	_, res := env.Step(0)
	require.True(t, res.Done)
	require.Equal(t, OutcomeDeadEnd, res.Outcome)
	require.ErrorIs(t, res.Err, apperror.ErrDeadEnd)
}

func TestStepLimitTruncatesAfterMaxStepHops(t *testing.T) {
	nw := topology.NewNetwork()
	// A cluster of sea stations with no ground station present: every
	// station is mutually connectable, so the episode keeps hopping
	// between untraversed stations until it runs out of hop budget.
	for i := 0; i < MaxStep+5; i++ {
		n := topology.NewNode(
			"ss-"+string(rune('a'+i)),
			topology.KindSeaStation,
			geo.Point{LatDeg: 0, LonDeg: float64(i) * 0.01},
			map[topology.ResourceKey]float64{topology.ResUplink: 100, topology.ResDownlink: 100, topology.ResISL: 100},
		)
		n.CoverageRadiusKm = 5000
		nw.AddNode(n)
	}
	env := newTestEnv(nw)
	req := oneHopRequest("r-1")
	req.Source = geo.Point{LatDeg: 0, LonDeg: 0}
	env.ResetWith(req)

	var last StepResult
	for i := 0; i < MaxStep+5; i++ {
		if env.neighbors[0] == nil {
			break
		}
		_, last = env.Step(0)
		if last.Done {
			break
		}
	}
	require.True(t, last.Done)
	require.Contains(t, []Outcome{OutcomeStepLimit, OutcomeDeadEnd}, last.Outcome)
}

func TestRetirementReleasesHoldsAfterTimeoutExpires(t *testing.T) {
	nw := topology.NewNetwork()
	nw.AddNode(gsFull("gs-1", 13.76, 100.51, 500))
	env := newTestEnv(nw)

	req := oneHopRequest("r-1")
	req.DemandTimeout, req.RealTimeout = 2, 2
	env.ResetWith(req)
	_, res := env.Step(0)
	require.True(t, res.Done)
	require.Equal(t, OutcomeSuccess, res.Outcome)

	gs, _ := nw.Get("gs-1")
	usedBefore := gs.Used(topology.ResUplink)
	require.Greater(t, usedBefore, 0.0)

	// Two resets tick real_timeout from 2 to 0, retiring the request.
	env.ResetWith(oneHopRequest("r-2"))
	env.ResetWith(oneHopRequest("r-3"))

	require.Equal(t, 0.0, gs.Used(topology.ResUplink))
}

func TestScoreIsWithinExpectedBounds(t *testing.T) {
	req := oneHopRequest("r-1")
	req.ReliabilityActual = req.ReliabilityRequired
	req.LatencyActualMS = req.LatencyRequiredMS
	s := Score(req)
	require.GreaterOrEqual(t, s, 0.0)
	require.LessOrEqual(t, s, 12.0)
}
