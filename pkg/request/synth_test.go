package request

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
)

func TestRandomSourceStaysWithinGlobalBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p := RandomSource(rng)
		require.InDelta(t, 0, p.LatDeg, 90.01)
		require.GreaterOrEqual(t, p.AltM, 0.0)
		require.LessOrEqual(t, p.AltM, 2000.0)
	}
}

func TestRandomConnectableSourceRespectsChecker(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	calls := 0
	checker := func(p geo.Point) bool {
		calls++
		return calls > 3 // force a few retries
	}
	_ = RandomConnectableSource(rng, checker)
	require.Greater(t, calls, 3)
}

func TestRandomServiceClassIsAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		c := RandomServiceClass(rng)
		require.GreaterOrEqual(t, int(c), 0)
		require.Less(t, int(c), NumServiceClasses)
	}
}

func TestRandomRequestFieldsWithinProfileRange(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	r := Random(rng, "req-1", nil)
	profile := Profiles[r.Class]

	require.GreaterOrEqual(t, r.UplinkRequired, profile.Uplink.Min)
	require.LessOrEqual(t, r.UplinkRequired, profile.Uplink.Max)
	require.GreaterOrEqual(t, r.ReliabilityRequired, profile.Reliability.Min)
	require.LessOrEqual(t, r.ReliabilityRequired, profile.Reliability.Max)
	require.Equal(t, r.DemandTimeout, r.RealTimeout)
	require.GreaterOrEqual(t, r.DemandTimeout, 100)
	require.LessOrEqual(t, r.DemandTimeout, 4000)
}
