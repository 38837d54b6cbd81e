package spatial

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
)

func TestEmptyIndexQueriesReturnNothing(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	got := gs.ListInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 100, false)
	require.Empty(t, got)
}

func TestAddThenForceRebuildFindsWithinRadius(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	gs.Add("req-near", geo.Point{LatDeg: 13.76, LonDeg: 100.51})
	gs.Add("req-far", geo.Point{LatDeg: -33.86, LonDeg: 151.20})
	gs.ForceRebuildSync()

	got := gs.ListInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 500, false)
	require.Len(t, got, 1)
	require.Equal(t, "req-near", got[0].RequestID)
}

func TestListInRadiusSortedByAscendingDistance(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	center := geo.Point{LatDeg: 0, LonDeg: 0}
	gs.Add("far", geo.Point{LatDeg: 2, LonDeg: 0})
	gs.Add("near", geo.Point{LatDeg: 0.5, LonDeg: 0})
	gs.Add("mid", geo.Point{LatDeg: 1, LonDeg: 0})
	gs.ForceRebuildSync()

	got := gs.ListInRadius(center, 1000, true)
	require.Len(t, got, 3)
	require.Equal(t, []string{"near", "mid", "far"}, []string{got[0].RequestID, got[1].RequestID, got[2].RequestID})
}

func TestCountInRadiusMatchesListLength(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	for i := 0; i < 20; i++ {
		gs.Add(fmt.Sprintf("req-%d", i), geo.Point{LatDeg: float64(i) * 0.01, LonDeg: 0})
	}
	gs.ForceRebuildSync()

	center := geo.Point{LatDeg: 0, LonDeg: 0}
	require.Equal(t, len(gs.ListInRadius(center, 50, false)), gs.CountInRadius(center, 50))
}

func TestRemoveExcludesFromSubsequentQueries(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	gs.Add("req-1", geo.Point{LatDeg: 13.76, LonDeg: 100.51})
	gs.ForceRebuildSync()
	require.Equal(t, 1, gs.CountInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 100))

	gs.Remove("req-1")
	gs.ForceRebuildSync()
	require.Equal(t, 0, gs.CountInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 100))
}

func TestQueryBeforeAnyRebuildReportsNothing(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	gs.Add("req-1", geo.Point{LatDeg: 13.76, LonDeg: 100.51})

	// No rebuild yet: the tree is still nil, so the index legitimately
	// reports nothing until a rebuild happens.
	require.Equal(t, 0, gs.CountInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 100))
}

func TestQueryDuringConcurrentMutationStaysConsistent(t *testing.T) {
	gs := NewGroundSpace(5, 10*time.Millisecond)
	for i := 0; i < 100; i++ {
		gs.Add(fmt.Sprintf("req-%d", i), geo.Point{LatDeg: float64(i%10) * 0.1, LonDeg: 0})
	}
	gs.ForceRebuildSync()

	center := geo.Point{LatDeg: 0, LonDeg: 0}
	for i := 0; i < 50; i++ {
		gs.Remove(fmt.Sprintf("req-%d", i))
		entries := gs.ListInRadius(center, 1000, false)
		for _, e := range entries {
			require.LessOrEqual(t, geo.Haversine(e.Source, center), 1000.0*1000)
		}
	}
}

func TestNearbyToRequestExcludesSelf(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	gs.Add("self", geo.Point{LatDeg: 13.75, LonDeg: 100.50})
	gs.Add("neighbor", geo.Point{LatDeg: 13.76, LonDeg: 100.51})
	gs.ForceRebuildSync()

	got, ok := gs.NearbyToRequest("self", 500, false)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "neighbor", got[0].RequestID)
}

func TestNearbyToRequestUnknownIDReturnsFalse(t *testing.T) {
	gs := NewGroundSpace(50, time.Minute)
	_, ok := gs.NearbyToRequest("missing", 500, false)
	require.False(t, ok)
}

func TestChordRadiusMatchesSmallAngleApproximation(t *testing.T) {
	// For small radii the chord length should closely track the
	// straight-line angular approximation r_km*1000/R.
	r := chordRadius(1)
	approx := 1000 / geo.EarthRadiusM
	require.InDelta(t, approx, r, 1e-6)
}

func TestRebuildThresholdTriggersAsyncRebuild(t *testing.T) {
	gs := NewGroundSpace(3, time.Hour)
	gs.Add("req-1", geo.Point{LatDeg: 13.76, LonDeg: 100.51})
	gs.Add("req-2", geo.Point{LatDeg: 13.77, LonDeg: 100.52})
	gs.Add("req-3", geo.Point{LatDeg: 13.78, LonDeg: 100.53})

	require.Eventually(t, func() bool {
		return gs.CountInRadius(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, 500) == 3
	}, time.Second, time.Millisecond)
}
