package topology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
)

func newTestGS(id string, lat, lon, coverageKm float64) *Node {
	n := NewNode(id, KindGroundStation, geo.Point{LatDeg: lat, LonDeg: lon}, map[ResourceKey]float64{
		ResUplink: 100, ResDownlink: 100, ResCPU: 100, ResPower: 100,
	})
	n.CoverageRadiusKm = coverageKm
	return n
}

func TestFindConnectableNodesOrdersByKindThenDistance(t *testing.T) {
	nw := NewNetwork()
	far := newTestGS("gs-far", 13.90, 100.70, 500)
	near := newTestGS("gs-near", 13.76, 100.51, 500)
	nw.AddNode(far)
	nw.AddNode(near)

	from := geo.Point{LatDeg: 13.75, LonDeg: 100.50}
	got := nw.FindConnectableNodes(from, false, time.Now())

	require.Len(t, got, 2)
	require.Equal(t, "gs-near", got[0].ID)
	require.Equal(t, "gs-far", got[1].ID)
}

func TestFindConnectableNodesExcludesOutOfRange(t *testing.T) {
	nw := NewNetwork()
	nw.AddNode(newTestGS("gs-1", 50, 50, 10))

	from := geo.Point{LatDeg: 13.75, LonDeg: 100.50}
	got := nw.FindConnectableNodes(from, false, time.Now())
	require.Empty(t, got)
}

func TestNearestGS(t *testing.T) {
	nw := NewNetwork()
	nw.AddNode(newTestGS("gs-far", 30, 30, 5000))
	nw.AddNode(newTestGS("gs-near", 13.76, 100.51, 5000))

	from := geo.Point{LatDeg: 13.75, LonDeg: 100.50}
	got := nw.NearestGS(from, time.Now())
	require.Equal(t, "gs-near", got.ID)
}

func TestNearestGSDistance(t *testing.T) {
	nw := NewNetwork()
	nw.AddNode(newTestGS("gs-near", 13.76, 100.51, 5000))

	dist, id, ok := nw.NearestGSDistance(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, time.Now())
	require.True(t, ok)
	require.Equal(t, "gs-near", id)
	require.Greater(t, dist, 0.0)
}

func TestNearestGSDistanceEmptyRegistry(t *testing.T) {
	nw := NewNetwork()
	_, _, ok := nw.NearestGSDistance(geo.Point{LatDeg: 0, LonDeg: 0}, time.Now())
	require.False(t, ok)
}

func TestCheckNeighborExist(t *testing.T) {
	nw := NewNetwork()
	nw.AddNode(newTestGS("gs-1", 13.80, 100.55, 200))

	require.True(t, nw.CheckNeighborExist(geo.Point{LatDeg: 13.75, LonDeg: 100.50}, time.Now()))
	require.False(t, nw.CheckNeighborExist(geo.Point{LatDeg: -40, LonDeg: -70}, time.Now()))
}

func TestByKindReturnsCopy(t *testing.T) {
	nw := NewNetwork()
	nw.AddNode(newTestGS("gs-1", 0, 0, 100))

	gss := nw.ByKind(KindGroundStation)
	gss[0] = nil
	require.NotNil(t, nw.ByKind(KindGroundStation)[0])
}
