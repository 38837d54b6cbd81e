package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
	"saginctl/pkg/topology"
)

func TestInitMetricsRegistersCollectors(t *testing.T) {
	m := InitMetrics("sagin_test", "unit")
	require.NotNil(t, m.RequestsTotal)
	require.NotNil(t, m.ActiveRequests)
}

func TestRecordEpisodeAndWinner(t *testing.T) {
	m := InitMetrics("sagin_test2", "unit")
	m.RecordEpisode("success", 5*time.Millisecond, 3)
	m.RecordPlanner(2*time.Millisecond, false)
	m.RecordPlanner(time.Millisecond, true)
	m.RecordWinner("agent")
	m.RecordWinner("planner")
	m.RecordWinner("draw")
}

func TestGetLazyInit(t *testing.T) {
	require.NotPanics(t, func() { _ = Get() })
}

func TestNetworkCollectorReportsNodesAndUsage(t *testing.T) {
	net := topology.NewNetwork()
	gs := topology.NewNode("gs-1", topology.KindGroundStation, geo.Point{LatDeg: 1, LonDeg: 1}, map[topology.ResourceKey]float64{
		topology.ResUplink: 100, topology.ResDownlink: 100, topology.ResCPU: 10, topology.ResPower: 10,
	})
	require.NoError(t, gs.Allocate(map[topology.ResourceKey]float64{topology.ResUplink: 25}))
	net.AddNode(gs)

	collector := NewNetworkCollector(net, "sagin_test3", "unit")

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))
	require.Equal(t, 5, testutil.CollectAndCount(collector))

	families, err := registry.Gather()
	require.NoError(t, err)

	var sawUplinkUsage bool
	for _, fam := range families {
		if fam.GetName() != "sagin_test3_unit_topology_resource_usage_rate" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "resource" && l.GetValue() == string(topology.ResUplink) {
					require.InDelta(t, 0.25, m.GetGauge().GetValue(), 1e-9)
					sawUplinkUsage = true
				}
			}
		}
	}
	require.True(t, sawUplinkUsage, "expected an uplink usage sample for gs-1")
}
