package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"saginctl/pkg/topology"
)

var resourceKeys = []topology.ResourceKey{
	topology.ResUplink, topology.ResDownlink, topology.ResCPU, topology.ResPower, topology.ResISL,
}

// NetworkCollector reports live per-kind node counts and per-node
// resource utilization, pulled from the topology registry at scrape
// time rather than accumulated like the counters/histograms in
// prometheus.go: §4.2's resource pools are mutated continuously by the
// routing worker committing and releasing allocations, so a point-in-time
// gauge is the only honest way to report current occupancy.
type NetworkCollector struct {
	net       *topology.Network
	nodesDesc *prometheus.Desc
	usageDesc *prometheus.Desc
}

// NewNetworkCollector builds a collector over net, reporting under the
// given namespace/subsystem.
func NewNetworkCollector(net *topology.Network, namespace, subsystem string) *NetworkCollector {
	return &NetworkCollector{
		net: net,
		nodesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "topology_nodes"),
			"Number of registered nodes by kind",
			[]string{"kind"}, nil,
		),
		usageDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "topology_resource_usage_rate"),
			"Fraction of a node's resource pool currently allocated",
			[]string{"kind", "node_id", "resource"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *NetworkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodesDesc
	ch <- c.usageDesc
}

// Collect implements prometheus.Collector.
func (c *NetworkCollector) Collect(ch chan<- prometheus.Metric) {
	counts := make(map[topology.Kind]int)
	for _, n := range c.net.All() {
		counts[n.Kind]++
		for _, key := range resourceKeys {
			if n.Total(key) <= 0 {
				continue
			}
			ch <- prometheus.MustNewConstMetric(
				c.usageDesc, prometheus.GaugeValue, n.UsageRate(key),
				string(n.Kind), n.ID, string(key),
			)
		}
	}
	for kind, count := range counts {
		ch <- prometheus.MustNewConstMetric(c.nodesDesc, prometheus.GaugeValue, float64(count), string(kind))
	}
}

// RegisterNetworkCollector builds and registers a NetworkCollector over
// net against the default registry Handler serves.
func RegisterNetworkCollector(net *topology.Network, namespace, subsystem string) error {
	return prometheus.Register(NewNetworkCollector(net, namespace, subsystem))
}
