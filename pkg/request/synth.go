package request

import (
	"math/rand"

	"saginctl/pkg/geo"
)

// Region is one weighted geographic sampling bucket for synthetic
// request sources, grounded on the reference generator's random_user
// region table.
type Region struct {
	Name              string
	LatMin, LatMax    float64
	LonMin, LonMax    float64
	Weight            float64
}

// Regions is the fixed weighted region table used to bias synthetic
// traffic toward populous areas while still covering the globe via the
// "Other" catch-all.
var Regions = []Region{
	{Name: "China", LatMin: 18, LatMax: 54, LonMin: 73, LonMax: 135, Weight: 14},
	{Name: "India", LatMin: 8, LatMax: 37, LonMin: 68, LonMax: 97, Weight: 14},
	{Name: "Europe", LatMin: 35, LatMax: 60, LonMin: -10, LonMax: 40, Weight: 14},
	{Name: "USA", LatMin: 25, LatMax: 50, LonMin: -125, LonMax: -66, Weight: 10},
	{Name: "Brazil", LatMin: -35, LatMax: 5, LonMin: -74, LonMax: -34, Weight: 4},
	{Name: "Nigeria", LatMin: 4, LatMax: 14, LonMin: 3, LonMax: 15, Weight: 4},
	{Name: "Japan", LatMin: 30, LatMax: 45, LonMin: 129, LonMax: 146, Weight: 4},
	{Name: "SoutheastAsia", LatMin: -10, LatMax: 20, LonMin: 95, LonMax: 120, Weight: 4},
	{Name: "Other", LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180, Weight: 32},
}

var totalRegionWeight = func() float64 {
	var sum float64
	for _, r := range Regions {
		sum += r.Weight
	}
	return sum
}()

// RandomSource draws a source location from the weighted region table,
// with altitude uniform in [0, 2000] metres.
func RandomSource(rng *rand.Rand) geo.Point {
	draw := rng.Float64() * totalRegionWeight
	region := Regions[len(Regions)-1]
	for _, r := range Regions {
		if draw < r.Weight {
			region = r
			break
		}
		draw -= r.Weight
	}
	lat := region.LatMin + rng.Float64()*(region.LatMax-region.LatMin)
	lon := region.LonMin + rng.Float64()*(region.LonMax-region.LonMin)
	alt := rng.Float64() * 2000
	return geo.Point{LatDeg: lat, LonDeg: lon, AltM: alt}
}

// NeighborChecker reports whether at least one topology node is
// connectable from a candidate source location; satisfied by
// (*topology.Network).CheckNeighborExist bound to a moment in time.
// Defined as a function type here (rather than importing pkg/topology's
// Network directly) so pkg/request stays a pure data/sampling package.
type NeighborChecker func(geo.Point) bool

// RandomConnectableSource resamples RandomSource until the checker
// accepts it, matching the reference generator's retry loop in
// _new_request.
func RandomConnectableSource(rng *rand.Rand, checker NeighborChecker) geo.Point {
	for {
		p := RandomSource(rng)
		if checker == nil || checker(p) {
			return p
		}
	}
}

// RandomServiceClass draws uniformly from all eight service classes.
func RandomServiceClass(rng *rand.Rand) ServiceClass {
	return ServiceClass(rng.Intn(NumServiceClasses))
}

func sampleRange(rng *rand.Rand, r Range) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Random synthesises a complete request: a connectable source location,
// a uniformly chosen service class, and QoS fields sampled uniformly
// within that class's profile range, grounded on the reference
// generator's _new_request.
func Random(rng *rand.Rand, id string, checker NeighborChecker) *Request {
	source := RandomConnectableSource(rng, checker)
	class := RandomServiceClass(rng)
	profile := Profiles[class]

	r := New(id, class, source)
	r.UplinkRequired = sampleRange(rng, profile.Uplink)
	r.DownlinkRequired = sampleRange(rng, profile.Downlink)
	r.LatencyRequiredMS = sampleRange(rng, profile.LatencyMS)
	r.ReliabilityRequired = sampleRange(rng, profile.Reliability)
	r.CPURequired = sampleRange(rng, profile.CPU)
	r.PowerRequired = sampleRange(rng, profile.Power)
	r.Priority = sampleRange(rng, profile.Priority)

	r.UplinkAllocated = r.UplinkRequired
	r.DownlinkAllocated = r.DownlinkRequired

	r.DemandTimeout = 100 + rng.Intn(3901) // [100, 4000]
	r.RealTimeout = r.DemandTimeout

	return r
}
