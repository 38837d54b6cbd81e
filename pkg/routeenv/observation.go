package routeenv

import (
	"math"
	"time"

	"saginctl/pkg/geo"
	"saginctl/pkg/request"
	"saginctl/pkg/topology"
)

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func safeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// healthScore is the reference "remark" computation shared by the
// neighbour-block observation feature and the reward's GS-proximity
// term: a 0..10 score built from four resource-rate floors, penalised
// for high mean usage (spec §4.6). The denominator for each resource is
// the request's already-allocated amount when positive, else its
// required amount.
func healthScore(n *topology.Node, req *request.Request, cap float64) float64 {
	rate := func(key topology.ResourceKey, allocated, required float64) float64 {
		denom := required
		if allocated > 0 {
			denom = allocated
		}
		if denom <= 0 {
			return 0
		}
		return n.Free(key, cap) / denom
	}

	mark := math.Floor(rate(topology.ResUplink, req.UplinkAllocated, req.UplinkRequired)*2.5) +
		math.Floor(rate(topology.ResDownlink, req.DownlinkAllocated, req.DownlinkRequired)*2.5) +
		math.Floor(rate(topology.ResCPU, req.CPUAllocated, req.CPURequired)*2.5) +
		math.Floor(rate(topology.ResPower, req.PowerAllocated, req.PowerRequired)*2.5)

	if usage := n.MeanUsage(); usage >= 0.6 {
		mark -= math.Floor(((usage - 0.6) / 0.4) * 4)
	}
	if mark > 10 {
		mark = 10
	}
	if mark < 0 {
		mark = 0
	}
	return mark
}

// visibilityRatio estimates, for a satellite current node, the fraction
// of the request's remaining real_timeout the link to neighbor stays
// visible; always 1 when the current node is not a satellite (spec
// §4.6). real_timeout is counted in env-resets, not wall time (§5), so
// it is reinterpreted here as a seconds budget purely as a bounded input
// to the binary search — the output is a ratio, not a wall-clock figure.
func (e *Env) visibilityRatio(neighbor *topology.Node, req *request.Request) float64 {
	if e.currentNode == nil || !e.currentNode.Kind.IsSatellite() {
		return 1
	}
	maxTime := time.Duration(req.RealTimeout) * time.Second
	if maxTime <= 0 {
		return 0
	}
	now := e.clock()
	satNode := e.currentNode
	elMin := topology.ElevationMinLEODeg
	if satNode.Kind == topology.KindGEO {
		elMin = topology.ElevationMinGEODeg
	}
	visible := func(m time.Duration) bool {
		t := now.Add(m)
		satPos := satNode.Position(t)
		if neighbor.Kind.IsSatellite() {
			return geo.LineOfSight(satPos, neighbor.Position(t))
		}
		return geo.ElevationAngleDeg(satPos, neighbor.Position(t)) >= elMin
	}
	vis := geo.EstimateVisibleTime(maxTime, visible)
	return clamp01(vis.Seconds() / maxTime.Seconds())
}

// refreshNeighbors recomputes the cached top-10 feasible-neighbour list
// from the current location, grounded on the reference's
// find_connectable_nodes(current) call filtered to untraversed nodes
// under the admission cap (spec §4.6).
func (e *Env) refreshNeighbors() {
	e.neighbors = [NumNeighborSlots]*neighborCandidate{}

	now := e.clock()
	req := e.current
	cap := req.AdmissionCap()

	var raw []*topology.Node
	if e.currentNode == nil {
		raw = e.net.FindConnectableNodes(req.Source, false, now)
	} else {
		raw = e.net.FindConnectableFromNode(e.currentNode, now)
	}

	locU := e.currentLocation()
	kindU := e.currentGeoKind()
	delayScale := geo.ServiceClassDelayScale(req.Class.IsEmergency(), req.Class.IsControl())

	slot := 0
	for _, n := range raw {
		if slot >= NumNeighborSlots {
			break
		}
		if e.passed[n.ID] {
			continue
		}
		if n.UsageRate(topology.ResUplink) >= cap || n.UsageRate(topology.ResDownlink) >= cap ||
			n.UsageRate(topology.ResCPU) >= cap || n.UsageRate(topology.ResPower) >= cap {
			continue
		}

		pos := n.Position(now)
		distance := geo.Distance3D(locU, pos)
		isGS := n.Kind == topology.KindGroundStation

		cand := &neighborCandidate{
			node:         n,
			distanceM:    distance,
			latencyMS:    geo.HopLatencyMS(distance, kindU, n.GeoKind(), delayScale),
			reliability:  geo.LinkReliability(distance, kindU, n.GeoKind()),
			freeUplink:   n.Free(topology.ResUplink, cap),
			freeDownlink: n.Free(topology.ResDownlink, cap),
			isGS:         isGS,
		}
		if isGS {
			cand.freeCPU = n.Free(topology.ResCPU, cap)
			cand.freePower = n.Free(topology.ResPower, cap)
		}
		cand.visibleRatio = e.visibilityRatio(n, req)

		e.neighbors[slot] = cand
		slot++
	}
}

// buildObservation lays out the fixed 169-float state vector per spec
// §4.6's index table.
func (e *Env) buildObservation() Observation {
	var obs Observation
	req := e.current
	now := e.clock()

	obs[int(req.Class)] = 1

	obs[8] = clamp01(float64(e.steps) / MaxStep)
	obs[9] = clamp01(req.UplinkRequired / 20)
	obs[10] = clamp01(safeRatio(req.UplinkAllocated, req.UplinkRequired))
	obs[11] = clamp01(req.DownlinkRequired / 100)
	obs[12] = clamp01(safeRatio(req.DownlinkAllocated, req.DownlinkRequired))

	loc := e.currentLocation()
	latRad := loc.LatDeg * math.Pi / 180
	lonRad := loc.LonDeg * math.Pi / 180
	obs[13] = (math.Sin(latRad) + 1) / 2
	obs[14] = (math.Cos(latRad) + 1) / 2
	obs[15] = (math.Sin(lonRad) + 1) / 2
	obs[16] = (math.Cos(lonRad) + 1) / 2
	obs[17] = clamp01(loc.AltM / 1e6)

	obs[18] = clamp01(req.ReliabilityRequired)
	obs[19] = clamp01(safeRatio(req.ReliabilityActual, req.ReliabilityRequired))
	obs[20] = clamp01(req.LatencyRequiredMS / 500)
	obs[21] = clamp01(safeRatio(req.LatencyRequiredMS, req.LatencyActualMS))

	obs[22] = clamp01(req.Priority / 10)
	obs[23] = clamp01(req.CPURequired / 50)
	obs[24] = clamp01(req.PowerRequired / 100)

	occupied := 0
	for _, c := range e.neighbors {
		if c != nil {
			occupied++
		}
	}
	obs[25] = clamp01(float64(occupied) / NumNeighborSlots)
	obs[26] = clamp01(float64(e.space.CountInRadius(req.Source, NearbyRadiusKm)) / 10000)
	obs[27] = clamp01(safeRatio(float64(req.RealTimeout), float64(req.DemandTimeout)))

	cap := req.AdmissionCap()
	for i, c := range e.neighbors {
		base := 28 + i*13
		if c == nil {
			continue
		}
		obs[158+i] = 1

		obs[base+0] = clamp01(c.distanceM / 1e7)
		obs[base+1] = clamp01(c.latencyMS / 500)
		obs[base+2] = clamp01(c.reliability)
		obs[base+3] = clamp01(safeRatio(c.freeUplink, allocatedOrRequired(req.UplinkAllocated, req.UplinkRequired)))
		obs[base+4] = clamp01(safeRatio(c.freeDownlink, allocatedOrRequired(req.DownlinkAllocated, req.DownlinkRequired)))
		if c.isGS {
			obs[base+5] = clamp01(safeRatio(c.freeCPU, allocatedOrRequired(req.CPUAllocated, req.CPURequired)))
			obs[base+6] = clamp01(safeRatio(c.freePower, allocatedOrRequired(req.PowerAllocated, req.PowerRequired)))
		} else {
			obs[base+5] = 1
			obs[base+6] = 1
		}
		obs[base+7] = boolToFloat(c.isGS)
		obs[base+8] = clamp01(c.visibleRatio)
		obs[base+9] = clamp01(float64(e.space.CountInRadius(c.node.Position(now), NearbyRadiusKm)) / 10000)

		if dist, _, ok := e.net.NearestGSDistance(c.node.Position(now), now); ok {
			obs[base+10] = clamp01(dist / NearestGSNormM)
		} else {
			obs[base+10] = 1
		}
		obs[base+11] = clamp01(healthScore(c.node, req, cap) / 10)
		obs[base+12] = clamp01(c.node.MeanUsage())
	}

	switch {
	case e.atGroundStation():
		obs[168] = 1
	case e.lastInvalid:
		obs[168] = 0.5
	default:
		obs[168] = 0
	}

	return obs
}

func allocatedOrRequired(allocated, required float64) float64 {
	if allocated > 0 {
		return allocated
	}
	return required
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
