// Package planner computes the deterministic reference path used both
// as an admission-feasibility oracle and as the comparison baseline the
// statistics aggregator scores the routing agent against (spec §4.5).
//
// The search is a best-first (Dijkstra) walk over the live topology: a
// synthetic SOURCE_USER node feeds edges to every node connectable from
// the request's source location, edge cost is geodesic distance scaled
// down, and any node failing the resource-admission floor is treated as
// unreachable. The first ground station popped off the heap with
// minimum cost is the destination; the search keeps draining the queue
// until every node whose cost could still beat that ground station has
// been settled, then stops.
package planner

import (
	"container/heap"
	"math"
	"time"

	"saginctl/pkg/geo"
	"saginctl/pkg/request"
	"saginctl/pkg/topology"
)

// sourceUserID is the synthetic predecessor id representing the
// request's origin location, which is not itself a topology node.
const sourceUserID = "\x00SOURCE_USER"

// minQoSCost is the fraction of required bandwidth/compute a candidate
// hop must have free to be considered admissible at all (spec §4.2's
// "free >= 0.5*required" floor).
const minQoSCost = 0.5

// edgeCostScale divides the raw geodesic distance (metres) down to a
// Dijkstra edge weight, grounded on the reference's `distance / 1e7`.
const edgeCostScale = 1e7

// Result is the planner's reference solution for one request.
type Result struct {
	Path []string // node ids, excluding the synthetic source, in traversal order
	QoS  request.QoS
}

// heap item and priority queue, grounded on the reference platform's
// container/heap Dijkstra idiom (distance-then-id deterministic
// tie-break).
type item struct {
	nodeID string
	cost   float64
	index  int
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	return pq[i].nodeID < pq[j].nodeID
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	it := x.(*item)
	it.index = n
	*pq = append(*pq, it)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[:n-1]
	return it
}

// edgeSample is the per-hop link figures computed alongside cost, kept
// so the main loop doesn't recompute distance/kind twice.
type edgeSample struct {
	cost        float64
	latencyMS   float64
	reliability float64
	freeUplink  float64
	freeDownlink float64
	freeCPU     float64
	freePower   float64
	admissible  bool
}

// sampleEdge evaluates the hop from (locU, kindU) to node v under the
// request's admission cap, grounded on the reference's calculate_cost.
func sampleEdge(req *request.Request, locU geo.Point, kindU geo.NodeKind, v *topology.Node, now time.Time) edgeSample {
	cap := req.AdmissionCap()

	freeUplink := v.Free(topology.ResUplink, cap)
	freeDownlink := v.Free(topology.ResDownlink, cap)
	if freeUplink < req.UplinkRequired*minQoSCost || freeDownlink < req.DownlinkRequired*minQoSCost {
		return edgeSample{cost: math.Inf(1)}
	}

	var freeCPU, freePower float64
	if v.Kind == topology.KindGroundStation {
		freeCPU = v.Free(topology.ResCPU, cap)
		freePower = v.Free(topology.ResPower, cap)
		if freeCPU < req.CPURequired*minQoSCost || freePower < req.PowerRequired*minQoSCost {
			return edgeSample{cost: math.Inf(1)}
		}
	}

	locV := v.Position(now)
	distance := geo.Distance3D(locV, locU)
	delayScale := geo.ServiceClassDelayScale(req.Class.IsEmergency(), req.Class.IsControl())

	return edgeSample{
		cost:         distance / edgeCostScale,
		latencyMS:    geo.HopLatencyMS(distance, kindU, v.GeoKind(), delayScale),
		reliability:  geo.LinkReliability(distance, kindU, v.GeoKind()),
		freeUplink:   freeUplink,
		freeDownlink: freeDownlink,
		freeCPU:      freeCPU,
		freePower:    freePower,
		admissible:   true,
	}
}

// Plan runs the reference best-first search for req against the live
// network and returns the resulting path and QoS figures. It never
// mutates node resource pools or the request itself.
func Plan(req *request.Request, net *topology.Network, now time.Time) Result {
	distances := map[string]float64{}
	previous := map[string]string{}
	pathLatency := map[string]float64{}
	pathReliability := map[string]float64{}
	pathUplink := map[string]float64{}
	pathDownlink := map[string]float64{}
	visited := map[string]bool{}

	startNodes := net.FindConnectableNodes(req.Source, false, now)
	if len(startNodes) == 0 {
		return Result{}
	}

	pq := make(priorityQueue, 0, len(startNodes))
	heap.Init(&pq)

	userKind := geo.KindUser

	for _, v := range startNodes {
		s := sampleEdge(req, req.Source, userKind, v, now)
		if !s.admissible {
			continue
		}
		distances[v.ID] = s.cost
		previous[v.ID] = sourceUserID
		pathLatency[v.ID] = s.latencyMS
		pathReliability[v.ID] = s.reliability
		pathUplink[v.ID] = math.Min(s.freeUplink, req.UplinkRequired)
		pathDownlink[v.ID] = math.Min(s.freeDownlink, req.DownlinkRequired)
		heap.Push(&pq, &item{nodeID: v.ID, cost: s.cost})
	}

	bestGS := ""
	minCostToGS := math.Inf(1)

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(*item)
		if visited[cur.nodeID] {
			continue
		}
		visited[cur.nodeID] = true

		node, ok := net.Get(cur.nodeID)
		if !ok {
			continue
		}

		if node.Kind == topology.KindGroundStation && cur.cost < minCostToGS {
			minCostToGS = cur.cost
			bestGS = cur.nodeID
		}
		if cur.cost > minCostToGS {
			continue
		}

		neighbors := net.FindConnectableFromNode(node, now)
		locU := node.Position(now)
		for _, nb := range neighbors {
			if visited[nb.ID] {
				continue
			}
			s := sampleEdge(req, locU, node.GeoKind(), nb, now)
			if !s.admissible {
				continue
			}
			newCost := cur.cost + s.cost
			if existing, ok := distances[nb.ID]; ok && newCost >= existing {
				continue
			}
			distances[nb.ID] = newCost
			previous[nb.ID] = cur.nodeID
			pathLatency[nb.ID] = pathLatency[cur.nodeID] + s.latencyMS
			pathReliability[nb.ID] = pathReliability[cur.nodeID] * s.reliability
			pathUplink[nb.ID] = math.Min(pathUplink[cur.nodeID], s.freeUplink)
			pathDownlink[nb.ID] = math.Min(pathDownlink[cur.nodeID], s.freeDownlink)
			heap.Push(&pq, &item{nodeID: nb.ID, cost: newCost})
		}
	}

	if bestGS == "" {
		return Result{}
	}

	var path []string
	for at := bestGS; at != "" && at != sourceUserID; at = previous[at] {
		path = append([]string{at}, path...)
	}

	gsNode, _ := net.Get(bestGS)
	var gsCPU, gsPower float64
	if gsNode != nil && gsNode.Kind == topology.KindGroundStation {
		cap := req.AdmissionCap()
		gsCPU = math.Min(gsNode.Free(topology.ResCPU, cap), req.CPURequired)
		gsPower = math.Min(gsNode.Free(topology.ResPower, cap), req.PowerRequired)
	}

	return Result{
		Path: path,
		QoS: request.QoS{
			LatencyMS:   pathLatency[bestGS],
			Reliability: pathReliability[bestGS],
			Uplink:      pathUplink[bestGS],
			Downlink:    pathDownlink[bestGS],
			CPU:         gsCPU,
			Power:       gsPower,
			Hops:        len(path),
		},
	}
}
