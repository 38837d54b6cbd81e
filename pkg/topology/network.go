package topology

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"saginctl/pkg/geo"
)

// Network is the in-memory registry of all nodes, indexed by id and by
// kind, grounded on the reference platform's sync.RWMutex-guarded graph
// registry idiom (pkg/domain/graph.go in the teacher tree).
type Network struct {
	mu    sync.RWMutex
	byID  map[string]*Node
	byKnd map[Kind][]*Node

	version int64 // bumped on every commit/retirement; see pkg/cache.PlanKey
}

// NewNetwork builds an empty registry.
func NewNetwork() *Network {
	return &Network{
		byID:  make(map[string]*Node),
		byKnd: make(map[Kind][]*Node),
	}
}

// AddNode registers a node.
func (nw *Network) AddNode(n *Node) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.byID[n.ID] = n
	nw.byKnd[n.Kind] = append(nw.byKnd[n.Kind], n)
}

// Get returns a node by id.
func (nw *Network) Get(id string) (*Node, bool) {
	nw.mu.RLock()
	defer nw.mu.RUnlock()
	n, ok := nw.byID[id]
	return n, ok
}

// All returns every registered node, in no particular order.
func (nw *Network) All() []*Node {
	nw.mu.RLock()
	defer nw.mu.RUnlock()
	out := make([]*Node, 0, len(nw.byID))
	for _, n := range nw.byID {
		out = append(out, n)
	}
	return out
}

// ByKind returns every node of a given kind.
func (nw *Network) ByKind(k Kind) []*Node {
	nw.mu.RLock()
	defer nw.mu.RUnlock()
	src := nw.byKnd[k]
	out := make([]*Node, len(src))
	copy(out, src)
	return out
}

// kindRank orders GS before SS before satellites, matching spec §4.6's
// neighbour-enumeration ordering rule.
func kindRank(k Kind) int {
	switch k {
	case KindGroundStation:
		return 0
	case KindSeaStation:
		return 1
	default:
		return 2
	}
}

// FindConnectableNodes enumerates every node connectable from the given
// point, ordered by kind (GS, SS, satellite) then by ascending distance
// within each kind. This is an O(n) scan across the whole topology per
// call (spec §9 Open Question c accepts this at the stated scale of
// hundreds of nodes).
func (nw *Network) FindConnectableNodes(from geo.Point, fromIsSat bool, now time.Time) []*Node {
	nw.mu.RLock()
	all := make([]*Node, 0, len(nw.byID))
	for _, n := range nw.byID {
		all = append(all, n)
	}
	nw.mu.RUnlock()

	type candidate struct {
		node *Node
		dist float64
	}
	var cands []candidate
	for _, n := range all {
		pos := n.Position(now)
		if n.CanConnect(from, fromIsSat, now) {
			cands = append(cands, candidate{node: n, dist: geo.Haversine(pos, from)})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := kindRank(cands[i].node.Kind), kindRank(cands[j].node.Kind)
		if ri != rj {
			return ri < rj
		}
		return cands[i].dist < cands[j].dist
	})

	out := make([]*Node, len(cands))
	for i, c := range cands {
		out[i] = c.node
	}
	return out
}

// FindConnectableFromNode is the node-to-node variant of
// FindConnectableNodes: an edge exists if either endpoint's own
// can_connect reports it, matching the reference network's
// bidirectional edge rule (source.can_connect(target) or
// target.can_connect(source)).
func (nw *Network) FindConnectableFromNode(from *Node, now time.Time) []*Node {
	nw.mu.RLock()
	all := make([]*Node, 0, len(nw.byID))
	for _, n := range nw.byID {
		if n.ID != from.ID {
			all = append(all, n)
		}
	}
	nw.mu.RUnlock()

	pos := from.Position(now)
	type candidate struct {
		node *Node
		dist float64
	}
	var cands []candidate
	for _, n := range all {
		if ConnectableEither(from, n, now) {
			cands = append(cands, candidate{node: n, dist: geo.Haversine(n.Position(now), pos)})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := kindRank(cands[i].node.Kind), kindRank(cands[j].node.Kind)
		if ri != rj {
			return ri < rj
		}
		return cands[i].dist < cands[j].dist
	})

	out := make([]*Node, len(cands))
	for i, c := range cands {
		out[i] = c.node
	}
	return out
}

// NearestGS returns the closest ground station to the given point, or
// nil if the registry has none.
func (nw *Network) NearestGS(from geo.Point, now time.Time) *Node {
	gss := nw.ByKind(KindGroundStation)
	var best *Node
	bestDist := math.MaxFloat64
	for _, gs := range gss {
		d := geo.Haversine(gs.Position(now), from)
		if d < bestDist {
			bestDist = d
			best = gs
		}
	}
	return best
}

// NearestGSDistance returns the haversine distance (metres) and id of
// the closest ground station to the given point, or ok=false if the
// registry has none.
func (nw *Network) NearestGSDistance(from geo.Point, now time.Time) (float64, string, bool) {
	gs := nw.NearestGS(from, now)
	if gs == nil {
		return 0, "", false
	}
	return geo.Haversine(gs.Position(now), from), gs.ID, true
}

// CheckNeighborExist reports whether at least one node is connectable
// from the given point (used by request synthesis to validate a
// candidate source, spec §4.7).
func (nw *Network) CheckNeighborExist(from geo.Point, now time.Time) bool {
	return len(nw.FindConnectableNodes(from, false, now)) > 0
}

// Version returns the current admission-state generation counter. Callers
// that memoise a query against the topology's resource holds (the planner
// reference-path cache) include this in their key so a commit or
// retirement invalidates stale entries without an explicit sweep.
func (nw *Network) Version() int64 {
	return atomic.LoadInt64(&nw.version)
}

// BumpVersion advances the generation counter. Called once per commit and
// once per retirement sweep, never per resource mutation, so concurrent
// holds within a single episode don't thrash the cache key space.
func (nw *Network) BumpVersion() int64 {
	return atomic.AddInt64(&nw.version, 1)
}
