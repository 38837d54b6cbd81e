// Package topology models the SAGIN node population — ground stations,
// sea stations, and LEO/GEO satellites — as a uniform Node type with
// per-kind resource pools, thread-safe allocation, and the connectivity
// predicates used by the planner and routing environment (spec §3, §4.2).
package topology

import (
	"fmt"
	"sync"
	"time"

	"saginctl/pkg/geo"
)

// Kind identifies a node's role in the network.
type Kind string

const (
	KindGroundStation Kind = "groundstation"
	KindSeaStation    Kind = "seastation"
	KindLEO           Kind = "LEO"
	KindGEO           Kind = "GEO"
)

// geoKind maps a topology Kind to the geo package's link-model kind.
func (k Kind) geoKind() geo.NodeKind {
	switch k {
	case KindGroundStation:
		return geo.KindGroundStation
	case KindSeaStation:
		return geo.KindSeaStation
	case KindLEO:
		return geo.KindLEO
	case KindGEO:
		return geo.KindGEO
	default:
		return geo.KindUser
	}
}

// IsSatellite reports whether the kind is LEO or GEO.
func (k Kind) IsSatellite() bool {
	return k == KindLEO || k == KindGEO
}

// ResourceKey names one of the per-kind resource pools (spec §3).
type ResourceKey string

const (
	ResUplink   ResourceKey = "uplink"
	ResDownlink ResourceKey = "downlink"
	ResCPU      ResourceKey = "cpu"
	ResPower    ResourceKey = "power"
	ResISL      ResourceKey = "isl"
)

// poolKeysForKind returns the resource keys a node of the given kind
// carries, per the §3 pool-key table.
func poolKeysForKind(k Kind) []ResourceKey {
	switch k {
	case KindGroundStation:
		return []ResourceKey{ResUplink, ResDownlink, ResCPU, ResPower}
	case KindSeaStation, KindLEO, KindGEO:
		return []ResourceKey{ResUplink, ResDownlink, ResISL}
	default:
		return nil
	}
}

// NormalAdmissionCap and EmergencyAdmissionCap are the resource
// utilisation ceilings from spec §4.2.
const (
	NormalAdmissionCap    = 0.90
	EmergencyAdmissionCap = 0.95
)

// ElevationMinLEODeg and ElevationMinGEODeg are the minimum elevation
// angles for satellite-vs-ground connectivity (spec §4.2).
const (
	ElevationMinLEODeg = 7.5
	ElevationMinGEODeg = 5.0
)

// Node is the uniform representation of a ground station, sea station,
// or satellite.
type Node struct {
	ID       string
	Kind     Kind
	Priority int

	// CoverageRadiusKm applies to GS/SS only (spec §3).
	CoverageRadiusKm float64

	// Orbit applies to LEO/GEO only; GEO is never propagated.
	Orbit geo.OrbitalElements

	mu          sync.Mutex
	position    geo.Point
	resources   map[ResourceKey]float64
	used        map[ResourceKey]float64
	orbitState  geo.OrbitalState
	lastPersist time.Time
}

// NewNode constructs a node with the resource pool appropriate to its
// kind, all keys initialised to zero usage.
func NewNode(id string, kind Kind, pos geo.Point, resources map[ResourceKey]float64) *Node {
	used := make(map[ResourceKey]float64, len(resources))
	for _, k := range poolKeysForKind(kind) {
		if _, ok := resources[k]; !ok {
			resources[k] = 0
		}
		used[k] = 0
	}
	return &Node{
		ID:        id,
		Kind:      kind,
		position:  pos,
		resources: resources,
		used:      used,
	}
}

// Position returns the node's current geodetic position, propagating a
// LEO's orbit to now first (§4.3's "propagate before any connectivity
// check" rule).
func (n *Node) Position(now time.Time) geo.Point {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.propagateLocked(now)
	return n.position
}

// Propagate advances a LEO's orbital state to now; a no-op for non-LEO
// kinds and for elapsed intervals below geo.MinPropagationInterval.
func (n *Node) Propagate(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.propagateLocked(now)
}

func (n *Node) propagateLocked(now time.Time) {
	if n.Kind != KindLEO {
		return
	}
	// A LEO with no recorded orbital state keeps its seeded position and
	// starts its propagation clock at the first call.
	if n.orbitState.LastUpdate.IsZero() {
		n.orbitState.LastUpdate = now
		return
	}
	newState, pos := geo.Propagate(n.Orbit, n.orbitState, n.position.AltM, now)
	n.orbitState = newState
	n.position = pos
}

// PersistDue reports whether the elapsed time since the last persisted
// write exceeds the persist threshold (spec §4.3 default 2000s).
const PersistThreshold = 2000 * time.Second

func (n *Node) PersistDue(now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return now.Sub(n.lastPersist) >= PersistThreshold
}

// MarkPersisted records that the node's orbital state has just been
// written to durable storage.
func (n *Node) MarkPersisted(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastPersist = now
}

// OrbitSnapshot returns the node's current (theta, last_update) pair for
// persistence, without propagating.
func (n *Node) OrbitSnapshot() geo.OrbitalState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orbitState
}

// SetOrbitState seeds the node's orbital reference point, e.g. when
// restoring from the store after a restart.
func (n *Node) SetOrbitState(s geo.OrbitalState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orbitState = s
}

// Free returns max(0, resources[key]*cap - used[key]).
func (n *Node) Free(key ResourceKey, cap float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.freeLocked(key, cap)
}

func (n *Node) freeLocked(key ResourceKey, cap float64) float64 {
	free := n.resources[key]*cap - n.used[key]
	if free < 0 {
		return 0
	}
	return free
}

// Used returns the currently committed usage for a resource key.
func (n *Node) Used(key ResourceKey) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.used[key]
}

// Total returns the total pool size for a resource key.
func (n *Node) Total(key ResourceKey) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resources[key]
}

// ErrAdmissionExceeded is returned by Allocate when committing the
// requested amounts would push usage above the node's total pool
// (spec §3's resources_used invariant).
var ErrAdmissionExceeded = fmt.Errorf("topology: allocation would exceed node resource pool")

// Allocate commits the given per-key amounts atomically: either all
// succeed or none do, preserving 0 <= used <= total at every observable
// instant.
func (n *Node) Allocate(amounts map[ResourceKey]float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for k, v := range amounts {
		if n.used[k]+v > n.resources[k]+geo.Epsilon {
			return fmt.Errorf("%w: key=%s used=%.4f+%.4f total=%.4f",
				ErrAdmissionExceeded, k, n.used[k], v, n.resources[k])
		}
	}
	for k, v := range amounts {
		n.used[k] += v
	}
	return nil
}

// Release reverses a prior Allocate, floored at zero per key.
func (n *Node) Release(amounts map[ResourceKey]float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, v := range amounts {
		n.used[k] -= v
		if n.used[k] < 0 {
			n.used[k] = 0
		}
	}
}

// UsageRate returns used/total for a resource key, or 0 if the pool is
// empty.
func (n *Node) UsageRate(key ResourceKey) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usageRateLocked(key)
}

func (n *Node) usageRateLocked(key ResourceKey) float64 {
	total := n.resources[key]
	if total <= 0 {
		return 0
	}
	return n.used[key] / total
}

// MeanUsage averages uplink/downlink usage rates for non-GS nodes, and
// uplink/downlink/cpu/power for ground stations, grounded on the
// reference node's get_mean_usage.
func (n *Node) MeanUsage() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	up := n.usageRateLocked(ResUplink)
	down := n.usageRateLocked(ResDownlink)
	if n.Kind != KindGroundStation {
		return (up + down) / 2
	}
	cpu := n.usageRateLocked(ResCPU)
	power := n.usageRateLocked(ResPower)
	return (up + down + cpu + power) / 4
}

// Feasible reports whether the node can admit a neighbour with the
// given required uplink/downlink (and, when isGSTerminal, cpu/power)
// under the admission cap, per the half-requirement floor of §4.2.
func (n *Node) Feasible(cap float64, reqUplink, reqDownlink, reqCPU, reqPower float64, isGSTerminal bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.freeLocked(ResUplink, cap) < 0.5*reqUplink {
		return false
	}
	if n.freeLocked(ResDownlink, cap) < 0.5*reqDownlink {
		return false
	}
	if isGSTerminal {
		if n.freeLocked(ResCPU, cap) < 0.5*reqCPU {
			return false
		}
		if n.freeLocked(ResPower, cap) < 0.5*reqPower {
			return false
		}
	}
	return true
}

// CanConnect implements spec §4.2's can_connect predicate. peerIsSat
// tells the receiver whether the other side is a satellite; now gates
// the propagation that must happen before any satellite check.
func (n *Node) CanConnect(peer geo.Point, peerIsSat bool, now time.Time) bool {
	switch {
	case !n.Kind.IsSatellite():
		if peerIsSat {
			return false
		}
		selfPos := n.Position(now)
		return geo.Haversine(selfPos, peer) <= n.CoverageRadiusKm*1000
	case !peerIsSat:
		selfPos := n.Position(now)
		elMin := ElevationMinLEODeg
		if n.Kind == KindGEO {
			elMin = ElevationMinGEODeg
		}
		return geo.ElevationAngleDeg(selfPos, peer) >= elMin
	default:
		selfPos := n.Position(now)
		return geo.LineOfSight(selfPos, peer)
	}
}

// CanConnectNode resolves peer's position (propagating it first if it
// is itself a satellite) and evaluates CanConnect against it.
func (n *Node) CanConnectNode(peer *Node, now time.Time) bool {
	peerPos := peer.Position(now)
	return n.CanConnect(peerPos, peer.Kind.IsSatellite(), now)
}

// GeoKind exposes the link-model kind for geo.HopLatencyMS/LinkReliability.
func (n *Node) GeoKind() geo.NodeKind { return n.Kind.geoKind() }

// ConnectableEither evaluates node-to-node connectivity in both
// directions and accepts if either side reports it, per spec §4.2's
// asymmetry note (GS coverage discs vs satellite elevation angles are
// not mutually derivable from a single side).
func ConnectableEither(a, b *Node, now time.Time) bool {
	return a.CanConnectNode(b, now) || b.CanConnectNode(a, now)
}
