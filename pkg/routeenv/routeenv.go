// Package routeenv implements the step-wise routing environment (spec
// §4.6): a fixed-size observation, a 10-slot action space indexing into
// the current node's feasible-neighbour cache, and the transition/reward
// semantics a learned policy is driven against. Resource commit on a
// successful episode and spatial-index registration both happen inside
// Step, mirroring the reference environment's single-writer design (the
// routing plane is the only place that mutates `resources_used`).
package routeenv

import (
	"math/rand"
	"time"

	"saginctl/pkg/apperror"
	"saginctl/pkg/geo"
	"saginctl/pkg/request"
	"saginctl/pkg/spatial"
	"saginctl/pkg/topology"
)

// NumNeighborSlots is the fixed action-space width (spec §4.6).
const NumNeighborSlots = 10

// ObservationDim is the fixed observation vector length (spec §4.6).
const ObservationDim = 169

// NearbyRadiusKm is the radius used for both the source-side and
// per-neighbour "users within radius" observation features.
const NearbyRadiusKm = 2500

// NearestGSNormM is the normalisation divisor for distance-to-nearest-GS
// observation slots.
const NearestGSNormM = 4_000_000

// Observation is the fixed-length, [0,1]-valued state vector handed to
// the external policy.
type Observation [ObservationDim]float64

// Outcome classifies how an episode ended.
type Outcome string

const (
	OutcomePending   Outcome = ""
	OutcomeSuccess   Outcome = "success"
	OutcomeDeadEnd   Outcome = "deadend"
	OutcomeStepLimit Outcome = "steplimit"
)

// StepResult is returned by Step alongside the next Observation.
type StepResult struct {
	Reward  float64
	Done    bool
	Outcome Outcome
	Err     error // non-nil only for terminal failures (DeadEnd/StepLimit/CommitFailure)
}

// neighborCandidate is one populated slot of the cached neighbour list,
// carrying the per-hop figures needed both for the observation block and
// for the transition if the policy selects it.
type neighborCandidate struct {
	node         *topology.Node
	distanceM    float64
	latencyMS    float64
	reliability  float64
	freeUplink   float64
	freeDownlink float64
	freeCPU      float64
	freePower    float64
	isGS         bool
	visibleRatio float64
}

// Env is one routing episode's live state machine, bound to a shared
// topology and spatial index.
type Env struct {
	net   *topology.Network
	space *spatial.GroundSpace
	rng   *rand.Rand
	clock func() time.Time

	connections []*request.Request

	current     *request.Request
	currentNode *topology.Node // nil means "at the user's source location"
	steps       int
	passed      map[string]bool
	neighbors   [NumNeighborSlots]*neighborCandidate
	lastInvalid bool

	retired []*request.Request // requests released by the most recent retirement sweep
}

// New builds an Env bound to the given network and spatial index. rng
// drives random-request synthesis on Reset; clock is injectable for
// deterministic tests (defaults to time.Now).
func New(net *topology.Network, space *spatial.GroundSpace, rng *rand.Rand, clock func() time.Time) *Env {
	if clock == nil {
		clock = time.Now
	}
	return &Env{net: net, space: space, rng: rng, clock: clock}
}

// Connections returns the currently active (uncommitted-episode-excluded,
// previously committed) requests, for the scan/stats read paths.
func (e *Env) Connections() []*request.Request {
	out := make([]*request.Request, len(e.connections))
	copy(out, e.connections)
	return out
}

// Current returns the request being routed this episode, or nil before
// the first Reset.
func (e *Env) Current() *request.Request { return e.current }

// Steps returns the number of hops taken so far this episode.
func (e *Env) Steps() int { return e.steps }

// retire decrements real_timeout on every active connection and releases
// any that reach zero, per spec §4.6's reset-time sweep. Released
// requests are recorded for Retired, so a caller layer (pkg/pipeline)
// can emit an audit trail for the releases this sweep performed.
func (e *Env) retire() {
	e.retired = e.retired[:0]
	kept := e.connections[:0]
	for _, r := range e.connections {
		r.RealTimeout--
		if r.RealTimeout > 0 {
			kept = append(kept, r)
			continue
		}
		e.space.Remove(r.ID)
		e.releaseHolds(r)
		e.retired = append(e.retired, r)
	}
	e.connections = kept
}

// Retired returns the requests released by the most recent Reset/ResetWith
// call's retirement sweep.
func (e *Env) Retired() []*request.Request {
	out := make([]*request.Request, len(e.retired))
	copy(out, e.retired)
	return out
}

// holdAmounts returns the per-key amounts a committed request holds on a
// given node: uplink/downlink unconditionally, cpu/power only when the
// node is a ground station, matching the reference node's
// allocate_resource/release_resource gating.
func holdAmounts(n *topology.Node, r *request.Request) map[topology.ResourceKey]float64 {
	amounts := map[topology.ResourceKey]float64{
		topology.ResUplink:   r.UplinkAllocated,
		topology.ResDownlink: r.DownlinkAllocated,
	}
	if n.Kind == topology.KindGroundStation {
		amounts[topology.ResCPU] = r.CPUAllocated
		amounts[topology.ResPower] = r.PowerAllocated
	}
	return amounts
}

// releaseHolds reverses every resource hold a committed request placed on
// the nodes in its path.
func (e *Env) releaseHolds(r *request.Request) {
	for _, id := range r.Path {
		n, ok := e.net.Get(id)
		if !ok {
			continue
		}
		n.Release(holdAmounts(n, r))
	}
}

// commitHolds allocates holds for every node in req.Path, rolling back
// any already-applied allocations if a later node's admission re-check
// fails (spec §7's CommitFailure, defensive since the single-writer
// routing plane should never actually violate it).
func (e *Env) commitHolds(req *request.Request) error {
	applied := make([]*topology.Node, 0, len(req.Path))
	for _, id := range req.Path {
		n, ok := e.net.Get(id)
		if !ok {
			continue
		}
		if err := n.Allocate(holdAmounts(n, req)); err != nil {
			for _, a := range applied {
				a.Release(holdAmounts(a, req))
			}
			return apperror.Wrap(err, apperror.CodeCommitFailure, "admission re-check failed at commit")
		}
		applied = append(applied, n)
	}
	return nil
}

// Reset performs the retirement sweep, spawns a fresh request via
// request.Random bound to this env's network connectivity check, and
// returns the initial observation (spec §4.6/§4.7).
func (e *Env) Reset() Observation {
	e.retire()

	checker := func(p geo.Point) bool { return e.net.CheckNeighborExist(p, e.clock()) }
	e.current = request.Random(e.rng, newRequestID(e.rng), checker)
	e.currentNode = nil
	e.steps = 0
	e.passed = map[string]bool{}
	e.lastInvalid = false
	e.neighbors = [NumNeighborSlots]*neighborCandidate{}

	e.refreshNeighbors()
	return e.buildObservation()
}

// ResetWith performs the same retirement sweep and episode-state reset as
// Reset, but against a caller-supplied request instead of a synthetic
// one (spec §4.7's externally-supplied-payload path).
func (e *Env) ResetWith(req *request.Request) Observation {
	e.retire()

	e.current = req
	e.currentNode = nil
	e.steps = 0
	e.passed = map[string]bool{}
	e.lastInvalid = false
	e.neighbors = [NumNeighborSlots]*neighborCandidate{}

	e.refreshNeighbors()
	return e.buildObservation()
}

// newRequestID generates a synthetic id for an internally-synthesised
// request; callers supplying an external payload assign their own id
// upstream in pkg/pipeline.
func newRequestID(rng *rand.Rand) string {
	const alphabet = "0123456789abcdef"
	b := make([]byte, 16)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// currentLocation returns the request's current position: its source if
// still at the user, else the current node's propagated position.
func (e *Env) currentLocation() geo.Point {
	if e.currentNode == nil {
		return e.current.Source
	}
	return e.currentNode.Position(e.clock())
}

// currentGeoKind returns the link-model kind of the current location.
func (e *Env) currentGeoKind() geo.NodeKind {
	if e.currentNode == nil {
		return geo.KindUser
	}
	return e.currentNode.GeoKind()
}

// atGroundStation reports whether the episode currently sits on a ground
// station node.
func (e *Env) atGroundStation() bool {
	return e.currentNode != nil && e.currentNode.Kind == topology.KindGroundStation
}
