// Package spatial implements GroundSpace, the unit-sphere spatial index
// over active requests used for "users within radius" queries (spec
// §4.4). Queries run against a snapshot tree that rebuilds lazily and
// asynchronously so readers never block on a rebuild in flight.
package spatial

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"saginctl/pkg/geo"
)

// DefaultRebuildThreshold and DefaultMaxStaleTime are the lazy-rebuild
// trigger defaults from spec §4.4.
const (
	DefaultRebuildThreshold = 50
	DefaultMaxStaleTime     = 30 * time.Second
)

// Entry is one indexed request: its id and source location.
type Entry struct {
	RequestID string
	Source    geo.Point
}

// GroundSpace indexes request source locations on the unit sphere for
// fast radius queries.
type GroundSpace struct {
	mu      sync.RWMutex
	entries map[string]Entry

	tree atomic.Pointer[kdNode]

	dirtyCount       int
	lastRebuild      time.Time
	rebuildThreshold int
	maxStaleTime     time.Duration
	rebuilding       int32
}

// NewGroundSpace constructs an empty index with the given rebuild
// policy parameters.
func NewGroundSpace(rebuildThreshold int, maxStaleTime time.Duration) *GroundSpace {
	if rebuildThreshold <= 0 {
		rebuildThreshold = DefaultRebuildThreshold
	}
	if maxStaleTime <= 0 {
		maxStaleTime = DefaultMaxStaleTime
	}
	return &GroundSpace{
		entries:          make(map[string]Entry),
		rebuildThreshold: rebuildThreshold,
		maxStaleTime:     maxStaleTime,
		lastRebuild:      time.Now(),
	}
}

func toUnitSphere(p geo.Point) kdPoint {
	lat := p.LatDeg * math.Pi / 180
	lon := p.LonDeg * math.Pi / 180
	return kdPoint{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

// Add registers or replaces a request's indexed location.
func (g *GroundSpace) Add(requestID string, source geo.Point) {
	g.mu.Lock()
	g.entries[requestID] = Entry{RequestID: requestID, Source: source}
	g.dirtyCount++
	g.mu.Unlock()
	g.maybeScheduleRebuild()
}

// Remove drops a request from the index.
func (g *GroundSpace) Remove(requestID string) {
	g.mu.Lock()
	if _, ok := g.entries[requestID]; ok {
		delete(g.entries, requestID)
		g.dirtyCount++
	}
	g.mu.Unlock()
	g.maybeScheduleRebuild()
}

// Len returns the number of currently indexed requests.
func (g *GroundSpace) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

func (g *GroundSpace) maybeScheduleRebuild() {
	g.mu.RLock()
	due := g.dirtyCount >= g.rebuildThreshold || time.Since(g.lastRebuild) >= g.maxStaleTime
	g.mu.RUnlock()
	if !due {
		return
	}
	if !atomic.CompareAndSwapInt32(&g.rebuilding, 0, 1) {
		return // a rebuild is already in flight
	}
	go g.rebuild()
}

// rebuild snapshots entries under lock, builds the tree outside the
// lock, then swaps the pointer under lock. Queries during the build see
// the previous tree.
func (g *GroundSpace) rebuild() {
	defer atomic.StoreInt32(&g.rebuilding, 0)

	g.mu.RLock()
	points := make([]kdPoint, 0, len(g.entries))
	for id, e := range g.entries {
		p := toUnitSphere(e.Source)
		p.id = id
		points = append(points, p)
	}
	g.mu.RUnlock()

	newTree := buildKDTree(points, 0)

	g.mu.Lock()
	g.dirtyCount = 0
	g.lastRebuild = time.Now()
	g.mu.Unlock()

	g.tree.Store(newTree)
}

// ForceRebuildSync rebuilds synchronously, for tests and for startup
// warm-up where async lazy rebuild would otherwise leave the index
// empty until the first mutation crosses the threshold.
func (g *GroundSpace) ForceRebuildSync() {
	if !atomic.CompareAndSwapInt32(&g.rebuilding, 0, 1) {
		return
	}
	g.rebuild()
}

// chordRadius converts a km radius into the Euclidean chord length on
// the unit sphere, the over-approximating query radius for the k-d tree
// ball search (spec §4.4).
func chordRadius(rKm float64) float64 {
	alpha := rKm * 1000 / geo.EarthRadiusM
	return 2 * math.Sin(alpha/2)
}

// query runs the chord-radius ball search then re-verifies each
// candidate with exact haversine distance, since the chord query is an
// over-approximation.
func (g *GroundSpace) query(center geo.Point, rKm float64) []Entry {
	tree := g.tree.Load()
	cp := toUnitSphere(center)
	var candidates []kdPoint
	tree.ballQuery(cp, chordRadius(rKm), &candidates)

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		e, ok := g.entries[c.id]
		if !ok {
			continue // removed since the tree snapshot was taken
		}
		if geo.Haversine(e.Source, center) <= rKm*1000 {
			out = append(out, e)
		}
	}
	return out
}

// CountInRadius returns the number of indexed requests within rKm of
// center.
func (g *GroundSpace) CountInRadius(center geo.Point, rKm float64) int {
	return len(g.query(center, rKm))
}

// ListInRadius returns every indexed request within rKm of center,
// optionally sorted by ascending exact distance.
func (g *GroundSpace) ListInRadius(center geo.Point, rKm float64, sorted bool) []Entry {
	entries := g.query(center, rKm)
	if !sorted {
		return entries
	}
	sort.Slice(entries, func(i, j int) bool {
		return geo.Haversine(entries[i].Source, center) < geo.Haversine(entries[j].Source, center)
	})
	return entries
}

// NearbyToRequest resolves requestID's own indexed location and lists
// other indexed requests within rKm of it.
func (g *GroundSpace) NearbyToRequest(requestID string, rKm float64, sorted bool) ([]Entry, bool) {
	g.mu.RLock()
	self, ok := g.entries[requestID]
	g.mu.RUnlock()
	if !ok {
		return nil, false
	}

	all := g.ListInRadius(self.Source, rKm, sorted)
	out := all[:0]
	for _, e := range all {
		if e.RequestID != requestID {
			out = append(out, e)
		}
	}
	return out, true
}
