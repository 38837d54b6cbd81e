package geo

import (
	"math"
	"time"
)

// MinPropagationInterval is the lower bound below which Propagate is a
// no-op (spec §4.3 default 1s).
const MinPropagationInterval = 1 * time.Second

// OrbitalElements describes a circular-orbit satellite reference frame.
type OrbitalElements struct {
	PeriodS        float64
	InclinationDeg float64
	RAANDeg        float64
}

// OrbitalState is the minimal (theta, t0) snapshot a satellite holds and
// recomputes from on demand (design note: lazy satellite propagation).
type OrbitalState struct {
	Theta      float64
	LastUpdate time.Time
}

// Propagate advances a circular-orbit satellite's position to "now" and
// returns the new orbital state plus the resulting geodetic point at
// the given altitude above the Earth sphere. If the elapsed interval is
// below MinPropagationInterval the call is a no-op and returns the
// unchanged state and its corresponding point (PropagationSkip, spec
// §7 — not an error, silently ignored by the caller).
func Propagate(elems OrbitalElements, state OrbitalState, altM float64, now time.Time) (OrbitalState, Point) {
	dt := now.Sub(state.LastUpdate).Seconds()
	if math.Abs(dt) < MinPropagationInterval.Seconds() {
		return state, pointFromTheta(elems, state.Theta, altM)
	}

	theta := state.Theta + 2*math.Pi*dt/elems.PeriodS
	newState := OrbitalState{Theta: normalizeTheta(theta), LastUpdate: now}
	return newState, pointFromTheta(elems, newState.Theta, altM)
}

func normalizeTheta(theta float64) float64 {
	twoPi := 2 * math.Pi
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	return theta
}

// pointFromTheta computes the geodetic point for a circular orbit at
// phase angle theta: position in the orbital plane is (r cosθ, r sinθ, 0),
// rotated by inclination around the line of nodes and by RAAN around z.
func pointFromTheta(elems OrbitalElements, theta, altM float64) Point {
	r := EarthRadiusM + altM
	xOrb := r * math.Cos(theta)
	yOrb := r * math.Sin(theta)

	inc := deg2rad(elems.InclinationDeg)
	// Rotate around the x-axis (line of nodes) by inclination.
	xInc := xOrb
	yInc := yOrb * math.Cos(inc)
	zInc := yOrb * math.Sin(inc)

	raan := deg2rad(elems.RAANDeg)
	// Rotate around z by RAAN into the Earth-centred inertial frame,
	// treated here as Earth-fixed per spec §3 (GEO is fixed; LEO ground
	// trace advances through theta alone).
	x := xInc*math.Cos(raan) - yInc*math.Sin(raan)
	y := xInc*math.Sin(raan) + yInc*math.Cos(raan)
	z := zInc

	return PointFromECEF(x, y, z)
}

// ElevationAngleDeg returns the elevation angle in degrees of a
// satellite at satPos as seen from groundPos in the Earth-centred
// frame (spec §4.2's satellite-vs-ground connectivity predicate).
func ElevationAngleDeg(satPos, groundPos Point) float64 {
	sx, sy, sz := satPos.ECEF()
	gx, gy, gz := groundPos.ECEF()

	// Local up vector at the ground point.
	ux, uy, uz := gx, gy, gz
	upNorm := math.Sqrt(ux*ux + uy*uy + uz*uz)
	ux, uy, uz = ux/upNorm, uy/upNorm, uz/upNorm

	// Line-of-sight vector from ground to satellite.
	lx, ly, lz := sx-gx, sy-gy, sz-gz
	losNorm := math.Sqrt(lx*lx + ly*ly + lz*lz)
	if losNorm == 0 {
		return 90
	}
	lx, ly, lz = lx/losNorm, ly/losNorm, lz/losNorm

	sinEl := ux*lx + uy*ly + uz*lz
	return rad2deg(math.Asin(clamp(sinEl, -1, 1)))
}

// MinDistanceSegmentToOrigin returns the minimum distance from the
// origin (Earth centre) to the line segment between two ECEF points,
// used by the satellite-vs-satellite line-of-sight predicate.
func MinDistanceSegmentToOrigin(ax, ay, az, bx, by, bz float64) float64 {
	dx, dy, dz := bx-ax, by-ay, bz-az
	segLenSq := dx*dx + dy*dy + dz*dz
	if segLenSq == 0 {
		return math.Sqrt(ax*ax + ay*ay + az*az)
	}

	// Project the origin onto the segment, clamped to [0,1].
	t := -(ax*dx + ay*dy + az*dz) / segLenSq
	t = clamp(t, 0, 1)

	px := ax + t*dx
	py := ay + t*dy
	pz := az + t*dz
	return math.Sqrt(px*px + py*py + pz*pz)
}

// LineOfSight reports whether two ECEF points have an unobstructed
// line of sight (the segment between them does not intersect the Earth
// sphere).
func LineOfSight(a, b Point) bool {
	ax, ay, az := a.ECEF()
	bx, by, bz := b.ECEF()
	return MinDistanceSegmentToOrigin(ax, ay, az, bx, by, bz) > EarthRadiusM
}

// EstimateVisibleTime performs a monotone binary search over an offset
// m in [0, maxTime] for the largest m at which visible(m) still holds,
// returning maxTime directly if visibility holds there (spec §4.3).
// visible must be monotonically non-increasing in m becoming false once
// it goes false (a single visibility window boundary).
func EstimateVisibleTime(maxTime time.Duration, visible func(m time.Duration) bool) time.Duration {
	if visible(maxTime) {
		return maxTime
	}
	if !visible(0) {
		return 0
	}

	lo, hi := time.Duration(0), maxTime
	const iterations = 40
	for i := 0; i < iterations; i++ {
		mid := lo + (hi-lo)/2
		if visible(mid) {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo <= time.Millisecond {
			break
		}
	}
	return lo
}
