package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PlanKey identifies a cacheable planner query: the request's rounded
// source cell, its service class, and the topology's version counter
// (bumped on every commit/retirement so a stale cache entry never outlives
// the admission state it was computed against).
type PlanKey struct {
	LatCell      int
	LonCell      int
	ServiceClass int
	TopologyVer  int64
}

// cellSize is the rounding granularity (degrees) used to bucket nearby
// sources onto the same cache key.
const cellSize = 0.5

// NewPlanKey buckets a source coordinate onto the cache grid.
func NewPlanKey(lat, lon float64, serviceClass int, topologyVer int64) PlanKey {
	return PlanKey{
		LatCell:      int(lat / cellSize),
		LonCell:      int(lon / cellSize),
		ServiceClass: serviceClass,
		TopologyVer:  topologyVer,
	}
}

// String renders the cache key used against the Cache interface.
func (k PlanKey) String() string {
	return fmt.Sprintf("plan:%d:%d:%d:%d", k.LatCell, k.LonCell, k.ServiceClass, k.TopologyVer)
}

// QuickHash returns the hex-encoded SHA-256 digest of arbitrary bytes.
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash is QuickHash truncated to 16 hex characters.
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
