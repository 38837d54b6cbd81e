package cache

import (
	"context"
	"encoding/json"
	"time"
)

// PlannerCache memoises deterministic planner results keyed by a rounded
// source location, service class, and topology version, so that repeated
// requests from nearby sources under an unchanged topology skip a fresh
// best-first search.
type PlannerCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedPlan is the serialised form of a planner result.
type CachedPlan struct {
	Path        []string  `json:"path"`
	Latency     float64   `json:"latency_ms"`
	Reliability float64   `json:"reliability"`
	Uplink      float64   `json:"uplink"`
	Downlink    float64   `json:"downlink"`
	CPU         float64   `json:"cpu"`
	Power       float64   `json:"power"`
	Hops        int       `json:"hops"`
	ComputedAt  time.Time `json:"computed_at"`
}

// NewPlannerCache wraps a Cache for planner-result memoisation.
func NewPlannerCache(c Cache, defaultTTL time.Duration) *PlannerCache {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	return &PlannerCache{cache: c, defaultTTL: defaultTTL}
}

// Get returns a cached plan for key, or (nil, false, nil) on a clean miss.
func (pc *PlannerCache) Get(ctx context.Context, key PlanKey) (*CachedPlan, bool, error) {
	data, err := pc.cache.Get(ctx, key.String())
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var plan CachedPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		_ = pc.cache.Delete(ctx, key.String())
		return nil, false, nil
	}
	return &plan, true, nil
}

// Set stores a plan under key with the cache's default TTL.
func (pc *PlannerCache) Set(ctx context.Context, key PlanKey, plan CachedPlan) error {
	plan.ComputedAt = time.Now()
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return pc.cache.Set(ctx, key.String(), data, pc.defaultTTL)
}

// InvalidateAll deletes the whole planner keyspace ("plan:*") and returns
// the number of keys removed; callers bump the topology version on
// commit/retirement, which naturally changes the key space going forward,
// so this only reclaims the space held by stale entries.
func (pc *PlannerCache) InvalidateAll(ctx context.Context) (int64, error) {
	return pc.cache.DeleteByPattern(ctx, "plan:*")
}
