package main

import (
	"context"
	"time"

	"saginctl/pkg/logger"
	"saginctl/pkg/store"
	"saginctl/pkg/topology"
)

// orbitalSweepInterval is how often the LEO constellation is scanned for
// satellites past topology.PersistThreshold; shorter than the threshold
// itself so no satellite drifts far past it before being flushed.
const orbitalSweepInterval = 5 * time.Minute

// runOrbitalPersistence periodically flushes LEO orbital state to repo,
// resuming where propagation left off if saginctl is restarted (spec
// §4.3's "persist every PersistThreshold seconds" rule). It exits when ctx
// is cancelled.
func runOrbitalPersistence(ctx context.Context, repo *store.OrbitalStateRepository, net *topology.Network) {
	ticker := time.NewTicker(orbitalSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushDueSatellites(ctx, repo, net)
		}
	}
}

func flushDueSatellites(ctx context.Context, repo *store.OrbitalStateRepository, net *topology.Network) {
	now := time.Now()
	var due []store.OrbitalState
	var nodes []*topology.Node

	for _, n := range net.ByKind(topology.KindLEO) {
		if !n.PersistDue(now) {
			continue
		}
		snap := n.OrbitSnapshot()
		due = append(due, store.OrbitalState{
			SatelliteID: n.ID,
			Theta:       snap.Theta,
			UpdatedAt:   now,
		})
		nodes = append(nodes, n)
	}

	if len(due) == 0 {
		return
	}

	if err := repo.UpsertMany(ctx, due); err != nil {
		logger.Log.Warn("failed to persist orbital state batch", "error", err, "count", len(due))
		return
	}

	for _, n := range nodes {
		n.MarkPersisted(now)
	}
}
