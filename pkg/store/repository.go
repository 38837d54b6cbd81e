package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by repository lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// OrbitalState is the persisted snapshot of a LEO satellite's propagation
// reference point, written only when the in-memory Δt since the last
// persisted write exceeds the persist threshold (§4.3).
type OrbitalState struct {
	SatelliteID string
	Theta       float64
	UpdatedAt   time.Time
}

// OrbitalStateRepository persists satellite orbital reference points so a
// restarted process can resume propagation without resetting every
// satellite to theta zero.
type OrbitalStateRepository struct {
	db DB
}

// NewOrbitalStateRepository builds a repository over an open DB handle.
func NewOrbitalStateRepository(db DB) *OrbitalStateRepository {
	return &OrbitalStateRepository{db: db}
}

// Upsert writes or replaces a satellite's last persisted orbital state.
func (r *OrbitalStateRepository) Upsert(ctx context.Context, s OrbitalState) error {
	const q = `
		INSERT INTO orbital_state (satellite_id, theta, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (satellite_id) DO UPDATE
		SET theta = EXCLUDED.theta, updated_at = EXCLUDED.updated_at`
	_, err := r.db.Exec(ctx, q, s.SatelliteID, s.Theta, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert orbital state: %w", err)
	}
	return nil
}

// Get returns the last persisted orbital state for a satellite.
func (r *OrbitalStateRepository) Get(ctx context.Context, satelliteID string) (OrbitalState, error) {
	const q = `SELECT satellite_id, theta, updated_at FROM orbital_state WHERE satellite_id = $1`
	var s OrbitalState
	err := r.db.QueryRow(ctx, q, satelliteID).Scan(&s.SatelliteID, &s.Theta, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrbitalState{}, ErrNotFound
		}
		return OrbitalState{}, fmt.Errorf("store: get orbital state: %w", err)
	}
	return s, nil
}

// UpsertMany writes every state in one transaction, so a sweep over the
// LEO constellation that finds several satellites past PersistThreshold
// (topology.Node.PersistDue) commits as a single unit instead of leaving
// the store half-updated if a later write in the batch fails.
func (r *OrbitalStateRepository) UpsertMany(ctx context.Context, states []OrbitalState) error {
	if len(states) == 0 {
		return nil
	}
	return WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
			INSERT INTO orbital_state (satellite_id, theta, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (satellite_id) DO UPDATE
			SET theta = EXCLUDED.theta, updated_at = EXCLUDED.updated_at`
		for _, s := range states {
			if _, err := tx.Exec(ctx, q, s.SatelliteID, s.Theta, s.UpdatedAt); err != nil {
				return fmt.Errorf("store: upsert orbital state %s: %w", s.SatelliteID, err)
			}
		}
		return nil
	})
}

// AggregatorRow mirrors one row of the statistics aggregator's durable log
// (§4.8), persisted for cross-process recovery in addition to the local
// CSV file.
type AggregatorRow struct {
	Timestamp          time.Time
	RequestID          string
	AgentSuccess       bool
	AgentHops          int
	AgentLatency       float64
	AgentUplink        float64
	AgentDownlink      float64
	AgentReliability   float64
	AgentCPU           float64
	AgentPower         float64
	PlannerSuccess     bool
	PlannerHops        int
	PlannerLatency     float64
	PlannerUplink      float64
	PlannerDownlink    float64
	PlannerReliability float64
	PlannerCPU         float64
	PlannerPower       float64
	Winner             string
}

// AggregatorRepository persists finished-request comparison rows.
type AggregatorRepository struct {
	db DB
}

// NewAggregatorRepository builds a repository over an open DB handle.
func NewAggregatorRepository(db DB) *AggregatorRepository {
	return &AggregatorRepository{db: db}
}

// Insert appends one finished-request row.
func (r *AggregatorRepository) Insert(ctx context.Context, row AggregatorRow) error {
	const q = `
		INSERT INTO aggregator_rows (
			ts, request_id,
			agent_success, agent_hops, agent_latency, agent_uplink, agent_downlink, agent_reliability, agent_cpu, agent_power,
			planner_success, planner_hops, planner_latency, planner_uplink, planner_downlink, planner_reliability, planner_cpu, planner_power,
			winner
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err := r.db.Exec(ctx, q,
		row.Timestamp, row.RequestID,
		row.AgentSuccess, row.AgentHops, row.AgentLatency, row.AgentUplink, row.AgentDownlink, row.AgentReliability, row.AgentCPU, row.AgentPower,
		row.PlannerSuccess, row.PlannerHops, row.PlannerLatency, row.PlannerUplink, row.PlannerDownlink, row.PlannerReliability, row.PlannerCPU, row.PlannerPower,
		row.Winner,
	)
	if err != nil {
		return fmt.Errorf("store: insert aggregator row: %w", err)
	}
	return nil
}

// Count returns the total number of persisted rows.
func (r *AggregatorRepository) Count(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM aggregator_rows`
	var n int64
	if err := r.db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count aggregator rows: %w", err)
	}
	return n, nil
}
