package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

// poolAdapter satisfies DB using a pgxmock pool, the same shape the
// reference platform's postgres_test.go files use.
type poolAdapter struct {
	pgxmock.PgxPoolIface
}

func newMockDB(t *testing.T) (*poolAdapter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &poolAdapter{mock}, mock
}

func (p *poolAdapter) Close() {
	p.PgxPoolIface.Close()
}

var _ DB = (*poolAdapter)(nil)

func TestOrbitalStateRepositoryUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewOrbitalStateRepository(db)
	now := time.Now()

	mock.ExpectExec("INSERT INTO orbital_state").
		WithArgs("leo-1", 1.25, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), OrbitalState{SatelliteID: "leo-1", Theta: 1.25, UpdatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrbitalStateRepositoryGetReturnsQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewOrbitalStateRepository(db)
	mock.ExpectQuery("SELECT satellite_id, theta, updated_at FROM orbital_state").
		WithArgs("missing").
		WillReturnError(pgxpool.ErrClosedPool)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestOrbitalStateRepositoryUpsertMany(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewOrbitalStateRepository(db)
	now := time.Now()
	states := []OrbitalState{
		{SatelliteID: "leo-1", Theta: 0.1, UpdatedAt: now},
		{SatelliteID: "leo-2", Theta: 0.2, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orbital_state").WithArgs("leo-1", 0.1, now).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO orbital_state").WithArgs("leo-2", 0.2, now).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertMany(context.Background(), states))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrbitalStateRepositoryUpsertManyEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewOrbitalStateRepository(db)
	require.NoError(t, repo.UpsertMany(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorRepositoryInsertAndCount(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewAggregatorRepository(db)
	row := AggregatorRow{Timestamp: time.Now(), RequestID: "r1", Winner: "agent"}

	mock.ExpectExec("INSERT INTO aggregator_rows").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Insert(context.Background(), row))

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM aggregator_rows").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
