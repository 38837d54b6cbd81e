package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
	"saginctl/pkg/logger"
	"saginctl/pkg/pipeline"
	"saginctl/pkg/routeenv"
	"saginctl/pkg/spatial"
	"saginctl/pkg/stats"
	"saginctl/pkg/topology"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

func gsFull(id string, lat, lon, coverageKm float64, priority int) *topology.Node {
	n := topology.NewNode(id, topology.KindGroundStation, geo.Point{LatDeg: lat, LonDeg: lon}, map[topology.ResourceKey]float64{
		topology.ResUplink: 100, topology.ResDownlink: 100, topology.ResCPU: 100, topology.ResPower: 100,
	})
	n.CoverageRadiusKm = coverageKm
	n.Priority = priority
	return n
}

func newTestServer(t *testing.T) (*Server, *topology.Network) {
	t.Helper()
	nw := topology.NewNetwork()
	nw.AddNode(gsFull("gs-1", 13.76, 100.51, 500, 1))
	nw.AddNode(gsFull("gs-2", 13.80, 100.60, 500, 1))

	now := time.Now()
	space := spatial.NewGroundSpace(50, 30*time.Second)
	env := routeenv.New(nw, space, nil, func() time.Time { return now })
	p := pipeline.New(nw, env, pipeline.Config{Policy: pipeline.GreedyPolicy{}})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)

	agg, err := stats.New(stats.Config{
		LogPath:   t.TempDir() + "/stats.csv",
		BatchSize: 50,
		Clock:     func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { agg.Close() })

	return &Server{Net: nw, Space: space, Pipeline: p, Stats: agg, Clock: func() time.Time { return now }}, nw
}

func TestHandleRequestAppliesDefaultsAndRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	body := bytes.NewBufferString(`{"lat": 13.76, "lon": 100.51}`)
	req := httptest.NewRequest(http.MethodPost, "/handlereq", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handleReqResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Result)
	require.Equal(t, []string{"gs-1"}, resp.Path)
	require.NotEmpty(t, resp.ID) // pipeline assigns a uuid when id is omitted
}

func TestHandleRequestRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodPost, "/handlereq", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceClassFromWireTypeMapsOneIndexedEnum(t *testing.T) {
	require.Equal(t, 0, int(serviceClassFromWireType(1))) // VOICE
	require.Equal(t, 2, int(serviceClassFromWireType(3))) // DATA, and the handler's default
	require.Equal(t, 7, int(serviceClassFromWireType(8))) // EMERGENCY
	require.Equal(t, 2, int(serviceClassFromWireType(0))) // out of range -> DATA
	require.Equal(t, 2, int(serviceClassFromWireType(99)))
}

func TestHandleScanSortsByPriorityThenDistance(t *testing.T) {
	srv, nw := newTestServer(t)
	// gs-3 is farther than gs-1/gs-2 and has priority 5; lower priority number wins first.
	far := gsFull("gs-3", 14.50, 101.20, 2000, 5)
	nw.AddNode(far)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/scan?lat=13.76&lon=100.51", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []scanEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Priority == entries[i].Priority {
			require.LessOrEqual(t, entries[i-1].Distance, entries[i].Distance)
		} else {
			require.Less(t, entries[i-1].Priority, entries[i].Priority)
		}
	}
}

func TestHandleScanRequiresLatLon(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/scan?lat=13.76", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNodesGroupsByKind(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp nodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.GroundStations, 2)
	require.Empty(t, resp.Satellites)
	require.Empty(t, resp.SeaStations)
}

func TestHandleAllNodesReturnsFlatDetailedList(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/allnodes", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var nodes []detailedNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		require.Equal(t, "groundstation", n.Type)
		require.Nil(t, n.OrbitState)
	}
}

func TestHandleAggregateAndTimeSeriesStats(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/get_aggregate_stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/get_time_series_stats", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
