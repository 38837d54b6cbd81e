// Package httpapi is the thin net/http adapter named out of scope for the
// routing subsystem proper but needed as the process's external surface
// (SPEC_FULL.md's supplemented Scan/topology read endpoints, spec §6):
// POST /handlereq and the five GET read endpoints, none of which touch the
// network, environment, or planner directly — they all go through
// *pipeline.Pipeline or read the registries pipeline.New was built from.
package httpapi

import (
	"net/http"
	"time"

	"saginctl/pkg/pipeline"
	"saginctl/pkg/spatial"
	"saginctl/pkg/stats"
	"saginctl/pkg/telemetry"
	"saginctl/pkg/topology"
)

// Server holds the collaborators the adapter dispatches to. None of the
// fields are owned by httpapi: the process entrypoint builds and wires
// them, this package only reads from them.
type Server struct {
	Net      *topology.Network
	Space    *spatial.GroundSpace
	Pipeline *pipeline.Pipeline
	Stats    *stats.Aggregator
	Clock    func() time.Time
}

func (s *Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// NewMux builds the routed handler, wrapped in span tracing and then
// request-logging middleware (both grounded on the reference gateway's
// interceptor chain, adapted from a gRPC interceptor shape to plain
// http.Handler wrappers).
func (s *Server) NewMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /handlereq", s.handleRequest)
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("GET /nodes", s.handleNodes)
	mux.HandleFunc("GET /allnodes", s.handleAllNodes)
	mux.HandleFunc("GET /get_aggregate_stats", s.handleAggregateStats)
	mux.HandleFunc("GET /get_time_series_stats", s.handleTimeSeriesStats)
	mux.HandleFunc("GET /health", handleHealth)
	return withLogging(telemetry.HTTPMiddleware(mux))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
