package httpapi

import "net/http"

// handleAggregateStats answers GET /get_aggregate_stats with the
// aggregator's cumulative snapshot (spec §4.8/§6).
func (s *Server) handleAggregateStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats.AggregateStats())
}

// handleTimeSeriesStats answers GET /get_time_series_stats with the most
// recent batches' win-rate series (spec §4.8/§6).
func (s *Server) handleTimeSeriesStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats.TimeSeries())
}
