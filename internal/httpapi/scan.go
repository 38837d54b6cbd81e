package httpapi

import (
	"net/http"
	"sort"
	"strconv"

	"saginctl/pkg/geo"
	"saginctl/pkg/topology"
)

type scanEntry struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
	Priority int     `json:"priority"`
}

// handleScan answers GET /scan?lat=&lon=&support5G=: every node
// connectable from the given point, sorted by priority then distance
// (spec §6's documented behaviour). The reference handler computes this
// same sorted list but then returns its pre-sort input instead — a
// dead-code bug in the original we do not reproduce.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required and must be numeric")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon is required and must be numeric")
		return
	}
	support5G := q.Get("support5G") == "true" || q.Get("support5G") == "1"

	from := geo.Point{LatDeg: lat, LonDeg: lon}
	now := s.now()
	visible := s.Net.FindConnectableNodes(from, false, now)

	entries := make([]scanEntry, 0, len(visible))
	for _, n := range visible {
		// support5G=false excludes satellite targets entirely, matching
		// the reference find_connectable_nodes_for_location's filter.
		if !support5G && n.Kind.IsSatellite() {
			continue
		}
		mode := geo.ThreeD
		if n.Kind == topology.KindGroundStation || n.Kind == topology.KindSeaStation {
			mode = geo.Surface
		}
		entries = append(entries, scanEntry{
			Type:     string(n.Kind),
			ID:       n.ID,
			Distance: geo.Distance(n.Position(now), from, mode) / 1000,
			Priority: n.Priority,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].Distance < entries[j].Distance
	})

	writeJSON(w, http.StatusOK, entries)
}
