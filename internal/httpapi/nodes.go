package httpapi

import (
	"net/http"

	"saginctl/pkg/topology"
)

// maxReportedAltitudeM caps the altitude /allnodes reports, matching the
// reference handler's sanity clamp against runaway propagated values.
const maxReportedAltitudeM = 3_000_000

type latLonAlt struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

type nodesResponse struct {
	Satellites     []latLonAlt `json:"satellites"`
	GroundStations []latLonAlt `json:"groundstations"`
	SeaStations    []latLonAlt `json:"seastations"`
}

// handleNodes answers GET /nodes: a grouped id/lat/lon/alt summary per
// kind (spec §6's supplemented topology-read shape).
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	resp := nodesResponse{}
	for _, n := range s.Net.All() {
		pos := n.Position(now)
		entry := latLonAlt{ID: n.ID, Lat: pos.LatDeg, Lon: pos.LonDeg, Alt: pos.AltM}
		switch {
		case n.Kind.IsSatellite():
			resp.Satellites = append(resp.Satellites, entry)
		case n.Kind == topology.KindGroundStation:
			resp.GroundStations = append(resp.GroundStations, entry)
		case n.Kind == topology.KindSeaStation:
			resp.SeaStations = append(resp.SeaStations, entry)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

type orbitState struct {
	LastTheta float64 `json:"last_theta"`
}

type detailedNode struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Position   position    `json:"position"`
	SatType    string      `json:"sat_type,omitempty"`
	Orbit      *orbitInfo  `json:"orbit,omitempty"`
	OrbitState *orbitState `json:"orbit_state,omitempty"`
}

type orbitInfo struct {
	PeriodS        float64 `json:"period_s"`
	InclinationDeg float64 `json:"inclination_deg"`
	RAANDeg        float64 `json:"raan_deg"`
}

// handleAllNodes answers GET /allnodes: one flat entry per node, each
// with its propagated position (altitude-clamped) and, for satellites,
// the orbit definition and last propagated theta.
func (s *Server) handleAllNodes(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	all := s.Net.All()
	out := make([]detailedNode, len(all))
	for i, n := range all {
		pos := n.Position(now) // propagates satellites as a side effect
		alt := pos.AltM
		if alt > maxReportedAltitudeM {
			alt = maxReportedAltitudeM
		}
		entry := detailedNode{
			ID:       n.ID,
			Type:     string(n.Kind),
			Position: position{Lat: pos.LatDeg, Lon: pos.LonDeg, Alt: alt},
		}
		if n.Kind.IsSatellite() {
			entry.SatType = string(n.Kind)
			entry.Orbit = &orbitInfo{
				PeriodS:        n.Orbit.PeriodS,
				InclinationDeg: n.Orbit.InclinationDeg,
				RAANDeg:        n.Orbit.RAANDeg,
			}
			entry.OrbitState = &orbitState{LastTheta: n.OrbitSnapshot().Theta}
		}
		out[i] = entry
	}
	writeJSON(w, http.StatusOK, out)
}
