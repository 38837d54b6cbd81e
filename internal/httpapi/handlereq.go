package httpapi

import (
	"encoding/json"
	"net/http"

	"saginctl/pkg/geo"
	"saginctl/pkg/request"
)

// handleReqPayload is the wire shape of POST /handlereq. Every field is
// optional; missing fields fall back to the reference service's defaults
// (original_source/Service/pythonService.py's handle_request), preserved
// here field for field since this is the one literal external contract
// the HTTP surface must not silently change.
type handleReqPayload struct {
	ID            string   `json:"id"`
	Type          *int     `json:"type"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Alt           *float64 `json:"alt"`
	Uplink        *float64 `json:"uplink"`
	Downlink      *float64 `json:"downlink"`
	Latency       *float64 `json:"latency"`
	Reliability   *float64 `json:"reliability"`
	CPU           *float64 `json:"cpu"`
	Power         *float64 `json:"power"`
	Priority      *float64 `json:"priority"`
	DemandTimeout *int     `json:"demand_timeout"`
	Support5G     *bool    `json:"support5G"`
}

// handleReqResponse mirrors spec §6's /handlereq response shape.
type handleReqResponse struct {
	ID        string       `json:"id"`
	Result    string       `json:"result"`
	Path      []string     `json:"path"`
	Allocated allocatedQoS `json:"allocated"`
}

type allocatedQoS struct {
	Uplink      float64 `json:"uplink"`
	Downlink    float64 `json:"downlink"`
	CPU         float64 `json:"cpu"`
	Power       float64 `json:"power"`
	Reliability float64 `json:"reliability"`
	LatencyMS   float64 `json:"latency"`
}

// serviceClassFromWireType converts the wire-level integer enum (the
// reference ServiceType, 1-indexed: VOICE=1..EMERGENCY=8) to this
// package's 0-indexed request.ServiceClass, falling back to
// request.ServiceData for any value outside the closed range — the
// same fallback the reference handler applies for an unrecognised
// type_index.
func serviceClassFromWireType(wireType int) request.ServiceClass {
	idx := wireType - 1
	if idx < 0 || idx >= request.NumServiceClasses {
		return request.ServiceData
	}
	return request.ServiceClass(idx)
}

func floatOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var payload handleReqPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	class := serviceClassFromWireType(intOr(payload.Type, 3))
	source := geo.Point{
		LatDeg: floatOr(payload.Lat, 0),
		LonDeg: floatOr(payload.Lon, 0),
		AltM:   floatOr(payload.Alt, 0),
	}

	req := request.New(payload.ID, class, source)
	req.UplinkRequired = floatOr(payload.Uplink, 1)
	req.DownlinkRequired = floatOr(payload.Downlink, 1)
	req.LatencyRequiredMS = floatOr(payload.Latency, 200)
	req.ReliabilityRequired = floatOr(payload.Reliability, 0.95)
	req.CPURequired = floatOr(payload.CPU, 10)
	req.PowerRequired = floatOr(payload.Power, 10)
	req.Priority = floatOr(payload.Priority, 5)
	req.DemandTimeout = intOr(payload.DemandTimeout, 300)
	req.UplinkAllocated = req.UplinkRequired
	req.DownlinkAllocated = req.DownlinkRequired
	req.RealTimeout = req.DemandTimeout
	req.DirectSatSupport = boolOr(payload.Support5G, true)
	req.AllowPartial = true // hard-coded in the reference handler, not payload-driven

	outcome, err := s.Pipeline.Submit(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "routing worker unavailable: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, handleReqResponse{
		ID:     outcome.ID,
		Result: outcome.Result(),
		Path:   outcome.Path,
		Allocated: allocatedQoS{
			Uplink:      outcome.Allocated.Uplink,
			Downlink:    outcome.Allocated.Downlink,
			CPU:         outcome.Allocated.CPU,
			Power:       outcome.Allocated.Power,
			Reliability: outcome.Allocated.Reliability,
			LatencyMS:   outcome.Allocated.LatencyMS,
		},
	})
}
