package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"saginctl/pkg/geo"
	"saginctl/pkg/topology"
)

// seedDoc is one node's on-disk shape: a stand-in for the key-value
// topology datastore named out of scope by spec §1 ("treated as a
// key-value loader at startup"), grounded on the reference system's
// document store records (original_source/Classes/gs.py, satellite.py,
// ss.py each unpack one such document per node).
type seedDoc struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"` // groundstation, seastation, LEO, GEO
	Position struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
		Alt float64 `json:"alt"`
	} `json:"position"`
	Priority         int                `json:"priority"`
	CoverageRadiusKm float64            `json:"coverage_radius_km"` // groundstation/seastation only
	Resources        map[string]float64 `json:"resources"`
	Orbit            *struct {
		PeriodS        float64 `json:"period_s"`
		InclinationDeg float64 `json:"inclination_deg"`
		RAANDeg        float64 `json:"raan_deg"`
	} `json:"orbit,omitempty"` // LEO/GEO only
	OrbitState *struct {
		LastTheta float64 `json:"last_theta"`
	} `json:"orbit_state,omitempty"`
}

func seedKind(t string) (topology.Kind, error) {
	switch t {
	case "groundstation":
		return topology.KindGroundStation, nil
	case "seastation":
		return topology.KindSeaStation, nil
	case "LEO":
		return topology.KindLEO, nil
	case "GEO":
		return topology.KindGEO, nil
	default:
		return "", fmt.Errorf("topology seed: unknown node type %q", t)
	}
}

func resourceKey(name string) (topology.ResourceKey, bool) {
	switch name {
	case "uplink":
		return topology.ResUplink, true
	case "downlink":
		return topology.ResDownlink, true
	case "cpu":
		return topology.ResCPU, true
	case "power":
		return topology.ResPower, true
	case "isl":
		return topology.ResISL, true
	default:
		return "", false
	}
}

// loadTopologySeed reads a JSON array of seedDoc from path and populates
// net. This is a minimal bootstrap, not a general topology datastore
// client: the real datastore integration is an external collaborator
// (spec §1), and the process only needs something to populate the
// registry with before serving traffic.
func loadTopologySeed(path string, net *topology.Network) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("topology seed: read %s: %w", path, err)
	}

	var docs []seedDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("topology seed: parse %s: %w", path, err)
	}

	for _, d := range docs {
		kind, err := seedKind(d.Type)
		if err != nil {
			return err
		}
		resources := make(map[topology.ResourceKey]float64, len(d.Resources))
		for name, v := range d.Resources {
			if key, ok := resourceKey(name); ok {
				resources[key] = v
			}
		}
		pos := geo.Point{LatDeg: d.Position.Lat, LonDeg: d.Position.Lon, AltM: d.Position.Alt}
		n := topology.NewNode(d.ID, kind, pos, resources)
		n.Priority = d.Priority
		n.CoverageRadiusKm = d.CoverageRadiusKm
		if d.Orbit != nil {
			n.Orbit = geo.OrbitalElements{
				PeriodS:        d.Orbit.PeriodS,
				InclinationDeg: d.Orbit.InclinationDeg,
				RAANDeg:        d.Orbit.RAANDeg,
			}
		}
		if d.OrbitState != nil {
			n.SetOrbitState(geo.OrbitalState{Theta: d.OrbitState.LastTheta, LastUpdate: time.Now()})
		}
		net.AddNode(n)
	}
	return nil
}
