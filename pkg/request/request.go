// Package request models an admission request travelling through the
// planner, routing environment, and pipeline: its service class, QoS
// demand, and the running allocation state accumulated hop by hop.
package request

import (
	"saginctl/pkg/geo"
	"saginctl/pkg/topology"
)

// ServiceClass is one of the eight traffic classes carried end to end
// from QoS sampling through reward shaping.
type ServiceClass int

const (
	ServiceVoice ServiceClass = iota
	ServiceVideo
	ServiceData
	ServiceIOT
	ServiceStreaming
	ServiceBulkTransfer
	ServiceControl
	ServiceEmergency

	numServiceClasses = int(ServiceEmergency) + 1
)

// NumServiceClasses is the fixed one-hot width for the service-class
// observation slots.
const NumServiceClasses = numServiceClasses

func (s ServiceClass) String() string {
	switch s {
	case ServiceVoice:
		return "voice"
	case ServiceVideo:
		return "video"
	case ServiceData:
		return "data"
	case ServiceIOT:
		return "iot"
	case ServiceStreaming:
		return "streaming"
	case ServiceBulkTransfer:
		return "bulk_transfer"
	case ServiceControl:
		return "control"
	case ServiceEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// IsEmergency and IsControl gate the admission cap and processing-delay
// scale factor (spec §4.1/§4.2).
func (s ServiceClass) IsEmergency() bool { return s == ServiceEmergency }
func (s ServiceClass) IsControl() bool   { return s == ServiceControl }

// Range is an inclusive [Min, Max] sampling range for one QoS field.
type Range struct{ Min, Max float64 }

// Profile is the QoS sampling envelope for a service class.
type Profile struct {
	Uplink      Range
	Downlink    Range
	LatencyMS   Range
	Reliability Range
	Priority    Range
	CPU         Range
	Power       Range
}

// Weights are the reward-shaping weights (latency, reliability, uplink,
// downlink) applied to the QoS term of the step reward (spec §4.6).
type Weights struct {
	Latency     float64
	Reliability float64
	Uplink      float64
	Downlink    float64
}

// Profiles is the per-service-class QoS sampling table, grounded on the
// reference generator's QoSProfiles constants.
var Profiles = map[ServiceClass]Profile{
	ServiceVoice: {
		Uplink: Range{0.1, 0.3}, Downlink: Range{0.2, 0.5}, LatencyMS: Range{20, 100},
		Reliability: Range{0.95, 0.99}, Priority: Range{2, 4}, CPU: Range{1, 4}, Power: Range{2, 6},
	},
	ServiceVideo: {
		Uplink: Range{1, 3}, Downlink: Range{5, 10}, LatencyMS: Range{50, 150},
		Reliability: Range{0.90, 0.98}, Priority: Range{3, 6}, CPU: Range{10, 30}, Power: Range{20, 50},
	},
	ServiceData: {
		Uplink: Range{1, 5}, Downlink: Range{5, 20}, LatencyMS: Range{50, 200},
		Reliability: Range{0.90, 0.97}, Priority: Range{4, 7}, CPU: Range{5, 20}, Power: Range{10, 40},
	},
	ServiceIOT: {
		Uplink: Range{0.05, 0.3}, Downlink: Range{0.05, 0.2}, LatencyMS: Range{10, 100},
		Reliability: Range{0.97, 0.999}, Priority: Range{2, 5}, CPU: Range{1, 3}, Power: Range{1, 5},
	},
	ServiceStreaming: {
		Uplink: Range{1, 3}, Downlink: Range{8, 15}, LatencyMS: Range{50, 150},
		Reliability: Range{0.90, 0.97}, Priority: Range{3, 6}, CPU: Range{15, 40}, Power: Range{20, 60},
	},
	ServiceBulkTransfer: {
		Uplink: Range{5, 20}, Downlink: Range{20, 100}, LatencyMS: Range{100, 500},
		Reliability: Range{0.85, 0.95}, Priority: Range{7, 10}, CPU: Range{20, 50}, Power: Range{40, 80},
	},
	ServiceControl: {
		Uplink: Range{0.1, 0.5}, Downlink: Range{0.1, 0.5}, LatencyMS: Range{5, 50},
		Reliability: Range{0.99, 0.999}, Priority: Range{1, 3}, CPU: Range{2, 6}, Power: Range{5, 10},
	},
	ServiceEmergency: {
		Uplink: Range{0.5, 2}, Downlink: Range{0.5, 2}, LatencyMS: Range{1, 20},
		Reliability: Range{0.999, 1.0}, Priority: Range{1, 1}, CPU: Range{5, 15}, Power: Range{10, 20},
	},
}

// RewardWeights is the per-service-class QoS reward-term weighting,
// grounded on the reference generator's BonusProfilesForService table.
var RewardWeights = map[ServiceClass]Weights{
	ServiceEmergency:    {Latency: 0.5, Reliability: 0.3, Uplink: 0.1, Downlink: 0.1},
	ServiceControl:      {Latency: 0.5, Reliability: 0.3, Uplink: 0.1, Downlink: 0.1},
	ServiceVoice:        {Latency: 0.5, Reliability: 0.3, Uplink: 0.1, Downlink: 0.1},
	ServiceVideo:        {Latency: 0.1, Reliability: 0.2, Uplink: 0.4, Downlink: 0.3},
	ServiceStreaming:    {Latency: 0.1, Reliability: 0.2, Uplink: 0.4, Downlink: 0.3},
	ServiceBulkTransfer: {Latency: 0.1, Reliability: 0.2, Uplink: 0.4, Downlink: 0.3},
	ServiceData:         {Latency: 0.2, Reliability: 0.1, Uplink: 0.35, Downlink: 0.35},
	ServiceIOT:          {Latency: 0.3, Reliability: 0.4, Uplink: 0.15, Downlink: 0.15},
}

// DefaultWeights is used if a service class is somehow missing from the
// table (cannot happen with the closed enum above, kept as a safe
// fallback for forward compatibility).
var DefaultWeights = Weights{Latency: 0.25, Reliability: 0.25, Uplink: 0.25, Downlink: 0.25}

// QoS holds the reference (planner) solution for a request: the best
// path's cumulative latency/reliability/bandwidth/compute figures.
type QoS struct {
	LatencyMS   float64
	Reliability float64
	Uplink      float64
	Downlink    float64
	CPU         float64
	Power       float64
	Hops        int
}

// Request is one admission request moving through the planner and the
// routing environment, carrying both the reference (Dijkstra) solution
// and the agent's live allocation state.
type Request struct {
	ID      string
	Class   ServiceClass
	Source  geo.Point
	Created int64 // unix seconds, stamped by the caller (pkg/spatial and time math never call time.Now directly here)

	UplinkRequired      float64
	DownlinkRequired    float64
	LatencyRequiredMS   float64
	ReliabilityRequired float64
	Priority            float64
	CPURequired         float64
	PowerRequired       float64

	DirectSatSupport bool
	AllowPartial     bool
	DemandTimeout    int
	RealTimeout      int

	// Live allocation state, updated hop by hop by the routing
	// environment.
	UplinkAllocated   float64
	DownlinkAllocated float64
	LatencyActualMS   float64
	ReliabilityActual float64
	CPUAllocated      float64
	PowerAllocated    float64

	Path []string // committed path, node ids in traversal order

	// DisPath/DisQoS are the planner's one-shot reference solution,
	// recomputed at the start of every routing episode.
	DisPath []string
	DisQoS  QoS
}

// New builds a Request with zero accumulated latency and perfect
// reliability. Requirements, bandwidth allocations and RealTimeout start
// at zero; callers (Random, the /handlereq handler) fill the requirements
// and start the allocations at the required bandwidth.
func New(id string, class ServiceClass, source geo.Point) *Request {
	return &Request{
		ID:                id,
		Class:             class,
		Source:            source,
		AllowPartial:      true,
		ReliabilityActual: 1,
	}
}

// Weights returns this request's QoS reward weighting, falling back to
// an even split if the service class is unrecognised.
func (r *Request) Weights() Weights {
	if w, ok := RewardWeights[r.Class]; ok {
		return w
	}
	return DefaultWeights
}

// AdmissionCap returns the admission usage ceiling for this request's
// service class: 0.95 for emergency traffic, 0.90 otherwise (spec
// §4.2).
func (r *Request) AdmissionCap() float64 {
	if r.Class.IsEmergency() {
		return topology.EmergencyAdmissionCap
	}
	return topology.NormalAdmissionCap
}
