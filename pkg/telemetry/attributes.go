package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys recorded on the routing-episode span started by
// pkg/pipeline (spec §4.7) and the planner runs it wraps (spec §4.5).
const (
	AttrRequestID       = "request.id"
	AttrServiceClass    = "request.service_class"
	AttrRequestPriority = "request.priority"

	AttrEpisodeOutcome = "episode.outcome"
	AttrEpisodeSteps   = "episode.steps"
	AttrEpisodeHops    = "episode.hops"

	AttrPlannerPathLength  = "planner.path_length"
	AttrPlannerLatencyMS   = "planner.latency_ms"
	AttrPlannerReliability = "planner.reliability"
	AttrPlannerEmpty       = "planner.empty"
)

// RequestAttributes tags a span with the request identity and
// service-class profile it is routing.
func RequestAttributes(id, serviceClass string, priority float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRequestID, id),
		attribute.String(AttrServiceClass, serviceClass),
		attribute.Float64(AttrRequestPriority, priority),
	}
}

// EpisodeAttributes tags a span with a finished routing episode's
// terminal outcome, step count, and committed hop count.
func EpisodeAttributes(outcome string, steps, hops int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrEpisodeOutcome, outcome),
		attribute.Int(AttrEpisodeSteps, steps),
		attribute.Int(AttrEpisodeHops, hops),
	}
}

// PlannerAttributes tags a span with one planner run's reference
// solution: an empty run (no connectable seed from the source, spec
// §7's PlannerEmpty) reports only AttrPlannerEmpty.
func PlannerAttributes(pathLen int, latencyMS, reliability float64) []attribute.KeyValue {
	if pathLen == 0 {
		return []attribute.KeyValue{attribute.Bool(AttrPlannerEmpty, true)}
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrPlannerEmpty, false),
		attribute.Int(AttrPlannerPathLength, pathLen),
		attribute.Float64(AttrPlannerLatencyMS, latencyMS),
		attribute.Float64(AttrPlannerReliability, reliability),
	}
}
