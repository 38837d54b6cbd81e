// Package pipeline implements the single-worker request pipeline that
// serialises routing through one goroutine: reset the environment,
// precompute the planner's reference path, drive the external policy's
// predict/step loop to a terminal, and report the outcome (spec §4.7).
//
// The serving plane (HTTP handlers, multiple goroutines) routes only by
// calling Submit and awaiting the returned channel; it never touches the
// environment or the planner, and reads the network only for the scan
// and node listings. That separation is what lets
// §5's concurrency model claim per-episode state needs no locking: this
// package is the one and only routing-plane goroutine.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"saginctl/pkg/apperror"
	"saginctl/pkg/audit"
	"saginctl/pkg/cache"
	"saginctl/pkg/logger"
	"saginctl/pkg/metrics"
	"saginctl/pkg/planner"
	"saginctl/pkg/request"
	"saginctl/pkg/routeenv"
	"saginctl/pkg/telemetry"
	"saginctl/pkg/topology"
)

// Policy is the external policy-inference contract (spec §4.6/Open
// Question: "abstract it as policy.predict(obs) → action ∈ [0,10)").
// Implementations are free to wrap any inference runtime; this package
// only depends on the contract.
type Policy interface {
	Predict(obs routeenv.Observation) (action int, err error)
}

// StrategyResult is one path-finding strategy's outcome for a single
// request, shaped after the reference service's agent_result/
// dijkstra_result payloads (original_source/Service/pythonService.py).
type StrategyResult struct {
	Success     bool
	Path        []string
	LatencyMS   float64
	Uplink      float64
	Downlink    float64
	Reliability float64
	CPU         float64
	Power       float64
}

// Record is handed to the statistics aggregator for every finished
// request: both strategies' results side by side (spec §4.8).
type Record struct {
	RequestID string
	Class     request.ServiceClass
	Agent     StrategyResult
	Planner   StrategyResult
}

// Recorder is the statistics aggregator's ingestion contract; pkg/stats
// implements it. Defined here, not there, so pkg/pipeline has no import
// dependency on the aggregator's persistence machinery.
type Recorder interface {
	RecordRequest(Record)
}

type noopRecorder struct{}

func (noopRecorder) RecordRequest(Record) {}

// Outcome is what a completion handle resolves with (spec §4.7, §6's
// /handlereq response shape).
type Outcome struct {
	ID        string
	Path      []string
	Success   bool
	Allocated AllocatedQoS
}

// AllocatedQoS mirrors the /handlereq response's "allocated" object.
type AllocatedQoS struct {
	Uplink      float64
	Downlink    float64
	CPU         float64
	Power       float64
	Reliability float64
	LatencyMS   float64
}

// Result returns the §6 response's result string.
func (o Outcome) Result() string {
	if o.Success {
		return "success"
	}
	return "failed"
}

// Config supplies the collaborators a Pipeline is wired to. Policy is
// required. A nil Recorder becomes a no-op, a nil Audit writes no audit
// entries and a nil PlanCache plans every request live; a nil Metrics
// falls back to the process-wide metrics.Get() and a nil Clock to time.Now.
type Config struct {
	Policy    Policy
	Recorder  Recorder
	Audit     audit.Logger
	Metrics   *metrics.Metrics
	PlanCache *cache.PlannerCache
	Clock     func() time.Time

	QueueSize int // buffered depth of the submission channel, default 64
}

type job struct {
	ctx    context.Context
	req    *request.Request
	result chan Outcome
}

// Pipeline is the routing subsystem's single logical worker (spec §4.7,
// §5's "routing plane"). Submit is safe to call from any number of
// goroutines; exactly one goroutine, started by Run, drains the queue.
type Pipeline struct {
	net    *topology.Network
	env    *routeenv.Env
	policy Policy

	recorder  Recorder
	auditLog  audit.Logger
	metrics   *metrics.Metrics
	planCache *cache.PlannerCache
	clock     func() time.Time

	jobs chan job
}

// New builds a Pipeline bound to net/env. Run must be called (typically
// in its own goroutine) before Submit will make progress.
func New(net *topology.Network, env *routeenv.Env, cfg Config) *Pipeline {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pipeline{
		net:       net,
		env:       env,
		policy:    cfg.Policy,
		recorder:  cfg.Recorder,
		auditLog:  cfg.Audit,
		metrics:   cfg.Metrics,
		planCache: cfg.PlanCache,
		clock:     cfg.Clock,
		jobs:      make(chan job, queueSize),
	}
}

// Run drains the job queue on the calling goroutine until ctx is
// cancelled. This is the routing plane: callers should invoke it exactly
// once, in its own goroutine, for the lifetime of the process.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			j.result <- p.routeOne(j.ctx, j.req)
		}
	}
}

// Submit enqueues req (nil triggers random request synthesis, spec
// §4.7) and blocks until the routing worker finishes it or ctx is
// cancelled.
func (p *Pipeline) Submit(ctx context.Context, req *request.Request) (Outcome, error) {
	j := job{ctx: ctx, req: req, result: make(chan Outcome, 1)}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	select {
	case out := <-j.result:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// routeOne runs one full episode: reset, plan, predict/step to terminal,
// audit the retirement sweep and any commit, record the comparison, and
// return the completion payload. Runs entirely on the single worker
// goroutine — no locking needed for per-episode state (spec §5).
func (p *Pipeline) routeOne(ctx context.Context, req *request.Request) Outcome {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.route_request")
	defer span.End()

	started := p.clock()

	var obs routeenv.Observation
	if req != nil {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		obs = p.env.ResetWith(req)
	} else {
		obs = p.env.Reset()
	}
	if len(p.env.Retired()) > 0 {
		p.net.BumpVersion()
	}
	p.auditRetirements(ctx)

	current := p.env.Current()
	telemetry.SetAttributes(ctx, telemetry.RequestAttributes(current.ID, current.Class.String(), current.Priority)...)
	log := logger.RequestLogger(current.ID, current.Class.String())

	plan := p.plan(ctx, current)
	current.DisPath = plan.Path
	current.DisQoS = plan.QoS
	telemetry.SetAttributes(ctx, telemetry.PlannerAttributes(len(plan.Path), plan.QoS.LatencyMS, plan.QoS.Reliability)...)
	if len(plan.Path) == 0 {
		log.Warn("planner found no reference path")
	}

	last := p.drive(obs, log)

	success := last.Outcome == routeenv.OutcomeSuccess
	if success {
		p.auditCommit(ctx, current)
		p.net.BumpVersion()
	}

	telemetry.SetAttributes(ctx, telemetry.EpisodeAttributes(string(last.Outcome), p.env.Steps(), len(current.Path))...)
	p.metrics.RecordEpisode(string(last.Outcome), p.clock().Sub(started), p.env.Steps())
	if last.Err != nil && !apperror.Is(last.Err, apperror.CodeDeadEnd) && !apperror.Is(last.Err, apperror.CodeStepLimit) {
		telemetry.SetError(ctx, last.Err)
	}

	p.recorder.RecordRequest(buildRecord(current, success))

	return Outcome{
		ID:      current.ID,
		Path:    append([]string(nil), current.Path...),
		Success: success,
		Allocated: AllocatedQoS{
			Uplink:      current.UplinkAllocated,
			Downlink:    current.DownlinkAllocated,
			CPU:         current.CPUAllocated,
			Power:       current.PowerAllocated,
			Reliability: current.ReliabilityActual,
			LatencyMS:   current.LatencyActualMS,
		},
	}
}

// plan resolves the reference path for req, consulting the planner
// result cache first when one is wired (SPEC_FULL.md's planner
// reference-path cache, keyed on source cell, service class, and the
// topology's admission-state generation). A cache miss or a disabled
// cache both fall through to a live planner.Plan call.
func (p *Pipeline) plan(ctx context.Context, req *request.Request) planner.Result {
	if p.planCache == nil {
		return p.planLive(req)
	}

	key := cache.NewPlanKey(req.Source.LatDeg, req.Source.LonDeg, int(req.Class), p.net.Version())
	if cached, ok, err := p.planCache.Get(ctx, key); err == nil && ok {
		return planner.Result{
			Path: cached.Path,
			QoS: request.QoS{
				LatencyMS:   cached.Latency,
				Reliability: cached.Reliability,
				Uplink:      cached.Uplink,
				Downlink:    cached.Downlink,
				CPU:         cached.CPU,
				Power:       cached.Power,
				Hops:        cached.Hops,
			},
		}
	} else if err != nil {
		logger.Log.Warn("planner cache read failed", "error", err)
	}

	result := p.planLive(req)
	if err := p.planCache.Set(ctx, key, cache.CachedPlan{
		Path:        result.Path,
		Latency:     result.QoS.LatencyMS,
		Reliability: result.QoS.Reliability,
		Uplink:      result.QoS.Uplink,
		Downlink:    result.QoS.Downlink,
		CPU:         result.QoS.CPU,
		Power:       result.QoS.Power,
		Hops:        result.QoS.Hops,
	}); err != nil {
		logger.Log.Warn("planner cache write failed", "error", err)
	}
	return result
}

func (p *Pipeline) planLive(req *request.Request) planner.Result {
	planStart := p.clock()
	result := planner.Plan(req, p.net, planStart)
	p.metrics.RecordPlanner(p.clock().Sub(planStart), len(result.Path) == 0)
	return result
}

// drive loops predict→step until the environment reports a terminal
// outcome. A policy error is treated as an invalid action (spec §7's
// "intra-step faults are absorbed by the routing plane") rather than
// aborting the episode.
func (p *Pipeline) drive(obs routeenv.Observation, log *slog.Logger) routeenv.StepResult {
	for {
		action, err := p.policy.Predict(obs)
		if err != nil {
			log.Warn("policy predict failed, treating as invalid action", "error", err)
			action = -1
		}
		var result routeenv.StepResult
		obs, result = p.env.Step(action)
		if result.Done {
			return result
		}
	}
}

func buildRecord(req *request.Request, agentSuccess bool) Record {
	plannerSuccess := len(req.DisPath) > 0
	return Record{
		RequestID: req.ID,
		Class:     req.Class,
		Agent: StrategyResult{
			Success:     agentSuccess,
			Path:        append([]string(nil), req.Path...),
			LatencyMS:   req.LatencyActualMS,
			Uplink:      req.UplinkAllocated,
			Downlink:    req.DownlinkAllocated,
			Reliability: req.ReliabilityActual,
			CPU:         req.CPUAllocated,
			Power:       req.PowerAllocated,
		},
		Planner: StrategyResult{
			Success:     plannerSuccess,
			Path:        append([]string(nil), req.DisPath...),
			LatencyMS:   req.DisQoS.LatencyMS,
			Uplink:      req.DisQoS.Uplink,
			Downlink:    req.DisQoS.Downlink,
			Reliability: req.DisQoS.Reliability,
			CPU:         req.DisQoS.CPU,
			Power:       req.DisQoS.Power,
		},
	}
}
