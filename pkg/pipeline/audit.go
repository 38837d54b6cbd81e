package pipeline

import (
	"context"

	"saginctl/pkg/audit"
	"saginctl/pkg/logger"
	"saginctl/pkg/request"
	"saginctl/pkg/topology"
)

// auditRetirements emits a RELEASE entry for every resource hold the
// most recent reset's timeout sweep released, supplementing spec §4.7's
// retirement sweep with the independently reconstructable ledger named
// in the allocation audit trail (original_source/Service/
// stats_manager.py's persistence discipline).
func (p *Pipeline) auditRetirements(ctx context.Context) {
	if p.auditLog == nil {
		return
	}
	for _, r := range p.env.Retired() {
		p.logHolds(ctx, r, audit.ActionRelease, "demand_timeout expired")
	}
}

// auditCommit emits an ALLOCATE entry for every hold a successfully
// terminated request now carries.
func (p *Pipeline) auditCommit(ctx context.Context, req *request.Request) {
	if p.auditLog == nil {
		return
	}
	p.logHolds(ctx, req, audit.ActionAllocate, "")
}

// logHolds writes one entry per (node, resource) hold a request carries
// across its path, mirroring pkg/routeenv's own holdAmounts gating: GS
// nodes additionally hold cpu/power.
func (p *Pipeline) logHolds(ctx context.Context, req *request.Request, action audit.Action, reason string) {
	for _, id := range req.Path {
		n, ok := p.net.Get(id)
		if !ok {
			continue
		}
		p.logResource(ctx, req.ID, id, "uplink", req.UplinkAllocated, action, reason)
		p.logResource(ctx, req.ID, id, "downlink", req.DownlinkAllocated, action, reason)
		if n.Kind == topology.KindGroundStation {
			p.logResource(ctx, req.ID, id, "cpu", req.CPUAllocated, action, reason)
			p.logResource(ctx, req.ID, id, "power", req.PowerAllocated, action, reason)
		}
	}
}

func (p *Pipeline) logResource(ctx context.Context, requestID, nodeID, resource string, delta float64, action audit.Action, reason string) {
	var entry audit.Entry
	if action == audit.ActionRelease {
		entry = audit.Release(requestID, nodeID, resource, delta, reason)
	} else {
		entry = audit.Allocation(requestID, nodeID, resource, delta)
	}
	if err := p.auditLog.Log(ctx, entry); err != nil {
		logger.Log.Warn("audit log write failed", "error", err, "request_id", requestID, "node_id", nodeID)
	}
}
