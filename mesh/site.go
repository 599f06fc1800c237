package mesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/exprmesh-go/mesh/compute"
	"github.com/dshills/exprmesh-go/mesh/emit"
	"github.com/dshills/exprmesh-go/mesh/store"
)

// Site is one node of the fleet: the per-site convergence engine.
//
// A site owns a content-addressed graph store (blobs, expression
// structure, and resolutions), makes local decisions gated by the policy
// reasoner, gossips replication messages to peers, and converges toward
// having results available at whichever sites are permitted to hold
// them.
//
// Three operations drive it: AddData and AddExpr are the user entry
// points; Step is the progress tick a scheduler invokes repeatedly.
// Resolved and HasBlob support introspection.
//
// All stored records are monotone: blobs, expression structure, and
// resolutions are only ever added, never removed.
//
// Site methods are safe for concurrent use; internally every operation
// runs under one mutex, so a site behaves as the single-threaded state
// machine it is — parallelism lives between sites, not within one.
type Site struct {
	sid  SiteId
	name string

	// blobs holds admitted blob bytes by content id.
	blobs map[DataId][]byte

	// children records the ordered child ids of every known inner
	// expression, in first-seen order for a deterministic readiness walk.
	children *store.OrderedMap[ExprId, []ExprId]

	// resolutions relates blob ids to the expressions believed to yield
	// them: many expressions per blob, at most one blob per expression.
	resolutions *store.OneToMany[DataId, ExprId]

	reasoner  Reasoner
	network   Network
	emitter   emit.Emitter
	metrics   *PrometheusMetrics
	computeFn compute.Func
	clock     Clock

	quietSleep time.Duration
	eventSeq   int

	mu sync.Mutex
}

// NewSite creates a site engine.
//
// Parameters:
//   - sid: this site's identity, fixed for its lifetime
//   - network: the site's endpoint on the fleet's message fabric
//   - reasoner: the policy oracle; consulted fresh on every decision
//   - fn: the fleet's compute function (identical at every site)
//
// Example:
//
//	fabric := mesh.NewFabric(sids)
//	site, err := mesh.NewSite(amy, fabric.Endpoint(amy), mesh.PermitAll(),
//	    compute.ArgLens, mesh.WithName("Amy"))
func NewSite(sid SiteId, network Network, reasoner Reasoner, fn compute.Func, opts ...Option) (*Site, error) {
	if network == nil {
		return nil, fmt.Errorf("site %v: network is required", sid)
	}
	if reasoner == nil {
		return nil, fmt.Errorf("site %v: reasoner is required", sid)
	}
	if fn == nil {
		return nil, fmt.Errorf("site %v: compute function is required", sid)
	}

	cfg := siteConfig{}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.opts.Name == "" {
		cfg.opts.Name = sid.String()
	}
	if cfg.opts.QuietSleep == 0 {
		cfg.opts.QuietSleep = DefaultQuietSleep
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.clock == nil {
		cfg.clock = wallClock{}
	}

	return &Site{
		sid:         sid,
		name:        cfg.opts.Name,
		blobs:       make(map[DataId][]byte),
		children:    store.NewOrderedMap[ExprId, []ExprId](),
		resolutions: store.NewOneToMany[DataId, ExprId](),
		reasoner:    reasoner,
		network:     network,
		emitter:     cfg.emitter,
		metrics:     cfg.metrics,
		computeFn:   fn,
		clock:       cfg.clock,
		quietSleep:  cfg.opts.QuietSleep,
	}, nil
}

// Sid returns the site's identity.
func (s *Site) Sid() SiteId { return s.sid }

// Name returns the site's human name.
func (s *Site) Name() string { return s.name }

// AddData inserts a blob at this site, registers its leaf expression,
// and broadcasts a Copy to every peer the reasoner currently admits.
//
// Idempotent on DataId: re-adding bytes already present returns the same
// id with no further side effects beyond a log line.
//
// Policy may refuse the site its own blob; the blob is then not stored
// locally, but the id and leaf expression are still recorded and the
// broadcast still runs, letting the site act as a metadata relay.
func (s *Site) AddData(data []byte) (DataId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	did := HashData(data)
	if _, ok := s.blobs[did]; ok {
		s.event("data_duplicate", map[string]interface{}{"did": did.String()})
		return did, nil
	}
	if err := s.publishDataLocked(did, data); err != nil {
		return DataId{}, &SiteError{Site: s.name, Op: "add_data", Cause: err}
	}
	return did, nil
}

// publishDataLocked is the full add-data procedure shared by AddData and
// the compute publish path: register the leaf expression, consult policy
// for self-admission, and broadcast a policy-gated Copy.
//
// The caller has checked that did is not yet stored locally.
func (s *Site) publishDataLocked(did DataId, data []byte) error {
	leafEid := HashLeaf(did)
	if err := s.resolutions.Bind(did, leafEid); err != nil {
		return fmt.Errorf("%w: leaf %v for %v", ErrResolutionConflict, leafEid, did)
	}

	// Self-admission: the reasoner decides whether this site may hold
	// its own blob.
	if s.reasoner.MayAccess(did, s.resolutions.Many(did), s.sid) {
		s.blobs[did] = data
		s.event("data_admitted", map[string]interface{}{"did": did.String()})
		if s.metrics != nil {
			s.metrics.RecordBlobStored(s.name)
		}
	} else {
		s.event("data_refused", map[string]interface{}{"did": did.String()})
		if s.metrics != nil {
			s.metrics.RecordDenial(s.name, "access")
		}
	}

	// Policy-gated Copy broadcast. The association set is read at
	// broadcast time, per decision; the reasoner is never cached.
	msg := CopyMsg{Did: did, Data: data}
	err := s.network.SendToWhere(msg, func(sid SiteId) bool {
		if sid == s.sid {
			return false
		}
		if !s.reasoner.MayAccess(did, s.resolutions.Many(did), sid) {
			if s.metrics != nil {
				s.metrics.RecordDenial(s.name, "access")
			}
			return false
		}
		s.event("send", map[string]interface{}{
			"peer": sid.String(), "msg_kind": msgKind(msg), "did": did.String(),
		})
		if s.metrics != nil {
			s.metrics.RecordSend(s.name, msgKind(msg))
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("broadcast copy of %v: %w", did, err)
	}
	return nil
}

// AddExpr installs an expression tree at this site, creating every
// intermediate expression id, and broadcasts a Compute carrying the tree
// to all peers. Returns the top-level expression id.
//
// Idempotent on ExprId: re-adding a tree already known here performs no
// re-broadcast.
func (s *Site) AddExpr(expr Expr) (ExprId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eid := HashExpr(expr)
	if s.knownExprLocked(eid) {
		s.event("expr_duplicate", map[string]interface{}{"eid": eid.String()})
		return eid, nil
	}

	// Replicate the tree at peer sites before installing locally.
	msg := ComputeMsg{Expr: expr}
	err := s.network.SendToWhere(msg, func(sid SiteId) bool {
		if sid == s.sid {
			return false
		}
		s.event("send", map[string]interface{}{
			"peer": sid.String(), "msg_kind": msgKind(msg), "eid": eid.String(),
		})
		if s.metrics != nil {
			s.metrics.RecordSend(s.name, msgKind(msg))
		}
		return true
	})
	if err != nil {
		return ExprId{}, &SiteError{Site: s.name, Op: "add_expr",
			Cause: fmt.Errorf("broadcast expr %v: %w", eid, err)}
	}

	installed, err := s.installExprLocked(expr)
	if err != nil {
		return ExprId{}, &SiteError{Site: s.name, Op: "add_expr", Cause: err}
	}
	s.event("expr_added", map[string]interface{}{"eid": installed.String()})
	return installed, nil
}

// knownExprLocked reports whether eid already denotes an expression this
// site has installed or resolved.
func (s *Site) knownExprLocked(eid ExprId) bool {
	return s.children.Has(eid) || s.resolutions.HasRight(eid)
}

// installExprLocked walks the tree bottom-up, materialising each
// subexpression's id. No replication happens here; the tree has already
// been broadcast (or arrived by one).
func (s *Site) installExprLocked(expr Expr) (ExprId, error) {
	switch e := expr.(type) {
	case Ref:
		// Opaque reference: stored as-is, resolvable only once something
		// else populates the store.
		return e.Eid, nil
	case Leaf:
		eid := HashLeaf(e.Did)
		if err := s.resolutions.Bind(e.Did, eid); err != nil {
			return ExprId{}, fmt.Errorf("%w: leaf %v for %v", ErrResolutionConflict, eid, e.Did)
		}
		return eid, nil
	case Node:
		childEids := make([]ExprId, len(e.Children))
		for i, child := range e.Children {
			childEid, err := s.installExprLocked(child)
			if err != nil {
				return ExprId{}, err
			}
			childEids[i] = childEid
		}
		eid := HashNode(childEids)
		s.children.Put(eid, childEids)
		if s.metrics != nil {
			s.metrics.SetKnownExprs(s.name, s.children.Len())
		}
		return eid, nil
	default:
		return ExprId{}, fmt.Errorf("unknown expression variant %T", expr)
	}
}

// Step performs one progress tick: at most one completed computation, or
// draining the inbox, or an idle sleep.
//
// It attempts one compute-and-publish action first; after any local
// state change the set of ready expressions can change arbitrarily, so
// the search restarts next tick rather than continuing. If no compute
// was possible it drains all pending messages. If neither yielded work
// it sleeps for the configured quiet duration, or until ctx is done.
//
// Returns true when the tick made progress (computed or received).
// Errors are fatal to the site (resolution conflict, transport failure).
func (s *Site) Step(ctx context.Context) (bool, error) {
	s.mu.Lock()
	computed, err := s.tryComputeLocked()
	if err != nil {
		s.mu.Unlock()
		return false, &SiteError{Site: s.name, Op: "step", Cause: err}
	}
	if computed {
		s.mu.Unlock()
		return true, nil
	}

	received, err := s.drainInboxLocked()
	s.mu.Unlock()
	if err != nil {
		return false, &SiteError{Site: s.name, Op: "step", Cause: err}
	}
	if received {
		return true, nil
	}

	// Nothing to do: breathe instead of spinning.
	s.mu.Lock()
	s.event("sleep", nil)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordSleep(s.name)
	}
	s.clock.Sleep(ctx, s.quietSleep)
	return false, nil
}

// tryComputeLocked scans known inner expressions in deterministic order
// for one that is unresolved, has every child's blob locally, and is
// permitted here — then computes and publishes its result.
func (s *Site) tryComputeLocked() (bool, error) {
	var (
		parent ExprId
		result []byte
		found  bool
	)
	s.children.Range(func(eid ExprId, childEids []ExprId) bool {
		// Skip expressions whose result is already known.
		if s.resolutions.HasRight(eid) {
			return true
		}
		childBlobs, ok := s.childBlobsLocked(childEids)
		if !ok {
			return true
		}
		if !s.reasoner.MayCompute(eid, s.sid) {
			if s.metrics != nil {
				s.metrics.RecordDenial(s.name, "compute")
			}
			return true
		}

		s.event("compute", map[string]interface{}{"eid": eid.String()})
		res, err := s.computeFn(childBlobs)
		if err != nil {
			// Transient by assumption: log, leave unresolved, retry on a
			// later tick.
			s.event("compute_error", map[string]interface{}{
				"eid": eid.String(), "error": err.Error(),
			})
			return true
		}
		parent, result, found = eid, res, true
		return false
	})
	if !found {
		return false, nil
	}

	// Publish the result: full add-data procedure (policy-gated Copy
	// broadcast included), then announce the resolution.
	did := HashData(result)
	if _, ok := s.blobs[did]; !ok {
		if err := s.publishDataLocked(did, result); err != nil {
			return false, err
		}
	}

	msg := DidToEidMsg{Did: did, Eid: parent}
	err := s.network.SendToWhere(msg, func(sid SiteId) bool {
		if sid == s.sid {
			return false
		}
		s.event("send", map[string]interface{}{
			"peer": sid.String(), "msg_kind": msgKind(msg),
			"did": did.String(), "eid": parent.String(),
		})
		if s.metrics != nil {
			s.metrics.RecordSend(s.name, msgKind(msg))
		}
		return true
	})
	if err != nil {
		return false, fmt.Errorf("broadcast resolution of %v: %w", parent, err)
	}

	if err := s.resolutions.Bind(did, parent); err != nil {
		return false, fmt.Errorf("%w: %v for %v", ErrResolutionConflict, parent, did)
	}

	s.event("computed", map[string]interface{}{
		"eid": parent.String(), "did": did.String(),
	})
	if s.metrics != nil {
		s.metrics.RecordCompute(s.name)
		s.metrics.SetResolvedExprs(s.name, s.resolutions.Len())
	}
	return true, nil
}

// childBlobsLocked resolves every child to a locally-present blob.
// Returns ok=false if any child is unresolved or its blob is absent.
func (s *Site) childBlobsLocked(childEids []ExprId) ([][]byte, bool) {
	blobs := make([][]byte, len(childEids))
	for i, eid := range childEids {
		did, ok := s.resolutions.One(eid)
		if !ok {
			return nil, false
		}
		blob, ok := s.blobs[did]
		if !ok {
			return nil, false
		}
		blobs[i] = blob
	}
	return blobs, true
}

// drainInboxLocked applies every pending message. Returns whether at
// least one message was received.
func (s *Site) drainInboxLocked() (bool, error) {
	received := false
	for {
		msg, ok := s.network.TryRecv()
		if !ok {
			return received, nil
		}
		received = true
		s.event("recv", map[string]interface{}{"msg_kind": msgKind(msg)})
		if s.metrics != nil {
			s.metrics.RecordRecv(s.name, msgKind(msg))
		}

		switch m := msg.(type) {
		case CopyMsg:
			// Monotone insert; a duplicate Copy carries identical bytes.
			if _, ok := s.blobs[m.Did]; !ok {
				s.blobs[m.Did] = m.Data
				if s.metrics != nil {
					s.metrics.RecordBlobStored(s.name)
				}
			}
		case ComputeMsg:
			// Same recursive installation as a local AddExpr, without
			// re-broadcasting.
			if _, err := s.installExprLocked(m.Expr); err != nil {
				return received, err
			}
		case DidToEidMsg:
			if err := s.resolutions.Bind(m.Did, m.Eid); err != nil {
				return received, fmt.Errorf("%w: %v for %v", ErrResolutionConflict, m.Eid, m.Did)
			}
			if s.metrics != nil {
				s.metrics.SetResolvedExprs(s.name, s.resolutions.Len())
			}
		default:
			return received, fmt.Errorf("unknown message variant %T", msg)
		}
	}
}

// Resolved reports the blob id an expression has resolved to, if any.
func (s *Site) Resolved(eid ExprId) (DataId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolutions.One(eid)
}

// HasBlob reports whether the bytes for did are present locally.
func (s *Site) HasBlob(did DataId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[did]
	return ok
}

// event emits one observability event with the site's next sequence
// number. Callers hold the site lock.
func (s *Site) event(msg string, meta map[string]interface{}) {
	s.eventSeq++
	s.emitter.Emit(emit.Event{Site: s.name, Seq: s.eventSeq, Msg: msg, Meta: meta})
}
