package mesh

// Reasoner decides which sites may hold which blobs and which sites may
// perform which computations.
//
// Both predicates are consulted fresh on every decision; the engine never
// caches an answer, so a reasoner is free to change its mind over time.
// Consistency of its decisions across sites is the reasoner's own
// responsibility.
//
// A reasoner shared across sites must be safe for concurrent calls. Pure
// function implementations (see ReasonerFuncs) are trivially safe.
type Reasoner interface {
	// MayAccess reports whether site sid may hold the bytes for did, in a
	// context where did is currently associated with the expression ids in
	// eids at the asking site. The set is read at decision time and may
	// include ids the receiver has not yet learned.
	//
	// eids is the asking site's live association set; implementations must
	// not mutate or retain it.
	MayAccess(did DataId, eids map[ExprId]struct{}, sid SiteId) bool

	// MayCompute reports whether site sid may perform the computation
	// identified by eid.
	MayCompute(eid ExprId, sid SiteId) bool
}

// ReasonerFuncs adapts a pair of predicate functions to the Reasoner
// interface. A nil function permits everything for that predicate.
//
// Example:
//
//	reasoner := mesh.ReasonerFuncs{
//	    ComputeFn: func(eid mesh.ExprId, sid mesh.SiteId) bool {
//	        return sid == bob // placement: only Bob computes
//	    },
//	}
type ReasonerFuncs struct {
	AccessFn  func(did DataId, eids map[ExprId]struct{}, sid SiteId) bool
	ComputeFn func(eid ExprId, sid SiteId) bool
}

// MayAccess implements Reasoner.
func (r ReasonerFuncs) MayAccess(did DataId, eids map[ExprId]struct{}, sid SiteId) bool {
	if r.AccessFn == nil {
		return true
	}
	return r.AccessFn(did, eids, sid)
}

// MayCompute implements Reasoner.
func (r ReasonerFuncs) MayCompute(eid ExprId, sid SiteId) bool {
	if r.ComputeFn == nil {
		return true
	}
	return r.ComputeFn(eid, sid)
}

// PermitAll returns a totally permissive reasoner: every site may hold
// every blob and perform every computation.
func PermitAll() Reasoner {
	return ReasonerFuncs{}
}
