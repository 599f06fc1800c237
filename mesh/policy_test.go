package mesh

import "testing"

func TestReasonerFuncs(t *testing.T) {
	did := HashData([]byte("blob"))
	eid := HashLeaf(did)

	t.Run("nil predicates permit everything", func(t *testing.T) {
		r := ReasonerFuncs{}
		if !r.MayAccess(did, nil, Sid(1)) {
			t.Error("nil AccessFn denied access")
		}
		if !r.MayCompute(eid, Sid(1)) {
			t.Error("nil ComputeFn denied compute")
		}
	})

	t.Run("predicates are consulted", func(t *testing.T) {
		r := ReasonerFuncs{
			AccessFn: func(_ DataId, _ map[ExprId]struct{}, sid SiteId) bool {
				return sid == Sid(1)
			},
			ComputeFn: func(_ ExprId, sid SiteId) bool {
				return sid == Sid(2)
			},
		}
		if !r.MayAccess(did, nil, Sid(1)) || r.MayAccess(did, nil, Sid(2)) {
			t.Error("AccessFn not honored")
		}
		if !r.MayCompute(eid, Sid(2)) || r.MayCompute(eid, Sid(1)) {
			t.Error("ComputeFn not honored")
		}
	})

	t.Run("association set reaches the predicate", func(t *testing.T) {
		var seen int
		r := ReasonerFuncs{
			AccessFn: func(_ DataId, eids map[ExprId]struct{}, _ SiteId) bool {
				seen = len(eids)
				return true
			},
		}
		r.MayAccess(did, map[ExprId]struct{}{eid: {}}, Sid(1))
		if seen != 1 {
			t.Errorf("predicate saw %d associated ids; want 1", seen)
		}
	})
}

func TestPermitAll(t *testing.T) {
	r := PermitAll()
	if !r.MayAccess(HashData([]byte("x")), nil, Sid(9)) {
		t.Error("PermitAll denied access")
	}
	if !r.MayCompute(HashLeaf(HashData([]byte("x"))), Sid(9)) {
		t.Error("PermitAll denied compute")
	}
}

// TestReasoner_NotCached verifies the engine consults the reasoner fresh
// on every decision: flipping the predicate changes behavior between
// ticks with no re-add.
func TestReasoner_NotCached(t *testing.T) {
	allow := false
	reasoner := ReasonerFuncs{
		ComputeFn: func(ExprId, SiteId) bool { return allow },
	}
	site, _ := newTestSite(t, reasoner, nil)
	if _, err := site.AddData([]byte("x")); err != nil {
		t.Fatalf("AddData failed: %v", err)
	}
	eid, err := site.AddExpr(Node{Children: []Expr{Leaf{Did: HashData([]byte("x"))}}})
	if err != nil {
		t.Fatalf("AddExpr failed: %v", err)
	}

	if step(t, site) {
		t.Fatal("Step progressed while compute was denied")
	}
	allow = true
	if !step(t, site) {
		t.Fatal("Step made no progress after the reasoner changed its mind")
	}
	if _, ok := site.Resolved(eid); !ok {
		t.Error("expression unresolved after permission arrived")
	}
}
