package mesh

// Msg is a replication message exchanged between sites.
//
// Three variants exist; receipt semantics are monotone inserts into
// disjoint stores, so cross-variant arrival order never matters:
//   - CopyMsg: carry a blob to a peer the reasoner admitted
//   - ComputeMsg: carry an expression tree for installation
//   - DidToEidMsg: assert that an expression resolved to a blob id
//
// The in-process fabric passes messages as in-memory values; a wire
// implementation must preserve Node child order exactly.
type Msg interface {
	msgNode()
}

// CopyMsg replicates a blob. The receiver inserts did -> bytes into its
// blob store; a repeated Copy for the same did carries identical bytes
// and overwrites harmlessly.
type CopyMsg struct {
	Did  DataId
	Data []byte
}

// ComputeMsg replicates an expression tree. The receiver installs the
// tree through the same recursive procedure as a local AddExpr, without
// re-broadcasting.
type ComputeMsg struct {
	Expr Expr
}

// DidToEidMsg replicates a resolution. The receiver binds eid -> did; a
// conflicting prior resolution for the same eid is fatal.
type DidToEidMsg struct {
	Did DataId
	Eid ExprId
}

func (CopyMsg) msgNode()     {}
func (ComputeMsg) msgNode()  {}
func (DidToEidMsg) msgNode() {}

// msgKind returns a short label for logs and metrics.
func msgKind(m Msg) string {
	switch m.(type) {
	case CopyMsg:
		return "copy"
	case ComputeMsg:
		return "compute"
	case DidToEidMsg:
		return "did_to_eid"
	default:
		return "unknown"
	}
}
