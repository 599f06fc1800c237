package mesh

// Expr is a finite, acyclic expression tree over content-addressed blobs.
//
// Three variants exist:
//   - Ref: an opaque reference to an already-known expression
//   - Leaf: the expression "this known blob"
//   - Node: application of the fleet's compute function to the ordered
//     results of the child expressions
//
// By convention the first child of a Node is the "function" blob and the
// rest its arguments, but the engine treats all children uniformly: it
// passes every child blob, in order, to the compute function.
//
// Expr values are immutable after construction.
type Expr interface {
	// exprNode restricts implementations to this package's variants.
	exprNode()
}

// Ref refers to an expression by id without carrying its structure.
//
// A site receiving a Ref for an id it has never seen stores the reference
// as-is; the surrounding expression simply cannot resolve until something
// else populates the store. This is not an error.
type Ref struct {
	Eid ExprId
}

// Leaf is the expression whose result is a known blob.
type Leaf struct {
	Did DataId
}

// Node applies the compute function to the ordered results of Children.
type Node struct {
	Children []Expr
}

func (Ref) exprNode()  {}
func (Leaf) exprNode() {}
func (Node) exprNode() {}

// HashExpr computes the structural id of an expression tree.
//
// Refs pass their id through unchanged; leaves hash their blob id; nodes
// hash their children's ids in order. Two sites hashing the same tree
// agree bit-for-bit, so independently added duplicate trees share one id.
func HashExpr(expr Expr) ExprId {
	switch e := expr.(type) {
	case Ref:
		return e.Eid
	case Leaf:
		return HashLeaf(e.Did)
	case Node:
		children := make([]ExprId, len(e.Children))
		for i, c := range e.Children {
			children[i] = HashExpr(c)
		}
		return HashNode(children)
	default:
		// The exprNode marker keeps this unreachable.
		panic("mesh: unknown expression variant")
	}
}
