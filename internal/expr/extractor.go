package expr

// Pushable reports whether an Expr may be evaluated at the storage layer
// during GetNeighbors/GetEdges, rather than after fan-in on the graph
// service (spec §4.5). An expression is pushable iff every leaf it reaches
// is a property of the thing storage already has in hand — tag/edge/src/dst
// properties and edge header fields — with no InputProp, VarProp, aggregate
// or list-comprehension leaf anywhere in its subtree.
func Pushable(e *Expr) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case KInputProp, KVarProp, KAggregate, KListComp, KLabelTagProp:
		return false
	case KConstant, KTagProp, KEdgeProp, KSrcProp, KDstProp,
		KEdgeSrc, KEdgeDst, KEdgeType, KEdgeRank, KColumn:
		return true
	}
	for _, child := range children(e) {
		if !Pushable(child) {
			return false
		}
	}
	return true
}

func children(e *Expr) []*Expr {
	out := make([]*Expr, 0, 4)
	if e.Left != nil {
		out = append(out, e.Left)
	}
	if e.Right != nil {
		out = append(out, e.Right)
	}
	if e.Sub1 != nil {
		out = append(out, e.Sub1)
	}
	if e.Sub2 != nil {
		out = append(out, e.Sub2)
	}
	out = append(out, e.Operands...)
	for _, it := range e.MapItems {
		out = append(out, it.Val)
	}
	return out
}

// Split decomposes a filter expression into a pushable part evaluated at
// storage and a residual part evaluated after fan-in, per spec §4.5:
//
//   - A top-level AND splits conjunct by conjunct: each conjunct pushes
//     independently, and the ones that can't stay in the residual.
//   - A top-level OR only pushes as a whole when every one of its operands
//     is independently pushable (rewriting `(a AND b) OR (c AND d)` isn't
//     attempted beyond that all-or-nothing check — a partial OR push would
//     change which rows match, since storage only sees part of the
//     disjunction). This firing rule is applied at most once per OR node:
//     Split never recurses into an OR's operands looking for a deeper
//     pushable fragment once the whole-node check has run.
//   - Anything else pushes whole or not at all.
//
// The returned (pushable, residual) pair both evaluate: if residual is
// nil, pushable alone is equivalent to the original filter.
func Split(e *Expr) (pushable, residual *Expr) {
	if e == nil {
		return nil, nil
	}
	if e.Kind == KAnd {
		var pushed, kept []*Expr
		for _, op := range e.Operands {
			if Pushable(op) {
				pushed = append(pushed, op)
			} else {
				kept = append(kept, op)
			}
		}
		return combineAnd(pushed), combineAnd(kept)
	}
	if e.Kind == KOr {
		if Pushable(e) {
			return e, nil
		}
		return nil, e
	}
	if Pushable(e) {
		return e, nil
	}
	return nil, e
}

func combineAnd(ops []*Expr) *Expr {
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	default:
		return &Expr{Kind: KAnd, Operands: ops}
	}
}
