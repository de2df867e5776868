// Package expr implements the expression tree and evaluator from spec
// §4.4: a tree of nodes supporting arithmetic, relational/logical,
// list/map/subscript, list-comprehension, aggregate and property-reference
// evaluation, each reducible to a single value.Value via Eval.
//
// Unlike the C++ original, Eval returns a value.Value by plain Go value,
// not a reference into node-owned storage. That sidesteps the "scratch
// slot" lifetime machinery spec §4.4 describes and the dangling-reference
// risk spec §9's Open Questions flags for ListComprehensionExpression:
// there is no result slot to bypass, because nothing is ever borrowed.
package expr

import "github.com/dreamware/nebulet/internal/value"

// Context is the evaluation environment passed to Eval. A plan node
// builds one Context implementation per row/edge it evaluates against.
type Context interface {
	// InputProp returns the named column of the current input row.
	InputProp(name string) (value.Value, bool)
	// Column returns the i-th column of the current input row
	// positionally, for the unnamed Column(i) node.
	Column(i int) (value.Value, bool)
	// VarProp returns column `col` of variable `varName`'s current row.
	VarProp(varName, col string) (value.Value, bool)
	// EdgeProp returns property `prop` of the edge named `edge` attached
	// to the current context (the traversed edge, in GetNeighbors/
	// GetEdges contexts).
	EdgeProp(edge, prop string) (value.Value, bool)
	// TagProp returns property `prop` of tag `tag` on the current vertex.
	TagProp(tag, prop string) (value.Value, bool)
	// SrcProp / DstProp return a tag property of the edge's source or
	// destination vertex.
	SrcProp(tag, prop string) (value.Value, bool)
	DstProp(tag, prop string) (value.Value, bool)
	// EdgeSrc, EdgeDst, EdgeType, EdgeRank return the header fields of
	// the named edge.
	EdgeSrc(edge string) value.Value
	EdgeDst(edge string) value.Value
	EdgeType(edge string) value.Value
	EdgeRank(edge string) value.Value
	// LabelTagProp resolves a property via a named node label bound
	// earlier in a pattern (Traverse/path contexts).
	LabelTagProp(node, tag, prop string) (value.Value, bool)
}

// ChildContext layers one loop-bound variable (from ListComp) over a
// parent Context, without mutating the parent. Every other lookup
// delegates straight through.
type ChildContext struct {
	Parent Context
	Var    string
	Val    value.Value
}

func (c *ChildContext) InputProp(name string) (value.Value, bool) {
	if name == c.Var {
		return c.Val, true
	}
	return c.Parent.InputProp(name)
}
func (c *ChildContext) Column(i int) (value.Value, bool) { return c.Parent.Column(i) }
func (c *ChildContext) VarProp(v, col string) (value.Value, bool) {
	return c.Parent.VarProp(v, col)
}
func (c *ChildContext) EdgeProp(e, p string) (value.Value, bool) { return c.Parent.EdgeProp(e, p) }
func (c *ChildContext) TagProp(t, p string) (value.Value, bool)  { return c.Parent.TagProp(t, p) }
func (c *ChildContext) SrcProp(t, p string) (value.Value, bool)  { return c.Parent.SrcProp(t, p) }
func (c *ChildContext) DstProp(t, p string) (value.Value, bool)  { return c.Parent.DstProp(t, p) }
func (c *ChildContext) EdgeSrc(e string) value.Value             { return c.Parent.EdgeSrc(e) }
func (c *ChildContext) EdgeDst(e string) value.Value             { return c.Parent.EdgeDst(e) }
func (c *ChildContext) EdgeType(e string) value.Value            { return c.Parent.EdgeType(e) }
func (c *ChildContext) EdgeRank(e string) value.Value            { return c.Parent.EdgeRank(e) }
func (c *ChildContext) LabelTagProp(n, t, p string) (value.Value, bool) {
	return c.Parent.LabelTagProp(n, t, p)
}

// MapContext is the base Context implementation used by Project/Filter
// over a materialized input row plus a table of bound variables
// (GetNeighbors/Traverse results keyed by output-var name).
type MapContext struct {
	ColNames []string
	Row      []value.Value
	Vars     map[string][]value.Value // varName -> column values, same order as VarColNames
	VarCols  map[string][]string
	Vertex   *value.Vertex
	Edge     *value.Edge
	Src      *value.Vertex
	Dst      *value.Vertex
}

func (c *MapContext) colIndex(name string) int {
	for i, n := range c.ColNames {
		if n == name {
			return i
		}
	}
	return -1
}

func (c *MapContext) InputProp(name string) (value.Value, bool) {
	i := c.colIndex(name)
	if i < 0 {
		return value.Value{}, false
	}
	return c.Row[i], true
}

func (c *MapContext) Column(i int) (value.Value, bool) {
	if i < 0 || i >= len(c.Row) {
		return value.Value{}, false
	}
	return c.Row[i], true
}

func (c *MapContext) VarProp(varName, col string) (value.Value, bool) {
	cols, ok := c.VarCols[varName]
	if !ok {
		return value.Value{}, false
	}
	for i, n := range cols {
		if n == col {
			rows := c.Vars[varName]
			if i >= len(rows) {
				return value.Value{}, false
			}
			return rows[i], true
		}
	}
	return value.Value{}, false
}

func (c *MapContext) tagProp(v *value.Vertex, tag, prop string) (value.Value, bool) {
	if v == nil {
		return value.Value{}, false
	}
	for _, t := range v.Tags {
		if t.Name == tag {
			return t.Props.Get(prop)
		}
	}
	return value.Value{}, false
}

func (c *MapContext) TagProp(tag, prop string) (value.Value, bool) {
	return c.tagProp(c.Vertex, tag, prop)
}
func (c *MapContext) SrcProp(tag, prop string) (value.Value, bool) {
	return c.tagProp(c.Src, tag, prop)
}
func (c *MapContext) DstProp(tag, prop string) (value.Value, bool) {
	return c.tagProp(c.Dst, tag, prop)
}

func (c *MapContext) EdgeProp(edge, prop string) (value.Value, bool) {
	if c.Edge == nil || c.Edge.Name != edge {
		return value.Value{}, false
	}
	return c.Edge.Props.Get(prop)
}

func (c *MapContext) EdgeSrc(edge string) value.Value {
	if c.Edge == nil {
		return value.Null(value.NullBadData)
	}
	return value.NewStr(string(c.Edge.Src))
}
func (c *MapContext) EdgeDst(edge string) value.Value {
	if c.Edge == nil {
		return value.Null(value.NullBadData)
	}
	return value.NewStr(string(c.Edge.Dst))
}
func (c *MapContext) EdgeType(edge string) value.Value {
	if c.Edge == nil {
		return value.Null(value.NullBadData)
	}
	return value.NewInt(int64(c.Edge.Type))
}
func (c *MapContext) EdgeRank(edge string) value.Value {
	if c.Edge == nil {
		return value.Null(value.NullBadData)
	}
	return value.NewInt(c.Edge.Rank)
}

func (c *MapContext) LabelTagProp(node, tag, prop string) (value.Value, bool) {
	return c.VarProp(node, tag+"."+prop)
}
