package expr

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/dreamware/nebulet/internal/value"
)

// Kind discriminates the variant an Expr node holds. Nodes are a tagged
// union rather than one Go type per kind: a single struct keeps Clone and
// the binary codec mechanical instead of needing a type switch bridging
// N concrete implementations of a common interface.
type Kind uint8

const (
	KConstant Kind = iota
	KAdd
	KSub
	KMul
	KDiv
	KMod
	KNeg
	KEq
	KNe
	KLt
	KLe
	KGt
	KGe
	KIn
	KNotIn
	KContains
	KStartsWith
	KEndsWith
	KAnd
	KOr
	KXor
	KNot
	KTagProp
	KEdgeProp
	KInputProp
	KVarProp
	KSrcProp
	KDstProp
	KEdgeSrc
	KEdgeDst
	KEdgeType
	KEdgeRank
	KLabelTagProp
	KList
	KSet
	KMap
	KSubscript
	KSubscriptRange
	KFunctionCall
	KAggregate
	KListComp
	KColumn
	KVertex
	KEdge
	KUUID
	KLabel
)

// MapItem is one key/value pair of a KMap node, in source order (map
// literals preserve the order they were written in, per spec §4.4).
type MapItem struct {
	Key string
	Val *Expr
}

// Expr is one node of an expression tree. Only the fields relevant to Kind
// are meaningful; the rest sit at their zero value.
type Expr struct {
	Kind Kind

	Const value.Value // KConstant

	Left, Right *Expr   // binary arithmetic/relational/logical ops
	Operands    []*Expr // n-ary And/Or, FunctionCall args, List/Set items

	Name1 string // tag/edge/var name, function name, node-label name
	Name2 string // property name
	Col   int    // KColumn positional index

	MapItems []MapItem // KMap

	Sub1, Sub2 *Expr // KSubscript index / KSubscriptRange lo,hi

	AggName  string // KAggregate: COUNT, SUM, AVG, MIN, MAX, STD, BIT_AND, ...
	Distinct bool
	Arg      *Expr // KAggregate argument expression; nil for COUNT(*)

	InnerVar   string // KListComp loop variable name
	Collection *Expr  // KListComp source list
	Filter     *Expr  // KListComp optional WHERE, nil if absent
	Mapping    *Expr  // KListComp result expression evaluated per element
}

// NewConstant, NewInputProp and the other New* helpers build leaf and
// interior nodes without exposing field layout to callers.
func NewConstant(v value.Value) *Expr { return &Expr{Kind: KConstant, Const: v} }

func NewBinary(k Kind, l, r *Expr) *Expr { return &Expr{Kind: k, Left: l, Right: r} }

func NewUnary(k Kind, operand *Expr) *Expr { return &Expr{Kind: k, Left: operand} }

func NewNAry(k Kind, operands ...*Expr) *Expr { return &Expr{Kind: k, Operands: operands} }

func NewInputProp(name string) *Expr { return &Expr{Kind: KInputProp, Name1: name} }
func NewColumn(i int) *Expr          { return &Expr{Kind: KColumn, Col: i} }
func NewVarProp(v, col string) *Expr { return &Expr{Kind: KVarProp, Name1: v, Name2: col} }
func NewTagProp(tag, prop string) *Expr {
	return &Expr{Kind: KTagProp, Name1: tag, Name2: prop}
}
func NewEdgeProp(edge, prop string) *Expr {
	return &Expr{Kind: KEdgeProp, Name1: edge, Name2: prop}
}
func NewSrcProp(tag, prop string) *Expr {
	return &Expr{Kind: KSrcProp, Name1: tag, Name2: prop}
}
func NewDstProp(tag, prop string) *Expr {
	return &Expr{Kind: KDstProp, Name1: tag, Name2: prop}
}
func NewLabelTagProp(node, tag, prop string) *Expr {
	return &Expr{Kind: KLabelTagProp, Name1: node, Name2: tag + "." + prop}
}
// NewUUID builds a UUID() call node (spec §4.4): each Eval mints a fresh
// random identifier, the one expression kind whose result is not a pure
// function of its context.
func NewUUID() *Expr { return &Expr{Kind: KUUID} }

func NewEdgeSrc(edge string) *Expr  { return &Expr{Kind: KEdgeSrc, Name1: edge} }
func NewEdgeDst(edge string) *Expr  { return &Expr{Kind: KEdgeDst, Name1: edge} }
func NewEdgeType(edge string) *Expr { return &Expr{Kind: KEdgeType, Name1: edge} }
func NewEdgeRank(edge string) *Expr { return &Expr{Kind: KEdgeRank, Name1: edge} }

func NewListComp(innerVar string, coll, filter, mapping *Expr) *Expr {
	return &Expr{Kind: KListComp, InnerVar: innerVar, Collection: coll, Filter: filter, Mapping: mapping}
}

func NewAggregate(name string, distinct bool, arg *Expr) *Expr {
	return &Expr{Kind: KAggregate, AggName: name, Distinct: distinct, Arg: arg}
}

// Eval reduces the tree to a single Value against ctx. It never panics: a
// malformed context lookup or an out-of-domain operation yields a typed
// Null rather than an error return, matching the evaluator contract in
// spec §4.4.
func (e *Expr) Eval(ctx Context) value.Value {
	if e == nil {
		return value.Null(value.NullBadData)
	}
	switch e.Kind {
	case KConstant:
		return e.Const
	case KAdd:
		return value.Add(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KSub:
		return value.Sub(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KMul:
		return value.Mul(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KDiv:
		return value.Div(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KMod:
		return value.Mod(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KNeg:
		return value.Neg(e.Left.Eval(ctx))
	case KEq:
		return value.Eq(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KNe:
		return value.Ne(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KLt:
		return value.Lt(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KLe:
		return value.Le(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KGt:
		return value.Gt(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KGe:
		return value.Ge(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KIn, KNotIn:
		return e.evalIn(ctx)
	case KContains:
		return e.evalContains(ctx)
	case KStartsWith:
		return e.evalStringPred(ctx, func(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p })
	case KEndsWith:
		return e.evalStringPred(ctx, func(s, p string) bool { return len(s) >= len(p) && s[len(s)-len(p):] == p })
	case KAnd:
		return e.evalAnd(ctx)
	case KOr:
		return e.evalOr(ctx)
	case KXor:
		return value.Xor(e.Left.Eval(ctx), e.Right.Eval(ctx))
	case KNot:
		return value.Not(e.Left.Eval(ctx))
	case KTagProp:
		if v, ok := ctx.TagProp(e.Name1, e.Name2); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KEdgeProp:
		if v, ok := ctx.EdgeProp(e.Name1, e.Name2); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KInputProp:
		if v, ok := ctx.InputProp(e.Name1); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KVarProp:
		if v, ok := ctx.VarProp(e.Name1, e.Name2); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KSrcProp:
		if v, ok := ctx.SrcProp(e.Name1, e.Name2); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KDstProp:
		if v, ok := ctx.DstProp(e.Name1, e.Name2); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KLabelTagProp:
		tag, prop, _ := strings.Cut(e.Name2, ".")
		if v, ok := ctx.LabelTagProp(e.Name1, tag, prop); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KEdgeSrc:
		return ctx.EdgeSrc(e.Name1)
	case KEdgeDst:
		return ctx.EdgeDst(e.Name1)
	case KEdgeType:
		return ctx.EdgeType(e.Name1)
	case KEdgeRank:
		return ctx.EdgeRank(e.Name1)
	case KColumn:
		if v, ok := ctx.Column(e.Col); ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	case KList:
		items := make([]value.Value, len(e.Operands))
		for i, op := range e.Operands {
			items[i] = op.Eval(ctx)
		}
		return value.NewList(items)
	case KSet:
		s := value.NewValueSet()
		for _, op := range e.Operands {
			s.Add(op.Eval(ctx))
		}
		return value.NewSet(s)
	case KMap:
		m := value.NewOrderedMap()
		for _, it := range e.MapItems {
			m.Set(it.Key, it.Val.Eval(ctx))
		}
		return value.NewMap(m)
	case KSubscript:
		return e.evalSubscript(ctx)
	case KSubscriptRange:
		return e.evalSubscriptRange(ctx)
	case KFunctionCall:
		return e.evalFunctionCall(ctx)
	case KListComp:
		return e.evalListComp(ctx)
	case KUUID:
		return value.NewStr(uuid.NewString())
	case KAggregate:
		// Aggregates are reduced by the aggregate engine across a group,
		// not by single-row Eval; standalone evaluation treats the
		// argument as a pass-through so Eval stays total.
		if e.Arg != nil {
			return e.Arg.Eval(ctx)
		}
		return value.Null(value.NullBadData)
	default:
		return value.Null(value.NullBadData)
	}
}

func (e *Expr) evalAnd(ctx Context) value.Value {
	var result value.Value
	first := true
	for _, op := range e.Operands {
		v := op.Eval(ctx)
		if first {
			result = v
			first = false
		} else {
			result = value.And(result, v)
		}
		if result.Tag == value.TagBool && !result.Bool {
			return result // short-circuit on a definite false
		}
	}
	return result
}

func (e *Expr) evalOr(ctx Context) value.Value {
	var result value.Value
	first := true
	for _, op := range e.Operands {
		v := op.Eval(ctx)
		if first {
			result = v
			first = false
		} else {
			result = value.Or(result, v)
		}
		if result.Tag == value.TagBool && result.Bool {
			return result // short-circuit on a definite true
		}
	}
	return result
}

func (e *Expr) evalIn(ctx Context) value.Value {
	needle := e.Left.Eval(ctx)
	hay := e.Right.Eval(ctx)
	found := false
	switch hay.Tag {
	case value.TagList:
		for _, item := range hay.List {
			if value.Equal(needle, item) {
				found = true
				break
			}
		}
	case value.TagSet:
		for _, item := range hay.SetVal().Items() {
			if value.Equal(needle, item) {
				found = true
				break
			}
		}
	default:
		return value.Null(value.NullBadType)
	}
	if e.Kind == KNotIn {
		found = !found
	}
	return value.NewBool(found)
}

func (e *Expr) evalContains(ctx Context) value.Value {
	l := e.Left.Eval(ctx)
	r := e.Right.Eval(ctx)
	if l.Tag != value.TagStr || r.Tag != value.TagStr {
		return value.Null(value.NullBadType)
	}
	idx := -1
	for i := 0; i+len(r.Str) <= len(l.Str); i++ {
		if l.Str[i:i+len(r.Str)] == r.Str {
			idx = i
			break
		}
	}
	return value.NewBool(idx >= 0)
}

func (e *Expr) evalStringPred(ctx Context, pred func(s, p string) bool) value.Value {
	l := e.Left.Eval(ctx)
	r := e.Right.Eval(ctx)
	if l.Tag != value.TagStr || r.Tag != value.TagStr {
		return value.Null(value.NullBadType)
	}
	return value.NewBool(pred(l.Str, r.Str))
}

func (e *Expr) evalSubscript(ctx Context) value.Value {
	coll := e.Left.Eval(ctx)
	idx := e.Right.Eval(ctx)
	if idx.Tag != value.TagInt {
		return value.Null(value.NullBadType)
	}
	switch coll.Tag {
	case value.TagList:
		i := normalizeIndex(idx.Int, len(coll.List))
		if i < 0 || i >= len(coll.List) {
			return value.Null(value.NullOutOfRange)
		}
		return coll.List[i]
	case value.TagMap:
		return value.Null(value.NullBadType)
	default:
		return value.Null(value.NullBadType)
	}
}

func (e *Expr) evalSubscriptRange(ctx Context) value.Value {
	coll := e.Left.Eval(ctx)
	if coll.Tag != value.TagList {
		return value.Null(value.NullBadType)
	}
	n := len(coll.List)
	lo, hi := 0, n
	if e.Sub1 != nil {
		v := e.Sub1.Eval(ctx)
		if v.Tag != value.TagInt {
			return value.Null(value.NullBadType)
		}
		lo = clampIndex(normalizeIndex(v.Int, n), n)
	}
	if e.Sub2 != nil {
		v := e.Sub2.Eval(ctx)
		if v.Tag != value.TagInt {
			return value.Null(value.NullBadType)
		}
		hi = clampIndex(normalizeIndex(v.Int, n), n)
	}
	if lo > hi {
		return value.NewList(nil)
	}
	out := make([]value.Value, hi-lo)
	copy(out, coll.List[lo:hi])
	return value.NewList(out)
}

func normalizeIndex(i int64, n int) int {
	if i < 0 {
		return n + int(i)
	}
	return int(i)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// evalListComp evaluates a [x | x <- coll WHERE filter] style comprehension:
// iterate coll, binding InnerVar, keep elements passing Filter (if any), and
// emit Mapping(x) for each survivor.
func (e *Expr) evalListComp(ctx Context) value.Value {
	coll := e.Collection.Eval(ctx)
	var items []value.Value
	switch coll.Tag {
	case value.TagList:
		items = coll.List
	case value.TagSet:
		items = coll.SetVal().Items()
	default:
		return value.Null(value.NullBadType)
	}
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		child := &ChildContext{Parent: ctx, Var: e.InnerVar, Val: item}
		if e.Filter != nil {
			cond := e.Filter.Eval(child)
			if cond.Tag != value.TagBool || !cond.Bool {
				continue
			}
		}
		out = append(out, e.Mapping.Eval(child))
	}
	return value.NewList(out)
}

func (e *Expr) evalFunctionCall(ctx Context) value.Value {
	args := make([]value.Value, len(e.Operands))
	for i, op := range e.Operands {
		args[i] = op.Eval(ctx)
	}
	fn, ok := builtins[e.Name1]
	if !ok {
		return value.Null(value.NullBadData)
	}
	return fn(args)
}

var builtins = map[string]func([]value.Value) value.Value{
	"abs": func(a []value.Value) value.Value {
		if len(a) != 1 || !a[0].IsNumeric() {
			return value.Null(value.NullBadType)
		}
		if a[0].Tag == value.TagInt {
			if a[0].Int < 0 {
				return value.NewInt(-a[0].Int)
			}
			return a[0]
		}
		return value.NewFloat(math.Abs(a[0].Float))
	},
	"floor": func(a []value.Value) value.Value {
		if len(a) != 1 || !a[0].IsNumeric() {
			return value.Null(value.NullBadType)
		}
		return value.NewFloat(math.Floor(a[0].AsFloat()))
	},
	"ceil": func(a []value.Value) value.Value {
		if len(a) != 1 || !a[0].IsNumeric() {
			return value.Null(value.NullBadType)
		}
		return value.NewFloat(math.Ceil(a[0].AsFloat()))
	},
	"sqrt": func(a []value.Value) value.Value {
		if len(a) != 1 || !a[0].IsNumeric() {
			return value.Null(value.NullBadType)
		}
		r := math.Sqrt(a[0].AsFloat())
		if math.IsNaN(r) {
			return value.Null(value.NullNaN)
		}
		return value.NewFloat(r)
	},
	"length": func(a []value.Value) value.Value {
		if len(a) != 1 {
			return value.Null(value.NullBadType)
		}
		switch a[0].Tag {
		case value.TagStr:
			return value.NewInt(int64(len(a[0].Str)))
		case value.TagList:
			return value.NewInt(int64(len(a[0].List)))
		case value.TagPath:
			return value.NewInt(int64(len(a[0].Path.Steps)))
		default:
			return value.Null(value.NullBadType)
		}
	},
	"toString": func(a []value.Value) value.Value {
		if len(a) != 1 {
			return value.Null(value.NullBadType)
		}
		return value.NewStr(a[0].String())
	},
}

// Clone returns a deep copy sharing no mutable state with e: mutating the
// clone's tree (rebinding a child pointer during pushdown rewriting, say)
// never affects the source.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := *e
	c.Left = e.Left.Clone()
	c.Right = e.Right.Clone()
	c.Sub1 = e.Sub1.Clone()
	c.Sub2 = e.Sub2.Clone()
	c.Arg = e.Arg.Clone()
	c.Collection = e.Collection.Clone()
	c.Filter = e.Filter.Clone()
	c.Mapping = e.Mapping.Clone()
	if e.Operands != nil {
		c.Operands = make([]*Expr, len(e.Operands))
		for i, op := range e.Operands {
			c.Operands[i] = op.Clone()
		}
	}
	if e.MapItems != nil {
		c.MapItems = make([]MapItem, len(e.MapItems))
		for i, it := range e.MapItems {
			c.MapItems[i] = MapItem{Key: it.Key, Val: it.Val.Clone()}
		}
	}
	return &c
}
