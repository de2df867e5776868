package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/value"
)

type fakeCtx struct {
	cols map[string]value.Value
	pos  []value.Value
	vars map[string]map[string]value.Value
	edge *value.Edge
	src  *value.Vertex
	dst  *value.Vertex
	vtx  *value.Vertex
}

func (f *fakeCtx) InputProp(name string) (value.Value, bool) { v, ok := f.cols[name]; return v, ok }
func (f *fakeCtx) Column(i int) (value.Value, bool) {
	if i < 0 || i >= len(f.pos) {
		return value.Value{}, false
	}
	return f.pos[i], true
}
func (f *fakeCtx) VarProp(v, col string) (value.Value, bool) {
	m, ok := f.vars[v]
	if !ok {
		return value.Value{}, false
	}
	val, ok := m[col]
	return val, ok
}
func (f *fakeCtx) EdgeProp(e, p string) (value.Value, bool) {
	if f.edge == nil {
		return value.Value{}, false
	}
	return f.edge.Props.Get(p)
}
func (f *fakeCtx) TagProp(t, p string) (value.Value, bool) {
	if f.vtx == nil {
		return value.Value{}, false
	}
	for _, tag := range f.vtx.Tags {
		if tag.Name == t {
			return tag.Props.Get(p)
		}
	}
	return value.Value{}, false
}
func (f *fakeCtx) SrcProp(t, p string) (value.Value, bool) {
	if f.src == nil {
		return value.Value{}, false
	}
	for _, tag := range f.src.Tags {
		if tag.Name == t {
			return tag.Props.Get(p)
		}
	}
	return value.Value{}, false
}
func (f *fakeCtx) DstProp(t, p string) (value.Value, bool) {
	if f.dst == nil {
		return value.Value{}, false
	}
	for _, tag := range f.dst.Tags {
		if tag.Name == t {
			return tag.Props.Get(p)
		}
	}
	return value.Value{}, false
}
func (f *fakeCtx) EdgeSrc(e string) value.Value  { return value.NewStr(string(f.edge.Src)) }
func (f *fakeCtx) EdgeDst(e string) value.Value  { return value.NewStr(string(f.edge.Dst)) }
func (f *fakeCtx) EdgeType(e string) value.Value { return value.NewInt(int64(f.edge.Type)) }
func (f *fakeCtx) EdgeRank(e string) value.Value { return value.NewInt(f.edge.Rank) }
func (f *fakeCtx) LabelTagProp(n, t, p string) (value.Value, bool) {
	return value.Value{}, false
}

func TestArithmeticAndRelational(t *testing.T) {
	ctx := &fakeCtx{cols: map[string]value.Value{"x": value.NewInt(10)}}
	e := NewBinary(KGt, NewBinary(KAdd, NewInputProp("x"), NewConstant(value.NewInt(5))), NewConstant(value.NewInt(12)))
	got := e.Eval(ctx)
	assert.True(t, got.Bool)
}

func TestAndOrShortCircuitOnNull(t *testing.T) {
	ctx := &fakeCtx{cols: map[string]value.Value{}}
	// false AND <unknown prop> -> false (three-valued short circuit), not Null.
	and := NewNAry(KAnd, NewConstant(value.NewBool(false)), NewInputProp("missing"))
	assert.Equal(t, value.NewBool(false), and.Eval(ctx))

	or := NewNAry(KOr, NewConstant(value.NewBool(true)), NewInputProp("missing"))
	assert.Equal(t, value.NewBool(true), or.Eval(ctx))
}

func TestSubscriptAndRange(t *testing.T) {
	ctx := &fakeCtx{}
	list := NewConstant(value.NewList([]value.Value{
		value.NewInt(1), value.NewInt(2), value.NewInt(3), value.NewInt(4),
	}))
	idx := NewBinary(KSubscript, list, NewConstant(value.NewInt(-1)))
	assert.Equal(t, int64(4), idx.Eval(ctx).Int)

	rng := &Expr{Kind: KSubscriptRange, Left: list, Sub1: NewConstant(value.NewInt(1)), Sub2: NewConstant(value.NewInt(3))}
	got := rng.Eval(ctx)
	require.Equal(t, value.TagList, got.Tag)
	assert.Equal(t, []value.Value{value.NewInt(2), value.NewInt(3)}, got.List)
}

func TestListComprehensionFilterAndMap(t *testing.T) {
	ctx := &fakeCtx{}
	coll := NewConstant(value.NewList([]value.Value{
		value.NewInt(1), value.NewInt(2), value.NewInt(3), value.NewInt(4),
	}))
	filter := NewBinary(KEq, NewBinary(KMod, NewInputProp("n"), NewConstant(value.NewInt(2))), NewConstant(value.NewInt(0)))
	mapping := NewBinary(KMul, NewInputProp("n"), NewConstant(value.NewInt(10)))
	lc := NewListComp("n", coll, filter, mapping)
	got := lc.Eval(ctx)
	require.Equal(t, value.TagList, got.Tag)
	assert.Equal(t, []value.Value{value.NewInt(20), value.NewInt(40)}, got.List)
}

func TestListComprehensionDoesNotMutateOuterContext(t *testing.T) {
	ctx := &fakeCtx{cols: map[string]value.Value{"n": value.NewInt(999)}}
	coll := NewConstant(value.NewList([]value.Value{value.NewInt(1)}))
	mapping := NewInputProp("n")
	lc := NewListComp("n", coll, nil, mapping)
	got := lc.Eval(ctx)
	assert.Equal(t, []value.Value{value.NewInt(1)}, got.List)
	// Outer "n" is untouched after evaluating the comprehension.
	outer, ok := ctx.InputProp("n")
	require.True(t, ok)
	assert.Equal(t, int64(999), outer.Int)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewBinary(KAdd, NewInputProp("a"), NewConstant(value.NewInt(1)))
	clone := orig.Clone()
	clone.Right.Const = value.NewInt(999)
	assert.Equal(t, int64(1), orig.Right.Const.Int)
	assert.Equal(t, int64(999), clone.Right.Const.Int)
}

func TestBinaryEncodeDecodeRoundTrip(t *testing.T) {
	e := NewNAry(KAnd,
		NewBinary(KGe, NewTagProp("person", "age"), NewConstant(value.NewInt(18))),
		NewUnary(KNot, NewBinary(KEq, NewEdgeProp("follow", "degree"), NewConstant(value.NewInt(0)))),
	)
	buf := Encode(e)
	decoded, err := Decode(buf)
	require.NoError(t, err)

	ctx := &fakeCtx{
		vtx: &value.Vertex{Tags: []value.TagInfo{{Name: "person", Props: propsOf("age", value.NewInt(30))}}},
		edge: &value.Edge{Name: "follow", Props: propsOf("degree", value.NewInt(5))},
	}
	assert.Equal(t, e.Eval(ctx), decoded.Eval(ctx))
}

func TestPushableSplitsAndFilter(t *testing.T) {
	pushableLeaf := NewTagProp("person", "age")
	residualLeaf := NewInputProp("some_input_col")
	and := NewNAry(KAnd, pushableLeaf, residualLeaf)

	pushed, residual := Split(and)
	assert.True(t, Pushable(pushed))
	require.NotNil(t, residual)
	assert.False(t, Pushable(residual))
}

func TestUUIDProducesDistinctWellFormedValues(t *testing.T) {
	e := NewUUID()
	ctx := &fakeCtx{}
	a := e.Eval(ctx)
	b := e.Eval(ctx)
	require.Equal(t, value.TagStr, a.Tag)
	require.Equal(t, value.TagStr, b.Tag)
	assert.Len(t, a.Str, 36)
	assert.NotEqual(t, a.Str, b.Str)
}

func TestPushableOrIsAllOrNothing(t *testing.T) {
	allPushable := NewNAry(KOr, NewTagProp("p", "a"), NewEdgeProp("e", "b"))
	pushed, residual := Split(allPushable)
	assert.NotNil(t, pushed)
	assert.Nil(t, residual)

	mixed := NewNAry(KOr, NewTagProp("p", "a"), NewInputProp("x"))
	pushed, residual = Split(mixed)
	assert.Nil(t, pushed)
	assert.NotNil(t, residual)
}

func propsOf(k string, v value.Value) *value.OrderedMap {
	m := value.NewOrderedMap()
	m.Set(k, v)
	return m
}
