package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullNeverEqual(t *testing.T) {
	n1 := Null(NullBadType)
	n2 := Null(NullBadType)
	assert.False(t, Equal(n1, n2))
	assert.False(t, Equal(n1, NewInt(1)))
	assert.False(t, Equal(EmptyValue, EmptyValue))
}

func TestArithOverflow(t *testing.T) {
	max := NewInt(1<<63 - 1)
	got := Add(max, NewInt(1))
	require.True(t, got.IsNull())
	assert.Equal(t, NullErrOverflow, got.NullKind)
}

func TestDivByZero(t *testing.T) {
	assert.Equal(t, NullDivByZero, Div(NewInt(4), NewInt(0)).NullKind)
	assert.Equal(t, NullDivByZero, Div(NewFloat(4), NewFloat(0)).NullKind)
}

func TestNullPropagationFirstSeen(t *testing.T) {
	a := Null(NullDivByZero)
	b := Null(NullBadType)
	assert.Equal(t, NullDivByZero, Add(a, b).NullKind)
	assert.Equal(t, NullBadType, Add(b, a).NullKind) // b has it first here
}

func TestThreeValuedLogic(t *testing.T) {
	tru, fls, null := NewBool(true), NewBool(false), Null(NullGeneric)
	assert.True(t, And(tru, null).IsNull())
	assert.False(t, And(fls, null).Bool)
	assert.True(t, Or(null, tru).Bool)
	assert.True(t, Or(fls, null).IsNull())
}

func TestStrAndListConcat(t *testing.T) {
	assert.Equal(t, "ab", Add(NewStr("a"), NewStr("b")).Str)
	l := Add(NewList([]Value{NewInt(1)}), NewList([]Value{NewInt(2)}))
	require.Len(t, l.List, 2)
}

func TestTotalOrderCrossType(t *testing.T) {
	vals := []Value{
		NewStr("x"),
		Null(NullGeneric),
		EmptyValue,
		NewBool(true),
		NewInt(5),
	}
	// Null < Empty < Bool < Int/Float < Str
	assert.Equal(t, -1, Compare(vals[1], vals[2]))
	assert.Equal(t, -1, Compare(vals[2], vals[3]))
	assert.Equal(t, -1, Compare(vals[3], vals[4]))
	assert.Equal(t, -1, Compare(vals[4], vals[0]))
}

func TestNaNOrdersLast(t *testing.T) {
	nan := NewFloat(nan())
	assert.Equal(t, 1, Compare(nan, NewInt(100)))
	assert.Equal(t, -1, Compare(NewInt(100), nan))
}

func nan() float64 {
	var z float64
	return z / z
}

func TestSetDedupNaNCollides(t *testing.T) {
	s := NewValueSet()
	assert.True(t, s.Add(NewFloat(nan())))
	assert.False(t, s.Add(NewFloat(nan())))
	assert.Equal(t, 1, s.Len())
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("b", NewInt(1))
	m.Set("a", NewInt(2))
	m.Set("b", NewInt(3)) // overwrite keeps position
	require.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int)
}

func TestCoerceBool(t *testing.T) {
	assert.True(t, CoerceBool(NewInt(7)).Bool)
	assert.False(t, CoerceBool(NewInt(0)).Bool)
	assert.True(t, CoerceBool(NewStr("TRUE")).Bool)
	assert.False(t, CoerceBool(NewStr("nope")).Bool)
	assert.True(t, CoerceBool(NewBool(true)).Bool)
}

func TestCoerceFloatOverflow(t *testing.T) {
	huge := NewFloat(1e308)
	got := CoerceFloat(huge)
	assert.Equal(t, NullErrOverflow, got.NullKind)
}

func TestVIDPadding(t *testing.T) {
	got := PadVID([]byte("ab"), 5)
	assert.Equal(t, []byte{'a', 'b', 0, 0, 0}, got)
}

func TestVIDFromInt(t *testing.T) {
	got := VIDFromInt(1)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, got)
}
