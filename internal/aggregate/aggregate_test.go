package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/value"
)

func TestCountSkipsNullAndEmpty(t *testing.T) {
	a := New("COUNT", false)
	a.Add(value.NewInt(1))
	a.Add(value.Null(value.NullUnknownProp))
	a.Add(value.Empty())
	a.Add(value.NewInt(2))
	assert.Equal(t, int64(2), a.Result().Int)
}

func TestSumAvgMinMax(t *testing.T) {
	vals := []value.Value{value.NewInt(3), value.NewInt(1), value.NewInt(4), value.NewInt(1), value.NewInt(5)}

	sum := New("SUM", false)
	for _, v := range vals {
		sum.Add(v)
	}
	assert.Equal(t, int64(14), sum.Result().Int)

	avg := New("AVG", false)
	for _, v := range vals {
		avg.Add(v)
	}
	assert.InDelta(t, 2.8, avg.Result().Float, 1e-9)

	mn := New("MIN", false)
	mx := New("MAX", false)
	for _, v := range vals {
		mn.Add(v)
		mx.Add(v)
	}
	assert.Equal(t, int64(1), mn.Result().Int)
	assert.Equal(t, int64(5), mx.Result().Int)
}

func TestStdPopulationVariance(t *testing.T) {
	a := New("STD", false)
	for i := 1; i <= 10; i++ {
		a.Add(value.NewInt(int64(i)))
	}
	got := a.Result()
	require.Equal(t, value.TagFloat, got.Tag)
	assert.InDelta(t, 2.8722813232690143, got.Float, 1e-12)
}

func TestDistinctSum(t *testing.T) {
	a := New("SUM", true)
	a.Add(value.NewInt(5))
	a.Add(value.NewInt(5))
	a.Add(value.NewInt(3))
	assert.Equal(t, int64(8), a.Result().Int)
}

func TestBitOps(t *testing.T) {
	and := New("BIT_AND", false)
	or := New("BIT_OR", false)
	xor := New("BIT_XOR", false)
	for _, v := range []int64{0b1100, 0b1010, 0b1001} {
		and.Add(value.NewInt(v))
		or.Add(value.NewInt(v))
		xor.Add(value.NewInt(v))
	}
	assert.Equal(t, int64(0b1000), and.Result().Int)
	assert.Equal(t, int64(0b1111), or.Result().Int)
	assert.Equal(t, int64(0b1111), xor.Result().Int)
}

func TestCollectAndCollectSet(t *testing.T) {
	c := New("COLLECT", false)
	c.Add(value.NewInt(1))
	c.Add(value.NewInt(1))
	c.Add(value.NewInt(2))
	assert.Equal(t, []value.Value{value.NewInt(1), value.NewInt(1), value.NewInt(2)}, c.Result().List)

	cs := New("COLLECT_SET", false)
	cs.Add(value.NewInt(1))
	cs.Add(value.NewInt(1))
	cs.Add(value.NewInt(2))
	assert.Equal(t, []value.Value{value.NewInt(1), value.NewInt(2)}, cs.Result().List)
}

// TestGroupingByKey mirrors the grouped-accumulation seed scenario: rows
// are bucketed by a string key ("a","b","c") before folding, and each
// group's accumulator only ever sees its own rows.
func TestGroupingByKey(t *testing.T) {
	type row struct {
		key string
		n   int64
	}
	rows := []row{
		{"a", 1}, {"b", 10}, {"a", 2}, {"c", 100}, {"b", 20}, {"a", 3},
	}
	groups := map[string]Accumulator{}
	for _, r := range rows {
		acc, ok := groups[r.key]
		if !ok {
			acc = New("SUM", false)
			groups[r.key] = acc
		}
		acc.Add(value.NewInt(r.n))
	}
	assert.Equal(t, int64(6), groups["a"].Result().Int)
	assert.Equal(t, int64(30), groups["b"].Result().Int)
	assert.Equal(t, int64(100), groups["c"].Result().Int)
}

func TestUnknownAggregateNameReturnsNil(t *testing.T) {
	assert.Nil(t, New("NOT_A_FUNCTION", false))
}
