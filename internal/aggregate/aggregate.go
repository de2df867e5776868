// Package aggregate implements the GROUP BY reducers described in spec
// §4.6: COUNT, SUM, AVG, MIN, MAX, STD (population standard deviation),
// BIT_AND/BIT_OR/BIT_XOR, COLLECT and COLLECT_SET, each with an optional
// DISTINCT qualifier.
package aggregate

import (
	"math"
	"strings"

	"github.com/dreamware/nebulet/internal/value"
)

// Accumulator folds a stream of per-row values into a single result. A
// fresh Accumulator is created per group per query; nothing is shared
// across groups, matching the plan-executor ownership model in spec §4.9.
type Accumulator interface {
	// Add folds one row's value into the accumulator's running state.
	Add(v value.Value)
	// Result returns the accumulator's current value. Calling it mid-stream
	// (before all rows are seen) is valid and used by streaming execution.
	Result() value.Value
}

// New returns a fresh Accumulator for the named function. distinct wraps
// it so repeated Value-equal inputs are folded only once. Unknown names
// return nil; callers should treat that as a plan-build-time error.
func New(name string, distinct bool) Accumulator {
	var base Accumulator
	switch strings.ToUpper(name) {
	case "COUNT":
		base = &countAcc{}
	case "SUM":
		base = &sumAcc{}
	case "AVG":
		base = &avgAcc{}
	case "MIN":
		base = &minAcc{}
	case "MAX":
		base = &maxAcc{}
	case "STD":
		base = &stdAcc{}
	case "BIT_AND":
		base = &bitAcc{op: bitAnd, acc: -1, seen: false}
	case "BIT_OR":
		base = &bitAcc{op: bitOr}
	case "BIT_XOR":
		base = &bitAcc{op: bitXor}
	case "COLLECT":
		base = &collectAcc{}
	case "COLLECT_SET":
		base = &collectAcc{set: value.NewValueSet()}
	default:
		return nil
	}
	if distinct {
		return &distinctWrapper{inner: base, seen: value.NewValueSet()}
	}
	return base
}

// distinctWrapper only forwards a value to inner the first time a
// Value-equal candidate is seen.
type distinctWrapper struct {
	inner Accumulator
	seen  *value.Set
}

func (d *distinctWrapper) Add(v value.Value) {
	if d.seen.Add(v) {
		d.inner.Add(v)
	}
}
func (d *distinctWrapper) Result() value.Value { return d.inner.Result() }

// countAcc counts non-Null, non-Empty rows; COUNT(*) is modeled by feeding
// it a non-Null sentinel per row (the plan layer's job, not this package's).
type countAcc struct{ n int64 }

func (a *countAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() {
		return
	}
	a.n++
}
func (a *countAcc) Result() value.Value { return value.NewInt(a.n) }

type sumAcc struct {
	iSum   int64
	fSum   float64
	isFlt  bool
	any    bool
	bad    bool
	nullK  value.NullKind
}

func (a *sumAcc) Add(v value.Value) {
	if a.bad || v.IsNull() || v.IsEmpty() {
		return
	}
	if !v.IsNumeric() {
		a.bad = true
		a.nullK = value.NullBadType
		return
	}
	a.any = true
	if v.Tag == value.TagFloat {
		if !a.isFlt {
			a.fSum = float64(a.iSum)
			a.isFlt = true
		}
		a.fSum += v.Float
	} else if a.isFlt {
		a.fSum += float64(v.Int)
	} else {
		a.iSum += v.Int
	}
}
func (a *sumAcc) Result() value.Value {
	if a.bad {
		return value.Null(a.nullK)
	}
	if !a.any {
		return value.NewInt(0)
	}
	if a.isFlt {
		return value.NewFloat(a.fSum)
	}
	return value.NewInt(a.iSum)
}

type avgAcc struct {
	sum sumAcc
	n   int64
}

func (a *avgAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() {
		return
	}
	a.sum.Add(v)
	a.n++
}
func (a *avgAcc) Result() value.Value {
	if a.n == 0 {
		return value.Null(value.NullGeneric)
	}
	s := a.sum.Result()
	if s.IsNull() {
		return s
	}
	return value.NewFloat(s.AsFloat() / float64(a.n))
}

type minAcc struct {
	v   value.Value
	any bool
}

func (a *minAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() {
		return
	}
	if !a.any || value.Compare(v, a.v) < 0 {
		a.v, a.any = v, true
	}
}
func (a *minAcc) Result() value.Value {
	if !a.any {
		return value.Null(value.NullGeneric)
	}
	return a.v
}

type maxAcc struct {
	v   value.Value
	any bool
}

func (a *maxAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() {
		return
	}
	if !a.any || value.Compare(v, a.v) > 0 {
		a.v, a.any = v, true
	}
}
func (a *maxAcc) Result() value.Value {
	if !a.any {
		return value.Null(value.NullGeneric)
	}
	return a.v
}

// stdAcc computes the population standard deviation via Welford's online
// algorithm, avoiding the cancellation error a naive sum-of-squares
// formula accumulates over large groups.
type stdAcc struct {
	n    int64
	mean float64
	m2   float64
}

func (a *stdAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() || !v.IsNumeric() {
		return
	}
	x := v.AsFloat()
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	delta2 := x - a.mean
	a.m2 += delta * delta2
}
func (a *stdAcc) Result() value.Value {
	if a.n == 0 {
		return value.Null(value.NullGeneric)
	}
	return value.NewFloat(math.Sqrt(a.m2 / float64(a.n)))
}

type bitOp uint8

const (
	bitAnd bitOp = iota
	bitOr
	bitXor
)

type bitAcc struct {
	op   bitOp
	acc  int64
	seen bool
}

func (a *bitAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() || v.Tag != value.TagInt {
		return
	}
	if !a.seen {
		a.acc = v.Int
		a.seen = true
		return
	}
	switch a.op {
	case bitAnd:
		a.acc &= v.Int
	case bitOr:
		a.acc |= v.Int
	case bitXor:
		a.acc ^= v.Int
	}
}
func (a *bitAcc) Result() value.Value {
	if !a.seen {
		return value.NewInt(0)
	}
	return value.NewInt(a.acc)
}

// collectAcc implements both COLLECT (list, duplicates kept, insertion
// order preserved) and COLLECT_SET (deduplicated) depending on whether set
// is non-nil.
type collectAcc struct {
	list []value.Value
	set  *value.Set
}

func (a *collectAcc) Add(v value.Value) {
	if v.IsNull() || v.IsEmpty() {
		return
	}
	if a.set != nil {
		if a.set.Add(v) {
			a.list = append(a.list, v)
		}
		return
	}
	a.list = append(a.list, v)
}
func (a *collectAcc) Result() value.Value { return value.NewList(a.list) }
