package value

import "math"

// firstNullKind returns the kind of the first-seen Null among a, b
// left-to-right, per spec §4.1's "FIRST-seen kind" propagation rule.
func firstNullKind(a, b Value) (NullKind, bool) {
	if a.Tag == TagNull {
		return a.NullKind, true
	}
	if b.Tag == TagNull {
		return b.NullKind, true
	}
	return 0, false
}

// Add implements the + operator: numeric addition, Str/Str concatenation,
// List/List concatenation, with Int overflow detection and Null
// propagation.
func Add(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	switch {
	case a.Tag == TagStr && b.Tag == TagStr:
		return NewStr(a.Str + b.Str)
	case a.Tag == TagList && b.Tag == TagList:
		out := make([]Value, 0, len(a.List)+len(b.List))
		out = append(out, a.List...)
		out = append(out, b.List...)
		return NewList(out)
	case a.Tag == TagInt && b.Tag == TagInt:
		sum := a.Int + b.Int
		if (b.Int > 0 && sum < a.Int) || (b.Int < 0 && sum > a.Int) {
			return Null(NullErrOverflow)
		}
		return NewInt(sum)
	case a.IsNumeric() && b.IsNumeric():
		return NewFloat(a.AsFloat() + b.AsFloat())
	default:
		return Null(NullBadType)
	}
}

// Sub implements the - operator.
func Sub(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	switch {
	case a.Tag == TagInt && b.Tag == TagInt:
		diff := a.Int - b.Int
		if (b.Int < 0 && diff < a.Int) || (b.Int > 0 && diff > a.Int) {
			return Null(NullErrOverflow)
		}
		return NewInt(diff)
	case a.IsNumeric() && b.IsNumeric():
		return NewFloat(a.AsFloat() - b.AsFloat())
	default:
		return Null(NullBadType)
	}
}

// Mul implements the * operator.
func Mul(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	switch {
	case a.Tag == TagInt && b.Tag == TagInt:
		if a.Int == 0 || b.Int == 0 {
			return NewInt(0)
		}
		prod := a.Int * b.Int
		if prod/b.Int != a.Int {
			return Null(NullErrOverflow)
		}
		return NewInt(prod)
	case a.IsNumeric() && b.IsNumeric():
		return NewFloat(a.AsFloat() * b.AsFloat())
	default:
		return Null(NullBadType)
	}
}

// Div implements the / operator. Division by zero is Null(DivByZero) for
// both Int and Float operands.
func Div(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	switch {
	case a.Tag == TagInt && b.Tag == TagInt:
		if b.Int == 0 {
			return Null(NullDivByZero)
		}
		return NewInt(a.Int / b.Int)
	case a.IsNumeric() && b.IsNumeric():
		if b.AsFloat() == 0 {
			return Null(NullDivByZero)
		}
		return NewFloat(a.AsFloat() / b.AsFloat())
	default:
		return Null(NullBadType)
	}
}

// Mod implements the % operator.
func Mod(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	switch {
	case a.Tag == TagInt && b.Tag == TagInt:
		if b.Int == 0 {
			return Null(NullDivByZero)
		}
		return NewInt(a.Int % b.Int)
	case a.IsNumeric() && b.IsNumeric():
		bf := b.AsFloat()
		if bf == 0 {
			return Null(NullDivByZero)
		}
		return NewFloat(math.Mod(a.AsFloat(), bf))
	default:
		return Null(NullBadType)
	}
}

// Neg implements unary minus.
func Neg(a Value) Value {
	switch a.Tag {
	case TagNull:
		return a
	case TagInt:
		return NewInt(-a.Int)
	case TagFloat:
		return NewFloat(-a.Float)
	default:
		return Null(NullBadType)
	}
}

// relOrder implements the shared comparison machinery for Lt/Le/Gt/Ge: any
// Null operand propagates, otherwise it defers to the total order in
// equal.go.
func relOrder(a, b Value, ok func(cmp int) bool) Value {
	if k, has := firstNullKind(a, b); has {
		return Null(k)
	}
	if a.Tag == TagEmpty || b.Tag == TagEmpty {
		return Empty()
	}
	return NewBool(ok(Compare(a, b)))
}

func Lt(a, b Value) Value { return relOrder(a, b, func(c int) bool { return c < 0 }) }
func Le(a, b Value) Value { return relOrder(a, b, func(c int) bool { return c <= 0 }) }
func Gt(a, b Value) Value { return relOrder(a, b, func(c int) bool { return c > 0 }) }
func Ge(a, b Value) Value { return relOrder(a, b, func(c int) bool { return c >= 0 }) }

// Eq and Ne implement == and !=. Null == anything (including Null) yields
// Null per spec §4.1; otherwise structural equality applies.
func Eq(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	return NewBool(Equal(a, b))
}

func Ne(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	return NewBool(!Equal(a, b))
}

// And implements three-valued logical AND: true∧Null→Null, false∧Null→
// false, Null∧Null→Null.
func And(a, b Value) Value {
	ab, aIsBool := asTruth(a)
	bb, bIsBool := asTruth(b)
	switch {
	case aIsBool && !ab:
		return NewBool(false)
	case bIsBool && !bb:
		return NewBool(false)
	case aIsBool && bIsBool:
		return NewBool(ab && bb)
	default:
		if k, ok := firstNullKind(a, b); ok {
			return Null(k)
		}
		return Null(NullBadType)
	}
}

// Or implements three-valued logical OR: Null∨true→true, false∨Null→Null.
func Or(a, b Value) Value {
	ab, aIsBool := asTruth(a)
	bb, bIsBool := asTruth(b)
	switch {
	case aIsBool && ab:
		return NewBool(true)
	case bIsBool && bb:
		return NewBool(true)
	case aIsBool && bIsBool:
		return NewBool(ab || bb)
	default:
		if k, ok := firstNullKind(a, b); ok {
			return Null(k)
		}
		return Null(NullBadType)
	}
}

// Xor implements logical XOR. Unlike And/Or it has no short-circuit case:
// any Null operand propagates.
func Xor(a, b Value) Value {
	if k, ok := firstNullKind(a, b); ok {
		return Null(k)
	}
	ab, aIsBool := asTruth(a)
	bb, bIsBool := asTruth(b)
	if !aIsBool || !bIsBool {
		return Null(NullBadType)
	}
	return NewBool(ab != bb)
}

// Not implements logical negation. Not(Null) is Null.
func Not(a Value) Value {
	if a.Tag == TagNull {
		return a
	}
	b, ok := asTruth(a)
	if !ok {
		return Null(NullBadType)
	}
	return NewBool(!b)
}

// asTruth reports a Value's boolean reading. Only Bool values are truthy
// sources for three-valued logic; anything else (including Empty and
// non-bool scalars) is not a bool.
func asTruth(v Value) (bool, bool) {
	if v.Tag == TagBool {
		return v.Bool, true
	}
	return false, false
}
