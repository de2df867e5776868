package value

import (
	"math"
	"strings"
)

// CoerceBool implements the read-time coercion table from spec §4.3: a
// field physically stored as Int or String can be requested as Bool.
func CoerceBool(v Value) Value {
	switch v.Tag {
	case TagBool:
		return v
	case TagInt:
		return NewBool(v.Int != 0)
	case TagStr:
		return NewBool(strings.EqualFold(v.Str, "true"))
	default:
		return Null(NullBadType)
	}
}

// CoerceInt widens Bool to Int, per the source's symmetric coercion table
// (SPEC_FULL.md §4, supplemented from original_source/).
func CoerceInt(v Value) Value {
	switch v.Tag {
	case TagInt:
		return v
	case TagBool:
		if v.Bool {
			return NewInt(1)
		}
		return NewInt(0)
	default:
		return Null(NullBadType)
	}
}

// CoerceFloat narrows a Double-typed field to Float (float32 range),
// returning Null(ErrOverflow) if the value cannot fit, per spec §4.3.
func CoerceFloat(v Value) Value {
	if v.Tag != TagFloat {
		return Null(NullBadType)
	}
	f := v.Float
	if f > math.MaxFloat32 || f < -math.MaxFloat32 {
		return Null(NullErrOverflow)
	}
	return NewFloat(float64(float32(f)))
}

// CoerceDouble widens a Float-typed field to Double (no-op on the Go
// representation, both are float64, but documents the read path
// explicitly per the "getDouble on FLOAT" Open Question in spec §9: this
// repo always uses the full double range on the read side, never losing
// precision the way the original's setFloat path did).
func CoerceDouble(v Value) Value {
	if v.Tag != TagFloat {
		return Null(NullBadType)
	}
	return v
}
