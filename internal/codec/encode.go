package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dreamware/nebulet/internal/schema"
	"github.com/dreamware/nebulet/internal/value"
)

// Encode builds a v2-encoded row for the given schema and positional
// values (spec §4.3: "Writers emit v2 only"). len(values) must equal
// sp.NumFields(); a Null value is recorded in the null bitmap and its
// field bytes are zero-filled, so the reader's per-field width scan never
// needs to consult the bitmap.
func Encode(sp schema.Provider, values []value.Value) ([]byte, error) {
	n := sp.NumFields()
	if len(values) != n {
		return nil, fmt.Errorf("codec: expected %d values, got %d", n, len(values))
	}

	verBytes := verByteCount(sp.Version())
	numBlocks := n / 16
	offsetBytes := 1 // grown below if any block offset needs more bytes

	fieldBytes := make([][]byte, n)
	bitmap := make([]byte, nullBitmapLen(n))
	for i, v := range values {
		ft, err := sp.FieldType(i)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			setNullBit(bitmap, i)
			fieldBytes[i] = zeroField(ft)
			continue
		}
		b, err := encodeFieldV2(ft, v)
		if err != nil {
			return nil, fmt.Errorf("codec: field %d: %w", i, err)
		}
		fieldBytes[i] = b
	}

	// Compute block start offsets, relative to the first field byte.
	blockStarts := make([]int, numBlocks)
	pos := 0
	for i := 0; i < n; i++ {
		if i > 0 && i%16 == 0 {
			blockStarts[i/16-1] = pos
		}
		pos += len(fieldBytes[i])
	}
	for _, off := range blockStarts {
		for off >= (1 << (8 * offsetBytes)) {
			offsetBytes++
		}
	}
	if offsetBytes > 8 {
		return nil, fmt.Errorf("codec: row too large for offset encoding")
	}

	var out []byte
	out = append(out, encodeHeaderByte(V2, verBytes, offsetBytes))
	verBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(verBuf, sp.Version())
	out = append(out, verBuf[:verBytes]...)
	for _, off := range blockStarts {
		b := make([]byte, offsetBytes)
		for i := 0; i < offsetBytes; i++ {
			b[i] = byte(off >> (8 * i))
		}
		out = append(out, b...)
	}
	out = append(out, bitmap...)
	for _, b := range fieldBytes {
		out = append(out, b...)
	}
	return out, nil
}

// zeroField returns the zero-filled placeholder written for a Null field,
// sized exactly as a present field of the same type would be (minus
// variable string contents, which collapse to a zero-length string).
func zeroField(ft schema.FieldType) []byte {
	switch ft {
	case schema.FieldBool:
		return []byte{0}
	case schema.FieldInt64, schema.FieldTimestamp:
		return make([]byte, 8)
	case schema.FieldFloat:
		return make([]byte, 4)
	case schema.FieldDouble:
		return make([]byte, 8)
	case schema.FieldVid:
		return make([]byte, 8)
	case schema.FieldString:
		return make([]byte, 4) // zero length prefix, no payload
	default:
		return nil
	}
}

// encodeFieldV2 encodes one non-null field using v2's fixed/
// length-delimited layout (spec §4.3: "fields omit varint framing").
func encodeFieldV2(ft schema.FieldType, v value.Value) ([]byte, error) {
	switch ft {
	case schema.FieldBool:
		b := CoerceToBool(v)
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case schema.FieldInt64, schema.FieldTimestamp:
		i, err := coerceToInt(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(i))
		return buf, nil
	case schema.FieldFloat:
		f, err := coerceToFloat(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil
	case schema.FieldDouble:
		f, err := coerceToFloat(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case schema.FieldVid:
		i, err := coerceToInt(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(i))
		return buf, nil
	case schema.FieldString:
		s, err := coerceToString(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4+len(s))
		binary.LittleEndian.PutUint32(buf, uint32(len(s)))
		copy(buf[4:], s)
		return buf, nil
	default:
		return nil, fmt.Errorf("codec: unsupported field type %v", ft)
	}
}

// CoerceToBool mirrors value.CoerceBool but never fails: a bad-type
// operand is written as false, matching the writer's duty to always
// produce a well-formed row (value-level errors belong to reads, not
// writes, per spec §7).
func CoerceToBool(v value.Value) bool {
	c := value.CoerceBool(v)
	return c.Tag == value.TagBool && c.Bool
}

func coerceToInt(v value.Value) (int64, error) {
	switch v.Tag {
	case value.TagInt:
		return v.Int, nil
	case value.TagBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot encode %v as int64", v.Tag)
	}
}

func coerceToFloat(v value.Value) (float64, error) {
	switch v.Tag {
	case value.TagFloat:
		return v.Float, nil
	case value.TagInt:
		return float64(v.Int), nil
	default:
		return 0, fmt.Errorf("cannot encode %v as float", v.Tag)
	}
}

func coerceToString(v value.Value) (string, error) {
	if v.Tag != value.TagStr {
		return "", fmt.Errorf("cannot encode %v as string", v.Tag)
	}
	return v.Str, nil
}
