package codec

import (
	"encoding/binary"
	"math"

	"github.com/dreamware/nebulet/internal/schema"
	"github.com/dreamware/nebulet/internal/value"
)

// Reader decodes fields of a single encoded row against a Schema Provider,
// supporting random per-field access with bounded work (spec §4.3). A
// Reader caches each field's computed byte offset as it is visited — the
// "mutable cached offsets inside a logically const reader" from spec §9 —
// but the cache is private to the Reader and must never be shared across
// goroutines.
type Reader struct {
	sp          schema.Provider
	data        []byte
	h           header
	fieldStart  int
	nullBitmap  []byte
	offsetCache []int // -1 = not yet computed
}

// NewReader parses data's header against sp and returns a Reader ready for
// random-access field reads. It does not decode any field eagerly.
func NewReader(sp schema.Provider, data []byte) (*Reader, error) {
	n := sp.NumFields()
	h, fieldStart, err := parseHeader(data, n)
	if err != nil {
		return nil, err
	}
	r := &Reader{sp: sp, data: data, h: h, fieldStart: fieldStart}
	if h.fmtVersion == V2 {
		bmLen := nullBitmapLen(n)
		bmStart := fieldStart - bmLen
		r.nullBitmap = data[bmStart:fieldStart]
	}
	r.offsetCache = make([]int, n)
	for i := range r.offsetCache {
		r.offsetCache[i] = -1
	}
	r.offsetCache[0] = fieldStart
	return r, nil
}

// Version returns the schema version the row was written against.
func (r *Reader) Version() uint32 { return r.h.version }

// FormatVersion returns V1 or V2 depending on which wire format the row
// used.
func (r *Reader) FormatVersion() Version { return r.h.fmtVersion }

// blockBase returns the absolute byte offset of the first field in the
// block containing field index i.
func (r *Reader) blockBase(i int) (blockFieldIdx, byteOffset int) {
	k := i / 16
	if k == 0 {
		return 0, r.fieldStart
	}
	return k * 16, r.fieldStart + r.h.blockOffsets[k-1]
}

// Field decodes field i at its schema-declared type. It never panics and
// never reads past len(data); any boundary or truncation problem yields
// Null(BadData), per spec §4.3/§8.
func (r *Reader) Field(i int) value.Value {
	if i < 0 || i >= r.sp.NumFields() {
		return value.Null(value.NullBadData)
	}
	off, ok := r.resolveOffset(i)
	if !ok {
		return value.Null(value.NullBadData)
	}
	ft, err := r.sp.FieldType(i)
	if err != nil {
		return value.Null(value.NullBadData)
	}
	if r.h.fmtVersion == V2 && isNullBit(r.nullBitmap, i) {
		return value.Null(value.NullUnknownProp)
	}
	v, _, err := decodeFieldAt(r.data, off, ft, r.h.fmtVersion)
	if err != nil {
		return value.Null(value.NullBadData)
	}
	return v
}

// FieldAs decodes field i and coerces it to want, per the read-time
// coercion table in spec §4.3.
func (r *Reader) FieldAs(i int, want schema.FieldType) value.Value {
	natural, err := r.sp.FieldType(i)
	if err != nil {
		return value.Null(value.NullBadData)
	}
	v := r.Field(i)
	if v.IsNull() || natural == want {
		return v
	}
	switch want {
	case schema.FieldBool:
		return value.CoerceBool(v)
	case schema.FieldFloat:
		if natural == schema.FieldDouble {
			return value.CoerceFloat(v)
		}
	case schema.FieldDouble:
		if natural == schema.FieldFloat {
			return value.CoerceDouble(v)
		}
	case schema.FieldInt64:
		return value.CoerceInt(v)
	}
	return value.Null(value.NullBadType)
}

// resolveOffset returns the absolute byte offset of field i, computing
// and caching it (and every field scanned along the way) if necessary.
func (r *Reader) resolveOffset(i int) (int, bool) {
	if off := r.offsetCache[i]; off >= 0 {
		return off, true
	}
	blockIdx, pos := r.blockBase(i)
	// Find the nearest already-cached field at or before i within the
	// block to avoid re-scanning from the block start every time.
	start := blockIdx
	for j := i; j > blockIdx; j-- {
		if r.offsetCache[j] >= 0 {
			start = j
			pos = r.offsetCache[j]
			break
		}
	}
	for j := start; j < i; j++ {
		ft, err := r.sp.FieldType(j)
		if err != nil {
			return 0, false
		}
		width, ok := r.fieldWidthAt(pos, ft)
		if !ok {
			return 0, false
		}
		pos += width
		if j+1 < len(r.offsetCache) {
			r.offsetCache[j+1] = pos
		}
	}
	if pos < 0 || pos > len(r.data) {
		return 0, false
	}
	r.offsetCache[i] = pos
	return pos, true
}

// fieldWidthAt returns the number of bytes field type ft occupies
// starting at byte offset pos, without allocating a Value. Returns false
// if the width cannot be determined within bounds.
func (r *Reader) fieldWidthAt(pos int, ft schema.FieldType) (int, bool) {
	data := r.data
	switch ft {
	case schema.FieldBool:
		if pos+1 > len(data) {
			return 0, false
		}
		return 1, true
	case schema.FieldFloat:
		if pos+4 > len(data) {
			return 0, false
		}
		return 4, true
	case schema.FieldDouble, schema.FieldVid:
		if pos+8 > len(data) {
			return 0, false
		}
		return 8, true
	case schema.FieldInt64, schema.FieldTimestamp:
		if r.h.fmtVersion == V2 {
			if pos+8 > len(data) {
				return 0, false
			}
			return 8, true
		}
		_, n, err := getVarint(data[min(pos, len(data)):])
		if err != nil {
			return 0, false
		}
		return n, true
	case schema.FieldString:
		if r.h.fmtVersion == V2 {
			if pos+4 > len(data) {
				return 0, false
			}
			strLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			if strLen < 0 || pos+4+strLen > len(data) {
				return 0, false
			}
			return 4 + strLen, true
		}
		strLen, n, err := getVarint(data[min(pos, len(data)):])
		if err != nil || strLen < 0 {
			return 0, false
		}
		total := n + int(strLen)
		if pos+total > len(data) {
			return 0, false
		}
		return total, true
	default:
		return 0, false
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// decodeFieldAt decodes the value of type ft starting at byte offset off,
// returning the value and the number of bytes it occupied.
func decodeFieldAt(data []byte, off int, ft schema.FieldType, fv Version) (value.Value, int, error) {
	switch ft {
	case schema.FieldBool:
		if off+1 > len(data) {
			return value.Value{}, 0, errTruncated
		}
		return value.NewBool(data[off] != 0), 1, nil
	case schema.FieldFloat:
		if off+4 > len(data) {
			return value.Value{}, 0, errTruncated
		}
		bits := binary.LittleEndian.Uint32(data[off : off+4])
		return value.NewFloat(float64(math.Float32frombits(bits))), 4, nil
	case schema.FieldDouble:
		if off+8 > len(data) {
			return value.Value{}, 0, errTruncated
		}
		bits := binary.LittleEndian.Uint64(data[off : off+8])
		return value.NewFloat(math.Float64frombits(bits)), 8, nil
	case schema.FieldVid:
		if off+8 > len(data) {
			return value.Value{}, 0, errTruncated
		}
		i := int64(binary.LittleEndian.Uint64(data[off : off+8]))
		return value.NewInt(i), 8, nil
	case schema.FieldInt64, schema.FieldTimestamp:
		if fv == V2 {
			if off+8 > len(data) {
				return value.Value{}, 0, errTruncated
			}
			i := int64(binary.LittleEndian.Uint64(data[off : off+8]))
			return value.NewInt(i), 8, nil
		}
		i, n, err := getVarint(data[off:])
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewInt(i), n, nil
	case schema.FieldString:
		if fv == V2 {
			if off+4 > len(data) {
				return value.Value{}, 0, errTruncated
			}
			strLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
			if off+4+strLen > len(data) {
				return value.Value{}, 0, errTruncated
			}
			return value.NewStr(string(data[off+4 : off+4+strLen])), 4 + strLen, nil
		}
		strLen, n, err := getVarint(data[off:])
		if err != nil {
			return value.Value{}, 0, err
		}
		start := off + n
		if start+int(strLen) > len(data) {
			return value.Value{}, 0, errTruncated
		}
		return value.NewStr(string(data[start : start+int(strLen)])), n + int(strLen), nil
	default:
		return value.Value{}, 0, errUnsupportedType
	}
}
