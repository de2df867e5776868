package expr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dreamware/nebulet/internal/value"
)

// Encode serializes e as a pre-order byte stream: each node writes its Kind
// byte followed by its kind-specific payload, then its children in the
// field order Clone walks. Decode is the exact inverse. This is the wire
// form pushed down to storage nodes and cached alongside a plan fragment
// (spec §4.5/§6).
func Encode(e *Expr) []byte {
	var buf []byte
	buf = encodeNode(buf, e)
	return buf
}

func encodeNode(buf []byte, e *Expr) []byte {
	if e == nil {
		return append(buf, 0xFF) // sentinel: absent optional child
	}
	buf = append(buf, byte(e.Kind))
	switch e.Kind {
	case KConstant:
		buf = encodeValue(buf, e.Const)
	case KAdd, KSub, KMul, KDiv, KMod, KEq, KNe, KLt, KLe, KGt, KGe,
		KIn, KNotIn, KContains, KStartsWith, KEndsWith, KXor, KSubscript:
		buf = encodeNode(buf, e.Left)
		buf = encodeNode(buf, e.Right)
	case KNeg, KNot:
		buf = encodeNode(buf, e.Left)
	case KAnd, KOr:
		buf = encodeUvarint(buf, uint64(len(e.Operands)))
		for _, op := range e.Operands {
			buf = encodeNode(buf, op)
		}
	case KTagProp, KSrcProp, KDstProp:
		buf = encodeString(buf, e.Name1)
		buf = encodeString(buf, e.Name2)
	case KEdgeProp:
		buf = encodeString(buf, e.Name1)
		buf = encodeString(buf, e.Name2)
	case KInputProp, KVarProp:
		buf = encodeString(buf, e.Name1)
		buf = encodeString(buf, e.Name2)
	case KLabelTagProp:
		buf = encodeString(buf, e.Name1)
		buf = encodeString(buf, e.Name2)
	case KEdgeSrc, KEdgeDst, KEdgeType, KEdgeRank:
		buf = encodeString(buf, e.Name1)
	case KColumn:
		buf = encodeUvarint(buf, uint64(e.Col))
	case KList, KSet:
		buf = encodeUvarint(buf, uint64(len(e.Operands)))
		for _, op := range e.Operands {
			buf = encodeNode(buf, op)
		}
	case KMap:
		buf = encodeUvarint(buf, uint64(len(e.MapItems)))
		for _, it := range e.MapItems {
			buf = encodeString(buf, it.Key)
			buf = encodeNode(buf, it.Val)
		}
	case KSubscriptRange:
		buf = encodeNode(buf, e.Left)
		buf = encodeNode(buf, e.Sub1)
		buf = encodeNode(buf, e.Sub2)
	case KFunctionCall:
		buf = encodeString(buf, e.Name1)
		buf = encodeUvarint(buf, uint64(len(e.Operands)))
		for _, op := range e.Operands {
			buf = encodeNode(buf, op)
		}
	case KAggregate:
		buf = encodeString(buf, e.AggName)
		if e.Distinct {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = encodeNode(buf, e.Arg)
	case KListComp:
		buf = encodeString(buf, e.InnerVar)
		buf = encodeNode(buf, e.Collection)
		buf = encodeNode(buf, e.Filter)
		buf = encodeNode(buf, e.Mapping)
	case KVertex, KEdge, KUUID, KLabel:
		buf = encodeString(buf, e.Name1)
	}
	return buf
}

func encodeUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func encodeString(buf []byte, s string) []byte {
	buf = encodeUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func encodeValue(buf []byte, v value.Value) []byte {
	buf = append(buf, byte(v.Tag))
	switch v.Tag {
	case value.TagBool:
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case value.TagInt:
		buf = encodeUvarint(buf, uint64(v.Int))
	case value.TagFloat:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
		buf = append(buf, tmp[:]...)
	case value.TagStr:
		buf = encodeString(buf, v.Str)
	case value.TagNull:
		buf = append(buf, byte(v.NullKind))
	}
	return buf
}

// decoder walks buf left to right, matching encodeNode's layout exactly.
type decoder struct {
	buf []byte
	pos int
}

// Decode is the inverse of Encode.
func Decode(buf []byte) (*Expr, error) {
	d := &decoder{buf: buf}
	e, err := d.node()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (d *decoder) byteAt() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("expr: truncated binary form")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("expr: malformed varint")
	}
	d.pos += n
	return v, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.uvarint()
	if err != nil {
		return "", err
	}
	if d.pos+int(n) > len(d.buf) {
		return "", fmt.Errorf("expr: truncated string")
	}
	s := string(d.buf[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

func (d *decoder) value() (value.Value, error) {
	tag, err := d.byteAt()
	if err != nil {
		return value.Value{}, err
	}
	switch value.Tag(tag) {
	case value.TagBool:
		b, err := d.byteAt()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b != 0), nil
	case value.TagInt:
		i, err := d.uvarint()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(int64(i)), nil
	case value.TagFloat:
		if d.pos+8 > len(d.buf) {
			return value.Value{}, fmt.Errorf("expr: truncated float")
		}
		bits := binary.LittleEndian.Uint64(d.buf[d.pos : d.pos+8])
		d.pos += 8
		return value.NewFloat(math.Float64frombits(bits)), nil
	case value.TagStr:
		s, err := d.str()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewStr(s), nil
	case value.TagNull:
		k, err := d.byteAt()
		if err != nil {
			return value.Value{}, err
		}
		return value.Null(value.NullKind(k)), nil
	case value.TagEmpty:
		return value.Empty(), nil
	default:
		return value.Value{}, fmt.Errorf("expr: unsupported literal tag %d", tag)
	}
}

func (d *decoder) node() (*Expr, error) {
	kindByte, err := d.byteAt()
	if err != nil {
		return nil, err
	}
	if kindByte == 0xFF {
		return nil, nil
	}
	k := Kind(kindByte)
	e := &Expr{Kind: k}
	switch k {
	case KConstant:
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		e.Const = v
	case KAdd, KSub, KMul, KDiv, KMod, KEq, KNe, KLt, KLe, KGt, KGe,
		KIn, KNotIn, KContains, KStartsWith, KEndsWith, KXor, KSubscript:
		if e.Left, err = d.node(); err != nil {
			return nil, err
		}
		if e.Right, err = d.node(); err != nil {
			return nil, err
		}
	case KNeg, KNot:
		if e.Left, err = d.node(); err != nil {
			return nil, err
		}
	case KAnd, KOr:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		e.Operands = make([]*Expr, n)
		for i := range e.Operands {
			if e.Operands[i], err = d.node(); err != nil {
				return nil, err
			}
		}
	case KTagProp, KSrcProp, KDstProp, KEdgeProp, KInputProp, KVarProp, KLabelTagProp:
		if e.Name1, err = d.str(); err != nil {
			return nil, err
		}
		if e.Name2, err = d.str(); err != nil {
			return nil, err
		}
	case KEdgeSrc, KEdgeDst, KEdgeType, KEdgeRank, KVertex, KEdge, KUUID, KLabel:
		if e.Name1, err = d.str(); err != nil {
			return nil, err
		}
	case KColumn:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		e.Col = int(n)
	case KList, KSet:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		e.Operands = make([]*Expr, n)
		for i := range e.Operands {
			if e.Operands[i], err = d.node(); err != nil {
				return nil, err
			}
		}
	case KMap:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		e.MapItems = make([]MapItem, n)
		for i := range e.MapItems {
			key, err := d.str()
			if err != nil {
				return nil, err
			}
			val, err := d.node()
			if err != nil {
				return nil, err
			}
			e.MapItems[i] = MapItem{Key: key, Val: val}
		}
	case KSubscriptRange:
		if e.Left, err = d.node(); err != nil {
			return nil, err
		}
		if e.Sub1, err = d.node(); err != nil {
			return nil, err
		}
		if e.Sub2, err = d.node(); err != nil {
			return nil, err
		}
	case KFunctionCall:
		if e.Name1, err = d.str(); err != nil {
			return nil, err
		}
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		e.Operands = make([]*Expr, n)
		for i := range e.Operands {
			if e.Operands[i], err = d.node(); err != nil {
				return nil, err
			}
		}
	case KAggregate:
		if e.AggName, err = d.str(); err != nil {
			return nil, err
		}
		b, err := d.byteAt()
		if err != nil {
			return nil, err
		}
		e.Distinct = b != 0
		if e.Arg, err = d.node(); err != nil {
			return nil, err
		}
	case KListComp:
		if e.InnerVar, err = d.str(); err != nil {
			return nil, err
		}
		if e.Collection, err = d.node(); err != nil {
			return nil, err
		}
		if e.Filter, err = d.node(); err != nil {
			return nil, err
		}
		if e.Mapping, err = d.node(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expr: unknown kind byte %d", kindByte)
	}
	return e, nil
}
