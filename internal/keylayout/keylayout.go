// Package keylayout implements the persisted key byte formats storage
// writes and data-inspector reads back (spec §6): a one-byte key-type
// discriminator followed by a type-specific fixed/variable-width body.
// Every VID is right-padded with \x00 to the store's fixed vidLen before
// encoding (spec §4.7), so fixed-width fields never need a length prefix.
package keylayout

import (
	"encoding/binary"
	"fmt"
)

// KeyType is the first byte of every persisted key.
type KeyType uint8

const (
	KeyVertex    KeyType = 0x01
	KeyEdge      KeyType = 0x02
	KeyIndex     KeyType = 0x03
	KeySystem    KeyType = 0x04
	KeyOperation KeyType = 0x05
	KeyKV        KeyType = 0x06
)

func (t KeyType) String() string {
	switch t {
	case KeyVertex:
		return "Vertex"
	case KeyEdge:
		return "Edge"
	case KeyIndex:
		return "Index"
	case KeySystem:
		return "System"
	case KeyOperation:
		return "Operation"
	case KeyKV:
		return "KV"
	default:
		return fmt.Sprintf("KeyType(0x%02x)", uint8(t))
	}
}

// putUint24LE writes the low 24 bits of v into b[0:3], little-endian.
// Partition IDs fit comfortably in 24 bits; a fourth byte would be pure
// padding for every deployment spec §4.7's partition count targets.
func putUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func uint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// padVID right-pads vid with \x00 to vidLen, per spec §4.7. It panics if
// vid is already longer than vidLen: that is a caller bug (a VID that
// doesn't fit the store's configured width), not a recoverable runtime
// condition.
func padVID(vid []byte, vidLen int) []byte {
	if len(vid) > vidLen {
		panic(fmt.Sprintf("keylayout: vid length %d exceeds vidLen %d", len(vid), vidLen))
	}
	out := make([]byte, vidLen)
	copy(out, vid)
	return out
}

// VertexKey encodes a vertex key: type(1) | part(3 LE) | vid(vidLen) | tagId(4 LE).
func VertexKey(part uint32, vid []byte, vidLen int, tagID uint32) []byte {
	out := make([]byte, 1+3+vidLen+4)
	out[0] = byte(KeyVertex)
	putUint24LE(out[1:4], part)
	copy(out[4:4+vidLen], padVID(vid, vidLen))
	binary.LittleEndian.PutUint32(out[4+vidLen:], tagID)
	return out
}

// VertexKeyFields is a decoded VertexKey.
type VertexKeyFields struct {
	Part  uint32
	VID   []byte
	TagID uint32
}

// DecodeVertexKey reverses VertexKey. vidLen must match the value the key
// was encoded with; the layout carries no self-describing length field.
func DecodeVertexKey(key []byte, vidLen int) (VertexKeyFields, error) {
	want := 1 + 3 + vidLen + 4
	if len(key) != want {
		return VertexKeyFields{}, fmt.Errorf("keylayout: vertex key length %d, want %d", len(key), want)
	}
	if KeyType(key[0]) != KeyVertex {
		return VertexKeyFields{}, fmt.Errorf("keylayout: key type 0x%02x, want Vertex", key[0])
	}
	return VertexKeyFields{
		Part:  uint24LE(key[1:4]),
		VID:   append([]byte(nil), key[4:4+vidLen]...),
		TagID: binary.LittleEndian.Uint32(key[4+vidLen:]),
	}, nil
}

// EdgeKey encodes an edge key:
// type(1) | part(3 LE) | src(vidLen) | edgeType(4 LE) | rank(8 LE signed) | dst(vidLen) | edgeVer(1).
func EdgeKey(part uint32, src []byte, edgeType int32, rank int64, dst []byte, vidLen int, edgeVer uint8) []byte {
	out := make([]byte, 1+3+vidLen+4+8+vidLen+1)
	i := 0
	out[i] = byte(KeyEdge)
	i++
	putUint24LE(out[i:i+3], part)
	i += 3
	copy(out[i:i+vidLen], padVID(src, vidLen))
	i += vidLen
	binary.LittleEndian.PutUint32(out[i:i+4], uint32(edgeType))
	i += 4
	binary.LittleEndian.PutUint64(out[i:i+8], uint64(rank))
	i += 8
	copy(out[i:i+vidLen], padVID(dst, vidLen))
	i += vidLen
	out[i] = edgeVer
	return out
}

// EdgeKeyFields is a decoded EdgeKey.
type EdgeKeyFields struct {
	Part     uint32
	Src      []byte
	EdgeType int32
	Rank     int64
	Dst      []byte
	EdgeVer  uint8
}

// DecodeEdgeKey reverses EdgeKey.
func DecodeEdgeKey(key []byte, vidLen int) (EdgeKeyFields, error) {
	want := 1 + 3 + vidLen + 4 + 8 + vidLen + 1
	if len(key) != want {
		return EdgeKeyFields{}, fmt.Errorf("keylayout: edge key length %d, want %d", len(key), want)
	}
	if KeyType(key[0]) != KeyEdge {
		return EdgeKeyFields{}, fmt.Errorf("keylayout: key type 0x%02x, want Edge", key[0])
	}
	i := 1
	part := uint24LE(key[i : i+3])
	i += 3
	src := append([]byte(nil), key[i:i+vidLen]...)
	i += vidLen
	edgeType := int32(binary.LittleEndian.Uint32(key[i : i+4]))
	i += 4
	rank := int64(binary.LittleEndian.Uint64(key[i : i+8]))
	i += 8
	dst := append([]byte(nil), key[i:i+vidLen]...)
	i += vidLen
	edgeVer := key[i]
	return EdgeKeyFields{Part: part, Src: src, EdgeType: edgeType, Rank: rank, Dst: dst, EdgeVer: edgeVer}, nil
}

// SystemKeyType is the second-level discriminator carried in System keys'
// single sysType byte.
type SystemKeyType uint8

// SystemKey encodes a system key: type(1) | part(3 LE) | sysType(1).
func SystemKey(part uint32, sysType SystemKeyType) []byte {
	out := make([]byte, 1+3+1)
	out[0] = byte(KeySystem)
	putUint24LE(out[1:4], part)
	out[4] = byte(sysType)
	return out
}

// SystemKeyFields is a decoded SystemKey.
type SystemKeyFields struct {
	Part    uint32
	SysType SystemKeyType
}

// DecodeSystemKey reverses SystemKey.
func DecodeSystemKey(key []byte) (SystemKeyFields, error) {
	if len(key) != 5 {
		return SystemKeyFields{}, fmt.Errorf("keylayout: system key length %d, want 5", len(key))
	}
	if KeyType(key[0]) != KeySystem {
		return SystemKeyFields{}, fmt.Errorf("keylayout: key type 0x%02x, want System", key[0])
	}
	return SystemKeyFields{Part: uint24LE(key[1:4]), SysType: SystemKeyType(key[4])}, nil
}

// KVKey encodes a plain KV key: type(1) | part(3 LE) | name(variable).
// Unlike Vertex/Edge/System, name has no fixed width; it runs to the end
// of the key, which is safe because KV is never a prefix of another key
// type (the leading type byte disambiguates).
func KVKey(part uint32, name []byte) []byte {
	out := make([]byte, 1+3+len(name))
	out[0] = byte(KeyKV)
	putUint24LE(out[1:4], part)
	copy(out[4:], name)
	return out
}

// KVKeyFields is a decoded KVKey.
type KVKeyFields struct {
	Part uint32
	Name []byte
}

// DecodeKVKey reverses KVKey.
func DecodeKVKey(key []byte) (KVKeyFields, error) {
	if len(key) < 4 {
		return KVKeyFields{}, fmt.Errorf("keylayout: kv key length %d, want at least 4", len(key))
	}
	if KeyType(key[0]) != KeyKV {
		return KVKeyFields{}, fmt.Errorf("keylayout: key type 0x%02x, want KV", key[0])
	}
	return KVKeyFields{Part: uint24LE(key[1:4]), Name: append([]byte(nil), key[4:]...)}, nil
}

// Type reads the first byte of any persisted key without knowing its
// full shape, the operation data-inspector's generic dump/stats walk
// needs before it can pick a type-specific decoder.
func Type(key []byte) (KeyType, error) {
	if len(key) == 0 {
		return 0, fmt.Errorf("keylayout: empty key")
	}
	return KeyType(key[0]), nil
}

// Partition reads the part(3 LE) field common to every key type except
// KV-with-zero-length-name edge cases are not a concern here since KV
// still carries the same 3-byte partition field at the same offset.
func Partition(key []byte) (uint32, error) {
	if len(key) < 4 {
		return 0, fmt.Errorf("keylayout: key too short to carry a partition field")
	}
	return uint24LE(key[1:4]), nil
}
