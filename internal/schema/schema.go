// Package schema implements the schema-provider contract (spec §4.2): the
// codec and evaluator never see a tag/edge definition directly, only this
// narrow interface, so that a real implementation can back it with a
// meta-client cache without the core depending on that cache's shape.
package schema

import "fmt"

// FieldType enumerates the physical field types the row codec knows how
// to encode/decode (spec §4.3).
type FieldType uint8

const (
	FieldBool FieldType = iota
	FieldInt64
	FieldTimestamp
	FieldFloat
	FieldDouble
	FieldVid // legacy v1 fixed 8-byte integer VID
	FieldString
)

func (t FieldType) String() string {
	switch t {
	case FieldBool:
		return "bool"
	case FieldInt64:
		return "int64"
	case FieldTimestamp:
		return "timestamp"
	case FieldFloat:
		return "float"
	case FieldDouble:
		return "double"
	case FieldVid:
		return "vid"
	case FieldString:
		return "string"
	default:
		return "unknown"
	}
}

// Field describes one column of a schema: name, physical type, nullability
// and a default Value used when a v2 row's null-bitmap marks it absent.
type Field struct {
	Default  any
	Name     string
	Type     FieldType
	Nullable bool
}

// Provider is the schema-provider contract consumed by the row codec and
// the evaluator. Implementations are append-only per schema version: once
// returned, a given (name, version) Provider's field list never changes.
type Provider interface {
	NumFields() int
	FieldType(i int) (FieldType, error)
	FieldIndex(name string) (int, bool)
	FieldName(i int) (string, error)
	FieldDefault(i int) (any, bool)
	Version() uint32
}

// Static is the simplest Provider: an in-memory, immutable field list. It
// is what a meta-client cache would hand back once a schema version has
// been fetched and frozen.
type Static struct {
	fields  []Field
	index   map[string]int
	version uint32
}

// NewStatic builds a Static provider. Construction fixes the field order;
// callers must not reuse the input slice afterward.
func NewStatic(version uint32, fields []Field) *Static {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &Static{version: version, fields: fields, index: idx}
}

func (s *Static) NumFields() int { return len(s.fields) }

func (s *Static) FieldType(i int) (FieldType, error) {
	if i < 0 || i >= len(s.fields) {
		return 0, fmt.Errorf("schema: field index %d out of range [0,%d)", i, len(s.fields))
	}
	return s.fields[i].Type, nil
}

func (s *Static) FieldIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Static) FieldName(i int) (string, error) {
	if i < 0 || i >= len(s.fields) {
		return "", fmt.Errorf("schema: field index %d out of range [0,%d)", i, len(s.fields))
	}
	return s.fields[i].Name, nil
}

func (s *Static) FieldDefault(i int) (any, bool) {
	if i < 0 || i >= len(s.fields) {
		return nil, false
	}
	return s.fields[i].Default, s.fields[i].Default != nil
}

func (s *Static) Version() uint32 { return s.version }

// Key identifies a schema within a space: the owning tag or edge name plus
// the schema version, matching the (space, tag|edge, version) → Schema
// mapping in spec §3.
type Key struct {
	Space   string
	Name    string
	Version uint32
}

// Registry is an append-only mapping from Key to Provider, the minimal
// store backing a meta-client cache. It is safe for concurrent reads once
// populated; Register is expected to be called during setup, not on the
// hot path.
type Registry struct {
	schemas map[Key]Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[Key]Provider)}
}

// Register adds a schema version. It is an error to overwrite an existing
// key: schema versions are append-only (spec §3).
func (r *Registry) Register(key Key, p Provider) error {
	if _, exists := r.schemas[key]; exists {
		return fmt.Errorf("schema: version %d of %s/%s already registered", key.Version, key.Space, key.Name)
	}
	r.schemas[key] = p
	return nil
}

// Lookup returns the Provider for key.
func (r *Registry) Lookup(key Key) (Provider, bool) {
	p, ok := r.schemas[key]
	return p, ok
}

// Latest returns the highest-versioned Provider registered for
// (space, name), or false if none exists.
func (r *Registry) Latest(space, name string) (Provider, uint32, bool) {
	var best Provider
	var bestVer uint32
	found := false
	for k, p := range r.schemas {
		if k.Space != space || k.Name != name {
			continue
		}
		if !found || k.Version > bestVer {
			best, bestVer, found = p, k.Version, true
		}
	}
	return best, bestVer, found
}
