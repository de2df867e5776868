// Package storageengine implements storaged's per-partition persistence:
// turning the getNeighbors/getProps/addVertices/addEdges/updateVertex/
// updateEdge RPC shapes (spec §6) into keylayout-addressed reads and
// writes against an internal/kv.Store, encoding and decoding row values
// with internal/codec against the schema a space's internal/schema.Registry
// has on file. It is the Go-idiomatic descendant of torua's
// internal/storage.Store: where that package held an opaque string-keyed
// blob per shard, this one understands the vertex/edge/tag shape the rows
// it stores actually have.
package storageengine

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/codec"
	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/keylayout"
	"github.com/dreamware/nebulet/internal/kv"
	"github.com/dreamware/nebulet/internal/router"
	"github.com/dreamware/nebulet/internal/schema"
	"github.com/dreamware/nebulet/internal/value"
)

// edgeVerForward/edgeVerReverse distinguish the two rows addEdges writes
// for every inserted edge: one at the source partition keyed by the
// actual edge type for outbound scans, one at the destination partition
// keyed by the negated edge type for inbound scans, mirroring how the
// property graph this is modeled on replicates each edge at both
// endpoints instead of maintaining a separate reverse index structure.
const (
	edgeVerForward uint8 = 1
	edgeVerReverse uint8 = 2
)

// spaceState holds everything the engine needs to serve one graph space:
// its VID width, its backing store, its schema versions and the small
// integer tag/edge-type IDs keylayout's fixed-width key fields need.
type spaceState struct {
	mu          sync.Mutex
	name        string
	vidLen      int
	partCount   int
	store       kv.Store
	schemas     *schema.Registry
	tagIDs      map[string]uint32
	tagNames    map[uint32]string
	edgeIDs     map[string]int32
	edgeNames   map[int32]string
	nextTagID   uint32
	nextEdgeID  int32
}

// Engine serves the internal RPC surface for every space a storaged
// process hosts, dispatching each request to the space's backing store.
type Engine struct {
	mu     sync.RWMutex
	spaces map[string]*spaceState
	log    *logrus.Logger
}

// NewEngine returns an Engine with no spaces registered. log receives one
// entry per request with the space, operation and row count touched; a
// nil log installs a logrus.Logger that discards output.
func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Engine{spaces: make(map[string]*spaceState), log: log}
}

// RegisterSpace makes space servable, backed by store and validated
// against schemas. Calling it twice for the same name replaces the prior
// registration, including its tag and edge-type ID assignments.
func (e *Engine) RegisterSpace(name string, vidLen, partCount int, store kv.Store, schemas *schema.Registry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spaces[name] = &spaceState{
		name:      name,
		vidLen:    vidLen,
		partCount: partCount,
		store:     store,
		schemas:   schemas,
		tagIDs:    make(map[string]uint32),
		tagNames:  make(map[uint32]string),
		edgeIDs:   make(map[string]int32),
		edgeNames: make(map[int32]string),
	}
}

func (e *Engine) space(name string) (*spaceState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.spaces[name]
	if !ok {
		return nil, fmt.Errorf("storageengine: space %q not registered", name)
	}
	return s, nil
}

// tagID assigns (or returns the already-assigned) small integer ID for a
// tag name, the way a meta service hands out IDs the first time a tag is
// used. IDs are per-process only: a real deployment would persist this
// mapping in the system-key space, left to cmd/metad's eventual config
// push rather than duplicated here.
func (s *spaceState) tagID(name string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tagIDs[name]; ok {
		return id
	}
	s.nextTagID++
	id := s.nextTagID
	s.tagIDs[name] = id
	s.tagNames[id] = name
	return id
}

func (s *spaceState) edgeTypeID(name string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.edgeIDs[name]; ok {
		return id
	}
	s.nextEdgeID++
	id := s.nextEdgeID
	s.edgeIDs[name] = id
	s.edgeNames[id] = name
	return id
}

func (s *spaceState) providerFor(name string) (schema.Provider, error) {
	p, _, ok := s.schemas.Latest(s.name, name)
	if !ok {
		return nil, fmt.Errorf("storageengine: no schema registered for %s/%s", s.name, name)
	}
	return p, nil
}

func (s *spaceState) partitionOf(vid []byte) uint32 {
	return uint32(router.PartitionForVID(vid, s.partCount))
}

// rowValues builds a positional value slice matching p's field order from
// a name-keyed property map, filling unset fields with their schema
// default or Null(NullUnknownProp) when no default is declared.
func rowValues(p schema.Provider, values map[string]interface{}) ([]value.Value, error) {
	out := make([]value.Value, p.NumFields())
	for i := range out {
		name, err := p.FieldName(i)
		if err != nil {
			return nil, err
		}
		raw, ok := values[name]
		if !ok {
			if def, ok := p.FieldDefault(i); ok {
				out[i] = valueFromAny(def)
				continue
			}
			out[i] = value.Null(value.NullUnknownProp)
			continue
		}
		out[i] = valueFromAny(raw)
	}
	return out, nil
}

func valueFromAny(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null(value.NullGeneric)
	case bool:
		return value.NewBool(v)
	case int:
		return value.NewInt(int64(v))
	case int64:
		return value.NewInt(v)
	case float64:
		return value.NewFloat(v)
	case string:
		return value.NewStr(v)
	default:
		return value.Null(value.NullBadType)
	}
}

// selectedProps filters p's fields down to the requested names in
// request order, the shape both GetNeighbors and GetProps projections
// need. An empty names list selects every field.
func selectedProps(p schema.Provider, names []string) []int {
	if len(names) == 0 {
		idx := make([]int, p.NumFields())
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := p.FieldIndex(n); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// AddVertices writes one row per (vertex, tag), overwriting any existing
// row unless IfNotExists is set and one is already present.
func (e *Engine) AddVertices(req *graphd.AddVerticesRequest) (*graphd.MutateResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	status := graphd.ResponseStatus{}
	seen := make(map[int]bool)
	for _, v := range req.Vertices {
		part := s.partitionOf(v.VID)
		for _, tag := range v.Tags {
			p, err := s.providerFor(tag.Name)
			if err != nil {
				status.Results = append(status.Results, graphd.PartitionResult{Partition: int(part), Code: graphd.ErrSpaceNotFound})
				continue
			}
			key := keylayout.VertexKey(part, v.VID, s.vidLen, s.tagID(tag.Name))
			if req.IfNotExists {
				if _, err := s.store.Get(key); err == nil {
					continue
				}
			}
			vals, err := rowValues(p, tag.Values)
			if err != nil {
				return nil, err
			}
			enc, err := codec.Encode(p, vals)
			if err != nil {
				return nil, err
			}
			if err := s.store.Put(key, enc); err != nil {
				return nil, err
			}
			if !seen[int(part)] {
				seen[int(part)] = true
				status.Results = append(status.Results, graphd.PartitionResult{Partition: int(part), Code: graphd.ErrSucceeded})
			}
		}
	}
	e.log.WithFields(logrus.Fields{"space": req.Space, "vertices": len(req.Vertices)}).Debug("storageengine: addVertices")
	return &graphd.MutateResponse{Status: status}, nil
}

// AddEdges writes both directions of every edge: the forward row at the
// source's partition and the reverse row (negated edge type) at the
// destination's partition, so inbound scans never need a cross-partition
// lookup.
func (e *Engine) AddEdges(req *graphd.AddEdgesRequest) (*graphd.MutateResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	status := graphd.ResponseStatus{}
	seen := make(map[int]bool)
	for _, edge := range req.Edges {
		p, err := s.providerFor(edge.Type)
		if err != nil {
			return nil, err
		}
		vals, err := rowValues(p, edge.Values)
		if err != nil {
			return nil, err
		}
		enc, err := codec.Encode(p, vals)
		if err != nil {
			return nil, err
		}
		edgeType := s.edgeTypeID(edge.Type)

		srcPart := s.partitionOf(edge.Src)
		fwdKey := keylayout.EdgeKey(srcPart, edge.Src, edgeType, edge.Rank, edge.Dst, s.vidLen, edgeVerForward)
		if req.IfNotExists {
			if _, err := s.store.Get(fwdKey); err == nil {
				continue
			}
		}
		if err := s.store.Put(fwdKey, enc); err != nil {
			return nil, err
		}

		dstPart := s.partitionOf(edge.Dst)
		revKey := keylayout.EdgeKey(dstPart, edge.Dst, -edgeType, edge.Rank, edge.Src, s.vidLen, edgeVerReverse)
		if err := s.store.Put(revKey, enc); err != nil {
			return nil, err
		}

		for _, part := range []uint32{srcPart, dstPart} {
			if !seen[int(part)] {
				seen[int(part)] = true
				status.Results = append(status.Results, graphd.PartitionResult{Partition: int(part), Code: graphd.ErrSucceeded})
			}
		}
	}
	e.log.WithFields(logrus.Fields{"space": req.Space, "edges": len(req.Edges)}).Debug("storageengine: addEdges")
	return &graphd.MutateResponse{Status: status}, nil
}

// GetProps resolves tag and edge properties for a fixed VID set, without
// traversal (spec §4.9 GetVertices/GetEdges).
func (e *Engine) GetProps(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	var colNames []string
	var rows [][]interface{}

	for _, vid := range req.VIDs {
		part := s.partitionOf(vid)
		if !partitionRequested(req.Partitions, int(part)) {
			continue
		}
		for _, vp := range req.VertexProps {
			p, err := s.providerFor(vp.Tag)
			if err != nil {
				continue
			}
			key := keylayout.VertexKey(part, vid, s.vidLen, s.tagID(vp.Tag))
			data, err := s.store.Get(key)
			if err != nil {
				continue
			}
			rd, err := codec.NewReader(p, data)
			if err != nil {
				continue
			}
			idx := selectedProps(p, vp.Props)
			names, vals := rowColumns(p, rd, idx, vp.Tag)
			if colNames == nil {
				colNames = append([]string{"id"}, names...)
			}
			rows = append(rows, append([]interface{}{string(vid)}, vals...))
		}
		for _, ep := range req.EdgeProps {
			rows = append(rows, e.getEdgeRows(s, vid, ep, &colNames)...)
		}
	}
	return &graphd.GetPropsResponse{ColNames: colNames, Rows: rows, Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Code: graphd.ErrSucceeded}}}}, nil
}

func (e *Engine) getEdgeRows(s *spaceState, vid []byte, ep graphd.EdgeProp, colNames *[]string) [][]interface{} {
	edgeType := s.edgeTypeID(ep.Type)
	p, err := s.providerFor(ep.Type)
	if err != nil {
		return nil
	}
	part := s.partitionOf(vid)
	var out [][]interface{}
	scanDir := func(typeID int32) {
		s.store.Scan(keyPrefixForEdgeScan(part, vid), func(k, data []byte) bool {
			fields, err := keylayout.DecodeEdgeKey(k, s.vidLen)
			if err != nil || fields.EdgeType != typeID {
				return true
			}
			rd, err := codec.NewReader(p, data)
			if err != nil {
				return true
			}
			idx := selectedProps(p, ep.Props)
			names, vals := rowColumns(p, rd, idx, ep.Type)
			if *colNames == nil {
				*colNames = append([]string{"id"}, names...)
			}
			out = append(out, append([]interface{}{string(vid)}, vals...))
			return true
		})
	}
	if ep.Dir >= 0 {
		scanDir(edgeType)
	}
	if ep.Dir <= 0 {
		scanDir(-edgeType)
	}
	return out
}

func keyPrefixForEdgeScan(part uint32, src []byte) []byte {
	out := make([]byte, 1+3+len(src))
	out[0] = byte(keylayout.KeyEdge)
	out[1] = byte(part)
	out[2] = byte(part >> 8)
	out[3] = byte(part >> 16)
	copy(out[4:], src)
	return out
}

func rowColumns(p schema.Provider, rd *codec.Reader, idx []int, prefix string) ([]string, []interface{}) {
	names := make([]string, len(idx))
	vals := make([]interface{}, len(idx))
	for j, i := range idx {
		n, _ := p.FieldName(i)
		names[j] = prefix + "." + n
		v := rd.Field(i)
		vals[j] = scalarOf(v)
	}
	return names, vals
}

func scalarOf(v value.Value) interface{} {
	switch v.Tag {
	case value.TagInt:
		return v.Int
	case value.TagFloat:
		return v.Float
	case value.TagBool:
		return v.Bool
	case value.TagStr:
		return v.Str
	default:
		return nil
	}
}

// GetNeighbors walks one hop out from every requested VID along the
// requested edge types and direction, emitting "_src"/"_dst" as the
// first two columns (the convention internal/plan's Traverse and
// ShortestPath nodes rely on) followed by any requested vertex/edge
// property columns.
func (e *Engine) GetNeighbors(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	colNames := []string{"_src", "_dst"}
	var rows [][]interface{}

	for _, vid := range req.VIDs {
		part := s.partitionOf(vid)
		if !partitionRequested(req.Partitions, int(part)) {
			continue
		}
		neighbors := s.scanNeighbors(vid, requestedEdgeTypeIDs(s, req.EdgeProps))
		for _, nb := range neighbors {
			row := []interface{}{string(vid), string(nb.dst)}
			for _, vp := range req.VertexProps {
				row = append(row, e.vertexPropValues(s, nb.dst, vp, &colNames)...)
			}
			for _, ep := range req.EdgeProps {
				row = append(row, edgePropValues(s, nb, ep, &colNames)...)
			}
			rows = append(rows, row)
			if req.Limit > 0 && int64(len(rows)) >= req.Limit {
				break
			}
		}
	}
	e.log.WithFields(logrus.Fields{"space": req.Space, "seeds": len(req.VIDs), "rows": len(rows)}).Debug("storageengine: getNeighbors")
	return &graphd.GetNeighborsResponse{ColNames: colNames, Rows: rows, Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Code: graphd.ErrSucceeded}}}}, nil
}

func (e *Engine) vertexPropValues(s *spaceState, vid []byte, vp graphd.VertexProp, colNames *[]string) []interface{} {
	p, err := s.providerFor(vp.Tag)
	if err != nil {
		return nil
	}
	key := keylayout.VertexKey(s.partitionOf(vid), vid, s.vidLen, s.tagID(vp.Tag))
	data, err := s.store.Get(key)
	if err != nil {
		return nil
	}
	rd, err := codec.NewReader(p, data)
	if err != nil {
		return nil
	}
	idx := selectedProps(p, vp.Props)
	names, vals := rowColumns(p, rd, idx, vp.Tag)
	if len(*colNames) == 2 {
		*colNames = append(*colNames, names...)
	}
	return vals
}

func edgePropValues(s *spaceState, nb neighborEdge, ep graphd.EdgeProp, colNames *[]string) []interface{} {
	p, err := s.providerFor(ep.Type)
	if err != nil {
		return nil
	}
	idx := selectedProps(p, ep.Props)
	if id := s.edgeTypeID(ep.Type); nb.typ != id && nb.typ != -id {
		names := make([]string, len(idx))
		vals := make([]interface{}, len(idx))
		for j, i := range idx {
			n, _ := p.FieldName(i)
			names[j] = ep.Type + "." + n
		}
		if len(*colNames) <= 2 {
			*colNames = append(*colNames, names...)
		}
		return vals
	}
	rd, err := codec.NewReader(p, nb.data)
	if err != nil {
		return nil
	}
	names, vals := rowColumns(p, rd, idx, ep.Type)
	if len(*colNames) <= 2 {
		*colNames = append(*colNames, names...)
	}
	return vals
}

// requestedEdgeTypeIDs resolves the signed edge type IDs a GetNeighbors
// call's EdgeProps names, so scanNeighbors only walks matching rows: the
// edge type for Dir >= 0 (outbound) and its negation for Dir <= 0 (the
// reverse rows AddEdges writes, i.e. inbound). An empty EdgeProps list
// leaves the scan unfiltered (every forward edge).
func requestedEdgeTypeIDs(s *spaceState, props []graphd.EdgeProp) []int32 {
	if len(props) == 0 {
		return nil
	}
	out := make([]int32, 0, len(props))
	for _, ep := range props {
		id := s.edgeTypeID(ep.Type)
		if ep.Dir >= 0 {
			out = append(out, id)
		}
		if ep.Dir <= 0 {
			out = append(out, -id)
		}
	}
	return out
}

type neighborEdge struct {
	dst  []byte
	data []byte
	typ  int32
}

// scanNeighbors returns the edges stored under vid whose signed type is in
// edgeTypes (a negative type selects reverse rows, i.e. inbound edges);
// nil/empty scans all forward edges present. Each neighbor's dst has the
// key layout's \x00 padding trimmed.
func (s *spaceState) scanNeighbors(vid []byte, edgeTypes []int32) []neighborEdge {
	part := s.partitionOf(vid)
	prefix := keyPrefixForEdgeScan(part, vid)
	allowed := make(map[int32]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		allowed[t] = true
	}
	var out []neighborEdge
	s.store.Scan(prefix, func(k, data []byte) bool {
		fields, err := keylayout.DecodeEdgeKey(k, s.vidLen)
		if err != nil {
			return true
		}
		if len(allowed) == 0 && fields.EdgeVer != edgeVerForward {
			return true
		}
		if len(allowed) > 0 && !allowed[fields.EdgeType] {
			return true
		}
		out = append(out, neighborEdge{dst: bytes.TrimRight(fields.Dst, "\x00"), data: data, typ: fields.EdgeType})
		return true
	})
	return out
}

func partitionRequested(partitions []int, p int) bool {
	if len(partitions) == 0 {
		return true
	}
	for _, want := range partitions {
		if want == p {
			return true
		}
	}
	return false
}

// UpdateVertex conditionally mutates one vertex's tag properties. When
// FilterBin does not decode or does not evaluate to true, nothing is
// written and the partition result is ErrSucceeded; when no row exists and
// InsertIfNone is unset, nothing is written and the partition result is
// ErrKeyNotFound. Neither case returns a Go error.
func (e *Engine) UpdateVertex(req *graphd.UpdateVertexRequest) (*graphd.MutateResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	p, err := s.providerFor(req.Tag)
	if err != nil {
		return nil, err
	}
	part := s.partitionOf(req.VID)
	key := keylayout.VertexKey(part, req.VID, s.vidLen, s.tagID(req.Tag))

	current := make(map[string]value.Value, p.NumFields())
	data, err := s.store.Get(key)
	exists := err == nil
	if exists {
		rd, rerr := codec.NewReader(p, data)
		if rerr == nil {
			for i := 0; i < p.NumFields(); i++ {
				name, _ := p.FieldName(i)
				current[name] = rd.Field(i)
			}
		}
	} else if !req.InsertIfNone {
		return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(part), Code: graphd.ErrKeyNotFound}}}}, nil
	}

	if !evalFilter(req.FilterBin, current) {
		return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(part), Code: graphd.ErrSucceeded}}}}, nil
	}

	applyStatements(p, current, req.Statements)
	vals := make([]value.Value, p.NumFields())
	for i := 0; i < p.NumFields(); i++ {
		name, _ := p.FieldName(i)
		if v, ok := current[name]; ok {
			vals[i] = v
		} else {
			vals[i] = value.Null(value.NullUnknownProp)
		}
	}
	enc, err := codec.Encode(p, vals)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(key, enc); err != nil {
		return nil, err
	}
	return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(part), Code: graphd.ErrSucceeded}}}}, nil
}

// UpdateEdge is UpdateVertex's edge counterpart, updating both the
// forward and reverse rows so reads from either endpoint stay consistent.
func (e *Engine) UpdateEdge(req *graphd.UpdateEdgeRequest) (*graphd.MutateResponse, error) {
	s, err := e.space(req.Space)
	if err != nil {
		return nil, err
	}
	p, err := s.providerFor(req.EdgeType)
	if err != nil {
		return nil, err
	}
	edgeType := s.edgeTypeID(req.EdgeType)
	srcPart := s.partitionOf(req.Src)
	fwdKey := keylayout.EdgeKey(srcPart, req.Src, edgeType, req.Rank, req.Dst, s.vidLen, edgeVerForward)

	current := make(map[string]value.Value, p.NumFields())
	data, err := s.store.Get(fwdKey)
	exists := err == nil
	if exists {
		rd, rerr := codec.NewReader(p, data)
		if rerr == nil {
			for i := 0; i < p.NumFields(); i++ {
				name, _ := p.FieldName(i)
				current[name] = rd.Field(i)
			}
		}
	} else if !req.InsertIfNone {
		return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(srcPart), Code: graphd.ErrKeyNotFound}}}}, nil
	}

	if !evalFilter(req.FilterBin, current) {
		return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(srcPart), Code: graphd.ErrSucceeded}}}}, nil
	}

	applyStatements(p, current, req.Statements)
	vals := make([]value.Value, p.NumFields())
	for i := 0; i < p.NumFields(); i++ {
		name, _ := p.FieldName(i)
		if v, ok := current[name]; ok {
			vals[i] = v
		} else {
			vals[i] = value.Null(value.NullUnknownProp)
		}
	}
	enc, err := codec.Encode(p, vals)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(fwdKey, enc); err != nil {
		return nil, err
	}
	dstPart := s.partitionOf(req.Dst)
	revKey := keylayout.EdgeKey(dstPart, req.Dst, -edgeType, req.Rank, req.Src, s.vidLen, edgeVerReverse)
	if err := s.store.Put(revKey, enc); err != nil {
		return nil, err
	}
	return &graphd.MutateResponse{Status: graphd.ResponseStatus{Results: []graphd.PartitionResult{{Partition: int(srcPart), Code: graphd.ErrSucceeded}}}}, nil
}

// evalFilter decodes and evaluates an expr.Encode-serialized predicate
// against a row's current values. An empty FilterBin always passes;
// a malformed one fails closed (the update is skipped), matching §7's
// rule that structural errors never silently corrupt data.
func evalFilter(filterBin []byte, current map[string]value.Value) bool {
	if len(filterBin) == 0 {
		return true
	}
	e, err := expr.Decode(filterBin)
	if err != nil {
		return false
	}
	v := e.Eval(mapCtx(current))
	return v.Tag == value.TagBool && v.Bool
}

// mapCtx wraps a field-name-keyed row as an expr.Context so a
// MutateStatement's expression (written as a plain InputProp reference
// to the field it reads) can evaluate against the row being updated.
func mapCtx(current map[string]value.Value) *expr.MapContext {
	names := make([]string, 0, len(current))
	vals := make([]value.Value, 0, len(current))
	for k, v := range current {
		names = append(names, k)
		vals = append(vals, v)
	}
	return &expr.MapContext{ColNames: names, Row: vals}
}

// applyStatements evaluates each MutateStatement's expression against
// current and writes the result back under Field, so later statements in
// the same request observe earlier ones' results (spec §4.9 UpdateVertex:
// "SET a = a + 1, b = a" sees the updated a).
func applyStatements(p schema.Provider, current map[string]value.Value, stmts []graphd.MutateStatement) {
	for _, st := range stmts {
		e, err := expr.Decode(st.ExprBin)
		if err != nil {
			continue
		}
		current[st.Field] = e.Eval(mapCtx(current))
	}
}
