package graphd

// VertexProp names one tag+property pair a request wants returned or
// written, the wire counterpart of an expr KTagProp leaf.
type VertexProp struct {
	Tag   string   `json:"tag"`
	Props []string `json:"props"`
}

// EdgeProp names one edge type's properties a request wants, with Dir
// distinguishing outbound/inbound traversal direction for GetNeighbors.
type EdgeProp struct {
	Type  string   `json:"type"`
	Props []string `json:"props"`
	Dir   int8     `json:"dir"` // +1 outbound, -1 inbound, 0 both
}

// GetNeighborsRequest asks a storage host to traverse from a set of
// source VIDs one hop along the named edge types, returning both vertex
// and edge properties in a single pass (spec §4.9 GetNeighbors node).
type GetNeighborsRequest struct {
	Space       string       `json:"space"`
	VertexProps []VertexProp `json:"vertex_props"`
	EdgeProps   []EdgeProp   `json:"edge_props"`
	VIDs        [][]byte     `json:"vids"`
	Partitions  []int        `json:"partitions"`
	Limit       int64        `json:"limit,omitempty"`
}

// GetNeighborsResponse returns one flattened dataset per requested
// partition's worth of results, plus the shared response envelope.
//
// Reserved columns: when the request originates from a Traverse or
// ShortestPath plan node, storaged always emits "_src" and "_dst" as
// ColNames[0] and ColNames[1], ahead of any requested VertexProps/
// EdgeProps columns, so the traversal driver can re-associate a neighbor
// row with the frontier vertex it came from without a separate lookup.
type GetNeighborsResponse struct {
	ColNames []string        `json:"col_names"`
	Rows     [][]interface{} `json:"rows"`
	Status   ResponseStatus  `json:"status"`
}

// GetPropsRequest asks for named tag or edge properties of a fixed set of
// vertices or edges, without traversal (spec §4.9 GetVertices/GetEdges).
type GetPropsRequest struct {
	Space       string       `json:"space"`
	VertexProps []VertexProp `json:"vertex_props,omitempty"`
	EdgeProps   []EdgeProp   `json:"edge_props,omitempty"`
	VIDs        [][]byte     `json:"vids,omitempty"`
	Partitions  []int        `json:"partitions"`
}

// GetPropsResponse mirrors GetNeighborsResponse's shape for the simpler
// props-only query.
type GetPropsResponse struct {
	ColNames []string        `json:"col_names"`
	Rows     [][]interface{} `json:"rows"`
	Status   ResponseStatus  `json:"status"`
}

// NewVertex is one vertex insert: an ID plus its tag property bundles.
type NewVertex struct {
	VID  []byte                   `json:"vid"`
	Tags []NewTag                 `json:"tags"`
}

// NewTag is one tag's property values for a NewVertex/update, keyed by
// property name.
type NewTag struct {
	Name   string                 `json:"name"`
	Values map[string]interface{} `json:"values"`
}

// AddVerticesRequest is a batched vertex-insert RPC.
type AddVerticesRequest struct {
	Space       string      `json:"space"`
	Vertices    []NewVertex `json:"vertices"`
	IfNotExists bool        `json:"if_not_exists"`
}

// NewEdge is one edge insert: endpoints, rank and property values.
type NewEdge struct {
	Values map[string]interface{} `json:"values"`
	Type   string                 `json:"type"`
	Src    []byte                 `json:"src"`
	Dst    []byte                 `json:"dst"`
	Rank   int64                  `json:"rank"`
}

// AddEdgesRequest is a batched edge-insert RPC.
type AddEdgesRequest struct {
	Space       string    `json:"space"`
	Edges       []NewEdge `json:"edges"`
	IfNotExists bool      `json:"if_not_exists"`
}

// MutateStatement is one SET clause of an UPDATE, e.g. `age = age + 1`,
// carried as the target field's name plus the expr.Encode bytes of the
// right-hand side.
type MutateStatement struct {
	Field   string `json:"field"`
	ExprBin []byte `json:"expr_bin"`
}

// UpdateVertexRequest conditionally mutates one vertex's tag properties.
// FilterBin, when non-empty, is an expr.Encode-serialized predicate that
// must hold for the update to apply (spec §4.9 UpdateVertex).
type UpdateVertexRequest struct {
	Space         string            `json:"space"`
	Tag           string            `json:"tag"`
	VID           []byte            `json:"vid"`
	FilterBin     []byte            `json:"filter_bin,omitempty"`
	Statements    []MutateStatement `json:"statements"`
	InsertIfNone  bool              `json:"insert_if_none"`
}

// UpdateEdgeRequest is UpdateVertexRequest's edge counterpart.
type UpdateEdgeRequest struct {
	Space        string            `json:"space"`
	EdgeType     string            `json:"edge_type"`
	Src          []byte            `json:"src"`
	Dst          []byte            `json:"dst"`
	Rank         int64             `json:"rank"`
	FilterBin    []byte            `json:"filter_bin,omitempty"`
	Statements   []MutateStatement `json:"statements"`
	InsertIfNone bool              `json:"insert_if_none"`
}

// MutateResponse is the shared response envelope for all four mutation
// RPCs; no payload beyond status is returned.
type MutateResponse struct {
	Status ResponseStatus `json:"status"`
}
