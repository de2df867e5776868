package plan

import (
	"context"

	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/fanout"
	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/value"
)

// GetNeighborsNode traverses one hop from a seed VID set (spec §4.9). Its
// seed VIDs come either from a literal list or from the first column of
// an upstream node's output (Input), never both.
type GetNeighborsNode struct {
	Output string

	SrcVIDs [][]byte
	Input   Node

	EdgeTypes       []int32
	Direction       Direction
	VertexProps     []graphd.VertexProp
	EdgeProps       []graphd.EdgeProp
	Dedup           bool
	Limit           int64
	OrderBy         []OrderFactor
	Filter          *expr.Expr
	FirstStepFilter *expr.Expr
}

func (n *GetNeighborsNode) resolveVIDs(ctx context.Context, env *Env) ([][]byte, error) {
	if n.Input == nil {
		return n.filterSeeds(n.SrcVIDs), nil
	}
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	vids := make([][]byte, 0, len(in.Rows))
	for _, row := range in.Rows {
		if len(row.Cols) == 0 {
			continue
		}
		if row.Cols[0].Tag == value.TagStr {
			vids = append(vids, []byte(row.Cols[0].Str))
		} else if row.Cols[0].Tag == value.TagVertex {
			vids = append(vids, row.Cols[0].Vertex.VID)
		}
	}
	return n.filterSeeds(vids), nil
}

// filterSeeds applies FirstStepFilter to the seed VID set, binding each
// candidate as a single "id" column so the filter expression can
// reference it via InputProp("id").
func (n *GetNeighborsNode) filterSeeds(vids [][]byte) [][]byte {
	if n.FirstStepFilter == nil {
		return vids
	}
	out := make([][]byte, 0, len(vids))
	for _, vid := range vids {
		ctx := &expr.MapContext{ColNames: []string{"id"}, Row: []value.Value{value.NewStr(string(vid))}}
		v := n.FirstStepFilter.Eval(ctx)
		if v.Tag == value.TagBool && v.Bool {
			out = append(out, vid)
		}
	}
	return out
}

func (n *GetNeighborsNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	space := env.Space()
	vids, err := n.resolveVIDs(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(vids) == 0 {
		ds := &value.DataSet{}
		env.Bind(n.Output, ds)
		return ds, nil
	}

	req := &graphd.GetNeighborsRequest{
		Space:       space,
		VIDs:        vids,
		VertexProps: n.VertexProps,
		EdgeProps:   n.EdgeProps,
		Partitions:  partitionsForVIDs(env, space, vids),
		Limit:       n.Limit,
	}
	res, err := fanout.GetNeighbors(ctx, env.Router, env.NeighborsFac, space, req, env.Policy)
	if err != nil {
		return nil, err
	}

	ds := fromRows(res.ColNames, res.Rows)
	ds = filterDataSet(ds, n.Filter)
	if n.Dedup {
		ds = dedupDataSet(ds)
	}
	if len(n.OrderBy) > 0 {
		ds = sortDataSet(ds, n.OrderBy)
	}
	if n.Limit > 0 {
		ds = limitDataSet(ds, 0, n.Limit)
	}
	env.Bind(n.Output, ds)
	return ds, nil
}

// GetVerticesNode fetches tag properties for a fixed vertex set without
// traversing (spec §4.9 GetVertices).
type GetVerticesNode struct {
	Output      string
	VIDs        [][]byte
	Input       Node
	VertexProps []graphd.VertexProp
	Exprs       []ProjectColumn
}

func (n *GetVerticesNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	space := env.Space()
	vids := n.VIDs
	if n.Input != nil {
		in, err := n.Input.Execute(ctx, env)
		if err != nil {
			return nil, err
		}
		vids = nil
		for _, row := range in.Rows {
			if len(row.Cols) > 0 && row.Cols[0].Tag == value.TagStr {
				vids = append(vids, []byte(row.Cols[0].Str))
			}
		}
	}
	if len(vids) == 0 {
		ds := &value.DataSet{}
		env.Bind(n.Output, ds)
		return ds, nil
	}

	req := &graphd.GetPropsRequest{
		Space:       space,
		VIDs:        vids,
		VertexProps: n.VertexProps,
		Partitions:  partitionsForVIDs(env, space, vids),
	}
	res, err := fanout.GetProps(ctx, env.Router, env.PropsFac, space, req, env.Policy)
	if err != nil {
		return nil, err
	}
	ds := fromRows(res.ColNames, res.Rows)
	if len(n.Exprs) > 0 {
		ds = projectDataSet(ds, n.Exprs)
	}
	env.Bind(n.Output, ds)
	return ds, nil
}

// GetEdgesNode fetches edge properties for a fixed edge set identified
// by their source VIDs (spec §4.9 GetEdges; edge endpoints beyond the
// source are carried in EdgeProps' Dir-qualified type list, matching
// getProps' "vertices" parameter doing double duty for edge lookups).
type GetEdgesNode struct {
	Output    string
	SrcVIDs   [][]byte
	Input     Node
	EdgeProps []graphd.EdgeProp
	Filter    *expr.Expr
	Dedup     bool
	OrderBy   []OrderFactor
	Limit     int64
}

func (n *GetEdgesNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	space := env.Space()
	vids := n.SrcVIDs
	if n.Input != nil {
		in, err := n.Input.Execute(ctx, env)
		if err != nil {
			return nil, err
		}
		vids = nil
		for _, row := range in.Rows {
			if len(row.Cols) > 0 && row.Cols[0].Tag == value.TagStr {
				vids = append(vids, []byte(row.Cols[0].Str))
			}
		}
	}
	if len(vids) == 0 {
		ds := &value.DataSet{}
		env.Bind(n.Output, ds)
		return ds, nil
	}

	req := &graphd.GetPropsRequest{
		Space:      space,
		VIDs:       vids,
		EdgeProps:  n.EdgeProps,
		Partitions: partitionsForVIDs(env, space, vids),
	}
	res, err := fanout.GetProps(ctx, env.Router, env.PropsFac, space, req, env.Policy)
	if err != nil {
		return nil, err
	}
	ds := fromRows(res.ColNames, res.Rows)
	ds = filterDataSet(ds, n.Filter)
	if n.Dedup {
		ds = dedupDataSet(ds)
	}
	if len(n.OrderBy) > 0 {
		ds = sortDataSet(ds, n.OrderBy)
	}
	if n.Limit > 0 {
		ds = limitDataSet(ds, 0, n.Limit)
	}
	env.Bind(n.Output, ds)
	return ds, nil
}
