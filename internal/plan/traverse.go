package plan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/fanout"
	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/value"
)

// TraverseNode performs a variable-length traversal from a seed VID set,
// materializing one Path value per discovered walk within
// [MinStep, MaxStep] (spec §4.9 Traverse). It builds its adjacency
// incrementally, one GetNeighbors round-trip per BFS layer, rather than
// precomputing a whole-graph adjacency list.
type TraverseNode struct {
	Output  string
	SrcVIDs [][]byte
	Input   Node

	EdgeTypes     []int32
	Direction     Direction
	VertexProps   []graphd.VertexProp
	EdgeProps     []graphd.EdgeProp
	MinStep       int
	MaxStep       int
	StepFilter    *expr.Expr
	TrackPrevPath bool
}

func (n *TraverseNode) seeds(ctx context.Context, env *Env) ([][]byte, error) {
	if n.Input == nil {
		return n.SrcVIDs, nil
	}
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	var vids [][]byte
	for _, row := range in.Rows {
		if len(row.Cols) > 0 && row.Cols[0].Tag == value.TagStr {
			vids = append(vids, []byte(row.Cols[0].Str))
		}
	}
	return vids, nil
}

func (n *TraverseNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	space := env.Space()
	seeds, err := n.seeds(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 || n.MaxStep <= 0 {
		ds := &value.DataSet{ColNames: []string{"path"}}
		env.Bind(n.Output, ds)
		return ds, nil
	}

	paths := make(map[string]*value.Path, len(seeds))
	visited := make(map[string]bool, len(seeds))
	frontier := make([][]byte, 0, len(seeds))
	for _, vid := range seeds {
		key := string(vid)
		paths[key] = &value.Path{Src: value.Vertex{VID: append([]byte(nil), vid...)}}
		visited[key] = true
		frontier = append(frontier, vid)
	}

	var results []*value.Path
	for step := 1; step <= n.MaxStep && len(frontier) > 0; step++ {
		req := &graphd.GetNeighborsRequest{
			Space:       space,
			VIDs:        frontier,
			VertexProps: n.VertexProps,
			EdgeProps:   n.EdgeProps,
			Partitions:  partitionsForVIDs(env, space, frontier),
		}
		res, err := fanout.GetNeighbors(ctx, env.Router, env.NeighborsFac, space, req, env.Policy)
		if err != nil {
			return nil, err
		}
		ds := fromRows(res.ColNames, res.Rows)
		ds = filterDataSet(ds, n.StepFilter)

		srcIdx, dstIdx := colIndex(ds.ColNames, "_src"), colIndex(ds.ColNames, "_dst")
		var next [][]byte
		for _, row := range ds.Rows {
			if srcIdx < 0 || dstIdx < 0 || srcIdx >= len(row.Cols) || dstIdx >= len(row.Cols) {
				continue
			}
			srcVID := []byte(row.Cols[srcIdx].Str)
			dstVID := []byte(row.Cols[dstIdx].Str)
			srcPath, ok := paths[string(srcVID)]
			if !ok {
				continue
			}
			newPath := extendPath(srcPath, dstVID, n.TrackPrevPath)
			if step >= n.MinStep {
				results = append(results, newPath)
			}
			key := string(dstVID)
			if !visited[key] {
				visited[key] = true
				paths[key] = newPath
				next = append(next, dstVID)
			}
		}
		frontier = next
	}

	out := &value.DataSet{ColNames: []string{"path"}, Rows: make([]value.Row, len(results))}
	for i, p := range results {
		out.Rows[i] = value.Row{Cols: []value.Value{value.NewPath(*p)}}
	}
	env.Bind(n.Output, out)
	return out, nil
}

func colIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// extendPath appends one step to src's path. When trackPrev is false,
// only the destination vertex identity is kept, the cheaper mode Traverse
// uses when the caller only needs reachability, not the full walk.
func extendPath(src *value.Path, dst []byte, trackPrev bool) *value.Path {
	p := &value.Path{Src: src.Src}
	if trackPrev {
		p.Steps = append(append([]value.Step(nil), src.Steps...), value.Step{Dst: value.Vertex{VID: dst}})
	} else {
		p.Steps = []value.Step{{Dst: value.Vertex{VID: dst}}}
	}
	return p
}

// ShortestPathNode finds the shortest walk between VID pairs via
// bidirectional BFS (spec §4.9 ShortestPath): expanding from both ends
// halves the search depth versus a single-direction BFS. The returned
// path carries VIDs only: no GetProps call is made, so the vertices on it
// have no tags.
type ShortestPathNode struct {
	Output      string
	Pairs       [][2][]byte // (src, dst) VID pairs
	EdgeTypes   []int32
	MaxSteps    int
	NumThreads  int // bounds concurrent pair searches; 0 defaults to 4
}

func (n *ShortestPathNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	space := env.Space()
	threads := n.NumThreads
	if threads <= 0 {
		threads = 4
	}

	out := &value.DataSet{ColNames: []string{"path"}}
	rows := make([]*value.Row, len(n.Pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, pair := range n.Pairs {
		i, pair := i, pair
		g.Go(func() error {
			p, err := n.shortestPairPath(gctx, env, space, pair[0], pair[1])
			if err != nil {
				return err
			}
			if p != nil {
				rows[i] = &value.Row{Cols: []value.Value{value.NewPath(*p)}}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r != nil {
			out.Rows = append(out.Rows, *r)
		}
	}
	env.Bind(n.Output, out)
	return out, nil
}

type bfsFrontier struct {
	parent map[string]string // vid -> parent vid
	order  []string
}

func (n *ShortestPathNode) shortestPairPath(ctx context.Context, env *Env, space string, src, dst []byte) (*value.Path, error) {
	if string(src) == string(dst) {
		return &value.Path{Src: value.Vertex{VID: src}}, nil
	}

	fwd := &bfsFrontier{parent: map[string]string{string(src): ""}, order: []string{string(src)}}
	bwd := &bfsFrontier{parent: map[string]string{string(dst): ""}, order: []string{string(dst)}}

	for step := 0; step < n.MaxSteps; step++ {
		var err error
		fwd, err = expandFrontier(ctx, env, space, fwd)
		if err != nil {
			return nil, err
		}
		if meet := intersect(fwd, bwd); meet != "" {
			return buildMeetingPath(fwd, bwd, meet), nil
		}
		bwd, err = expandFrontier(ctx, env, space, bwd)
		if err != nil {
			return nil, err
		}
		if meet := intersect(fwd, bwd); meet != "" {
			return buildMeetingPath(fwd, bwd, meet), nil
		}
	}
	return nil, nil
}

func expandFrontier(ctx context.Context, env *Env, space string, f *bfsFrontier) (*bfsFrontier, error) {
	if len(f.order) == 0 {
		return f, nil
	}
	vids := make([][]byte, len(f.order))
	for i, s := range f.order {
		vids[i] = []byte(s)
	}
	req := &graphd.GetNeighborsRequest{
		Space:      space,
		VIDs:       vids,
		Partitions: partitionsForVIDs(env, space, vids),
	}
	res, err := fanout.GetNeighbors(ctx, env.Router, env.NeighborsFac, space, req, env.Policy)
	if err != nil {
		return nil, err
	}
	ds := fromRows(res.ColNames, res.Rows)
	srcIdx, dstIdx := colIndex(ds.ColNames, "_src"), colIndex(ds.ColNames, "_dst")

	next := &bfsFrontier{parent: make(map[string]string)}
	for k, v := range f.parent {
		next.parent[k] = v
	}
	for _, row := range ds.Rows {
		if srcIdx < 0 || dstIdx < 0 {
			continue
		}
		s := row.Cols[srcIdx].Str
		d := row.Cols[dstIdx].Str
		if _, seen := next.parent[d]; seen {
			continue
		}
		next.parent[d] = s
		next.order = append(next.order, d)
	}
	return next, nil
}

func intersect(fwd, bwd *bfsFrontier) string {
	for v := range fwd.parent {
		if _, ok := bwd.parent[v]; ok {
			return v
		}
	}
	return ""
}

func buildMeetingPath(fwd, bwd *bfsFrontier, meet string) *value.Path {
	var fwdChain []string
	for v := meet; v != ""; v = fwd.parent[v] {
		fwdChain = append([]string{v}, fwdChain...)
		if fwd.parent[v] == "" {
			break
		}
	}
	var bwdChain []string
	for v := bwd.parent[meet]; v != ""; v = bwd.parent[v] {
		bwdChain = append(bwdChain, v)
		if bwd.parent[v] == "" {
			break
		}
	}

	full := append(fwdChain, bwdChain...)
	if len(full) == 0 {
		return &value.Path{}
	}
	p := &value.Path{Src: value.Vertex{VID: []byte(full[0])}}
	for _, v := range full[1:] {
		p.Steps = append(p.Steps, value.Step{Dst: value.Vertex{VID: []byte(v)}})
	}
	return p
}

// DataCollectKind discriminates the coalescing shape DataCollectNode
// performs (spec §4.9 DataCollect).
type DataCollectKind uint8

const (
	CollectSubgraph DataCollectKind = iota
	CollectRowBasedMove
	CollectMToN
	CollectBFSShortest
	CollectAllPaths
	CollectMultiplePairShortest
)

// DataCollectNode gathers every Inputs node's output into one dataset,
// the final step of a multi-branch plan (spec §4.9: "final coalescer").
type DataCollectNode struct {
	Inputs   []Node
	Output   string
	Kind     DataCollectKind
	Distinct bool
}

func (n *DataCollectNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	results := make([]*value.DataSet, len(n.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, input := range n.Inputs {
		i, input := i, input
		g.Go(func() error {
			ds, err := input.Execute(gctx, env)
			if err != nil {
				return fmt.Errorf("plan: data collect input %d: %w", i, err)
			}
			results[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &value.DataSet{}
	if len(results) > 0 {
		out.ColNames = results[0].ColNames
	}
	for _, r := range results {
		out.Rows = append(out.Rows, r.Rows...)
	}
	if n.Distinct {
		out = dedupDataSet(out)
	}
	env.Bind(n.Output, out)
	return out, nil
}

// SwitchSpaceNode redirects every subsequent storage operation to a
// different space (spec §4.9 SwitchSpace). The switch applies before
// Then runs, matching the original's semantics of the following plan
// fragment executing against the new space.
type SwitchSpaceNode struct {
	SpaceName string
	Then      Node
	Output    string
}

func (n *SwitchSpaceNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	env.SetSpace(n.SpaceName)
	if n.Then == nil {
		ds := &value.DataSet{}
		env.Bind(n.Output, ds)
		return ds, nil
	}
	ds, err := n.Then.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	env.Bind(n.Output, ds)
	return ds, nil
}
