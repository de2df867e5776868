package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/fanout"
	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/router"
	"github.com/dreamware/nebulet/internal/value"
)

type fakeNeighborsClient struct {
	handler func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error)
}

func (f *fakeNeighborsClient) GetNeighbors(ctx context.Context, req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
	return f.handler(req)
}

type fakePropsClient struct {
	handler func(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error)
}

func (f *fakePropsClient) GetProps(ctx context.Context, req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
	return f.handler(req)
}

func okStatus(parts []int) graphd.ResponseStatus {
	st := graphd.ResponseStatus{}
	for _, p := range parts {
		st.Results = append(st.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrSucceeded})
	}
	return st
}

func setupEnv(t *testing.T, space string, partCount int, neighborsFn func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error), propsFn func(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error)) *Env {
	t.Helper()
	reg := router.New(0)
	require.NoError(t, reg.DeclareSpace(space, partCount))
	for p := 1; p <= partCount; p++ {
		require.NoError(t, reg.Assign(space, p, "host-a", nil))
	}
	neighbors := func(host string) fanout.NeighborsClient {
		return &fakeNeighborsClient{handler: neighborsFn}
	}
	props := func(host string) fanout.PropsClient {
		return &fakePropsClient{handler: propsFn}
	}
	return NewEnv(space, reg, neighbors, props, fanout.Policy{}, nil)
}

func TestGetNeighborsNodeResolvesLiteralSeeds(t *testing.T) {
	space := "s1"
	env := setupEnv(t, space, 4,
		func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
			resp := &graphd.GetNeighborsResponse{ColNames: []string{"_src", "_dst"}, Status: okStatus(req.Partitions)}
			for _, vid := range req.VIDs {
				resp.Rows = append(resp.Rows, []interface{}{string(vid), "v2"})
			}
			return resp, nil
		}, nil)

	node := &GetNeighborsNode{Output: "n1", SrcVIDs: [][]byte{[]byte("v1")}}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "v1", ds.Rows[0].Cols[0].Str)

	bound, ok := env.Get("n1")
	require.True(t, ok)
	assert.Same(t, ds, bound)
}

func TestGetNeighborsNodeEmptySeedsShortCircuits(t *testing.T) {
	env := setupEnv(t, "s1", 4, func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
		t.Fatal("should not dispatch with no seeds")
		return nil, nil
	}, nil)
	node := &GetNeighborsNode{Output: "n1"}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, ds.Rows)
}

func TestGetNeighborsNodeFirstStepFilter(t *testing.T) {
	space := "s1"
	env := setupEnv(t, space, 4,
		func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
			resp := &graphd.GetNeighborsResponse{ColNames: []string{"_src"}, Status: okStatus(req.Partitions)}
			for _, vid := range req.VIDs {
				resp.Rows = append(resp.Rows, []interface{}{string(vid)})
			}
			return resp, nil
		}, nil)

	cond := expr.NewBinary(expr.KEq, expr.NewInputProp("id"), expr.NewConstant(value.NewStr("v2")))
	node := &GetNeighborsNode{
		Output:          "n1",
		SrcVIDs:         [][]byte{[]byte("v1"), []byte("v2")},
		FirstStepFilter: cond,
	}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "v2", ds.Rows[0].Cols[0].Str)
}

func TestGetVerticesNodeProjectsColumns(t *testing.T) {
	space := "s1"
	env := setupEnv(t, space, 4, nil,
		func(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
			resp := &graphd.GetPropsResponse{ColNames: []string{"name"}, Status: okStatus(req.Partitions)}
			for range req.VIDs {
				resp.Rows = append(resp.Rows, []interface{}{"alice"})
			}
			return resp, nil
		})

	node := &GetVerticesNode{
		Output: "v1",
		VIDs:   [][]byte{[]byte("v1")},
		Exprs:  []ProjectColumn{{Name: "upper_name", Expr: expr.NewInputProp("name")}},
	}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, []string{"upper_name"}, ds.ColNames)
	assert.Equal(t, "alice", ds.Rows[0].Cols[0].Str)
}

func TestFilterNodeKeepsMatchingRows(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	src := &literalNode{ds: &value.DataSet{
		ColNames: []string{"age"},
		Rows: []value.Row{
			{Cols: []value.Value{value.NewInt(10)}},
			{Cols: []value.Value{value.NewInt(30)}},
		},
	}}
	node := &FilterNode{
		Input:     src,
		Output:    "f1",
		Condition: expr.NewBinary(expr.KGt, expr.NewInputProp("age"), expr.NewConstant(value.NewInt(20))),
	}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, int64(30), ds.Rows[0].Cols[0].Int)
}

func TestAggregateNodeCountsPerGroup(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	src := &literalNode{ds: &value.DataSet{
		ColNames: []string{"team"},
		Rows: []value.Row{
			{Cols: []value.Value{value.NewStr("a")}},
			{Cols: []value.Value{value.NewStr("a")}},
			{Cols: []value.Value{value.NewStr("b")}},
		},
	}}
	node := &AggregateNode{
		Input:         src,
		Output:        "g1",
		GroupKeys:     []*expr.Expr{expr.NewInputProp("team")},
		GroupKeyNames: []string{"team"},
		Items:         []AggregateItem{{Name: "cnt", AggName: "COUNT"}},
	}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	totals := map[string]int64{}
	for _, r := range ds.Rows {
		totals[r.Cols[0].Str] = r.Cols[1].Int
	}
	assert.Equal(t, int64(2), totals["a"])
	assert.Equal(t, int64(1), totals["b"])
}

func TestSortAndLimitNodes(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	src := &literalNode{ds: &value.DataSet{
		ColNames: []string{"n"},
		Rows: []value.Row{
			{Cols: []value.Value{value.NewInt(3)}},
			{Cols: []value.Value{value.NewInt(1)}},
			{Cols: []value.Value{value.NewInt(2)}},
		},
	}}
	sortNode := &SortNode{Input: src, Output: "sorted", Factors: []OrderFactor{{ColIndex: 0}}}
	ds, err := sortNode.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{ds.Rows[0].Cols[0].Int, ds.Rows[1].Cols[0].Int, ds.Rows[2].Cols[0].Int})

	limitNode := &LimitNode{Input: sortNode, Output: "limited", Offset: 1, Count: 1}
	ds2, err := limitNode.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds2.Rows, 1)
	assert.Equal(t, int64(2), ds2.Rows[0].Cols[0].Int)
}

func TestDedupNodeRemovesDuplicateRows(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	src := &literalNode{ds: &value.DataSet{
		ColNames: []string{"n"},
		Rows: []value.Row{
			{Cols: []value.Value{value.NewInt(1)}},
			{Cols: []value.Value{value.NewInt(1)}},
			{Cols: []value.Value{value.NewInt(2)}},
		},
	}}
	node := &DedupNode{Input: src, Output: "d1"}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
}

func TestSetOpNodeUnionIntersectMinus(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	left := &literalNode{ds: &value.DataSet{ColNames: []string{"n"}, Rows: []value.Row{
		{Cols: []value.Value{value.NewInt(1)}},
		{Cols: []value.Value{value.NewInt(2)}},
	}}}
	right := &literalNode{ds: &value.DataSet{ColNames: []string{"n"}, Rows: []value.Row{
		{Cols: []value.Value{value.NewInt(2)}},
		{Cols: []value.Value{value.NewInt(3)}},
	}}}

	union := &SetOpNode{Left: left, Right: right, Output: "u", Op: SetUnion}
	ds, err := union.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 3)

	inter := &SetOpNode{Left: left, Right: right, Output: "i", Op: SetIntersect}
	ds2, err := inter.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds2.Rows, 1)
	assert.Equal(t, int64(2), ds2.Rows[0].Cols[0].Int)

	minus := &SetOpNode{Left: left, Right: right, Output: "m", Op: SetMinus}
	ds3, err := minus.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds3.Rows, 1)
	assert.Equal(t, int64(1), ds3.Rows[0].Cols[0].Int)
}

func TestJoinNodeInnerAndLeft(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	left := &literalNode{ds: &value.DataSet{ColNames: []string{"id"}, Rows: []value.Row{
		{Cols: []value.Value{value.NewStr("a")}},
		{Cols: []value.Value{value.NewStr("b")}},
	}}}
	right := &literalNode{ds: &value.DataSet{ColNames: []string{"id2"}, Rows: []value.Row{
		{Cols: []value.Value{value.NewStr("a")}},
	}}}

	inner := &JoinNode{Left: left, Right: right, Output: "j1", Kind: JoinInner, HashKeys: []string{"id2"}, ProbeKeys: []string{"id"}}
	ds, err := inner.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	left2 := &JoinNode{Left: left, Right: right, Output: "j2", Kind: JoinLeft, HashKeys: []string{"id2"}, ProbeKeys: []string{"id"}}
	ds2, err := left2.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Len(t, ds2.Rows, 2)
}

func TestTraverseNodeBuildsPaths(t *testing.T) {
	space := "s1"
	calls := 0
	env := setupEnv(t, space, 4,
		func(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
			calls++
			resp := &graphd.GetNeighborsResponse{ColNames: []string{"_src", "_dst"}, Status: okStatus(req.Partitions)}
			for _, vid := range req.VIDs {
				if calls == 1 && string(vid) == "v1" {
					resp.Rows = append(resp.Rows, []interface{}{"v1", "v2"})
				}
			}
			return resp, nil
		}, nil)

	node := &TraverseNode{
		Output:  "t1",
		SrcVIDs: [][]byte{[]byte("v1")},
		MinStep: 1,
		MaxStep: 2,
	}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, value.TagPath, ds.Rows[0].Cols[0].Tag)
	assert.Equal(t, "v2", string(ds.Rows[0].Cols[0].Path.Steps[0].Dst.VID))
}

func TestDataCollectNodeConcatenatesInputs(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	a := &literalNode{ds: &value.DataSet{ColNames: []string{"n"}, Rows: []value.Row{{Cols: []value.Value{value.NewInt(1)}}}}}
	b := &literalNode{ds: &value.DataSet{ColNames: []string{"n"}, Rows: []value.Row{{Cols: []value.Value{value.NewInt(1)}}, {Cols: []value.Value{value.NewInt(2)}}}}}

	node := &DataCollectNode{Inputs: []Node{a, b}, Output: "c1", Distinct: true}
	ds, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
}

func TestSwitchSpaceNodeChangesActiveSpace(t *testing.T) {
	env := setupEnv(t, "s1", 1, nil, nil)
	require.NoError(t, env.Router.DeclareSpace("s2", 1))

	node := &SwitchSpaceNode{SpaceName: "s2", Output: "sw1"}
	_, err := node.Execute(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "s2", env.Space())
}

// literalNode wraps a pre-built dataset as a Node, standing in for a
// storage-facing leaf in tests that only exercise the relational layer.
type literalNode struct {
	ds *value.DataSet
}

func (l *literalNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	return l.ds, nil
}
