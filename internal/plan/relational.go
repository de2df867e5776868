package plan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/nebulet/internal/aggregate"
	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/value"
)

// FilterNode keeps rows satisfying Condition (spec §4.9 Filter).
// NeedStable has no separate code path here: this implementation is
// already order-preserving, since it walks Input's rows in place rather
// than through an unordered map, so there is nothing extra to stabilize.
type FilterNode struct {
	Input      Node
	Output     string
	Condition  *expr.Expr
	NeedStable bool
}

func (n *FilterNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	out := filterDataSet(in, n.Condition)
	env.Bind(n.Output, out)
	return out, nil
}

// ProjectColumn is one output column of a Project node: its name and the
// expression that produces it.
type ProjectColumn struct {
	Name string
	Expr *expr.Expr
}

// ProjectNode rewrites each input row through an expression list (spec
// §4.9 Project / yield).
type ProjectNode struct {
	Input   Node
	Output  string
	Columns []ProjectColumn
}

func projectDataSet(ds *value.DataSet, cols []ProjectColumn) *value.DataSet {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	out := &value.DataSet{ColNames: names, Rows: make([]value.Row, len(ds.Rows))}
	for i, row := range ds.Rows {
		rctx := rowContext(ds, row)
		vals := make([]value.Value, len(cols))
		for j, c := range cols {
			vals[j] = c.Expr.Eval(rctx)
		}
		out.Rows[i] = value.Row{Cols: vals}
	}
	return out
}

func (n *ProjectNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	out := projectDataSet(in, n.Columns)
	env.Bind(n.Output, out)
	return out, nil
}

// AggregateItem is one GROUP BY output column: an accumulator function
// applied to Arg, optionally DISTINCT-qualified (spec §4.9 Aggregate).
type AggregateItem struct {
	Name     string
	AggName  string
	Distinct bool
	Arg      *expr.Expr
}

// AggregateNode groups Input's rows by GroupKeys and reduces each group
// through Items.
type AggregateNode struct {
	Input         Node
	Output        string
	GroupKeys     []*expr.Expr
	GroupKeyNames []string
	Items         []AggregateItem
}

func (n *AggregateNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*accumulatorGroup)
	var order []string

	for _, row := range in.Rows {
		rctx := rowContext(in, row)
		keyVals := make([]value.Value, len(n.GroupKeys))
		keyStr := ""
		for i, ke := range n.GroupKeys {
			keyVals[i] = ke.Eval(rctx)
			keyStr += fmt.Sprintf("%d:%s|", keyVals[i].Tag, keyVals[i].String())
		}
		g, ok := groups[keyStr]
		if !ok {
			g = &accumulatorGroup{keyVals: keyVals, accs: make([]aggregate.Accumulator, len(n.Items))}
			for i, item := range n.Items {
				g.accs[i] = aggregate.New(item.AggName, item.Distinct)
			}
			groups[keyStr] = g
			order = append(order, keyStr)
		}
		for i, item := range n.Items {
			var v value.Value
			if item.Arg != nil {
				v = item.Arg.Eval(rctx)
			} else {
				v = value.NewBool(true) // COUNT(*) sentinel
			}
			g.accs[i].Add(v)
		}
	}

	colNames := append([]string(nil), n.GroupKeyNames...)
	for _, item := range n.Items {
		colNames = append(colNames, item.Name)
	}

	out := &value.DataSet{ColNames: colNames, Rows: make([]value.Row, 0, len(order))}
	for _, k := range order {
		g := groups[k]
		cols := append([]value.Value(nil), g.keyVals...)
		for _, acc := range g.accs {
			cols = append(cols, acc.Result())
		}
		out.Rows = append(out.Rows, value.Row{Cols: cols})
	}
	env.Bind(n.Output, out)
	return out, nil
}

// SortNode stably reorders Input's rows by Factors (spec §4.9 Sort).
type SortNode struct {
	Input   Node
	Output  string
	Factors []OrderFactor
}

func (n *SortNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	out := sortDataSet(in, n.Factors)
	env.Bind(n.Output, out)
	return out, nil
}

// TopNNode sorts by Factors then returns [Offset, Offset+Count) (spec
// §4.9 TopN), a single fused pass rather than Sort followed by Limit so
// the full result never needs to be sorted if the executor chooses to
// optimize it with a bounded heap (this implementation sorts in full;
// that optimization is left to a future plan-rewrite pass).
type TopNNode struct {
	Input   Node
	Output  string
	Factors []OrderFactor
	Offset  int64
	Count   int64
}

func (n *TopNNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	sorted := sortDataSet(in, n.Factors)
	out := limitDataSet(sorted, n.Offset, n.Count)
	env.Bind(n.Output, out)
	return out, nil
}

// LimitNode returns [Offset, Offset+Count) of Input's rows unsorted
// (spec §4.9 Limit).
type LimitNode struct {
	Input  Node
	Output string
	Offset int64
	Count  int64
}

func (n *LimitNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	out := limitDataSet(in, n.Offset, n.Count)
	env.Bind(n.Output, out)
	return out, nil
}

// DedupNode removes rows equal in every column to an earlier row (spec
// §4.9 Dedup: "by full-row Value-equality").
type DedupNode struct {
	Input  Node
	Output string
}

func (n *DedupNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	in, err := n.Input.Execute(ctx, env)
	if err != nil {
		return nil, err
	}
	out := dedupDataSet(in)
	env.Bind(n.Output, out)
	return out, nil
}

// SetOpKind discriminates SetOpNode's operation.
type SetOpKind uint8

const (
	SetUnion SetOpKind = iota
	SetIntersect
	SetMinus
)

// SetOpNode combines Left and Right's rows (spec §4.9 SetOp), evaluating
// both inputs concurrently since neither depends on the other.
type SetOpNode struct {
	Left, Right Node
	Output      string
	Op          SetOpKind
}

func (n *SetOpNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	var left, right *value.DataSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		left, err = n.Left.Execute(gctx, env)
		return err
	})
	g.Go(func() (err error) {
		right, err = n.Right.Execute(gctx, env)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &value.DataSet{ColNames: left.ColNames}
	switch n.Op {
	case SetUnion:
		out.Rows = append(out.Rows, left.Rows...)
		out.Rows = append(out.Rows, right.Rows...)
		out = dedupDataSet(out)
	case SetIntersect:
		rightKeys := make(map[string]struct{}, len(right.Rows))
		for _, r := range right.Rows {
			rightKeys[rowKey(r)] = struct{}{}
		}
		seen := make(map[string]struct{})
		for _, l := range left.Rows {
			k := rowKey(l)
			if _, ok := rightKeys[k]; !ok {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out.Rows = append(out.Rows, l)
		}
	case SetMinus:
		rightKeys := make(map[string]struct{}, len(right.Rows))
		for _, r := range right.Rows {
			rightKeys[rowKey(r)] = struct{}{}
		}
		for _, l := range left.Rows {
			if _, ok := rightKeys[rowKey(l)]; !ok {
				out.Rows = append(out.Rows, l)
			}
		}
	}
	env.Bind(n.Output, out)
	return out, nil
}

// JoinKind discriminates JoinNode's operation.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// JoinNode hash-joins Left and Right on HashKeys/ProbeKeys column names
// (spec §4.9 Join): Right is the build side, Left the probe side.
type JoinNode struct {
	Left, Right          Node
	Output               string
	Kind                 JoinKind
	LeftVar, RightVar    string
	HashKeys, ProbeKeys  []string
}

func colIndices(names, want []string) []int {
	idx := make([]int, len(want))
	for i, w := range want {
		idx[i] = -1
		for j, n := range names {
			if n == w {
				idx[i] = j
				break
			}
		}
	}
	return idx
}

func joinKey(row value.Row, idx []int) string {
	k := ""
	for _, i := range idx {
		if i < 0 || i >= len(row.Cols) {
			k += "?|"
			continue
		}
		v := row.Cols[i]
		k += fmt.Sprintf("%d:%s|", v.Tag, v.String())
	}
	return k
}

func (n *JoinNode) Execute(ctx context.Context, env *Env) (*value.DataSet, error) {
	var left, right *value.DataSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		left, err = n.Left.Execute(gctx, env)
		return err
	})
	g.Go(func() (err error) {
		right, err = n.Right.Execute(gctx, env)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buildIdx := colIndices(right.ColNames, n.HashKeys)
	probeIdx := colIndices(left.ColNames, n.ProbeKeys)

	buckets := make(map[string][]value.Row, len(right.Rows))
	for _, r := range right.Rows {
		k := joinKey(r, buildIdx)
		buckets[k] = append(buckets[k], r)
	}

	colNames := append(append([]string(nil), left.ColNames...), right.ColNames...)
	out := &value.DataSet{ColNames: colNames}
	emptyRight := make([]value.Value, len(right.ColNames))
	for i := range emptyRight {
		emptyRight[i] = value.Null(value.NullUnknownProp)
	}

	for _, l := range left.Rows {
		k := joinKey(l, probeIdx)
		matches := buckets[k]
		if len(matches) == 0 {
			if n.Kind == JoinLeft {
				cols := append(append([]value.Value(nil), l.Cols...), emptyRight...)
				out.Rows = append(out.Rows, value.Row{Cols: cols})
			}
			continue
		}
		for _, r := range matches {
			cols := append(append([]value.Value(nil), l.Cols...), r.Cols...)
			out.Rows = append(out.Rows, value.Row{Cols: cols})
		}
	}
	env.Bind(n.Output, out)
	return out, nil
}
