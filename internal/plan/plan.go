// Package plan implements the traversal plan node tree and its execution
// driver (spec §4.9, Component H): the operators a compiled query lowers
// to — GetNeighbors/GetVertices/GetEdges against storage, the in-memory
// relational operators (Filter, Project, Aggregate, Sort, TopN, Limit,
// Dedup, SetOp, Join) and the compound graph operators (Traverse,
// ShortestPath, DataCollect, SwitchSpace).
//
// The C++ original models a node as `execute() -> future<Status>`
// scheduled onto a CPU or I/O thread pool depending on what it touches.
// Go has no such split: every Node.Execute runs on its calling goroutine
// and blocks on context.Context like the rest of this codebase, with
// concurrency introduced explicitly (SetOp/Join run their two inputs via
// errgroup) rather than through a pool abstraction. Cancellation is
// cooperative: the Execute driver checks ctx.Err() before running the
// root, and nodes pass ctx on to fanout and to their errgroups; nodes do
// not check ctx themselves between steps.
package plan

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/aggregate"
	"github.com/dreamware/nebulet/internal/expr"
	"github.com/dreamware/nebulet/internal/fanout"
	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/router"
	"github.com/dreamware/nebulet/internal/value"
)

// Node is one operator in a plan tree. Execute runs the node (recursing
// into its input(s) first, for every node but the storage-facing
// leaves) and returns its output dataset.
type Node interface {
	Execute(ctx context.Context, env *Env) (*value.DataSet, error)
}

// Direction mirrors spec §4.9's GetNeighbors direction parameter.
type Direction int8

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// OrderFactor is one (column, direction) pair of a Sort/TopN node.
type OrderFactor struct {
	ColIndex int
	Desc     bool
}

// Env is the execution context threaded through a plan tree: routing and
// transport dependencies, the active space (mutable via SwitchSpace),
// and the table of output-var bindings earlier nodes have produced,
// which later nodes reference by name (spec §4.9's "input-var names").
type Env struct {
	Router       *router.Registry
	NeighborsFac fanout.ClientFactory
	PropsFac     fanout.PropsClientFactory
	Policy       fanout.Policy
	Log          *logrus.Entry

	mu    sync.RWMutex
	space string
	vidLen map[string]int
	vars  map[string]*value.DataSet
}

// NewEnv builds an Env rooted at the given space.
func NewEnv(space string, reg *router.Registry, neighbors fanout.ClientFactory, props fanout.PropsClientFactory, policy fanout.Policy, log *logrus.Logger) *Env {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Env{
		Router:       reg,
		NeighborsFac: neighbors,
		PropsFac:     props,
		Policy:       policy,
		Log:          log.WithField("component", "plan"),
		space:        space,
		vidLen:       make(map[string]int),
		vars:         make(map[string]*value.DataSet),
	}
}

// Space returns the currently active space.
func (e *Env) Space() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.space
}

// SetSpace switches the active space, the effect of a SwitchSpace node.
func (e *Env) SetSpace(space string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.space = space
}

// SetVidLen records the VID width configured for a space. Partition
// clustering hashes seed VIDs as given and does not read this width.
func (e *Env) SetVidLen(space string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vidLen[space] = n
}

func (e *Env) vidLenFor(space string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n, ok := e.vidLen[space]; ok {
		return n
	}
	return 8 // integer-VID default (spec §3 VIDFromInt)
}

// Bind records node's output dataset under name so later nodes can
// reference it via VarProp.
func (e *Env) Bind(name string, ds *value.DataSet) {
	if name == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = ds
}

// Get returns the dataset previously bound under name.
func (e *Env) Get(name string) (*value.DataSet, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ds, ok := e.vars[name]
	return ds, ok
}

// partitionsForVIDs returns the distinct, sorted partition numbers the
// given VIDs hash into for the active space (spec §4.7).
func partitionsForVIDs(env *Env, space string, vids [][]byte) []int {
	n := env.Router.PartCount(space)
	if n == 0 {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	for _, vid := range vids {
		p := router.PartitionForVID(vid, n)
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// valueFromAny converts one RPC response cell (decoded JSON: string,
// float64, bool, nil, or already a value.Value from an in-process fake
// client) into a value.Value.
func valueFromAny(a interface{}) value.Value {
	switch t := a.(type) {
	case nil:
		return value.Null(value.NullUnknownProp)
	case value.Value:
		return t
	case string:
		return value.NewStr(t)
	case bool:
		return value.NewBool(t)
	case int:
		return value.NewInt(int64(t))
	case int64:
		return value.NewInt(t)
	case float64:
		if t == float64(int64(t)) {
			return value.NewInt(int64(t))
		}
		return value.NewFloat(t)
	case float32:
		return value.NewFloat(float64(t))
	default:
		return value.Null(value.NullBadType)
	}
}

func fromRows(colNames []string, rows [][]interface{}) *value.DataSet {
	ds := &value.DataSet{ColNames: colNames, Rows: make([]value.Row, len(rows))}
	for i, r := range rows {
		cols := make([]value.Value, len(r))
		for j, c := range r {
			cols[j] = valueFromAny(c)
		}
		ds.Rows[i] = value.Row{Cols: cols}
	}
	return ds
}

// rowContext adapts one row of a dataset into an expr.Context for
// Filter/Project/Aggregate evaluation. Only the row's own columns are
// visible; the env's bound variables are not, so VarProp lookups miss.
func rowContext(ds *value.DataSet, row value.Row) *expr.MapContext {
	return &expr.MapContext{ColNames: ds.ColNames, Row: row.Cols}
}

func filterDataSet(ds *value.DataSet, cond *expr.Expr) *value.DataSet {
	if cond == nil {
		return ds
	}
	out := &value.DataSet{ColNames: ds.ColNames}
	for _, row := range ds.Rows {
		v := cond.Eval(rowContext(ds, row))
		if v.Tag == value.TagBool && v.Bool {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// rowKey builds a composite dedup key across every column of a row,
// tagging each value with its Tag so distinct types never collide on an
// identical String() rendering (spec §8's full-row Value-equality).
func rowKey(row value.Row) string {
	key := ""
	for _, v := range row.Cols {
		key += fmt.Sprintf("%d:%s|", v.Tag, v.String())
	}
	return key
}

func dedupDataSet(ds *value.DataSet) *value.DataSet {
	out := &value.DataSet{ColNames: ds.ColNames}
	seen := make(map[string]struct{}, len(ds.Rows))
	for _, row := range ds.Rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func limitDataSet(ds *value.DataSet, offset, count int64) *value.DataSet {
	n := int64(len(ds.Rows))
	lo := offset
	if lo > n {
		lo = n
	}
	hi := lo + count
	if count < 0 || hi > n {
		hi = n
	}
	out := &value.DataSet{ColNames: ds.ColNames, Rows: append([]value.Row(nil), ds.Rows[lo:hi]...)}
	return out
}

func sortRows(rows []value.Row, factors []OrderFactor) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range factors {
			a, b := rows[i].Cols[f.ColIndex], rows[j].Cols[f.ColIndex]
			c := value.Compare(a, b)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sortDataSet(ds *value.DataSet, factors []OrderFactor) *value.DataSet {
	out := &value.DataSet{ColNames: ds.ColNames, Rows: append([]value.Row(nil), ds.Rows...)}
	sortRows(out.Rows, factors)
	return out
}

// Execute runs a plan tree to completion; it is the driver the hard-core
// specification's "execution driver" names, reduced to a direct call
// since no pool handoff is needed in Go.
func Execute(ctx context.Context, root Node, env *Env) (*value.DataSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return root.Execute(ctx, env)
}

// accumulatorGroup implements aggregate.New's per-group bookkeeping for
// AggregateNode: one accumulator per (group, item) pair, plus the group
// key values in first-seen order so output rows are deterministic
// without requiring an explicit downstream Sort.
type accumulatorGroup struct {
	keyVals []value.Value
	accs    []aggregate.Accumulator
}
