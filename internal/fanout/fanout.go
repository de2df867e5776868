// Package fanout implements parallel per-host dispatch of a storage
// request that spans multiple partitions, merging the per-host responses
// into one result and applying the partial-success policy from spec
// §4.8: by default a single partition failure fails the whole request,
// but callers may opt into accepting a partial result set instead.
package fanout

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/router"
)

// NeighborsClient is the subset of rpcclient.Client's surface fanout
// needs to dispatch a GetNeighbors call against one host. Declaring it
// here, rather than depending on *rpcclient.Client directly, keeps
// fanout's dispatch and retry logic testable with a fake.
type NeighborsClient interface {
	GetNeighbors(ctx context.Context, req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error)
}

// PropsClient is NeighborsClient's counterpart for the props-only RPC
// GetProps dispatches.
type PropsClient interface {
	GetProps(ctx context.Context, req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error)
}

// ClientFactory returns the client to use for a given host address.
// It is called once per host dispatch, so a host that is dispatched to
// again after a leader change is looked up again; the plan executor
// typically backs it with a small cache of long-lived rpcclient.Client
// instances.
type ClientFactory func(host string) NeighborsClient

// PropsClientFactory is ClientFactory's counterpart for GetProps.
type PropsClientFactory func(host string) PropsClient

// Policy controls how partial partition failures are handled.
type Policy struct {
	// AcceptPartialSuccess, when true, returns whatever partitions
	// succeeded instead of failing the whole request on any failure.
	AcceptPartialSuccess bool
	// MaxRetries bounds the leader-changed retry loop per partition; 0
	// disables retries (a changed leader simply counts as a failure).
	MaxRetries int
}

// Result is fanout's merged outcome: rows gathered from every host that
// answered, plus bookkeeping about what didn't.
type Result struct {
	ColNames          []string
	Rows              [][]interface{}
	FailedPartitions  []int
	PartialSuccess    bool
}

// GetNeighbors dispatches req's partitions to their respective leader
// hosts per reg and merges the results. A partition that reports
// E_LEADER_CHANGED has its cached leader dropped and is dispatched again,
// up to policy.MaxRetries times, to whichever host reg then names as its
// leader; the NewLeader field of the storage host's response is not read.
func GetNeighbors(ctx context.Context, reg *router.Registry, clients ClientFactory, space string, req *graphd.GetNeighborsRequest, policy Policy) (*Result, error) {
	byHost, unassigned := reg.ClusterByHost(space, req.Partitions)

	var (
		mu       sync.Mutex
		colNames []string
		rows     [][]interface{}
		failed   = append([]int(nil), unassigned...)
	)

	g, gctx := errgroup.WithContext(ctx)
	for host, parts := range byHost {
		host, parts := host, parts
		g.Go(func() error {
			resp, failedParts, err := dispatchOneHostNeighbors(gctx, reg, clients, space, host, parts, req, policy.MaxRetries)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, parts...)
				if !policy.AcceptPartialSuccess {
					return err
				}
				return nil
			}
			if colNames == nil {
				colNames = resp.ColNames
			}
			rows = append(rows, resp.Rows...)
			failed = append(failed, failedParts...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(failed) > 0 && !policy.AcceptPartialSuccess {
		return nil, &PartialFailureError{Partitions: failed}
	}

	return &Result{
		ColNames:         colNames,
		Rows:             rows,
		FailedPartitions: failed,
		PartialSuccess:   len(failed) > 0,
	}, nil
}

// dispatchOneHostNeighbors issues one GetNeighbors call against host for
// its assigned partitions, retrying any partition that reports a leader
// change by re-clustering just that partition and recursing (bounded by
// maxRetries).
func dispatchOneHostNeighbors(ctx context.Context, reg *router.Registry, clients ClientFactory, space, host string, parts []int, orig *graphd.GetNeighborsRequest, maxRetries int) (*graphd.GetNeighborsResponse, []int, error) {
	req := *orig
	req.Partitions = parts
	client := clients(host)
	resp, err := client.GetNeighbors(ctx, &req)
	if err != nil {
		return nil, nil, err
	}

	var toRetry []int
	var stillFailed []int
	for _, pr := range resp.Status.Results {
		switch pr.Code {
		case graphd.ErrSucceeded:
			// nothing to do
		case graphd.ErrLeaderChanged:
			reg.InvalidateLeader(space, pr.Partition)
			if maxRetries > 0 {
				toRetry = append(toRetry, pr.Partition)
			} else {
				stillFailed = append(stillFailed, pr.Partition)
			}
		default:
			stillFailed = append(stillFailed, pr.Partition)
		}
	}

	if len(toRetry) == 0 {
		return resp, stillFailed, nil
	}

	byHost, unassigned := reg.ClusterByHost(space, toRetry)
	stillFailed = append(stillFailed, unassigned...)
	for newHost, newParts := range byHost {
		retryResp, retryFailed, err := dispatchOneHostNeighbors(ctx, reg, clients, space, newHost, newParts, orig, maxRetries-1)
		if err != nil {
			stillFailed = append(stillFailed, newParts...)
			continue
		}
		resp.Rows = append(resp.Rows, retryResp.Rows...)
		stillFailed = append(stillFailed, retryFailed...)
	}
	return resp, stillFailed, nil
}

// PartialFailureError reports that one or more partitions did not
// succeed and the caller's policy did not accept a partial result.
type PartialFailureError struct {
	Partitions []int
}

func (e *PartialFailureError) Error() string {
	return "fanout: one or more partitions failed"
}

// GetProps dispatches req's partitions to their respective leader hosts,
// mirroring GetNeighbors' clustering, leader-changed retry and
// partial-success merge for the simpler props-only RPC (spec §4.9
// GetVertices/GetEdges, which resolve to a getProps call with no
// traversal step).
func GetProps(ctx context.Context, reg *router.Registry, clients PropsClientFactory, space string, req *graphd.GetPropsRequest, policy Policy) (*Result, error) {
	byHost, unassigned := reg.ClusterByHost(space, req.Partitions)

	var (
		mu       sync.Mutex
		colNames []string
		rows     [][]interface{}
		failed   = append([]int(nil), unassigned...)
	)

	g, gctx := errgroup.WithContext(ctx)
	for host, parts := range byHost {
		host, parts := host, parts
		g.Go(func() error {
			resp, failedParts, err := dispatchOneHostProps(gctx, reg, clients, space, host, parts, req, policy.MaxRetries)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, parts...)
				if !policy.AcceptPartialSuccess {
					return err
				}
				return nil
			}
			if colNames == nil {
				colNames = resp.ColNames
			}
			rows = append(rows, resp.Rows...)
			failed = append(failed, failedParts...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(failed) > 0 && !policy.AcceptPartialSuccess {
		return nil, &PartialFailureError{Partitions: failed}
	}

	return &Result{
		ColNames:         colNames,
		Rows:             rows,
		FailedPartitions: failed,
		PartialSuccess:   len(failed) > 0,
	}, nil
}

func dispatchOneHostProps(ctx context.Context, reg *router.Registry, clients PropsClientFactory, space, host string, parts []int, orig *graphd.GetPropsRequest, maxRetries int) (*graphd.GetPropsResponse, []int, error) {
	req := *orig
	req.Partitions = parts
	client := clients(host)
	resp, err := client.GetProps(ctx, &req)
	if err != nil {
		return nil, nil, err
	}

	var toRetry []int
	var stillFailed []int
	for _, pr := range resp.Status.Results {
		switch pr.Code {
		case graphd.ErrSucceeded:
		case graphd.ErrLeaderChanged:
			reg.InvalidateLeader(space, pr.Partition)
			if maxRetries > 0 {
				toRetry = append(toRetry, pr.Partition)
			} else {
				stillFailed = append(stillFailed, pr.Partition)
			}
		default:
			stillFailed = append(stillFailed, pr.Partition)
		}
	}

	if len(toRetry) == 0 {
		return resp, stillFailed, nil
	}

	byHost, unassigned := reg.ClusterByHost(space, toRetry)
	stillFailed = append(stillFailed, unassigned...)
	for newHost, newParts := range byHost {
		retryResp, retryFailed, err := dispatchOneHostProps(ctx, reg, clients, space, newHost, newParts, orig, maxRetries-1)
		if err != nil {
			stillFailed = append(stillFailed, newParts...)
			continue
		}
		resp.Rows = append(resp.Rows, retryResp.Rows...)
		stillFailed = append(stillFailed, retryFailed...)
	}
	return resp, stillFailed, nil
}
