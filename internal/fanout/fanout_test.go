package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/graphd"
	"github.com/dreamware/nebulet/internal/router"
)

type fakeClient struct {
	host    string
	handler func(host string, partitions []int) (*graphd.GetNeighborsResponse, error)
}

func (f *fakeClient) GetNeighbors(ctx context.Context, req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
	return f.handler(f.host, req.Partitions)
}

func setupRegistry(t *testing.T, space string, assignments map[int]string) *router.Registry {
	t.Helper()
	reg := router.New(0)
	require.NoError(t, reg.DeclareSpace(space, len(assignments)))
	for p, host := range assignments {
		require.NoError(t, reg.Assign(space, p, host, nil))
	}
	return reg
}

func succeedAll(host string, partitions []int) (*graphd.GetNeighborsResponse, error) {
	resp := &graphd.GetNeighborsResponse{ColNames: []string{"v"}}
	for _, p := range partitions {
		resp.Rows = append(resp.Rows, []interface{}{host})
		resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrSucceeded})
	}
	return resp, nil
}

func TestGetNeighborsMergesAllHosts(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a", 2: "host-b"})
	factory := func(host string) NeighborsClient {
		return &fakeClient{host: host, handler: succeedAll}
	}

	req := &graphd.GetNeighborsRequest{Space: space, Partitions: []int{1, 2}}
	res, err := GetNeighbors(context.Background(), reg, factory, space, req, Policy{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Empty(t, res.FailedPartitions)
}

func TestGetNeighborsFailsWholeRequestWithoutPartialPolicy(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a"})
	factory := func(host string) NeighborsClient {
		return &fakeClient{host: host, handler: func(h string, parts []int) (*graphd.GetNeighborsResponse, error) {
			resp := &graphd.GetNeighborsResponse{}
			for _, p := range parts {
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrConsensusError})
			}
			return resp, nil
		}}
	}

	req := &graphd.GetNeighborsRequest{Space: space, Partitions: []int{1}}
	_, err := GetNeighbors(context.Background(), reg, factory, space, req, Policy{})
	assert.Error(t, err)
}

func TestGetNeighborsAcceptsPartialSuccess(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a", 2: "host-b"})
	factory := func(host string) NeighborsClient {
		return &fakeClient{host: host, handler: func(h string, parts []int) (*graphd.GetNeighborsResponse, error) {
			resp := &graphd.GetNeighborsResponse{ColNames: []string{"v"}}
			for _, p := range parts {
				if h == "host-a" {
					resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrConsensusError})
					continue
				}
				resp.Rows = append(resp.Rows, []interface{}{h})
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrSucceeded})
			}
			return resp, nil
		}}
	}

	req := &graphd.GetNeighborsRequest{Space: space, Partitions: []int{1, 2}}
	res, err := GetNeighbors(context.Background(), reg, factory, space, req, Policy{AcceptPartialSuccess: true})
	require.NoError(t, err)
	assert.True(t, res.PartialSuccess)
	assert.Equal(t, []int{1}, res.FailedPartitions)
	assert.Len(t, res.Rows, 1)
}

type fakePropsClient struct {
	host    string
	handler func(host string, partitions []int) (*graphd.GetPropsResponse, error)
}

func (f *fakePropsClient) GetProps(ctx context.Context, req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
	return f.handler(f.host, req.Partitions)
}

func succeedAllProps(host string, partitions []int) (*graphd.GetPropsResponse, error) {
	resp := &graphd.GetPropsResponse{ColNames: []string{"v"}}
	for _, p := range partitions {
		resp.Rows = append(resp.Rows, []interface{}{host})
		resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrSucceeded})
	}
	return resp, nil
}

func TestGetPropsMergesAllHosts(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a", 2: "host-b"})
	factory := func(host string) PropsClient {
		return &fakePropsClient{host: host, handler: succeedAllProps}
	}

	req := &graphd.GetPropsRequest{Space: space, Partitions: []int{1, 2}}
	res, err := GetProps(context.Background(), reg, factory, space, req, Policy{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Empty(t, res.FailedPartitions)
}

func TestGetPropsFailsWholeRequestWithoutPartialPolicy(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a"})
	factory := func(host string) PropsClient {
		return &fakePropsClient{host: host, handler: func(h string, parts []int) (*graphd.GetPropsResponse, error) {
			resp := &graphd.GetPropsResponse{}
			for _, p := range parts {
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrConsensusError})
			}
			return resp, nil
		}}
	}

	req := &graphd.GetPropsRequest{Space: space, Partitions: []int{1}}
	_, err := GetProps(context.Background(), reg, factory, space, req, Policy{})
	assert.Error(t, err)
}

func TestGetPropsAcceptsPartialSuccess(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a", 2: "host-b"})
	factory := func(host string) PropsClient {
		return &fakePropsClient{host: host, handler: func(h string, parts []int) (*graphd.GetPropsResponse, error) {
			resp := &graphd.GetPropsResponse{ColNames: []string{"v"}}
			for _, p := range parts {
				if h == "host-a" {
					resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrConsensusError})
					continue
				}
				resp.Rows = append(resp.Rows, []interface{}{h})
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: p, Code: graphd.ErrSucceeded})
			}
			return resp, nil
		}}
	}

	req := &graphd.GetPropsRequest{Space: space, Partitions: []int{1, 2}}
	res, err := GetProps(context.Background(), reg, factory, space, req, Policy{AcceptPartialSuccess: true})
	require.NoError(t, err)
	assert.True(t, res.PartialSuccess)
	assert.Equal(t, []int{1}, res.FailedPartitions)
	assert.Len(t, res.Rows, 1)
}

func TestGetPropsRetriesLeaderChanged(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a"})
	attempt := 0
	factory := func(host string) PropsClient {
		return &fakePropsClient{host: host, handler: func(h string, parts []int) (*graphd.GetPropsResponse, error) {
			attempt++
			resp := &graphd.GetPropsResponse{ColNames: []string{"v"}}
			if attempt == 1 {
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: 1, Code: graphd.ErrLeaderChanged, NewLeader: "host-a"})
				return resp, nil
			}
			resp.Rows = append(resp.Rows, []interface{}{h})
			resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: 1, Code: graphd.ErrSucceeded})
			return resp, nil
		}}
	}

	req := &graphd.GetPropsRequest{Space: space, Partitions: []int{1}}
	res, err := GetProps(context.Background(), reg, factory, space, req, Policy{MaxRetries: 2})
	require.NoError(t, err)
	assert.Empty(t, res.FailedPartitions)
	assert.Len(t, res.Rows, 1)
	assert.GreaterOrEqual(t, attempt, 2)
}

func TestGetNeighborsRetriesLeaderChanged(t *testing.T) {
	space := "s1"
	reg := setupRegistry(t, space, map[int]string{1: "host-a"})
	attempt := 0
	factory := func(host string) NeighborsClient {
		return &fakeClient{host: host, handler: func(h string, parts []int) (*graphd.GetNeighborsResponse, error) {
			attempt++
			resp := &graphd.GetNeighborsResponse{ColNames: []string{"v"}}
			if attempt == 1 {
				resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: 1, Code: graphd.ErrLeaderChanged, NewLeader: "host-a"})
				return resp, nil
			}
			resp.Rows = append(resp.Rows, []interface{}{h})
			resp.Status.Results = append(resp.Status.Results, graphd.PartitionResult{Partition: 1, Code: graphd.ErrSucceeded})
			return resp, nil
		}}
	}

	req := &graphd.GetNeighborsRequest{Space: space, Partitions: []int{1}}
	res, err := GetNeighbors(context.Background(), reg, factory, space, req, Policy{MaxRetries: 2})
	require.NoError(t, err)
	assert.Empty(t, res.FailedPartitions)
	assert.Len(t, res.Rows, 1)
	assert.GreaterOrEqual(t, attempt, 2)
}
