// Package rpcclient implements the HTTP transport storage fanout uses to
// reach individual hosts. It generalizes torua's cluster.PostJSON/GetJSON
// pair — a shared pooled *http.Client plus a JSON-in/JSON-out helper — into
// a typed client over the graphd RPC surface, with structured logging on
// every call's outcome instead of leaving callers to log failures
// themselves.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/graphd"
)

// Client issues RPCs against a single storage host's HTTP API. One Client
// is shared across concurrent requests; it holds no per-request state.
type Client struct {
	http *http.Client
	log  *logrus.Entry
	base string // e.g. "http://host-a:9779"
}

// New returns a Client for host, reachable through base URL base, logging
// through log (pass logrus.StandardLogger() if the caller has none of its
// own).
func New(base string, log *logrus.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		log:  log.WithField("component", "rpcclient").WithField("host", base),
		base: base,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	start := time.Now()
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rpcclient: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("rpc transport failure")
		return err
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if resp.StatusCode >= 300 {
		c.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode, "elapsed": elapsed}).Warn("rpc non-2xx response")
		return fmt.Errorf("rpcclient: %s%s: http %d", c.base, path, resp.StatusCode)
	}
	c.log.WithFields(logrus.Fields{"path": path, "elapsed": elapsed}).Debug("rpc call completed")
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetNeighbors issues a getNeighbors RPC against this host.
func (c *Client) GetNeighbors(ctx context.Context, req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
	var resp graphd.GetNeighborsResponse
	if err := c.postJSON(ctx, "/storage/getNeighbors", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProps issues a getProps RPC against this host.
func (c *Client) GetProps(ctx context.Context, req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
	var resp graphd.GetPropsResponse
	if err := c.postJSON(ctx, "/storage/getProps", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddVertices issues an addVertices RPC against this host.
func (c *Client) AddVertices(ctx context.Context, req *graphd.AddVerticesRequest) (*graphd.MutateResponse, error) {
	var resp graphd.MutateResponse
	if err := c.postJSON(ctx, "/storage/addVertices", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddEdges issues an addEdges RPC against this host.
func (c *Client) AddEdges(ctx context.Context, req *graphd.AddEdgesRequest) (*graphd.MutateResponse, error) {
	var resp graphd.MutateResponse
	if err := c.postJSON(ctx, "/storage/addEdges", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateVertex issues an updateVertex RPC against this host.
func (c *Client) UpdateVertex(ctx context.Context, req *graphd.UpdateVertexRequest) (*graphd.MutateResponse, error) {
	var resp graphd.MutateResponse
	if err := c.postJSON(ctx, "/storage/updateVertex", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateEdge issues an updateEdge RPC against this host.
func (c *Client) UpdateEdge(ctx context.Context, req *graphd.UpdateEdgeRequest) (*graphd.MutateResponse, error) {
	var resp graphd.MutateResponse
	if err := c.postJSON(ctx, "/storage/updateEdge", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
