// Package cluster holds the host-descriptor and wire types shared by the
// meta service and its health monitor, plus two small JSON-over-HTTP
// helpers.
//
// # Overview
//
// NodeInfo describes one storage host: its ID, address, health status and
// the time of its last health check. cmd/metad builds one NodeInfo per
// storage host it polls, and internal/coordinator's HealthMonitor consumes
// them. RegisterRequest and BroadcastRequest are plain JSON envelopes for a
// node-registration call and a coordinator-to-node broadcast; no handler in
// this module serves either of them.
//
// PostJSON and GetJSON send one request through a shared http.Client with
// a fixed 5-second timeout and decode the JSON response; a status code of
// 300 or above is returned as an error.
//
// # Core Components
//
// NodeInfo: one storage host
//   - ID, Addr, Status and LastHealthCheck, all plain fields
//   - No shard list and no methods
//
// RegisterRequest, BroadcastRequest: JSON request envelopes
//
// PostJSON, GetJSON: JSON-over-HTTP helpers
//   - No retries; one request per call
//
// # Concurrency Model
//
// The types carry no locks: a NodeInfo is safe for concurrent reads once
// built, and writers need their own synchronization. PostJSON and GetJSON
// may be called from many goroutines at once; they share one http.Client.
//
// # Usage Example
//
//	node := NodeInfo{ID: "node-1", Addr: "localhost:8081"}
//	var resp NodeInfo
//	err := PostJSON(ctx, "http://coordinator:8080/cluster/register", RegisterRequest{Node: node}, &resp)
//	if err != nil {
//	    log.Printf("register failed: %v", err)
//	}
//
// # Testing
//
// Run tests with:
//
//	go test ./internal/cluster/... -cover
//
// # See Also
//
// Related packages:
//   - internal/coordinator: storage-host liveness monitoring
//   - internal/router: partition leader assignment
//   - internal/kv: key-value storage implementation
package cluster
