// Package coordinator implements metad's storage-host liveness tracking:
// periodic /health polling of every host a space's partitions are
// currently assigned to, with a callback metad wires to
// internal/router.Registry's leader cache so a host that stops
// answering loses its leader assignments instead of silently eating
// requests.
//
// # Usage
//
//	monitor := coordinator.NewHealthMonitor(5*time.Second, log)
//	monitor.SetOnUnhealthy(func(host string) {
//	    // invalidate router leases pointing at host
//	})
//	go monitor.Start(ctx, hostListFunc)
//	defer monitor.Stop()
//
// A host is marked unhealthy after three consecutive failed probes and
// recovered on the next successful one. Partition-to-host assignment
// itself lives in internal/router, not here; this package only answers
// "is this host still up".
//
// # See Also
//
// Related packages:
//   - internal/cluster: node descriptor types and HTTP helpers
//   - internal/router: partition leader assignment and cache invalidation
//   - cmd/metad: the binary that wires this monitor to the router
package coordinator
