// Command metad runs the cluster's meta service: it loads the static
// space/partition/schema configuration, builds the partition-to-host
// routing table storage clients consult, and polls the /health endpoint
// of every storage host that leads a partition, dropping an unhealthy
// host's entries from the router's leader cache. Partition assignments
// are not changed.
//
// Configuration:
//
//	-config  path to the cluster YAML configuration (required)
//	-listen  HTTP listen address (default ":9780")
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/cluster"
	"github.com/dreamware/nebulet/internal/config"
	"github.com/dreamware/nebulet/internal/coordinator"
	"github.com/dreamware/nebulet/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to cluster YAML configuration")
	listen := flag.String("listen", ":9780", "HTTP listen address")
	healthInterval := flag.Duration("health-interval", 5*time.Second, "storage host health check interval")
	leaderCacheSize := flag.Int("leader-cache-size", 1024, "leader-lookup LRU cache size")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *configPath == "" {
		log.Fatal("metad: -config is required")
	}

	cl, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("metad: failed to load configuration")
	}

	reg, err := cl.BuildRouter(*leaderCacheSize)
	if err != nil {
		log.WithError(err).Fatal("metad: failed to build router registry")
	}

	srv := &metaServer{cluster: cl, router: reg, log: log}

	monitor := coordinator.NewHealthMonitor(*healthInterval, log)
	monitor.SetOnUnhealthy(srv.onHostUnhealthy)
	go monitor.Start(context.Background(), srv.hostList)
	defer monitor.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/spaces", srv.handleSpaces)
	mux.HandleFunc("/leader", srv.handleLeader)

	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", *listen).Info("metad: listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("metad: listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("metad: shutdown error")
	}
	log.Info("metad: stopped")
}

// metaServer holds metad's runtime state: the parsed cluster document and
// the live router.Registry clients and storaged hosts both consult.
type metaServer struct {
	cluster *config.Cluster
	router  *router.Registry
	log     *logrus.Logger

	mu          sync.RWMutex
	hostLeads   map[string][]spacePart // host -> partitions it currently leads
}

type spacePart struct {
	space string
	part  int
}

// hostList implements the coordinator.HealthMonitor's node-provider
// callback: every distinct host that currently leads a partition of some
// configured space, one entry per host. Follower-only hosts are not
// listed.
func (s *metaServer) hostList() []cluster.NodeInfo {
	seen := make(map[string]bool)
	var out []cluster.NodeInfo

	leads := make(map[string][]spacePart)
	for _, sp := range s.cluster.Spaces {
		for part := 1; part <= sp.PartCount; part++ {
			leader, ok := s.router.Leader(sp.Name, part)
			if !ok {
				continue
			}
			leads[leader] = append(leads[leader], spacePart{space: sp.Name, part: part})
			if !seen[leader] {
				seen[leader] = true
				out = append(out, cluster.NodeInfo{ID: leader, Addr: leader})
			}
		}
	}

	s.mu.Lock()
	s.hostLeads = leads
	s.mu.Unlock()
	return out
}

// onHostUnhealthy invalidates the leader cache for every partition the
// failed host was leading, so the next lookup re-reads the registry's
// assignment. No follower is promoted: the assignment keeps naming the
// failed host until something calls Assign.
func (s *metaServer) onHostUnhealthy(host string) {
	s.mu.RLock()
	parts := append([]spacePart(nil), s.hostLeads[host]...)
	s.mu.RUnlock()

	for _, sp := range parts {
		s.router.InvalidateLeader(sp.space, sp.part)
		s.log.WithFields(logrus.Fields{"space": sp.space, "partition": sp.part, "host": host}).Warn("metad: invalidated leader after health failure")
	}
}

func (s *metaServer) handleSpaces(w http.ResponseWriter, _ *http.Request) {
	type spaceInfo struct {
		Name      string `json:"name"`
		PartCount int    `json:"part_count"`
		VidLen    int    `json:"vid_len"`
	}
	out := make([]spaceInfo, 0, len(s.cluster.Spaces))
	for _, sp := range s.cluster.Spaces {
		out = append(out, spaceInfo{Name: sp.Name, PartCount: sp.PartCount, VidLen: sp.VidLen})
	}
	writeJSON(w, s.log, out)
}

func (s *metaServer) handleLeader(w http.ResponseWriter, r *http.Request) {
	space := r.URL.Query().Get("space")
	part, err := strconv.Atoi(r.URL.Query().Get("part"))
	if space == "" || err != nil || part <= 0 {
		http.Error(w, "space and part query parameters are required", http.StatusBadRequest)
		return
	}
	leader, ok := s.router.Leader(space, part)
	if !ok {
		http.Error(w, "no leader assigned", http.StatusNotFound)
		return
	}
	writeJSON(w, s.log, map[string]string{"leader": leader})
}

func writeJSON(w http.ResponseWriter, log *logrus.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("metad: failed to encode response")
	}
}
