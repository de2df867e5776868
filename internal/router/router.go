// Package router implements partition-to-leader routing: which storage
// host owns which partition of a space, and which partition a given
// vertex ID falls into (spec §4.7). It is the Go-idiomatic descendant of
// torua's ShardRegistry, generalized from an opaque string-keyed shard
// table to partitions addressed by (space, partition) and FNV-64 VID
// hashing instead of FNV-1a key hashing.
package router

import (
	"fmt"
	"hash/fnv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PartitionAssignment records which host currently serves a partition as
// leader, plus its known followers. Assignments are immutable once
// constructed; callers receive copies, never the registry's own pointer.
type PartitionAssignment struct {
	Leader    string
	Followers []string
	Partition int
}

// Registry is the authoritative space/partition -> host mapping a
// coordinator maintains and distributes to clients and storage hosts.
// Reads take the read lock; leader lookups additionally consult an LRU
// cache so a hot partition's lookup never pays the map-plus-lock cost
// twice in a row.
type Registry struct {
	mu          sync.RWMutex
	partCount   map[string]int                   // space -> partition count
	assignments map[string]map[int]*PartitionAssignment // space -> partition -> assignment
	leaderCache *lru.Cache[string, string]              // "space:partition" -> leader host
}

// New returns an empty Registry. cacheSize bounds the leader-lookup cache;
// 0 disables caching.
func New(cacheSize int) *Registry {
	r := &Registry{
		partCount:   make(map[string]int),
		assignments: make(map[string]map[int]*PartitionAssignment),
	}
	if cacheSize > 0 {
		c, err := lru.New[string, string](cacheSize)
		if err == nil {
			r.leaderCache = c
		}
	}
	return r
}

// DeclareSpace registers a space's partition count. Calling it again for
// an existing space is a no-op if the count matches, and an error
// otherwise — partition counts are fixed for a space's lifetime (spec §3).
func (r *Registry) DeclareSpace(space string, partCount int) error {
	if partCount <= 0 {
		return fmt.Errorf("router: partCount must be positive, got %d", partCount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.partCount[space]; ok {
		if existing != partCount {
			return fmt.Errorf("router: space %q already declared with %d partitions, not %d", space, existing, partCount)
		}
		return nil
	}
	r.partCount[space] = partCount
	r.assignments[space] = make(map[int]*PartitionAssignment)
	return nil
}

// PartCount returns the declared partition count for space, or 0 if the
// space is unknown.
func (r *Registry) PartCount(space string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.partCount[space]
}

// Assign sets the leader and follower hosts for one partition. This is
// the coordinator's write path; storage hosts and clients only ever call
// the read methods below.
func (r *Registry) Assign(space string, partition int, leader string, followers []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts, ok := r.assignments[space]
	if !ok {
		return fmt.Errorf("router: space %q not declared", space)
	}
	n := r.partCount[space]
	if partition < 1 || partition > n {
		return fmt.Errorf("router: partition %d out of range [1,%d] for space %q", partition, n, space)
	}
	followersCopy := append([]string(nil), followers...)
	parts[partition] = &PartitionAssignment{Partition: partition, Leader: leader, Followers: followersCopy}
	if r.leaderCache != nil {
		r.leaderCache.Remove(cacheKey(space, partition))
	}
	return nil
}

// Assignment returns a copy of the current assignment for (space,
// partition), or nil if unassigned.
func (r *Registry) Assignment(space string, partition int) *PartitionAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[space][partition]
	if !ok {
		return nil
	}
	cp := *a
	cp.Followers = append([]string(nil), a.Followers...)
	return &cp
}

// Leader returns the current leader host for (space, partition), using the
// LRU cache when present.
func (r *Registry) Leader(space string, partition int) (string, bool) {
	key := cacheKey(space, partition)
	if r.leaderCache != nil {
		if host, ok := r.leaderCache.Get(key); ok {
			return host, true
		}
	}
	r.mu.RLock()
	a, ok := r.assignments[space][partition]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	if r.leaderCache != nil {
		r.leaderCache.Add(key, a.Leader)
	}
	return a.Leader, true
}

// InvalidateLeader drops a cached leader entry; the assignment itself is
// unchanged. Fanout calls this after a "leader changed" response so its
// retry re-reads the leader from the registry's assignment, which reflects
// any Assign made since the entry was cached.
func (r *Registry) InvalidateLeader(space string, partition int) {
	if r.leaderCache != nil {
		r.leaderCache.Remove(cacheKey(space, partition))
	}
}

// HostsForSpace returns every distinct host serving any partition of
// space, leader or follower, deduplicated.
func (r *Registry) HostsForSpace(space string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var hosts []string
	for _, a := range r.assignments[space] {
		for _, h := range append([]string{a.Leader}, a.Followers...) {
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}

// ClusterByHost groups a set of requested partitions by the host that
// currently leads each one. A partition with no leader yet is omitted
// from the result and returned in the second slice so the caller can
// surface a partial-availability error (spec §4.7/§4.8).
func (r *Registry) ClusterByHost(space string, partitions []int) (byHost map[string][]int, unassigned []int) {
	byHost = make(map[string][]int)
	for _, p := range partitions {
		host, ok := r.Leader(space, p)
		if !ok {
			unassigned = append(unassigned, p)
			continue
		}
		byHost[host] = append(byHost[host], p)
	}
	return byHost, unassigned
}

func cacheKey(space string, partition int) string {
	return fmt.Sprintf("%s:%d", space, partition)
}

// PartitionForVID hashes a byte-string vertex ID to a 1-based partition
// number using FNV-64 (spec §4.7: the same function `folly::hash::fnv64`
// computes in the original, available in Go's standard library as
// hash/fnv's 64-bit variant).
func PartitionForVID(vid []byte, partCount int) int {
	h := fnv.New64()
	h.Write(vid)
	return int(h.Sum64()%uint64(partCount)) + 1
}

// PartitionForIntVID hashes an integer vertex ID the way integer-VID
// spaces do: a plain modulo rather than FNV, with negative VIDs wrapping
// into the positive partition range instead of producing a negative
// result (spec §4.7 edge case).
func PartitionForIntVID(vid int64, partCount int) int {
	m := vid % int64(partCount)
	if m < 0 {
		m += int64(partCount)
	}
	return int(m) + 1
}
