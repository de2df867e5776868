// Package kv implements the byte-oriented key-value backing store that
// sits under storaged's partition state: vertex, edge, system and plain
// KV rows, keyed by the layouts internal/keylayout defines, all reduced
// to raw []byte keys and values at this layer. It is adapted from
// torua's storage.Store/MemoryStore, generalized from string keys to
// []byte keys (the keylayout formats are binary, not printable) and
// extended with a sorted prefix scan, which data-inspector's dump and
// stats subcommands need and torua's store never provided. LoadSnapshot
// and SaveSnapshot give data-inspector's --db_path a real file to point
// at despite the backing store itself being in-memory, same as torua's.
package kv

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is the interface storaged's partition handlers and
// data-inspector's read path both depend on.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Scan calls fn for every key with the given prefix, in ascending
	// byte order, stopping early if fn returns false.
	Scan(prefix []byte, fn func(key, value []byte) bool) error
	Stats() Stats
}

// Stats reports point-in-time size metrics for monitoring and for
// data-inspector's `stats` subcommand.
type Stats struct {
	Keys  int
	Bytes int
}

// MemoryStore is a sorted in-memory Store. It keeps keys in a sorted
// slice alongside the map so prefix scans don't need a full sort on
// every call; torua's MemoryStore has no such index because its List()
// never needed an order.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	sorted []string // kept sorted; rebuilt lazily after writes
	dirty  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	if _, exists := m.data[string(key)]; !exists {
		m.dirty = true
	}
	m.data[string(key)] = stored
	return nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[string(key)]; exists {
		delete(m.data, string(key))
		m.dirty = true
	}
	return nil
}

// Scan visits every key with the given prefix in ascending byte order.
// An empty prefix scans the whole store.
func (m *MemoryStore) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.Lock()
	m.reindexLocked()
	keys := m.sorted
	m.mu.Unlock()

	start := sort.SearchStrings(keys, string(prefix))
	for i := start; i < len(keys); i++ {
		k := keys[i]
		if !bytes.HasPrefix([]byte(k), prefix) {
			break
		}
		m.mu.RLock()
		v, ok := m.data[k]
		var vCopy []byte
		if ok {
			vCopy = make([]byte, len(v))
			copy(vCopy, v)
		}
		m.mu.RUnlock()
		if !ok {
			continue // deleted between reindex and read
		}
		if !fn([]byte(k), vCopy) {
			break
		}
	}
	return nil
}

func (m *MemoryStore) reindexLocked() {
	if !m.dirty && m.sorted != nil {
		return
	}
	m.sorted = make([]string, 0, len(m.data))
	for k := range m.data {
		m.sorted = append(m.sorted, k)
	}
	sort.Strings(m.sorted)
	m.dirty = false
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, v := range m.data {
		total += len(v)
	}
	return Stats{Keys: len(m.data), Bytes: total}
}

// snapshotEntry is one row of a MemoryStore's gob-encoded on-disk form.
// There is no embedded disk-storage engine in scope here (the teacher's
// own storage.Store is in-memory only); a MemoryStore snapshot file is
// the closest equivalent to the real engine's SST files that
// data-inspector's --db_path flag can point at.
type snapshotEntry struct {
	Key   []byte
	Value []byte
}

// LoadSnapshot reads a MemoryStore previously written by SaveSnapshot.
func LoadSnapshot(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kv: open snapshot %s: %w", path, err)
	}
	defer f.Close()

	var entries []snapshotEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("kv: decode snapshot %s: %w", path, err)
	}
	m := NewMemoryStore()
	for _, e := range entries {
		if err := m.Put(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SaveSnapshot writes every key in m to path in ascending order.
func (m *MemoryStore) SaveSnapshot(path string) error {
	entries := make([]snapshotEntry, 0)
	if err := m.Scan(nil, func(k, v []byte) bool {
		entries = append(entries, snapshotEntry{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
		return true
	}); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kv: create snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("kv: encode snapshot %s: %w", path, err)
	}
	return nil
}
