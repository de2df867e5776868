// Command data-inspector is a read-only CLI over a storaged snapshot
// file: it opens the file internal/kv.LoadSnapshot understands and
// reports on or dumps the keylayout-encoded rows inside it, the same
// debugging role nebula's own db_dump tool plays against RocksDB SST
// files.
//
// Usage:
//
//	data-inspector info  --db_path snap.db
//	data-inspector stats --db_path snap.db --num_samples 20
//	data-inspector dump  --db_path snap.db --prefix "type:vertex;part:1" --num_entries_to_dump 50
//
// Exit codes: 0 success, 1 failed to open --db_path, 255 bad arguments.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dreamware/nebulet/internal/keylayout"
	"github.com/dreamware/nebulet/internal/kv"
)

const (
	exitOK       = 0
	exitOpenFail = 1
	exitBadArgs  = 255
)

var (
	dbPath           string
	prefixSpec       string
	numSamples       int
	numEntriesToDump int
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{Use: "data-inspector"}
	root.PersistentFlags().StringVar(&dbPath, "db_path", "", "path to a storaged snapshot file")
	root.PersistentFlags().StringVar(&prefixSpec, "prefix", "", `key prefix filter, "field:value;field:value" (fields: type, part)`)
	root.PersistentFlags().IntVar(&numSamples, "num_samples", 10, "number of sample rows for stats")
	root.PersistentFlags().IntVar(&numEntriesToDump, "num_entries_to_dump", 50, "max rows dump prints")

	code := exitOK
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.AddCommand(infoCmd(&code), statsCmd(&code), dumpCmd(&code))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "data-inspector:", err)
		if code == exitOK {
			code = exitBadArgs
		}
	}
	return code
}

func openStore(code *int) (*kv.MemoryStore, error) {
	if dbPath == "" {
		*code = exitBadArgs
		return nil, fmt.Errorf("--db_path is required")
	}
	store, err := kv.LoadSnapshot(dbPath)
	if err != nil {
		*code = exitOpenFail
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return store, nil
}

func infoCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "summarize key counts by type",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(code)
			if err != nil {
				return err
			}
			prefix, err := parsePrefix(prefixSpec)
			if err != nil {
				*code = exitBadArgs
				return err
			}

			counts := map[keylayout.KeyType]int{}
			total := 0
			err = store.Scan(prefix, func(key, _ []byte) bool {
				t, derr := keylayout.Type(key)
				if derr == nil {
					counts[t]++
				}
				total++
				return true
			})
			if err != nil {
				*code = exitOpenFail
				return err
			}

			fmt.Printf("total keys: %d\n", total)
			types := make([]keylayout.KeyType, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			for _, t := range types {
				fmt.Printf("  %-10s %d\n", t, counts[t])
			}
			return nil
		},
	}
}

func statsCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "report store size and a sample of row sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(code)
			if err != nil {
				return err
			}
			prefix, err := parsePrefix(prefixSpec)
			if err != nil {
				*code = exitBadArgs
				return err
			}

			stats := store.Stats()
			fmt.Printf("keys: %d\nbytes: %d\n", stats.Keys, stats.Bytes)

			sampled := 0
			fmt.Printf("sample (up to %d rows):\n", numSamples)
			return store.Scan(prefix, func(key, value []byte) bool {
				if sampled >= numSamples {
					return false
				}
				fmt.Printf("  %s  key=%d bytes value=%d bytes\n", describeKey(key), len(key), len(value))
				sampled++
				return true
			})
		},
	}
}

func dumpCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "print decoded rows matching --prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(code)
			if err != nil {
				return err
			}
			prefix, err := parsePrefix(prefixSpec)
			if err != nil {
				*code = exitBadArgs
				return err
			}

			printed := 0
			return store.Scan(prefix, func(key, value []byte) bool {
				if printed >= numEntriesToDump {
					return false
				}
				fmt.Printf("%s  value=%s\n", describeKey(key), hex.EncodeToString(value))
				printed++
				return true
			})
		},
	}
}

// describeKey renders a best-effort human-readable form of key: its type
// plus partition, falling back to a hex dump for types with no fixed
// layout data-inspector understands.
func describeKey(key []byte) string {
	t, err := keylayout.Type(key)
	if err != nil {
		return fmt.Sprintf("invalid(%s)", hex.EncodeToString(key))
	}
	part, _ := keylayout.Partition(key)
	switch t {
	case keylayout.KeySystem:
		if f, err := keylayout.DecodeSystemKey(key); err == nil {
			return fmt.Sprintf("System part=%d sysType=%d", f.Part, f.SysType)
		}
	case keylayout.KeyKV:
		if f, err := keylayout.DecodeKVKey(key); err == nil {
			return fmt.Sprintf("KV part=%d name=%q", f.Part, string(f.Name))
		}
	}
	return fmt.Sprintf("%s part=%d raw=%s", t, part, hex.EncodeToString(key))
}

// parsePrefix turns a "field:value;field:value" spec into a raw key
// prefix. Recognized fields: type (vertex|edge|index|system|operation|kv),
// part (decimal partition id). Fields are applied in fixed layout order
// (type byte, then 3-byte LE partition) regardless of spec order, since a
// prefix scan can't skip leading bytes.
func parsePrefix(spec string) ([]byte, error) {
	if spec == "" {
		return nil, nil
	}
	var (
		hasType bool
		typ     keylayout.KeyType
		hasPart bool
		part    uint32
	)
	for _, clause := range strings.Split(spec, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		parts := strings.SplitN(clause, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed --prefix clause %q, want field:value", clause)
		}
		field, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch field {
		case "type":
			t, err := parseKeyType(value)
			if err != nil {
				return nil, err
			}
			typ, hasType = t, true
		case "part":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("--prefix part=%q: %w", value, err)
			}
			part, hasPart = uint32(n), true
		default:
			return nil, fmt.Errorf("--prefix: unknown field %q", field)
		}
	}

	var out []byte
	if hasType {
		out = append(out, byte(typ))
	}
	if hasPart {
		if !hasType {
			return nil, fmt.Errorf("--prefix: part requires type")
		}
		b := make([]byte, 3)
		b[0] = byte(part)
		b[1] = byte(part >> 8)
		b[2] = byte(part >> 16)
		out = append(out, b...)
	}
	return out, nil
}

func parseKeyType(s string) (keylayout.KeyType, error) {
	switch strings.ToLower(s) {
	case "vertex":
		return keylayout.KeyVertex, nil
	case "edge":
		return keylayout.KeyEdge, nil
	case "index":
		return keylayout.KeyIndex, nil
	case "system":
		return keylayout.KeySystem, nil
	case "operation":
		return keylayout.KeyOperation, nil
	case "kv":
		return keylayout.KeyKV, nil
	default:
		return 0, fmt.Errorf("unknown key type %q", s)
	}
}
