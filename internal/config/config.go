// Package config loads the static space/partition/schema configuration
// both daemon binaries start from: which spaces exist, how many
// partitions each has and which hosts lead them, and the tag/edge
// schemas registered in each space. The teacher's binaries take their
// (much smaller) configuration from environment variables and flags; a
// graph space's partition map and schema set is too structured for that,
// so this package loads it from a YAML file instead, in the same
// unmarshal-into-a-plain-struct style the teacher uses for its JSON wire
// types.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/nebulet/internal/router"
	"github.com/dreamware/nebulet/internal/schema"
)

// FieldConfig is one schema field as written in YAML.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Default  any    `yaml:"default,omitempty"`
}

// SchemaConfig declares one tag or edge schema version.
type SchemaConfig struct {
	Space   string        `yaml:"space"`
	Name    string        `yaml:"name"`
	Version uint32        `yaml:"version"`
	Fields  []FieldConfig `yaml:"fields"`
}

// PartitionConfig lists the ordered leader-first host set for one
// partition.
type PartitionConfig struct {
	ID    int      `yaml:"id"`
	Hosts []string `yaml:"hosts"`
}

// SpaceConfig declares one graph space: its partition count, VID width
// and per-partition host assignment.
type SpaceConfig struct {
	Name       string            `yaml:"name"`
	PartCount  int               `yaml:"part_count"`
	VidLen     int               `yaml:"vid_len"`
	Partitions []PartitionConfig `yaml:"partitions"`
}

// Cluster is the top-level document: every space and every schema
// version the cluster knows about.
type Cluster struct {
	Spaces  []SpaceConfig  `yaml:"spaces"`
	Schemas []SchemaConfig `yaml:"schemas"`
}

// Load reads and parses a cluster configuration file.
func Load(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Cluster
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func (c *Cluster) validate() error {
	for _, sp := range c.Spaces {
		if sp.Name == "" {
			return fmt.Errorf("space with empty name")
		}
		if sp.PartCount <= 0 {
			return fmt.Errorf("space %q: part_count must be positive", sp.Name)
		}
		if sp.VidLen <= 0 {
			return fmt.Errorf("space %q: vid_len must be positive", sp.Name)
		}
		for _, p := range sp.Partitions {
			if p.ID < 1 || p.ID > sp.PartCount {
				return fmt.Errorf("space %q: partition %d out of range [1,%d]", sp.Name, p.ID, sp.PartCount)
			}
			if len(p.Hosts) == 0 {
				return fmt.Errorf("space %q: partition %d has no hosts", sp.Name, p.ID)
			}
		}
	}
	return nil
}

// BuildRouter materializes a router.Registry from the parsed
// configuration, one DeclareSpace/Assign call per space/partition, the
// shape metad's startup path and storaged's client-side routing table
// both need.
func (c *Cluster) BuildRouter(leaderCacheSize int) (*router.Registry, error) {
	reg := router.New(leaderCacheSize)
	for _, sp := range c.Spaces {
		if err := reg.DeclareSpace(sp.Name, sp.PartCount); err != nil {
			return nil, fmt.Errorf("config: declare space %q: %w", sp.Name, err)
		}
		for _, p := range sp.Partitions {
			leader := p.Hosts[0]
			followers := append([]string(nil), p.Hosts[1:]...)
			if err := reg.Assign(sp.Name, p.ID, leader, followers); err != nil {
				return nil, fmt.Errorf("config: assign space %q partition %d: %w", sp.Name, p.ID, err)
			}
		}
	}
	return reg, nil
}

// BuildSchemaRegistry materializes a schema.Registry, one Static
// provider per (space, name, version) tuple declared in the
// configuration.
func (c *Cluster) BuildSchemaRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, sc := range c.Schemas {
		fields := make([]schema.Field, 0, len(sc.Fields))
		for _, f := range sc.Fields {
			ft, err := fieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("config: schema %s/%s: field %s: %w", sc.Space, sc.Name, f.Name, err)
			}
			fields = append(fields, schema.Field{
				Name:     f.Name,
				Type:     ft,
				Nullable: f.Nullable,
				Default:  f.Default,
			})
		}
		key := schema.Key{Space: sc.Space, Name: sc.Name, Version: sc.Version}
		if err := reg.Register(key, schema.NewStatic(sc.Version, fields)); err != nil {
			return nil, fmt.Errorf("config: register schema %s/%s v%d: %w", sc.Space, sc.Name, sc.Version, err)
		}
	}
	return reg, nil
}

func fieldType(name string) (schema.FieldType, error) {
	switch name {
	case "bool":
		return schema.FieldBool, nil
	case "int64":
		return schema.FieldInt64, nil
	case "timestamp":
		return schema.FieldTimestamp, nil
	case "float":
		return schema.FieldFloat, nil
	case "double":
		return schema.FieldDouble, nil
	case "vid":
		return schema.FieldVid, nil
	case "string":
		return schema.FieldString, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", name)
	}
}

// VidLen returns the configured VID width for space, or an error if the
// space is unknown. keylayout and the codec both need this to size
// fixed-width key/VID fields.
func (c *Cluster) VidLen(space string) (int, error) {
	for _, sp := range c.Spaces {
		if sp.Name == space {
			return sp.VidLen, nil
		}
	}
	return 0, fmt.Errorf("config: unknown space %q", space)
}
