package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
spaces:
  - name: social
    part_count: 4
    vid_len: 8
    partitions:
      - id: 1
        hosts: ["host-a", "host-b"]
      - id: 2
        hosts: ["host-b"]
schemas:
  - space: social
    name: person
    version: 1
    fields:
      - name: name
        type: string
        nullable: false
      - name: age
        type: int64
        nullable: true
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesSpacesAndSchemas(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Spaces, 1)
	assert.Equal(t, "social", c.Spaces[0].Name)
	assert.Equal(t, 4, c.Spaces[0].PartCount)
	require.Len(t, c.Schemas, 1)
	assert.Equal(t, "person", c.Schemas[0].Name)
}

func TestLoadRejectsPartitionOutOfRange(t *testing.T) {
	bad := `
spaces:
  - name: social
    part_count: 2
    vid_len: 8
    partitions:
      - id: 5
        hosts: ["host-a"]
`
	path := writeTemp(t, bad)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingHosts(t *testing.T) {
	bad := `
spaces:
  - name: social
    part_count: 2
    vid_len: 8
    partitions:
      - id: 1
        hosts: []
`
	path := writeTemp(t, bad)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBuildRouterAssignsLeaderAndFollowers(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	c, err := Load(path)
	require.NoError(t, err)

	reg, err := c.BuildRouter(0)
	require.NoError(t, err)

	a := reg.Assignment("social", 1)
	require.NotNil(t, a)
	assert.Equal(t, "host-a", a.Leader)
	assert.Equal(t, []string{"host-b"}, a.Followers)
}

func TestBuildSchemaRegistryRegistersFields(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	c, err := Load(path)
	require.NoError(t, err)

	reg, err := c.BuildSchemaRegistry()
	require.NoError(t, err)

	p, ver, ok := reg.Latest("social", "person")
	require.True(t, ok)
	assert.Equal(t, uint32(1), ver)
	assert.Equal(t, 2, p.NumFields())
	idx, ok := p.FieldIndex("age")
	require.True(t, ok)
	ft, err := p.FieldType(idx)
	require.NoError(t, err)
	assert.Equal(t, "int64", ft.String())
}

func TestVidLenLooksUpBySpace(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	c, err := Load(path)
	require.NoError(t, err)

	n, err := c.VidLen("social")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = c.VidLen("unknown")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
