package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareSpaceIsIdempotentForSameCount(t *testing.T) {
	r := New(0)
	require.NoError(t, r.DeclareSpace("s1", 16))
	require.NoError(t, r.DeclareSpace("s1", 16))
	assert.Equal(t, 16, r.PartCount("s1"))
}

func TestDeclareSpaceRejectsConflictingCount(t *testing.T) {
	r := New(0)
	require.NoError(t, r.DeclareSpace("s1", 16))
	err := r.DeclareSpace("s1", 32)
	assert.Error(t, err)
}

func TestAssignAndLeaderLookup(t *testing.T) {
	r := New(8)
	require.NoError(t, r.DeclareSpace("s1", 4))
	require.NoError(t, r.Assign("s1", 1, "host-a:9000", []string{"host-b:9000"}))

	leader, ok := r.Leader("s1", 1)
	require.True(t, ok)
	assert.Equal(t, "host-a:9000", leader)

	a := r.Assignment("s1", 1)
	require.NotNil(t, a)
	assert.Equal(t, []string{"host-b:9000"}, a.Followers)
}

func TestAssignRejectsPartitionOutOfRange(t *testing.T) {
	r := New(0)
	require.NoError(t, r.DeclareSpace("s1", 4))
	assert.Error(t, r.Assign("s1", 0, "host-a", nil))
	assert.Error(t, r.Assign("s1", 5, "host-a", nil))
}

func TestAssignReplacesCachedLeader(t *testing.T) {
	r := New(8)
	require.NoError(t, r.DeclareSpace("s1", 4))
	require.NoError(t, r.Assign("s1", 1, "host-a", nil))
	_, _ = r.Leader("s1", 1) // populate cache

	require.NoError(t, r.Assign("s1", 1, "host-b", nil))
	leader, ok := r.Leader("s1", 1)
	require.True(t, ok)
	assert.Equal(t, "host-b", leader)
}

func TestClusterByHostGroupsAndReportsUnassigned(t *testing.T) {
	r := New(0)
	require.NoError(t, r.DeclareSpace("s1", 4))
	require.NoError(t, r.Assign("s1", 1, "host-a", nil))
	require.NoError(t, r.Assign("s1", 2, "host-a", nil))
	require.NoError(t, r.Assign("s1", 3, "host-b", nil))

	byHost, unassigned := r.ClusterByHost("s1", []int{1, 2, 3, 4})
	assert.ElementsMatch(t, []int{1, 2}, byHost["host-a"])
	assert.ElementsMatch(t, []int{3}, byHost["host-b"])
	assert.Equal(t, []int{4}, unassigned)
}

func TestPartitionForVIDIsDeterministicAndInRange(t *testing.T) {
	for _, vid := range [][]byte{[]byte("alice"), []byte("bob"), []byte("")} {
		p1 := PartitionForVID(vid, 16)
		p2 := PartitionForVID(vid, 16)
		assert.Equal(t, p1, p2)
		assert.GreaterOrEqual(t, p1, 1)
		assert.LessOrEqual(t, p1, 16)
	}
}

func TestPartitionForIntVIDWrapsNegative(t *testing.T) {
	p := PartitionForIntVID(-1, 8)
	assert.GreaterOrEqual(t, p, 1)
	assert.LessOrEqual(t, p, 8)

	// -1 mod 8 == -1 in Go; +8 wraps to 7, +1-based -> 8.
	assert.Equal(t, 8, p)
}

func TestHostsForSpaceDeduplicates(t *testing.T) {
	r := New(0)
	require.NoError(t, r.DeclareSpace("s1", 2))
	require.NoError(t, r.Assign("s1", 1, "host-a", []string{"host-b"}))
	require.NoError(t, r.Assign("s1", 2, "host-a", []string{"host-b"}))
	hosts := r.HostsForSpace("s1")
	assert.ElementsMatch(t, []string{"host-a", "host-b"}, hosts)
}
