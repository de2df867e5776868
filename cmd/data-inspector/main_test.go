package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/keylayout"
)

func TestParsePrefixEmptyReturnsNil(t *testing.T) {
	p, err := parsePrefix("")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParsePrefixTypeOnly(t *testing.T) {
	p, err := parsePrefix("type:vertex")
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(keylayout.KeyVertex)}, p)
}

func TestParsePrefixTypeAndPart(t *testing.T) {
	p, err := parsePrefix("type:edge;part:258")
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(keylayout.KeyEdge), 2, 1, 0}, p)
}

func TestParsePrefixPartWithoutTypeErrors(t *testing.T) {
	_, err := parsePrefix("part:1")
	assert.Error(t, err)
}

func TestParsePrefixUnknownFieldErrors(t *testing.T) {
	_, err := parsePrefix("bogus:1")
	assert.Error(t, err)
}

func TestParsePrefixMalformedClauseErrors(t *testing.T) {
	_, err := parsePrefix("no-colon-here")
	assert.Error(t, err)
}

func TestDescribeKeySystemKey(t *testing.T) {
	key := keylayout.SystemKey(7, keylayout.SystemKeyType(3))
	assert.Contains(t, describeKey(key), "System part=7")
}

func TestDescribeKeyVertexFallsBackToRawForm(t *testing.T) {
	key := keylayout.VertexKey(1, []byte("v1"), 8, 42)
	desc := describeKey(key)
	assert.Contains(t, desc, "Vertex part=1")
}
