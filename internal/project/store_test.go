package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONMissingKeepsValue(t *testing.T) {
	v := map[string]int{"keep": 1}
	found, err := readJSON(filepath.Join(t.TempDir(), "none.json"), &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, map[string]int{"keep": 1}, v)
}

func TestWriteAndReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.json")
	require.NoError(t, writeJSON(path, []int{3, 1, 2}))

	var got []int
	found, err := readJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{3, 1, 2}, got)

	_, err = readJSON(writeFile(t, t.TempDir(), "bad.json", "[1,"), &got)
	assert.ErrorContains(t, err, "bad.json")
}

func TestMergeByID(t *testing.T) {
	id := func(s string) string { return s[:1] }
	dst := []string{"a1", "b1"}
	got := mergeByID(dst, []string{"b2", "c1", "c2"}, id)
	assert.Equal(t, []string{"a1", "b1", "c1"}, got)
	assert.Equal(t, []string{"a1", "b1"}, dst)
}
