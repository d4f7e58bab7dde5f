package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404wolf/gpusensorfs/sensorfs"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteTree(t *testing.T) {
	tree := []sensorfs.TreeDevice{
		{Device: "0", Files: []sensorfs.TreeFile{{Name: "temperature", Value: "45000"}, {Name: "name"}}},
	}

	t.Run("Tree", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeTree(&out, tree, "tree"))
		assert.Equal(t, "/\n  0/\n    temperature            45000\n    name\n", out.String())
	})

	t.Run("Json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeTree(&out, tree, "json"))
		assert.Contains(t, out.String(), `"name": "temperature"`)
		assert.Contains(t, out.String(), `"value": "45000"`)
	})

	t.Run("Yaml", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeTree(&out, tree, "yaml"))
		assert.Contains(t, out.String(), "device:")
		assert.Contains(t, out.String(), "45000")
	})

	t.Run("Unknown format", func(t *testing.T) {
		assert.Error(t, writeTree(&bytes.Buffer{}, tree, "xml"))
	})

	t.Run("Write errors are returned", func(t *testing.T) {
		err := writeTree(failingWriter{}, tree, "tree")
		assert.ErrorContains(t, err, "broken pipe")
	})
}
