package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/nodes"
	"github.com/ib-77/framerail/pkg/rail"
)

// execute runs the root command; commands share global flag state, so these
// tests do not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--log-format", "text", "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNodesCommand(t *testing.T) {
	out, err := execute(t, "nodes")
	require.NoError(t, err)
	for _, name := range nodes.Names() {
		assert.Contains(t, out, name)
	}
}

func TestDescribeCommand(t *testing.T) {
	out, err := execute(t, "describe", "RawDirectoryReader")
	require.NoError(t, err)
	assert.Contains(t, out, "file-pattern")
	assert.Contains(t, out, "string (mandatory)")

	_, err = execute(t, "describe", "Ffmpeg")
	assert.ErrorIs(t, err, nodes.ErrUnknownNode)
}

func TestShadersCommand(t *testing.T) {
	out, err := execute(t, "shaders")
	require.NoError(t, err)
	assert.Contains(t, out, "debayer")
	assert.Contains(t, out, "gamma")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	pipeline := filepath.Join(dir, "record.yaml")
	require.NoError(t, os.WriteFile(pipeline, []byte(`
nodes:
  - node: TestPattern
    parameters: {width: 8, height: 4, frames: 3}
  - node: RawDirectoryWriter
    parameters: {path: unused}
`), 0o644))

	out, err := execute(t, "run", pipeline,
		"--param", "TestPattern.frames=5",
		"--param", "1.path="+filepath.Join(dir, "take"))
	require.NoError(t, err)
	assert.Contains(t, out, "RawDirectoryWriter")

	index, err := nodes.ReadIndex(filepath.Join(dir, "take", nodes.IndexFile))
	require.NoError(t, err)
	assert.Len(t, index, 5)

	_, err = execute(t, "run", pipeline, "--param", "frames=5")
	assert.ErrorContains(t, err, "invalid --param")
}

func TestSplitOverride(t *testing.T) {
	ref, key, value, err := splitOverride("Debayer.shader=debayer() gamma(gamma: 2.4)")
	require.NoError(t, err)
	assert.Equal(t, []string{"Debayer", "shader", "debayer() gamma(gamma: 2.4)"}, []string{ref, key, value})

	for _, bad := range []string{"Debayer", "Debayer=1", ".x=1", "Debayer.=1"} {
		_, _, _, err := splitOverride(bad)
		assert.Error(t, err, bad)
	}
}

type closingNode struct{ closed int }

func (n *closingNode) Process(context.Context, buffer.Payload, *rail.Token) (*buffer.Payload, error) {
	return nil, nil
}

func (n *closingNode) Close() error {
	n.closed++
	return nil
}

func TestStart_ClosesNodesWhenRefused(t *testing.T) {
	first, last := &closingNode{}, &closingNode{}
	_, err := start(context.Background(), []rail.Node{first, last}, rail.WithQueueDepth(rail.MaxQueueDepth+1))
	assert.ErrorIs(t, err, rail.ErrQueueDepth)
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 1, last.closed)
}
