package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

var smallFlags = []string{
	"--vectors", "200", "--queries", "10", "--dim", "4", "--k", "3",
	"--m", "8", "--ef-construction", "32", "--nlist", "4", "--seed", "1",
	"--log-level", "error",
}

func TestDemoCommand(t *testing.T) {
	out, err := execute(t, append([]string{"demo"}, smallFlags...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "HNSW Results:")
	assert.Contains(t, out, "IVF Results:")
	assert.Contains(t, out, "  Index: ")
}

func TestRecallCommand(t *testing.T) {
	args := append([]string{"recall"}, smallFlags...)
	args = append(args, "--index", "ivf", "--nprobe", "4", "--min-recall", "1")

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "ivf   recall@3=1.0000")
}

func TestRecallCommand_InvalidFlags(t *testing.T) {
	_, err := execute(t, "recall", "--index", "flat")
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, err = execute(t, "recall", "--min-recall", "2")
	assert.ErrorIs(t, err, ErrInvalidMinRecall)
}
