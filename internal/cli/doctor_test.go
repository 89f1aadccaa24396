package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfigCheck(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "cdk.json")
	invalid := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"app":"dist/packages/orders/main.js","context":{"@aws-cdk/core:checkSecretUsage":true}}`), 0644))
	require.NoError(t, os.WriteFile(invalid, []byte(`{"context":{"flag":3}}`), 0644))

	var buf bytes.Buffer
	assert.NoError(t, runConfigCheck(&buf, valid), buf.String())

	buf.Reset()
	require.Error(t, runConfigCheck(&buf, invalid))
	assert.Contains(t, buf.String(), "validation issue")

	buf.Reset()
	assert.Error(t, runConfigCheck(&buf, filepath.Join(dir, "missing.json")))
}

func TestRunWorkspaceCheck(t *testing.T) {
	t.Setenv("STACKGEN_HOME", "")
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "nx.json"))
	mkfile(t, filepath.Join(root, "package.json"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", "orders"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "packages", "orders", "project.json"), []byte(`{"name":"orders"}`), 0644))

	var buf bytes.Buffer
	runWorkspaceCheck(&buf, root)
	out := buf.String()

	for _, want := range []string{
		"workspace root: " + root,
		"nx.json present",
		"package.json present",
		"1 project(s) registered",
	} {
		assert.Contains(t, out, want)
	}
}
