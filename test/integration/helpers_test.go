//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-dev/stackgen/internal/devkit"
	"github.com/stackgen-dev/stackgen/internal/generators/app"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir      string // STACKGEN_HOME, the workspace root the CLI resolves
	WorkspaceDir string // an on-disk Nx workspace
}

// setupTestEnv creates an on-disk workspace, makes it the working directory
// and points STACKGEN_HOME at it. Everything is restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ws := t.TempDir()
	env := &testEnv{HomeDir: ws, WorkspaceDir: ws}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("STACKGEN_HOME", env.HomeDir)
	t.Chdir(ws)

	writeFile(t, filepath.Join(ws, "nx.json"), `{
  "targetDefaults": {
    "build": { "cache": true }
  }
}
`)
	writeFile(t, filepath.Join(ws, "package.json"), `{
  "name": "@acme/source",
  "private": true,
  "scripts": {
    "deploy:all": "nx run-many -t deploy && echo done"
  },
  "dependencies": {
    "constructs": "^10.3.0"
  },
  "devDependencies": {
    "nx": "19.8.0",
    "typescript": "~5.5.2"
  }
}
`)
	writeFile(t, filepath.Join(ws, "tsconfig.base.json"), "{\n  \"compilerOptions\": {}\n}\n")
	writeFile(t, filepath.Join(ws, "pnpm-lock.yaml"), "lockfileVersion: '9.0'\n")

	return env
}

// recordingRunner captures install commands instead of running them.
type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) Run(_ context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, dir+": "+name+" "+strings.Join(args, " "))
	return nil
}

// generateApp runs the app generator against the workspace on disk and
// flushes its changes, the way the generate command does.
func generateApp(t *testing.T, env *testEnv, schema app.Schema, runner devkit.CommandRunner) (devkit.Callback, error) {
	t.Helper()

	tree := devkit.NewFsTree(env.WorkspaceDir)
	install, err := app.Generate(tree, schema, app.Options{Runner: runner})
	if err != nil {
		return nil, err
	}
	require.NoError(t, devkit.FlushChanges(tree.Root(), tree.ListChanges()))
	return install, nil
}

// writeFile creates a file with the given content, creating parent dirs.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// readFile returns the content of path or fails the test.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if assert.NoError(t, err) {
		assert.Contains(t, string(data), substr, "file %s", path)
	}
}
