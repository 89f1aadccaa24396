package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackgen-dev/stackgen/internal/branding"
	"github.com/stackgen-dev/stackgen/internal/devkit"
)

// errNoWorkspace is returned when no workspace root can be found.
var errNoWorkspace = errors.New("not inside an Nx workspace")

// findWorkspaceRoot resolves the workspace the CLI operates on. The
// STACKGEN_HOME environment variable wins; otherwise the nearest ancestor of
// start holding nx.json, then the nearest holding package.json.
func findWorkspaceRoot(start string) (string, error) {
	if home := os.Getenv(branding.EnvVar("HOME")); home != "" {
		return filepath.Abs(home)
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	var manifestDir string
	for {
		if fileExists(filepath.Join(dir, "nx.json")) {
			return dir, nil
		}
		if manifestDir == "" && fileExists(filepath.Join(dir, devkit.PackageJSONPath)) {
			manifestDir = dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if manifestDir != "" {
		return manifestDir, nil
	}
	return "", fmt.Errorf("%w: no nx.json or package.json above %s (set %s to override)", errNoWorkspace, start, branding.EnvVar("HOME"))
}

// currentWorkspace opens a tree on the workspace containing the working
// directory.
func currentWorkspace() (devkit.Tree, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	root, err := findWorkspaceRoot(cwd)
	if err != nil {
		return nil, err
	}
	return devkit.NewFsTree(root), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
