package devkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Callback is deferred work a generator hands back to its caller, run after
// the tree has been flushed to disk.
type Callback func(ctx context.Context) error

// Noop is the Callback returned when there is nothing left to do.
func Noop(context.Context) error { return nil }

// RunCallbacks runs callbacks in order and stops at the first error.
func RunCallbacks(ctx context.Context, callbacks ...Callback) error {
	for _, cb := range callbacks {
		if cb == nil {
			continue
		}
		if err := cb(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PackageManager identifies the Node.js package manager of a workspace.
type PackageManager string

const (
	PackageManagerNPM  PackageManager = "npm"
	PackageManagerPNPM PackageManager = "pnpm"
	PackageManagerYarn PackageManager = "yarn"
	PackageManagerBun  PackageManager = "bun"
)

// lockfiles are checked in order; the first one present wins.
var lockfiles = []struct {
	name string
	pm   PackageManager
}{
	{"pnpm-lock.yaml", PackageManagerPNPM},
	{"yarn.lock", PackageManagerYarn},
	{"bun.lockb", PackageManagerBun},
	{"package-lock.json", PackageManagerNPM},
}

// DetectPackageManager picks the package manager from the lockfile in root,
// defaulting to npm.
func DetectPackageManager(root string) PackageManager {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.name)); err == nil {
			return lf.pm
		}
	}
	return PackageManagerNPM
}

// CommandRunner runs name with args in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands as child processes, streaming their output.
type ExecRunner struct {
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Run looks name up on PATH and executes it in dir. A missing binary is
// reported on Stderr and is not an error: the workspace is still usable and
// the user can install later.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	bin, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(stderr, "%s not found, skipping dependency installation (run `%s install` manually)\n", name, name)
		return nil
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s install in %s: %w", name, dir, err)
	}
	return nil
}

// InstallPackagesTask returns a Callback that installs the workspace's
// packages in root. An empty pm is detected from lockfiles when the callback
// runs; a nil runner uses ExecRunner.
func InstallPackagesTask(root string, pm PackageManager, runner CommandRunner) Callback {
	return func(ctx context.Context) error {
		if runner == nil {
			runner = &ExecRunner{}
		}
		manager := pm
		if manager == "" {
			manager = DetectPackageManager(root)
		}
		slog.Debug("installing packages", "root", root, "package_manager", manager)
		return runner.Run(ctx, root, string(manager), "install")
	}
}
