package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/stackgen-dev/stackgen/internal/branding"
	"github.com/stackgen-dev/stackgen/internal/devkit"
	"github.com/stackgen-dev/stackgen/internal/schema"
)

var (
	checkRuntime   bool
	checkWorkspace bool
	checkConfig    string
)

func init() {
	doctorCmd.Flags().BoolVar(&checkRuntime, "check-runtime", false, "Verify node, npm, cdk and git are available")
	doctorCmd.Flags().BoolVar(&checkWorkspace, "check-workspace", false, "Verify the workspace root and its git status")
	doctorCmd.Flags().StringVar(&checkConfig, "check-config", "", "Validate a cdk.json file at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

type checkStatus int

const (
	statusOK checkStatus = iota
	statusInfo
	statusWarn
	statusMiss
	statusFail
)

func (s checkStatus) label() string {
	switch s {
	case statusOK:
		return okStyle.Render("[ OK ]")
	case statusInfo:
		return dimStyle.Render("[INFO]")
	case statusWarn:
		return warnStyle.Render("[WARN]")
	case statusMiss:
		return warnStyle.Render("[MISS]")
	default:
		return failStyle.Render("[FAIL]")
	}
}

func report(w io.Writer, s checkStatus, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", s.label(), fmt.Sprintf(format, args...))
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment " + branding.CLIName() + " generates into",
	Long: `Run diagnostic checks: required binaries, the workspace root and its git
status. With --check-config, validate an existing cdk.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		all := !checkRuntime && !checkWorkspace && checkConfig == ""

		if all || checkRuntime {
			runRuntimeCheck(out)
		}
		if all || checkWorkspace {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving working directory: %w", err)
			}
			runWorkspaceCheck(out, cwd)
		}
		if checkConfig != "" {
			return runConfigCheck(out, checkConfig)
		}
		return nil
	},
}

func runRuntimeCheck(w io.Writer) {
	fmt.Fprintln(w, headerStyle.Render("Runtime check:"))
	for _, name := range []string{"node", "npm", "cdk", "git"} {
		checkBinary(w, name)
	}
}

func checkBinary(w io.Writer, name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		report(w, statusMiss, "%s not found", name)
		return
	}
	report(w, statusOK, "%s found at %s", name, path)
}

func runWorkspaceCheck(w io.Writer, start string) {
	fmt.Fprintln(w, headerStyle.Render("Workspace check:"))

	root, err := findWorkspaceRoot(start)
	if err != nil {
		report(w, statusFail, "%v", err)
		return
	}
	report(w, statusOK, "workspace root: %s", root)

	for _, f := range []string{"nx.json", devkit.PackageJSONPath} {
		if fileExists(filepath.Join(root, f)) {
			report(w, statusOK, "%s present", f)
		} else {
			report(w, statusWarn, "%s missing", f)
		}
	}

	tree := devkit.NewFsTree(root)
	if names, err := devkit.ProjectNames(tree); err != nil {
		report(w, statusWarn, "cannot read projects: %v", err)
	} else {
		report(w, statusInfo, "%d project(s) registered", len(names))
	}

	checkGitStatus(w, root)
}

func checkGitStatus(w io.Writer, root string) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			report(w, statusInfo, "not a git repository")
			return
		}
		report(w, statusWarn, "cannot open git repository: %v", err)
		return
	}
	wt, err := repo.Worktree()
	if err != nil {
		report(w, statusInfo, "bare git repository")
		return
	}
	status, err := wt.Status()
	if err != nil {
		report(w, statusWarn, "cannot read git status: %v", err)
		return
	}
	if status.IsClean() {
		report(w, statusOK, "git working tree is clean")
		return
	}
	report(w, statusWarn, "git working tree has %d uncommitted change(s)", len(status))
}

func runConfigCheck(w io.Writer, path string) error {
	fmt.Fprintln(w, headerStyle.Render("CDK config validation: "+path))

	result, err := schema.ValidateFile(schema.KindCDK, path)
	if err != nil {
		report(w, statusFail, "%v", err)
		return fmt.Errorf("cdk config validation failed: %w", err)
	}

	if result.Valid {
		report(w, statusOK, "valid cdk.json")
		return nil
	}

	report(w, statusFail, "%d validation issue(s):", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "    - %s\n", issue)
	}
	return fmt.Errorf("cdk config %s has %d validation issue(s)", path, len(result.Issues))
}
