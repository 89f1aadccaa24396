package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackgen-dev/stackgen/internal/config"
	"github.com/stackgen-dev/stackgen/internal/devkit"
	"github.com/stackgen-dev/stackgen/internal/generators/app"
)

var (
	generateStack       string
	generateSkipInstall bool
	generateCDKConfig   string
	generateNoPrompt    bool
)

func init() {
	generateAppCmd.Flags().StringVar(&generateStack, "stack", "", "Name of the CDK stack (default: <ClassName>Stack)")
	generateAppCmd.Flags().BoolVar(&generateSkipInstall, "skip-install", false, "Do not install packages after generating")
	generateAppCmd.Flags().StringVar(&generateCDKConfig, "cdk-config", "", "Where to write cdk.json, relative to the working directory")
	generateAppCmd.Flags().BoolVar(&generateNoPrompt, "no-interactive", false, "Never prompt for missing options")

	generateCmd.AddCommand(generateAppCmd)
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"g"},
	Short:   "Generate code into the workspace",
}

var generateAppCmd = &cobra.Command{
	Use:   "app [name]",
	Short: "Generate an AWS CDK application",
	Long: `Generate an AWS CDK application under packages/<name>.

The project gets a "build" target (esbuild, CommonJS, node platform) and a
"deploy" target that runs "cdk deploy --require-approval never" after build.
cdk.json is written relative to the working directory and the CDK packages
are added to the workspace package.json.

Examples:
  stackgen generate app orders --stack OrdersStack
  stackgen g app billing-api --skip-install`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerateApp,
}

func runGenerateApp(cmd *cobra.Command, args []string) error {
	opts := app.Schema{Stack: generateStack}
	if len(args) > 0 {
		opts.Name = args[0]
	}

	if !generateNoPrompt && stdinIsTerminal() {
		if err := promptAppSchema(&opts, opts.Name == "" && !cmd.Flags().Changed("stack")); err != nil {
			return err
		}
	}
	if opts.Name == "" {
		return fmt.Errorf("%w: a project name is required", app.ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	tree, err := currentWorkspace()
	if err != nil {
		return err
	}

	cdkPath := generateCDKConfig
	if cdkPath == "" {
		cdkPath = config.Get(config.KeyCDKConfigPath)
	}
	_, statErr := os.Stat(cdkPath)
	cdkChange := devkit.ChangeCreate
	if statErr == nil {
		cdkChange = devkit.ChangeUpdate
	}

	install, err := app.Generate(tree, opts, app.Options{
		CDKConfigPath:  cdkPath,
		VersionTag:     config.Get(config.KeyDependencyTag),
		PackageManager: devkit.PackageManager(config.Get(config.KeyPackageManager)),
		Runner:         &devkit.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()},
	})
	if err != nil {
		return fmt.Errorf("generating app %q: %w", opts.Name, err)
	}

	out := cmd.OutOrStdout()
	changes := tree.ListChanges()
	printChanges(out, changes)
	if data, err := os.ReadFile(cdkPath); err == nil {
		printChange(out, devkit.FileChange{Path: displayPath(cdkPath), Type: cdkChange, Content: data})
	}

	if err := devkit.FlushChanges(tree.Root(), changes); err != nil {
		return fmt.Errorf("writing changes: %w", err)
	}

	fmt.Fprintf(out, "\nGenerated %s (stack %s) in packages/%s\n", opts.Name, opts.StackName(), opts.Name)

	if generateSkipInstall || config.GetBool(config.KeySkipInstall) {
		fmt.Fprintln(out, "Skipped package installation. Run your package manager's install to finish.")
		return nil
	}
	return devkit.RunCallbacks(cmd.Context(), install)
}

// displayPath shortens p relative to the working directory when possible.
func displayPath(p string) string {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return p
	}
	if rel, err := filepath.Rel(cwd, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}
