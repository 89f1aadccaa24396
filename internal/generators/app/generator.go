package app

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"github.com/stackgen-dev/stackgen/internal/devkit"
	"github.com/stackgen-dev/stackgen/internal/schema"
)

//go:embed all:files
var templateFS embed.FS

const templateDir = "files"

const (
	// DefaultCDKConfigPath is where cdk.json is written, relative to the
	// process working directory.
	DefaultCDKConfigPath = "cdk.json"
	// DefaultVersionTag is the version constraint given to every dependency.
	DefaultVersionTag = "latest"

	packagesDir   = "packages"
	deployCommand = "cdk deploy --require-approval never"

	buildExecutor  = "@nx/esbuild:esbuild"
	deployExecutor = "nx:run-commands"
)

// ErrInvalidOptions is returned when the generator options are missing or
// do not match the app schema.
var ErrInvalidOptions = errors.New("invalid generator options")

// Schema holds the options the app generator accepts. It mirrors the app
// JSON schema.
type Schema struct {
	Name  string `json:"name"`
	Stack string `json:"stack,omitempty"`
}

// StackName returns the label of the generated stack: Stack when set,
// otherwise the project's class name followed by "Stack".
func (s Schema) StackName() string {
	if s.Stack != "" {
		return s.Stack
	}
	return devkit.Names(s.Name).ClassName + "Stack"
}

// stackIdentifiers returns the TypeScript class and file names for the
// stack. A label that yields no usable identifier falls back to the
// project's class name followed by "Stack".
func (s Schema) stackIdentifiers() devkit.NameVariants {
	stack := devkit.Names(s.StackName())
	if first, ok := firstRune(stack.ClassName); ok && unicode.IsLetter(first) {
		return stack
	}
	return devkit.Names(devkit.Names(s.Name).ClassName + "Stack")
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

// Validate checks the options against the app schema. The name becomes a
// directory under packages/, so anything that is not a plain identifier is
// rejected.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOptions)
	}
	result, err := schema.ValidateValue(schema.KindApp, s)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, result.Summary())
	}
	return nil
}

// Options tune where the generator writes and what it pins.
type Options struct {
	CDKConfigPath  string
	VersionTag     string
	PackageManager devkit.PackageManager
	Runner         devkit.CommandRunner
}

func (o Options) withDefaults() Options {
	if o.CDKConfigPath == "" {
		o.CDKConfigPath = DefaultCDKConfigPath
	}
	if o.VersionTag == "" {
		o.VersionTag = DefaultVersionTag
	}
	return o
}

// Generate scaffolds a CDK application project into the tree:
//
//  1. registers packages/<name> with build and deploy targets
//  2. renders the template files into packages/<name>
//  3. formats the changed files
//  4. writes cdk.json at opts.CDKConfigPath
//  5. merges the CDK and esbuild packages into package.json
//
// Steps run in order and stop at the first error. Nothing is rolled back.
// The returned Callback installs the added packages.
func Generate(tree devkit.Tree, app Schema, opts Options) (devkit.Callback, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	root := projectRoot(app.Name)

	slog.Debug("generating app", "name", app.Name, "stack", app.Stack, "root", root)

	if err := devkit.AddProjectConfiguration(tree, app.Name, NewProjectConfiguration(app.Name)); err != nil {
		return nil, err
	}

	if err := devkit.GenerateFiles(tree, templateFS, templateDir, root, substitutions(app)); err != nil {
		return nil, fmt.Errorf("generating files for %s: %w", app.Name, err)
	}

	if err := devkit.FormatFiles(tree); err != nil {
		return nil, fmt.Errorf("formatting files: %w", err)
	}

	if err := devkit.WriteJSONFile(opts.CDKConfigPath, NewCDKConfig(app.Name)); err != nil {
		return nil, err
	}

	return devkit.AddDependenciesToPackageJSON(tree,
		RuntimeDependencies(opts.VersionTag),
		DevDependencies(opts.VersionTag),
		devkit.WithPackageManager(opts.PackageManager),
		devkit.WithCommandRunner(opts.Runner),
	)
}

// NewProjectConfiguration returns the record registered for the project
// called name.
func NewProjectConfiguration(name string) devkit.ProjectConfiguration {
	root := projectRoot(name)
	return devkit.ProjectConfiguration{
		Root:        root,
		ProjectType: devkit.ProjectTypeApplication,
		SourceRoot:  root + "/src",
		Targets: map[string]devkit.TargetConfiguration{
			"build": {
				Executor: buildExecutor,
				Outputs:  []string{"{options.outputPath}"},
				Options: map[string]any{
					"platform":   "node",
					"outputPath": "dist/" + root,
					"format":     []string{"cjs"},
					"bundle":     false,
					"main":       root + "/src/main.ts",
					"tsConfig":   root + "/tsconfig.json",
					"esbuildOptions": map[string]any{
						"sourcemap":    false,
						"outExtension": map[string]string{".js": ".js"},
					},
				},
			},
			"deploy": {
				Executor: deployExecutor,
				Options: map[string]any{
					"command": deployCommand,
				},
				DependsOn: []devkit.TargetDependency{
					{Projects: []string{devkit.SelfProject}, Target: "build"},
				},
			},
		},
	}
}

// RuntimeDependencies are merged into "dependencies".
func RuntimeDependencies(version string) map[string]string {
	return map[string]string{
		"aws-cdk-lib": version,
		"constructs":  version,
	}
}

// DevDependencies are merged into "devDependencies".
func DevDependencies(version string) map[string]string {
	return map[string]string{
		"@nx/esbuild": version,
		"esbuild":     version,
		"aws-cdk":     version,
	}
}

func projectRoot(name string) string {
	return path.Join(packagesDir, name)
}

// substitutions is the template context: the options as given plus the
// derived identifiers the TypeScript templates need.
func substitutions(opts Schema) map[string]any {
	root := projectRoot(opts.Name)
	stackName := opts.StackName()
	stack := opts.stackIdentifiers()
	project := devkit.Names(opts.Name)

	return map[string]any{
		"name":           opts.Name,
		"stack":          opts.Stack,
		"stackName":      stackName,
		"stackClassName": stack.ClassName,
		"stackFileName":  stack.FileName,
		"className":      project.ClassName,
		"fileName":       project.FileName,
		"projectRoot":    root,
		"offsetFromRoot": devkit.OffsetFromRoot(root),
	}
}
