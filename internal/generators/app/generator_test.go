package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-dev/stackgen/internal/devkit"
)

type cdkFile struct {
	App     string          `json:"app"`
	Context json.RawMessage `json:"context"`
}

type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{dir, name}, args...))
	return nil
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{CDKConfigPath: filepath.Join(t.TempDir(), "cdk.json")}
}

func readCDK(t *testing.T, path string) cdkFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f cdkFile
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestGenerateRunsSuccessfully(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()

	_, err := Generate(tree, Schema{Name: "test", Stack: "MyTestStack"}, testOptions(t))
	require.NoError(t, err)

	cfg, err := devkit.ReadProjectConfiguration(tree, "test")
	require.NoError(t, err)
	assert.Equal(t, "packages/test/src", cfg.SourceRoot)
	assert.Equal(t, "packages/test", cfg.Root)
	assert.Equal(t, devkit.ProjectTypeApplication, cfg.ProjectType)
}

func TestGenerateBuildTarget(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "orders", Stack: "OrdersStack"}, testOptions(t))
	require.NoError(t, err)

	cfg, err := devkit.ReadProjectConfiguration(tree, "orders")
	require.NoError(t, err)

	build, ok := cfg.Targets["build"]
	require.True(t, ok, "build target missing")
	assert.Equal(t, "@nx/esbuild:esbuild", build.Executor)
	assert.Equal(t, []string{"{options.outputPath}"}, build.Outputs)
	assert.Equal(t, "dist/packages/orders", build.Options["outputPath"])
	assert.Equal(t, "node", build.Options["platform"])
	assert.Equal(t, []any{"cjs"}, build.Options["format"])
	assert.Equal(t, false, build.Options["bundle"])
	assert.Equal(t, "packages/orders/src/main.ts", build.Options["main"])
	assert.Equal(t, "packages/orders/tsconfig.json", build.Options["tsConfig"])
	assert.Equal(t, map[string]any{
		"sourcemap":    false,
		"outExtension": map[string]any{".js": ".js"},
	}, build.Options["esbuildOptions"])
}

func TestGenerateDeployDependsOnBuild(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "orders"}, testOptions(t))
	require.NoError(t, err)

	cfg, err := devkit.ReadProjectConfiguration(tree, "orders")
	require.NoError(t, err)

	deploy, ok := cfg.Targets["deploy"]
	require.True(t, ok, "deploy target missing")
	assert.Equal(t, "nx:run-commands", deploy.Executor)
	assert.Equal(t, "cdk deploy --require-approval never", deploy.Options["command"])
	assert.Equal(t, []devkit.TargetDependency{{Projects: []string{"self"}, Target: "build"}}, deploy.DependsOn)
}

func TestGenerateWritesTemplateFiles(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "test", Stack: "MyTestStack"}, testOptions(t))
	require.NoError(t, err)

	for _, p := range []string{
		"packages/test/project.json",
		"packages/test/tsconfig.json",
		"packages/test/README.md",
		"packages/test/src/main.ts",
		"packages/test/src/stacks/my-test-stack.ts",
	} {
		assert.True(t, tree.IsFile(p), "expected %s to be generated", p)
	}

	mainTS, err := tree.Read("packages/test/src/main.ts")
	require.NoError(t, err)
	assert.Contains(t, string(mainTS), "import { MyTestStack } from './stacks/my-test-stack';")
	assert.Contains(t, string(mainTS), "new MyTestStack(app, 'MyTestStack', {")

	stackTS, err := tree.Read("packages/test/src/stacks/my-test-stack.ts")
	require.NoError(t, err)
	assert.Contains(t, string(stackTS), "export class MyTestStack extends Stack {")

	tsconfig, err := tree.Read("packages/test/tsconfig.json")
	require.NoError(t, err)
	assert.Contains(t, string(tsconfig), `"extends": "../../tsconfig.base.json"`)
}

func TestGenerateDefaultsStackNameFromProject(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "billing-api"}, testOptions(t))
	require.NoError(t, err)

	mainTS, err := tree.Read("packages/billing-api/src/main.ts")
	require.NoError(t, err)
	assert.Contains(t, string(mainTS), "new BillingApiStack(app, 'BillingApiStack', {")
	assert.True(t, tree.IsFile("packages/billing-api/src/stacks/billing-api-stack.ts"))
}

func TestGenerateFormatsChangedFiles(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "test", Stack: "MyTestStack"}, testOptions(t))
	require.NoError(t, err)

	for _, c := range tree.ListChanges() {
		if c.Type == devkit.ChangeDelete || len(c.Content) == 0 {
			continue
		}
		assert.Equal(t, byte('\n'), c.Content[len(c.Content)-1], "%s should end with a newline", c.Path)
	}
}

func TestGenerateCDKConfigApp(t *testing.T) {
	tests := []struct {
		name  string
		stack string
	}{
		{"test", "MyTestStack"},
		{"test", "AnotherStack"},
		{"orders", ""},
		{"billing-api", "Billing"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.stack, func(t *testing.T) {
			opts := testOptions(t)
			_, err := Generate(devkit.NewEmptyWorkspaceTree(), Schema{Name: tt.name, Stack: tt.stack}, opts)
			require.NoError(t, err)

			cdk := readCDK(t, opts.CDKConfigPath)
			assert.Equal(t, "dist/packages/"+tt.name+"/main.js", cdk.App)
		})
	}
}

func TestGenerateCDKContextIsConstant(t *testing.T) {
	first := testOptions(t)
	_, err := Generate(devkit.NewEmptyWorkspaceTree(), Schema{Name: "alpha", Stack: "AlphaStack"}, first)
	require.NoError(t, err)

	second := testOptions(t)
	_, err = Generate(devkit.NewEmptyWorkspaceTree(), Schema{Name: "beta", Stack: "SomethingElse"}, second)
	require.NoError(t, err)

	a := readCDK(t, first.CDKConfigPath)
	b := readCDK(t, second.CDKConfigPath)
	assert.Equal(t, string(a.Context), string(b.Context))

	var flags map[string]any
	require.NoError(t, json.Unmarshal(a.Context, &flags))
	assert.Len(t, flags, 31)
	assert.Equal(t, false, flags["@aws-cdk/customresources:installLatestAwsSdkDefault"])
	assert.Equal(t, []any{"aws", "aws-cn"}, flags["@aws-cdk/core:target-partitions"])
}

func TestGenerateWritesCDKConfigToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := Generate(devkit.NewEmptyWorkspaceTree(), Schema{Name: "test", Stack: "MyTestStack"}, Options{})
	require.NoError(t, err)

	cdk := readCDK(t, filepath.Join(dir, "cdk.json"))
	assert.Equal(t, "dist/packages/test/main.js", cdk.App)
}

func TestGenerateAddsDependencies(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "test", Stack: "MyTestStack"}, testOptions(t))
	require.NoError(t, err)

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	require.NoError(t, devkit.ReadJSON(tree, "package.json", &pkg))

	assert.Equal(t, map[string]string{
		"aws-cdk-lib": "latest",
		"constructs":  "latest",
	}, pkg.Dependencies)
	assert.Equal(t, map[string]string{
		"@nx/esbuild": "latest",
		"esbuild":     "latest",
		"aws-cdk":     "latest",
	}, pkg.DevDependencies)
}

func TestGenerateVersionTagOverride(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	opts := testOptions(t)
	opts.VersionTag = "^2.150.0"

	_, err := Generate(tree, Schema{Name: "test"}, opts)
	require.NoError(t, err)

	var pkg struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, devkit.ReadJSON(tree, "package.json", &pkg))
	assert.Equal(t, "^2.150.0", pkg.Dependencies["aws-cdk-lib"])
}

func TestGenerateReturnsInstallTask(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	runner := &recordingRunner{}
	opts := testOptions(t)
	opts.Runner = runner
	opts.PackageManager = devkit.PackageManagerPNPM

	install, err := Generate(tree, Schema{Name: "test"}, opts)
	require.NoError(t, err)
	require.NotNil(t, install)
	assert.Empty(t, runner.calls, "install must not run during generation")

	require.NoError(t, install(context.Background()))
	assert.Equal(t, [][]string{{devkit.VirtualRoot, "pnpm", "install"}}, runner.calls)
}

func TestGenerateDuplicateNameFails(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Name: "test", Stack: "MyTestStack"}, testOptions(t))
	require.NoError(t, err)

	before, err := tree.Read("packages/test/project.json")
	require.NoError(t, err)

	_, err = Generate(tree, Schema{Name: "test", Stack: "OtherStack"}, testOptions(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, devkit.ErrProjectExists)

	after, err := tree.Read("packages/test/project.json")
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	names, err := devkit.ProjectNames(tree)
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, names)

	mainTS, err := tree.Read("packages/test/src/main.ts")
	require.NoError(t, err)
	assert.NotContains(t, string(mainTS), "OtherStack")
}

func TestGenerateRequiresName(t *testing.T) {
	tree := devkit.NewEmptyWorkspaceTree()
	_, err := Generate(tree, Schema{Stack: "MyTestStack"}, testOptions(t))
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Empty(t, mustProjectNames(t, tree))
}

func TestGenerateRejectsNamesOutsidePackages(t *testing.T) {
	for _, name := range []string{"../evil", "a/b", "/abs", "..", "has space", "1orders"} {
		t.Run(name, func(t *testing.T) {
			tree := devkit.NewEmptyWorkspaceTree()
			opts := testOptions(t)

			_, err := Generate(tree, Schema{Name: name}, opts)
			require.ErrorIs(t, err, ErrInvalidOptions)

			assert.Empty(t, mustProjectNames(t, tree))
			assert.Empty(t, tree.Children("packages"))
			assert.False(t, tree.Exists("evil"))
			assert.NoFileExists(t, opts.CDKConfigPath)
		})
	}
}

func TestGenerateStackWithoutIdentifierFallsBack(t *testing.T) {
	tests := []struct {
		stack     string
		className string
		fileName  string
	}{
		{"---", "TestStack", "test-stack"},
		{"__", "TestStack", "test-stack"},
		{"2fa", "TestStack", "test-stack"},
		{"my stack", "MyStack", "my-stack"},
	}

	for _, tt := range tests {
		t.Run(tt.stack, func(t *testing.T) {
			tree := devkit.NewEmptyWorkspaceTree()
			_, err := Generate(tree, Schema{Name: "test", Stack: tt.stack}, testOptions(t))
			require.NoError(t, err)

			stackFile := "packages/test/src/stacks/" + tt.fileName + ".ts"
			assert.True(t, tree.IsFile(stackFile), "expected %s to be generated", stackFile)

			mainTS, err := tree.Read("packages/test/src/main.ts")
			require.NoError(t, err)
			assert.Contains(t, string(mainTS), "import { "+tt.className+" } from './stacks/"+tt.fileName+"';")
			// The label is kept as the construct id.
			assert.Contains(t, string(mainTS), "new "+tt.className+"(app, '"+tt.stack+"', {")
		})
	}
}

func TestGenerateLeavesProjectRegisteredWhenManifestMissing(t *testing.T) {
	root := t.TempDir()
	tree := devkit.NewFsTree(root)
	opts := testOptions(t)

	_, err := Generate(tree, Schema{Name: "test"}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// No rollback: the registration and the cdk.json from earlier steps stay.
	cfg, err := devkit.ReadProjectConfiguration(tree, "test")
	require.NoError(t, err)
	assert.Equal(t, "packages/test/src", cfg.SourceRoot)
	assert.FileExists(t, opts.CDKConfigPath)
}

func mustProjectNames(t *testing.T, tree devkit.Tree) []string {
	t.Helper()
	names, err := devkit.ProjectNames(tree)
	require.NoError(t, err)
	return names
}
