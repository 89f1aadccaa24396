package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-dev/stackgen/internal/devkit"
)

func TestPrintProjectTable(t *testing.T) {
	projects := map[string]*devkit.ProjectConfiguration{
		"orders": {
			Name: "orders", Root: "packages/orders", ProjectType: devkit.ProjectTypeApplication,
			Targets: map[string]devkit.TargetConfiguration{"deploy": {}, "build": {}},
		},
		"shared": {Name: "shared", Root: "libs/shared"},
	}

	var buf bytes.Buffer
	require.NoError(t, printProjectTable(&buf, projects))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "expected header and 2 rows:\n%s", buf.String())
	assert.True(t, strings.HasPrefix(lines[1], "orders"), "unexpected orders row: %q", lines[1])
	assert.Contains(t, lines[1], "build,deploy")
	assert.True(t, strings.HasPrefix(lines[2], "shared"), "unexpected shared row: %q", lines[2])
	assert.Contains(t, lines[2], "-")
}

func TestPrintProjectTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printProjectTable(&buf, nil))
	assert.Equal(t, "No projects found.\n", buf.String())
}

func TestPrintProject(t *testing.T) {
	p := &devkit.ProjectConfiguration{
		Name:       "orders",
		Root:       "packages/orders",
		SourceRoot: "packages/orders/src",
		Targets: map[string]devkit.TargetConfiguration{
			"build": {Executor: "@nx/esbuild:esbuild"},
			"deploy": {
				Executor:  "nx:run-commands",
				DependsOn: []devkit.TargetDependency{{Projects: []string{"self"}, Target: "build"}},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printProject(&buf, p))

	out := buf.String()
	for _, want := range []string{
		"packages/orders/src",
		"build: @nx/esbuild:esbuild",
		"deploy: nx:run-commands",
		"depends on build of self",
	} {
		assert.Contains(t, out, want)
	}
}
