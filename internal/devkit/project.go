package devkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/stackgen-dev/stackgen/internal/schema"
)

var (
	// ErrProjectExists is returned when registering a name or root that is taken.
	ErrProjectExists = errors.New("project already exists")
	// ErrProjectNotFound is returned when no project.json declares the name.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidProject is returned when a record fails schema validation.
	ErrInvalidProject = errors.New("invalid project configuration")
)

const (
	projectFile = "project.json"
	// projectSchemaPath is relative to the workspace root.
	projectSchemaPath = "node_modules/nx/schemas/project-schema.json"
)

// ProjectType distinguishes deployable applications from libraries.
type ProjectType string

const (
	ProjectTypeApplication ProjectType = "application"
	ProjectTypeLibrary     ProjectType = "library"
)

// ProjectConfiguration is the record stored in a project's project.json.
type ProjectConfiguration struct {
	Name        string                         `json:"name,omitempty"`
	Root        string                         `json:"root,omitempty"`
	ProjectType ProjectType                    `json:"projectType,omitempty"`
	SourceRoot  string                         `json:"sourceRoot,omitempty"`
	Tags        []string                       `json:"tags,omitempty"`
	Targets     map[string]TargetConfiguration `json:"targets,omitempty"`
}

// TargetConfiguration describes one runnable target of a project.
type TargetConfiguration struct {
	Executor  string             `json:"executor,omitempty"`
	Outputs   []string           `json:"outputs,omitempty"`
	Options   map[string]any     `json:"options,omitempty"`
	DependsOn []TargetDependency `json:"dependsOn,omitempty"`
}

// TargetDependency declares that a target must run after Target completes
// in Projects. The project name "self" refers to the owning project.
type TargetDependency struct {
	Projects []string `json:"projects,omitempty"`
	Target   string   `json:"target"`
}

// SelfProject is the dependsOn project reference for the owning project.
const SelfProject = "self"

// UnmarshalJSON accepts the shorthand string forms as well as the object
// form: "build" depends on build in the same project and "^build" on build
// in every dependency.
func (d *TargetDependency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if target, ok := strings.CutPrefix(s, "^"); ok {
			*d = TargetDependency{Projects: []string{"dependencies"}, Target: target}
		} else {
			*d = TargetDependency{Projects: []string{SelfProject}, Target: s}
		}
		return nil
	}
	type plain TargetDependency
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = TargetDependency(p)
	return nil
}

type projectJSON struct {
	Schema string `json:"$schema,omitempty"`
	ProjectConfiguration
}

// AddProjectConfiguration registers a new project by writing
// <cfg.Root>/project.json. It fails with ErrProjectExists if the name is
// already registered or the root already holds a project.
func AddProjectConfiguration(t Tree, name string, cfg ProjectConfiguration) error {
	root, err := cleanProjectRoot(cfg.Root)
	if err != nil {
		return err
	}
	file := path.Join(root, projectFile)

	if t.Exists(file) {
		return fmt.Errorf("cannot create project %q at %s: %w in this directory", name, root, ErrProjectExists)
	}
	projects, err := GetProjects(t)
	if err != nil {
		return err
	}
	if existing, ok := projects[name]; ok {
		return fmt.Errorf("cannot create project %q: %w at %s", name, ErrProjectExists, existing.Root)
	}

	cfg.Name = name
	cfg.Root = ""
	doc := projectJSON{
		Schema:               path.Join(OffsetFromRoot(root), projectSchemaPath),
		ProjectConfiguration: cfg,
	}

	result, err := schema.ValidateValue(schema.KindProject, doc)
	if err != nil {
		return fmt.Errorf("validating project %q: %w", name, err)
	}
	if !result.Valid {
		return fmt.Errorf("%w %q: %s", ErrInvalidProject, name, result.Summary())
	}

	slog.Debug("registering project", "name", name, "root", root)
	return WriteJSON(t, file, doc)
}

// ReadProjectConfiguration returns the registered project called name.
func ReadProjectConfiguration(t Tree, name string) (*ProjectConfiguration, error) {
	projects, err := GetProjects(t)
	if err != nil {
		return nil, err
	}
	cfg, ok := projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, name)
	}
	return cfg, nil
}

// skippedDirs are never searched for project.json files.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	".git":         true,
	"tmp":          true,
	".nx":          true,
}

// GetProjects walks the tree and returns every project keyed by name.
// Projects without a name field are keyed by their root.
func GetProjects(t Tree) (map[string]*ProjectConfiguration, error) {
	projects := make(map[string]*ProjectConfiguration)
	var walk func(dir string) error
	walk = func(dir string) error {
		for _, child := range t.Children(dir) {
			p := path.Join(dir, child)
			if t.IsFile(p) {
				if child != projectFile {
					continue
				}
				cfg, err := readProjectFile(t, p)
				if err != nil {
					return err
				}
				projects[cfg.Name] = cfg
				continue
			}
			if skippedDirs[child] {
				continue
			}
			if err := walk(p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("."); err != nil {
		return nil, err
	}
	return projects, nil
}

// ProjectNames returns the registered project names in sorted order.
func ProjectNames(t Tree) ([]string, error) {
	projects, err := GetProjects(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for n := range projects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func readProjectFile(t Tree, file string) (*ProjectConfiguration, error) {
	var doc projectJSON
	if err := ReadJSON(t, file, &doc); err != nil {
		return nil, fmt.Errorf("reading project configuration: %w", err)
	}
	cfg := doc.ProjectConfiguration
	cfg.Root = path.Dir(file)
	if cfg.Name == "" {
		cfg.Name = cfg.Root
	}
	return &cfg, nil
}

func cleanProjectRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: root is required", ErrInvalidProject)
	}
	clean := path.Clean(strings.ReplaceAll(root, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("project root %s: %w", root, ErrPathOutsideRoot)
	}
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("%w: invalid root %q", ErrInvalidProject, root)
	}
	return clean, nil
}

// OffsetFromRoot returns the relative path from dir back to the workspace
// root, with a trailing slash ("packages/app" -> "../../").
func OffsetFromRoot(dir string) string {
	clean := path.Clean(dir)
	if clean == "." || clean == "" {
		return "./"
	}
	return strings.Repeat("../", len(strings.Split(clean, "/")))
}
