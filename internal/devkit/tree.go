package devkit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrPathOutsideRoot is returned for paths that resolve above the tree root.
var ErrPathOutsideRoot = errors.New("path is outside the workspace root")

// ChangeType classifies a pending file change.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// FileChange is a single buffered modification, relative to the tree root.
type FileChange struct {
	Path    string
	Type    ChangeType
	Content []byte
}

// Tree is a virtual view of a workspace. Reads fall through to the backing
// filesystem, writes are buffered until flushed.
type Tree interface {
	// Root returns the absolute workspace root the tree is anchored at.
	Root() string
	Read(p string) ([]byte, error)
	Write(p string, content []byte) error
	Delete(p string) error
	Exists(p string) bool
	IsFile(p string) bool
	// Children returns the sorted names of the direct entries under dir.
	Children(dir string) []string
	// ListChanges returns the pending changes sorted by path.
	ListChanges() []FileChange
}

type pending struct {
	content []byte
	deleted bool
}

type tree struct {
	root    string
	base    fs.FS // nil for a purely in-memory tree
	changes map[string]*pending
}

// NewFsTree returns a Tree backed by the directory at root.
func NewFsTree(root string) Tree {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &tree{
		root:    abs,
		base:    os.DirFS(abs),
		changes: make(map[string]*pending),
	}
}

// VirtualRoot is the root reported by in-memory trees.
const VirtualRoot = "/virtual"

// NewEmptyWorkspaceTree returns an in-memory tree seeded with the files of a
// freshly created workspace: nx.json, package.json and tsconfig.base.json.
func NewEmptyWorkspaceTree() Tree {
	t := &tree{root: VirtualRoot, changes: make(map[string]*pending)}
	seed := map[string]string{
		"nx.json":            "{\n  \"affected\": {\n    \"defaultBase\": \"main\"\n  },\n  \"targetDefaults\": {}\n}\n",
		"package.json":       "{\n  \"name\": \"@proj/source\",\n  \"dependencies\": {},\n  \"devDependencies\": {}\n}\n",
		"tsconfig.base.json": "{\n  \"compilerOptions\": {\n    \"paths\": {}\n  }\n}\n",
	}
	for p, content := range seed {
		t.changes[p] = &pending{content: []byte(content)}
	}
	return t
}

func (t *tree) Root() string { return t.root }

func (t *tree) Read(p string) ([]byte, error) {
	rel, err := t.normalize(p)
	if err != nil {
		return nil, err
	}
	if c, ok := t.changes[rel]; ok {
		if c.deleted {
			return nil, fmt.Errorf("reading %s: %w", rel, fs.ErrNotExist)
		}
		return append([]byte(nil), c.content...), nil
	}
	if t.base == nil {
		return nil, fmt.Errorf("reading %s: %w", rel, fs.ErrNotExist)
	}
	data, err := fs.ReadFile(t.base, rel)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

func (t *tree) Write(p string, content []byte) error {
	rel, err := t.normalize(p)
	if err != nil {
		return err
	}
	if rel == "." {
		return fmt.Errorf("writing %q: path is a directory", p)
	}
	t.changes[rel] = &pending{content: append([]byte(nil), content...)}
	return nil
}

func (t *tree) Delete(p string) error {
	rel, err := t.normalize(p)
	if err != nil {
		return err
	}
	if !t.existsInBase(rel) {
		delete(t.changes, rel)
		return nil
	}
	t.changes[rel] = &pending{deleted: true}
	return nil
}

func (t *tree) Exists(p string) bool {
	rel, err := t.normalize(p)
	if err != nil {
		return false
	}
	if c, ok := t.changes[rel]; ok {
		return !c.deleted
	}
	if rel == "." {
		return true
	}
	prefix := rel + "/"
	for cp, c := range t.changes {
		if !c.deleted && strings.HasPrefix(cp, prefix) {
			return true
		}
	}
	return t.existsInBase(rel)
}

func (t *tree) IsFile(p string) bool {
	rel, err := t.normalize(p)
	if err != nil {
		return false
	}
	if c, ok := t.changes[rel]; ok {
		return !c.deleted
	}
	if t.base == nil {
		return false
	}
	info, err := fs.Stat(t.base, rel)
	return err == nil && !info.IsDir()
}

func (t *tree) Children(dir string) []string {
	rel, err := t.normalize(dir)
	if err != nil {
		return nil
	}

	names := make(map[string]bool)
	if t.base != nil {
		if entries, err := fs.ReadDir(t.base, rel); err == nil {
			for _, e := range entries {
				names[e.Name()] = true
			}
		}
	}

	prefix := rel + "/"
	if rel == "." {
		prefix = ""
	}
	for cp, c := range t.changes {
		if !strings.HasPrefix(cp, prefix) {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(cp, prefix), "/")
		if c.deleted {
			// Only drop the entry if the deleted path is the entry itself.
			if cp == prefix+name {
				delete(names, name)
			}
			continue
		}
		names[name] = true
	}

	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (t *tree) ListChanges() []FileChange {
	out := make([]FileChange, 0, len(t.changes))
	for p, c := range t.changes {
		switch {
		case c.deleted:
			out = append(out, FileChange{Path: p, Type: ChangeDelete})
		case t.existsInBase(p):
			out = append(out, FileChange{Path: p, Type: ChangeUpdate, Content: c.content})
		default:
			out = append(out, FileChange{Path: p, Type: ChangeCreate, Content: c.content})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *tree) existsInBase(rel string) bool {
	if t.base == nil {
		return false
	}
	_, err := fs.Stat(t.base, rel)
	return err == nil
}

// normalize turns p into a cleaned, slash-separated path relative to the root.
func (t *tree) normalize(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p, ErrPathOutsideRoot)
		}
		p = rel
	}
	clean := path.Clean(filepath.ToSlash(p))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		clean = "."
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%s: %w", p, ErrPathOutsideRoot)
	}
	return clean, nil
}

// FlushChanges applies changes to the directory at root.
func FlushChanges(root string, changes []FileChange) error {
	for _, c := range changes {
		dst := filepath.Join(root, filepath.FromSlash(c.Path))
		switch c.Type {
		case ChangeDelete:
			if err := os.RemoveAll(dst); err != nil {
				return fmt.Errorf("removing %s: %w", dst, err)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", dst, err)
			}
			if err := os.WriteFile(dst, c.Content, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", dst, err)
			}
		}
	}
	return nil
}
