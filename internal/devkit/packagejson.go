package devkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/Masterminds/semver/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PackageJSONPath is the shared manifest at the workspace root.
const PackageJSONPath = "package.json"

// ErrInvalidManifest is returned when package.json is not an object or a
// dependency section is not a map of version strings.
var ErrInvalidManifest = errors.New("invalid package manifest")

const (
	dependenciesKey    = "dependencies"
	devDependenciesKey = "devDependencies"
)

// Floating dist-tags always count as newer than a pinned version.
var distTags = map[string]bool{"latest": true, "next": true}

type dependencyOptions struct {
	packageManager PackageManager
	runner         CommandRunner
}

// DependencyOption customizes AddDependenciesToPackageJSON.
type DependencyOption func(*dependencyOptions)

// WithPackageManager forces the package manager used by the install task.
// An empty value keeps lockfile detection.
func WithPackageManager(pm PackageManager) DependencyOption {
	return func(o *dependencyOptions) { o.packageManager = pm }
}

// WithCommandRunner replaces the runner used by the install task.
func WithCommandRunner(r CommandRunner) DependencyOption {
	return func(o *dependencyOptions) { o.runner = r }
}

// AddDependenciesToPackageJSON merges deps into "dependencies" and devDeps
// into "devDependencies" of the workspace manifest. A package already listed
// in the other section is updated there instead of being duplicated. An
// existing version is only replaced by a greater one. The returned Callback
// installs the packages, or does nothing when the manifest did not change.
func AddDependenciesToPackageJSON(t Tree, deps, devDeps map[string]string, opts ...DependencyOption) (Callback, error) {
	var o dependencyOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := loadManifest(t)
	if err != nil {
		return nil, err
	}

	current, err := readDependencySection(doc, dependenciesKey)
	if err != nil {
		return nil, err
	}
	currentDev, err := readDependencySection(doc, devDependenciesKey)
	if err != nil {
		return nil, err
	}

	depUpdates := make(map[string]string)
	devUpdates := make(map[string]string)
	planUpdates(deps, current, currentDev, depUpdates, devUpdates)
	planUpdates(devDeps, currentDev, current, devUpdates, depUpdates)

	if len(depUpdates) == 0 && len(devUpdates) == 0 {
		slog.Debug("package manifest already satisfies dependencies", "path", PackageJSONPath)
		return Noop, nil
	}

	if err := writeDependencySection(doc, dependenciesKey, current, depUpdates); err != nil {
		return nil, err
	}
	if err := writeDependencySection(doc, devDependenciesKey, currentDev, devUpdates); err != nil {
		return nil, err
	}
	if err := WriteJSON(t, PackageJSONPath, rawObject{doc}); err != nil {
		return nil, fmt.Errorf("writing package manifest: %w", err)
	}

	return InstallPackagesTask(t.Root(), o.packageManager, o.runner), nil
}

// planUpdates decides, for each incoming package, which section receives it.
// Packages present in other stay in other.
func planUpdates(incoming, own, other map[string]string, ownUpdates, otherUpdates map[string]string) {
	for name, version := range incoming {
		if existing, ok := other[name]; ok {
			if IsIncomingVersionGreater(version, existing) {
				otherUpdates[name] = version
			}
			continue
		}
		if existing, ok := own[name]; ok && !IsIncomingVersionGreater(version, existing) {
			continue
		}
		ownUpdates[name] = version
	}
}

// IsIncomingVersionGreater reports whether incoming should replace existing.
// Dist-tags win over pinned versions; ranges compare by their lowest version.
func IsIncomingVersionGreater(incoming, existing string) bool {
	if incoming == existing {
		return false
	}
	if distTags[incoming] {
		return true
	}
	if distTags[existing] {
		return false
	}
	in, inErr := lowestVersion(incoming)
	ex, exErr := lowestVersion(existing)
	if inErr != nil || exErr != nil {
		return exErr != nil
	}
	return in.GreaterThan(ex)
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+){0,2}(-[0-9A-Za-z.-]+)?`)

// lowestVersion extracts the first version mentioned in a constraint such as
// "^1.2.0", "~2", ">=3.1.0 <4".
func lowestVersion(constraint string) (*semver.Version, error) {
	raw := versionPattern.FindString(constraint)
	if raw == "" {
		return nil, fmt.Errorf("no version in constraint %q", constraint)
	}
	return semver.NewVersion(raw)
}

func loadManifest(t Tree) (*orderedmap.OrderedMap[string, json.RawMessage], error) {
	data, err := t.Read(PackageJSONPath)
	if err != nil {
		return nil, fmt.Errorf("reading package manifest: %w", err)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrInvalidManifest, PackageJSONPath)
	}
	doc := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidManifest, PackageJSONPath, err)
	}
	return doc, nil
}

// readDependencySection returns a writable copy of the section. A missing
// or null section is empty.
func readDependencySection(doc *orderedmap.OrderedMap[string, json.RawMessage], key string) (map[string]string, error) {
	section := make(map[string]string)
	raw, ok := doc.Get(key)
	if !ok {
		return section, nil
	}
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil, fmt.Errorf("%w: %q must map package names to versions: %v", ErrInvalidManifest, key, err)
	}
	if section == nil {
		section = make(map[string]string)
	}
	return section, nil
}

func writeDependencySection(doc *orderedmap.OrderedMap[string, json.RawMessage], key string, current, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	for name, version := range updates {
		current[name] = version
	}

	names := make([]string, 0, len(current))
	for n := range current {
		names = append(names, n)
	}
	sort.Strings(names)

	sorted := orderedmap.New[string, json.RawMessage](len(names))
	for _, n := range names {
		v, err := marshalString(current[n])
		if err != nil {
			return fmt.Errorf("serializing %q: %w", key, err)
		}
		sorted.Set(n, v)
	}
	raw, err := rawObject{sorted}.MarshalJSON()
	if err != nil {
		return fmt.Errorf("serializing %q: %w", key, err)
	}
	doc.Set(key, raw)
	return nil
}

// rawObject re-encodes a decoded object with its original key order and
// without re-escaping the raw values.
type rawObject struct {
	m *orderedmap.OrderedMap[string, json.RawMessage]
}

func (o rawObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := marshalString(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalString encodes s as a JSON string, leaving <, > and & unescaped so
// ranges like ">=1.0.0 <2" survive a round trip.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
