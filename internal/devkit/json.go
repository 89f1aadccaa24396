package devkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJSON decodes the JSON file at p in the tree into v.
func ReadJSON(t Tree, p string, v any) error {
	data, err := t.Read(p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", p, err)
	}
	return nil
}

// WriteJSON encodes v with two-space indentation and writes it to p in the tree.
func WriteJSON(t Tree, p string, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", p, err)
	}
	return t.Write(p, data)
}

// WriteJSONFile writes v as JSON to path on the OS filesystem, bypassing any
// tree. Relative paths resolve against the process working directory.
func WriteJSONFile(path string, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
