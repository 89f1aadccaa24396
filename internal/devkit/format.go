package devkit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"
)

// FormatFiles normalizes every created or updated file in the tree. JSON is
// re-indented with two spaces, keeping key order. Text files lose trailing
// whitespace and end with exactly one newline. Binary files are left alone.
func FormatFiles(t Tree) error {
	for _, c := range t.ListChanges() {
		if c.Type == ChangeDelete {
			continue
		}
		formatted := formatContent(c.Path, c.Content)
		if bytes.Equal(formatted, c.Content) {
			continue
		}
		if err := t.Write(c.Path, formatted); err != nil {
			return err
		}
	}
	return nil
}

func formatContent(p string, content []byte) []byte {
	if len(content) == 0 || !isText(content) {
		return content
	}
	if path.Ext(p) == ".json" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, content); err != nil {
			slog.Debug("skipping JSON formatting", "path", p, "error", err)
		} else {
			var out bytes.Buffer
			// Compact output is valid JSON, Indent cannot fail on it.
			_ = json.Indent(&out, compact.Bytes(), "", "  ")
			content = out.Bytes()
		}
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if text == "" {
		return []byte{}
	}
	return []byte(text + "\n")
}

func isText(content []byte) bool {
	return utf8.Valid(content) && !bytes.ContainsRune(content, 0)
}
