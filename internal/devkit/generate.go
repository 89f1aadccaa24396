package devkit

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"text/template"
)

// TemplateSuffix marks files rendered with text/template. The suffix is
// stripped from the generated file name.
const TemplateSuffix = ".tmpl"

var substitutionPattern = regexp.MustCompile(`__([A-Za-z0-9]+)__`)

// GenerateFiles copies every file under srcDir in fsys into target in the
// tree. Path segments of the form __key__ are replaced with subs[key]. Files
// ending in .tmpl are rendered against subs and written without the suffix;
// all other files are copied verbatim.
func GenerateFiles(t Tree, fsys fs.FS, srcDir, target string, subs map[string]any) error {
	return fs.WalkDir(fsys, srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("reading template directory %s: %w", p, err)
		}
		if d.IsDir() {
			return nil
		}

		rel := strings.TrimPrefix(p, srcDir+"/")
		outRel, err := substitutePath(rel, subs)
		if err != nil {
			return err
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}

		if strings.HasSuffix(outRel, TemplateSuffix) {
			outRel = strings.TrimSuffix(outRel, TemplateSuffix)
			data, err = renderTemplate(rel, data, subs)
			if err != nil {
				return err
			}
		}

		return t.Write(path.Join(target, outRel), data)
	})
}

func renderTemplate(name string, data []byte, subs map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, subs); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func substitutePath(rel string, subs map[string]any) (string, error) {
	var missing string
	out := substitutionPattern.ReplaceAllStringFunc(rel, func(m string) string {
		key := m[2 : len(m)-2]
		v, ok := subs[key]
		if !ok {
			missing = key
			return m
		}
		return fmt.Sprint(v)
	})
	if missing != "" {
		return "", fmt.Errorf("template path %s: no substitution for %q", rel, missing)
	}
	return out, nil
}
