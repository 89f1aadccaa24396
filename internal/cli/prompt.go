package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/stackgen-dev/stackgen/internal/generators/app"
)

// errCancelled is returned when the user aborts a prompt.
var errCancelled = errors.New("cancelled")

// stdinIsTerminal reports whether prompts can be shown.
func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptAppSchema asks for the fields of s that were not given on the
// command line. askStack is false when --stack was passed explicitly.
func promptAppSchema(s *app.Schema, askStack bool) error {
	var fields []huh.Field
	if s.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Project name").
			Description("Created under packages/<name>.").
			Value(&s.Name).
			Validate(validateAppName))
	}
	if askStack {
		fields = append(fields, huh.NewInput().
			Title("Stack name").
			Description("Leave empty to derive it from the project name.").
			Value(&s.Stack))
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return fmt.Errorf("prompt error: %w", err)
	}
	return nil
}

// validateAppName checks a project name against the generator's option schema.
func validateAppName(name string) error {
	return app.Schema{Name: name}.Validate()
}
