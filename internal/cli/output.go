package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/stackgen-dev/stackgen/internal/devkit"
)

var (
	createColor = color.New(color.FgGreen, color.Bold)
	updateColor = color.New(color.FgYellow, color.Bold)
	deleteColor = color.New(color.FgRed, color.Bold)
)

// printChange writes one "CREATE path (N bytes)" line.
func printChange(w io.Writer, c devkit.FileChange) {
	var label *color.Color
	switch c.Type {
	case devkit.ChangeCreate:
		label = createColor
	case devkit.ChangeUpdate:
		label = updateColor
	default:
		label = deleteColor
	}
	if c.Type == devkit.ChangeDelete {
		fmt.Fprintf(w, "%s %s\n", label.Sprint(c.Type), c.Path)
		return
	}
	fmt.Fprintf(w, "%s %s (%d bytes)\n", label.Sprint(c.Type), c.Path, len(c.Content))
}

func printChanges(w io.Writer, changes []devkit.FileChange) {
	for _, c := range changes {
		printChange(w, c)
	}
}
