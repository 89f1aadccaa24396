package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackgen-dev/stackgen/internal/devkit"
)

var (
	showJSON bool
)

func init() {
	showProjectCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showProjectsCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.AddCommand(showProjectsCmd)
	showCmd.AddCommand(showProjectCmd)
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show workspace information",
}

var showProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects registered in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := currentWorkspace()
		if err != nil {
			return err
		}
		projects, err := devkit.GetProjects(tree)
		if err != nil {
			return fmt.Errorf("reading projects: %w", err)
		}
		if showJSON {
			names := make([]string, 0, len(projects))
			for n := range projects {
				names = append(names, n)
			}
			sort.Strings(names)
			return printJSON(cmd.OutOrStdout(), names)
		}
		return printProjectTable(cmd.OutOrStdout(), projects)
	},
}

var showProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Print one project's configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := currentWorkspace()
		if err != nil {
			return err
		}
		cfg, err := devkit.ReadProjectConfiguration(tree, args[0])
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(cmd.OutOrStdout(), cfg)
		}
		return printProject(cmd.OutOrStdout(), cfg)
	},
}

func printProjectTable(out io.Writer, projects map[string]*devkit.ProjectConfiguration) error {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	names := make([]string, 0, len(projects))
	for n := range projects {
		names = append(names, n)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tROOT\tTARGETS")
	for _, n := range names {
		p := projects[n]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n, orDash(string(p.ProjectType)), p.Root, orDash(strings.Join(targetNames(p), ",")))
	}
	return w.Flush()
}

func printProject(out io.Writer, p *devkit.ProjectConfiguration) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", p.Name)
	fmt.Fprintf(w, "Root:\t%s\n", p.Root)
	fmt.Fprintf(w, "Type:\t%s\n", orDash(string(p.ProjectType)))
	fmt.Fprintf(w, "Source root:\t%s\n", orDash(p.SourceRoot))
	if err := w.Flush(); err != nil {
		return err
	}

	names := targetNames(p)
	if len(names) == 0 {
		return nil
	}
	fmt.Fprintln(out, "Targets:")
	for _, n := range names {
		t := p.Targets[n]
		fmt.Fprintf(out, "  %s: %s\n", n, t.Executor)
		for _, dep := range t.DependsOn {
			fmt.Fprintf(out, "    depends on %s of %s\n", dep.Target, orDash(strings.Join(dep.Projects, ",")))
		}
	}
	return nil
}

func targetNames(p *devkit.ProjectConfiguration) []string {
	names := make([]string, 0, len(p.Targets))
	for n := range p.Targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
