package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"github.com/spf13/cobra"
)

func newCategoriesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Inspect and maintain the category hierarchy",
	}
	cmd.AddCommand(newCategoriesTreeCmd(app))
	cmd.AddCommand(newCategoriesMajorsCmd(app))
	cmd.AddCommand(newCategoriesMinorsCmd(app))
	cmd.AddCommand(newCategoriesSubsCmd(app))
	cmd.AddCommand(newCategoriesEditCmd(app))
	cmd.AddCommand(newCategoriesExportCmd(app))
	cmd.AddCommand(newCategoriesImportCmd(app))
	return cmd
}

func (app *App) tree() *categorytree.Tree {
	return categorytree.New(app.client, app.log.Named("categories"))
}

// categoryRows is the category map with one table row per sub category.
type categoryRows struct {
	model.CategoryMap
}

func (c categoryRows) Table() ([]string, [][]string) {
	var rows [][]string
	for _, major := range c.Majors {
		if len(major.Minors) == 0 {
			rows = append(rows, []string{major.Name, "", ""})
		}
		for _, minor := range major.Minors {
			if len(minor.Subs) == 0 {
				rows = append(rows, []string{major.Name, minor.Name, ""})
			}
			for _, sub := range minor.Subs {
				rows = append(rows, []string{major.Name, minor.Name, sub})
			}
		}
	}
	return []string{"MAJOR", "MINOR", "SUB"}, rows
}

// treeText renders the fully expanded tree as indented lines.
func treeText(nodes []categorytree.Node) string {
	var b strings.Builder
	categorytree.Walk(nodes, func(n categorytree.Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Label)
		if n.Kind != categorytree.KindSub {
			fmt.Fprintf(&b, " (%d)", n.Count())
		}
		b.WriteByte('\n')
	})
	return b.String()
}

func newCategoriesTreeCmd(app *App) *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the whole category hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := app.tree()
			if _, err := t.Load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if text {
				t.ExpandAll()
				_, err := fmt.Fprint(cmd.OutOrStdout(), treeText(t.Nodes()))
				return err
			}
			return writeData(cmd, app, categoryRows{t.Map()})
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "Print an indented outline instead of structured output")
	return cmd
}

type nameList []string

func (n nameList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(n))
	for _, s := range n {
		rows = append(rows, []string{s})
	}
	return []string{"NAME"}, rows
}

func newCategoriesMajorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "majors",
		Short: "List major categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := app.tree().Majors(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, nameList(names))
		},
	}
}

func newCategoriesMinorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "minors <major>",
		Short: "List the minor categories of a major",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := app.tree().Minors(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, nameList(names))
		},
	}
}

func newCategoriesSubsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "subs <major> <minor>",
		Short: "List the sub categories of a minor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := app.tree().Subs(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, nameList(names))
		},
	}
}

// pathFlags binds --<prefix>major, --<prefix>minor and --<prefix>sub.
func pathFlags(cmd *cobra.Command, p *model.CategoryPath, prefix, what string) {
	cmd.Flags().StringVar(&p.Major, prefix+"major", "", what+" major category")
	cmd.Flags().StringVar(&p.Minor, prefix+"minor", "", what+" minor category")
	cmd.Flags().StringVar(&p.Sub, prefix+"sub", "", what+" sub category")
}

func newCategoriesEditCmd(app *App) *cobra.Command {
	var edit effortapi.CategoryEdit
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Rename a category path",
		Example: strings.TrimSpace(`
effortui categories edit --old-major Dev --old-minor Backend --old-sub API \
  --new-major Dev --new-minor Backend --new-sub "Public API"
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := app.tree().Edit(cmd.Context(), edit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{
				"old":    edit.Old.String(),
				"new":    edit.New.String(),
				"majors": len(nodes),
			})
		},
	}
	pathFlags(cmd, &edit.Old, "old-", "Current")
	pathFlags(cmd, &edit.New, "new-", "New")
	return cmd
}

func newCategoriesExportCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the category spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := app.tree().Export(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			path := strings.TrimSpace(out)
			if path == "" {
				path = sheet.Filename
			}
			if err := os.WriteFile(path, sheet.Data, 0o644); err != nil {
				return writeErr(cmd, fmt.Errorf("write %s: %w", path, err))
			}
			return writeData(cmd, app, map[string]any{
				"file":  path,
				"bytes": len(sheet.Data),
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: the name the backend suggests)")
	return cmd
}

func newCategoriesImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Replace the categories from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !effortapi.SpreadsheetExt(path) {
				return writeErr(cmd, fmt.Errorf("%s: only .xlsx and .xls files can be imported", path))
			}
			f, err := os.Open(path)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer f.Close()
			nodes, err := app.tree().Import(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{
				"imported": filepath.Base(path),
				"majors":   len(nodes),
			})
		},
	}
}
