package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"effort-ui/internal/model"
	"effort-ui/internal/pagination"

	"github.com/spf13/cobra"
)

type listResult struct {
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
	TotalCount int                      `json:"total_count"`
	Search     string                   `json:"search,omitempty"`
	Strip      string                   `json:"strip"`
	Records    []model.EstimationRecord `json:"records"`

	view pagination.View
}

func newListResult(v pagination.View) listResult {
	records := v.Records
	if records == nil {
		records = []model.EstimationRecord{}
	}
	return listResult{
		Page:       v.Page,
		PageSize:   v.PageSize,
		TotalPages: v.TotalPages,
		TotalCount: v.TotalCount,
		Search:     v.Search,
		Strip:      stripText(v.Strip),
		Records:    records,
		view:       v,
	}
}

func (l listResult) Table() ([]string, [][]string) {
	rows := pagination.Rows(l.view)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Seq, r.Ticket, r.Title, r.Points, r.Member, r.Category, r.Created})
	}
	return []string{"#", "TICKET", "TITLE", "POINTS", "MEMBER", "CATEGORY", "CREATED"}, out
}

// stripText renders the page strip with the current page in brackets.
func stripText(items []pagination.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Active {
			parts = append(parts, "["+it.Label()+"]")
			continue
		}
		parts = append(parts, it.Label())
	}
	return strings.Join(parts, " ")
}

func newListCmd(app *App) *cobra.Command {
	var page int
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List estimation records, one page at a time",
		Example: strings.TrimSpace(`
effortui list
effortui list --search login --page 2 --format table
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := pagination.New(app.client, app.cfg.PageSize, app.log.Named("list"))
			// The first page tells us how many pages exist.
			v, err := c.Search(cmd.Context(), search)
			if err != nil {
				return writeErr(cmd, err)
			}
			var hints []string
			if page != 1 {
				next, ok, err := c.GoToPage(cmd.Context(), page)
				if err != nil {
					return writeErr(cmd, err)
				}
				if ok {
					v = next
				} else {
					hints = append(hints, fmt.Sprintf("page %d is out of range (1..%d); showing page 1", page, v.TotalPages))
				}
			}
			if v.HasNext {
				hints = append(hints, "next: effortui list --page "+strconv.Itoa(v.Page+1)+searchHint(v.Search))
			}
			return writeData(cmd, app, newListResult(v), hints...)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by ticket, title or member")
	return cmd
}

func searchHint(term string) string {
	if term == "" {
		return ""
	}
	return " --search " + strconv.Quote(term)
}

func newRecordsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "Add, recategorize or delete estimation records",
	}
	cmd.AddCommand(newRecordsAddCmd(app))
	cmd.AddCommand(newRecordsSetCategoryCmd(app))
	cmd.AddCommand(newRecordsDeleteCmd(app))
	return cmd
}

func newRecordsAddCmd(app *App) *cobra.Command {
	var e model.NewEstimation
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an estimation record by hand",
		Example: strings.TrimSpace(`
effortui records add --ticket ABC-12 --title "Login form" --points 3 \
  --member alice --major Dev --minor Frontend --sub UI
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := app.client.AddEstimation(cmd.Context(), e)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{
				"ticket":  e.JiraTicket,
				"message": msg,
			})
		},
	}
	cmd.Flags().StringVar(&e.JiraTicket, "ticket", "", "Ticket key")
	cmd.Flags().StringVar(&e.Title, "title", "", "Title")
	cmd.Flags().Float64Var(&e.StoryPoints, "points", 0, "Story points")
	cmd.Flags().StringVar(&e.TeamMember, "member", "", "Team member")
	cmd.Flags().StringVar(&e.EstimationReason, "reason", "", "Why this estimate")
	pathFlags(cmd, &e.Category, "", "Record")
	return cmd
}

func newRecordsSetCategoryCmd(app *App) *cobra.Command {
	var p model.CategoryPath
	cmd := &cobra.Command{
		Use:   "set-category <ticket>",
		Short: "Assign a category to a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !p.Complete() {
				return writeErr(cmd, errors.New("--major, --minor and --sub are all required"))
			}
			if err := app.client.UpdateRecordCategory(cmd.Context(), args[0], p); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{
				"ticket":   args[0],
				"category": p.String(),
			})
		},
	}
	pathFlags(cmd, &p, "", "New")
	return cmd
}

func newRecordsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ticket>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.DeleteRecord(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"deleted": args[0]})
		},
	}
}
