package cli

import (
	"strconv"

	"effort-ui/internal/model"

	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import work from the issue tracker",
	}
	cmd.AddCommand(newSyncTicketCmd(app))
	cmd.AddCommand(newSyncEpicCmd(app))
	cmd.AddCommand(newSyncClassifyCmd(app))
	return cmd
}

func newSyncTicketCmd(app *App) *cobra.Command {
	var p model.CategoryPath
	cmd := &cobra.Command{
		Use:   "ticket <key>",
		Short: "Import one ticket, optionally with its category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.client.SyncTicket(cmd.Context(), args[0], p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, res)
		},
	}
	pathFlags(cmd, &p, "", "Ticket")
	return cmd
}

type epicResult struct {
	model.EpicSyncResult
}

func (e epicResult) Table() ([]string, [][]string) {
	return []string{"TOTAL", "ADDED", "UPDATED", "SKIPPED"}, [][]string{{
		strconv.Itoa(e.TotalTasks),
		strconv.Itoa(e.AddedTasks),
		strconv.Itoa(e.UpdatedTasks),
		strconv.Itoa(e.SkippedTasks),
	}}
}

func newSyncEpicCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "epic <key>",
		Short: "Import every task of an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.client.SyncEpic(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, epicResult{res})
		},
	}
}

// classifyResult tables the suggestions that still need a human look.
type classifyResult struct {
	model.AutoClassifyResult
}

func (c classifyResult) Table() ([]string, [][]string) {
	var rows [][]string
	add := func(level string, xs []model.ClassifySuggestion) {
		for _, s := range xs {
			rows = append(rows, []string{level, s.Title, s.Category, strconv.FormatFloat(s.Confidence*100, 'f', 0, 64) + "%"})
		}
	}
	add("medium", c.MediumConfidence)
	add("low", c.LowConfidence)
	return []string{"CONFIDENCE", "TITLE", "SUGGESTED CATEGORY", "SCORE"}, rows
}

func newSyncClassifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Auto-classify records that have no category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.client.AutoClassify(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			var hints []string
			if n := res.MediumConfidenceCount + res.LowConfidenceCount; n > 0 {
				hints = append(hints, strconv.Itoa(n)+" suggestions need review")
			}
			return writeData(cmd, app, classifyResult{res}, hints...)
		},
	}
}
