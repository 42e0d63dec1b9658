package cli

import (
	"strconv"
	"strings"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"
	"effort-ui/internal/qa"

	"github.com/spf13/cobra"
)

func newAskCmd(app *App) *cobra.Command {
	var exclude []string
	var helpful bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about past estimations",
		Example: strings.TrimSpace(`
effortui ask "how long did the login form take?"

# Ask again without sources that gave a bad answer
effortui ask "how long did the login form take?" --exclude doc-17 --exclude doc-4

# Mark the answer as helpful so it is reused
effortui ask "how long did the login form take?" --helpful
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return writeErr(cmd, qa.ErrEmptyQuestion)
			}
			var a model.Answer
			var err error
			if len(exclude) > 0 {
				a, err = app.client.AskExcluding(cmd.Context(), question, exclude)
			} else {
				a, err = app.client.Ask(cmd.Context(), question)
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			out := map[string]any{"question": question, "answer": a}
			var hints []string
			switch {
			case helpful && a.FeedbackEnabled:
				saved, err := app.client.SendFeedback(cmd.Context(), effortapi.Feedback{
					Question: question,
					Answer:   a.Answer,
					Sources:  a.Sources,
					Type:     "positive",
				})
				if err != nil {
					return writeErr(cmd, err)
				}
				out["saved"] = saved
			case a.FeedbackEnabled && len(a.Sources) > 0:
				hints = append(hints, "not helpful? ask again with "+excludeHint(exclude, a.Sources))
			}
			return writeData(cmd, app, out, hints...)
		},
	}
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Source id to leave out (repeatable)")
	cmd.Flags().BoolVar(&helpful, "helpful", false, "Record the answer as helpful")
	return cmd
}

func excludeHint(prev []string, sources []model.Source) string {
	seen := map[string]bool{}
	var parts []string
	for _, s := range prev {
		if !seen[s] {
			seen[s] = true
			parts = append(parts, "--exclude "+s)
		}
	}
	for _, s := range sources {
		if s.Source != "" && !seen[s.Source] {
			seen[s.Source] = true
			parts = append(parts, "--exclude "+s.Source)
		}
	}
	return strings.Join(parts, " ")
}

type weeklyRows []model.WeeklyRatio

func (w weeklyRows) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(w))
	for _, r := range w {
		rows = append(rows, []string{r.Week, strconv.FormatFloat(r.PositiveRatio, 'f', 1, 64) + "%", string(r.Level())})
	}
	return []string{"WEEK", "POSITIVE", "LEVEL"}, rows
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Weekly share of answers marked helpful",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, err := app.client.WeeklyPositiveRatio(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if weeks == nil {
				weeks = []model.WeeklyRatio{}
			}
			return writeData(cmd, app, weeklyRows(weeks))
		},
	}
}
