package cli

import (
	"effort-ui/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	err := tui.Run(cmd.Context(), tui.Options{
		Backend:  app.client,
		PageSize: app.cfg.PageSize,
		Logger:   app.log.Named("tui"),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
