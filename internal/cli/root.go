package cli

import (
	"fmt"
	"strings"

	"effort-ui/internal/config"
	"effort-ui/internal/effortapi"
	"effort-ui/internal/format"
	"effort-ui/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App is the state shared by every command. Config, logger and client are
// filled in by the root PersistentPreRunE.
type App struct {
	ConfigFile string
	Format     string
	Pretty     bool

	cfg    *config.Config
	log    *zap.Logger
	client *effortapi.Client
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "effortui",
		Short:        "Effort estimation front end: web UI, terminal UI and scriptable commands",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the terminal UI
  effortui

  # Serve the web UI and open it in the browser
  effortui web --open

  # Scriptable commands
  effortui list --search login --page 2
  effortui categories tree --format table

  # Ticket shortcut (same as: effortui list --search ABC-123)
  effortui ABC-123
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", "", "Config file (default: ./effortui.yaml when present)")
	pf.String("base-url", config.DefaultBaseURL, "Effort backend base URL")
	pf.Int("page-size", config.DefaultPageSize, "Records per list page")
	pf.Duration("http-timeout", config.DefaultHTTPTimeout, "Backend request timeout")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	pf.String("log-format", config.DefaultLogFormat, "Log format (console|json)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.StringVar(&app.Format, "format", "json", "Output format ("+strings.Join(format.Formats, "|")+")")
	pf.BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON and EDN output")

	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newCategoriesCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newRecordsCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newAskCmd(app))
	cmd.AddCommand(newStatsCmd(app))

	return cmd
}

// ownsTerminal reports whether cmd runs a full-screen UI, where stderr logs
// would corrupt the screen.
func ownsTerminal(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigFile, cmd.Flags())
	if err != nil {
		return writeErr(cmd, err)
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Quiet:  ownsTerminal(cmd),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	client, err := effortapi.New(effortapi.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  log.Named("effortapi"),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	app.log = log
	app.client = client
	if cfg.File != "" {
		log.Debug("config loaded", zap.String("file", cfg.File))
	}
	return nil
}

// envelope wraps every result, like {"data": ..., "_hints": [...]}.
type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

// writeData prints data in the chosen format. Table output skips the
// envelope and requires data to be tabular.
func writeData(cmd *cobra.Command, app *App, data any, hints ...string) error {
	var v any = envelope{Data: data, Hints: hints}
	if t, ok := data.(format.Tabular); ok && strings.EqualFold(strings.TrimSpace(app.Format), "table") {
		v = t
	}
	if err := format.Write(cmd.OutOrStdout(), v, app.Format, app.Pretty); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// writeErr reports err on stderr, preferring the backend's own message, and
// returns it so the process exits non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error: "+effortapi.UserMessage(err, err.Error()))
	return err
}
