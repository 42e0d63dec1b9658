package cli

import (
	"fmt"
	"net"
	"strings"
	"time"

	"effort-ui/internal/config"
	"effort-ui/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWebCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the web UI",
		Long: strings.TrimSpace(`
Serve the browser front end. Pages are rendered on the server and kept live
over server-sent events; every browser tab gets its own view state.
`),
		Example: strings.TrimSpace(`
# Serve on a fixed port
effortui web --addr 127.0.0.1:3335

# Pick a free port and open the browser
effortui web --open
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			ln, err := net.Listen("tcp", strings.TrimSpace(cfg.Addr))
			if err != nil {
				return writeErr(cmd, fmt.Errorf("listen %s: %w", cfg.Addr, err))
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			srv, err := web.NewServer(web.ServerConfig{
				Addr:          actualAddr,
				PageSize:      cfg.PageSize,
				SessionSecret: cfg.SessionSecret,
				SessionTTL:    cfg.SessionTTL,
				BackendURL:    cfg.BaseURL,
				Backend:       app.client,
				Logger:        app.log.Named("web"),
			})
			if err != nil {
				_ = ln.Close()
				return writeErr(cmd, err)
			}

			opened := false
			openErr := ""
			if cfg.Open {
				if err := openURL(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}
			var hints []string
			if !opened {
				hints = append(hints, "open "+url)
			}
			if err := writeData(cmd, app, map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"backend":   cfg.BaseURL,
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, hints...); err != nil {
				_ = ln.Close()
				return err
			}

			app.log.Info("web ui listening", zap.String("url", url), zap.String("backend", cfg.BaseURL))
			if err := srv.Serve(cmd.Context(), ln); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", config.DefaultAddr, "Bind address (host:port; port 0 picks a free one)")
	cmd.Flags().Bool("open", false, "Open the UI in the default browser")
	cmd.Flags().String("session-secret", "", "Key that signs the browser cookie (random when empty)")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL, "Idle lifetime of a page view")
	return cmd
}
