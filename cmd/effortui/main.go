package main

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"effort-ui/internal/cli"
)

var ticketKey = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[0-9]+$`)

// rewriteTicketArgs turns `effortui ABC-123` into
// `effortui list --search ABC-123`. Persistent flags may come first.
func rewriteTicketArgs(argv []string) []string {
	valueFlags := map[string]bool{
		"--config":       true,
		"--base-url":     true,
		"--page-size":    true,
		"--http-timeout": true,
		"--log-level":    true,
		"--log-format":   true,
		"--log-file":     true,
		"--format":       true,
	}
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if !ticketKey.MatchString(a) {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "list", "--search", a)
		return append(out, argv[i+1:]...)
	}
	return argv
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	cmd.SetArgs(rewriteTicketArgs(os.Args)[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
