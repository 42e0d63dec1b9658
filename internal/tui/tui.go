package tui

import (
	"context"
	"errors"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/model"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Backend is every backend call the terminal UI makes. *effortapi.Client
// satisfies it.
type Backend interface {
	categorytree.Source
	pagination.Fetcher
	qa.Asker

	WeeklyPositiveRatio(ctx context.Context) ([]model.WeeklyRatio, error)
}

type Options struct {
	Backend  Backend
	PageSize int
	Logger   *zap.Logger
}

func Run(ctx context.Context, opts Options) error {
	if opts.Backend == nil {
		return errors.New("tui: backend is nil")
	}
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference()

	m := newAppModel(ctx, opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
