package tui

import (
	"os"
	"strconv"
	"strings"

	"effort-ui/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers. Colors adapt to light and dark terminal backgrounds; faint
// styling is only applied on dark ones, where it stays legible.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg   lipgloss.TerminalColor = ac("255", "235")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorGood       lipgloss.TerminalColor = ac("28", "42")
	colorFair       lipgloss.TerminalColor = ac("130", "214")
	colorPoor       lipgloss.TerminalColor = ac("124", "203")
	colorUserBubble lipgloss.TerminalColor = ac("25", "111")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
}

func styleTab(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return st.Background(colorAccent).Foreground(colorAccentFg).Bold(true)
	}
	return st.Foreground(colorMuted)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorPoor)
}

func styleSuccess() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorGood)
}

func styleCallToAction() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorFair).Bold(true)
}

func styleUser() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorUserBubble).Bold(true)
}

func ratioColor(l model.RatioLevel) lipgloss.TerminalColor {
	switch l {
	case model.RatioGood:
		return colorGood
	case model.RatioFair:
		return colorFair
	}
	return colorPoor
}

// applyColorProfilePreference honors NO_COLOR and otherwise follows the
// terminal's capabilities. termenv.EnvColorProfile is avoided on purpose:
// CLICOLOR would switch colors off inside the full-screen UI.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color") && profile != termenv.TrueColor:
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference picks the light or dark palette.
//
// Priority:
// 1) EFFORTUI_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg")
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("EFFORTUI_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
