package tui

import (
	"effort-ui/internal/categorytree"
	"effort-ui/internal/model"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"
)

type tab int

const (
	tabTree tab = iota
	tabList
	tabAsk
	tabStats
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabTree:
		return "Categories"
	case tabList:
		return "Estimations"
	case tabAsk:
		return "Ask"
	case tabStats:
		return "Stats"
	}
	return ""
}

type treeRow struct {
	node  categorytree.Node
	depth int
}

type treeLoadedMsg struct{ err error }

type pageLoadedMsg struct {
	view pagination.View
	err  error
	// skipped is set when a page move fell outside the known range.
	skipped bool
}

type recordChangedMsg struct {
	view   pagination.View
	ticket string
	done   string
	err    error
}

type askDoneMsg struct {
	bubbles []qa.Bubble
	err     error
}

type feedbackDoneMsg struct {
	id  int
	err error
}

type statsLoadedMsg struct {
	weeks []model.WeeklyRatio
	err   error
}

type flashDoneMsg struct{ seq int }
