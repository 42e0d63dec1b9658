package tui

import (
	"context"
	"errors"
	"strings"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.Width = max(msg.Width-6, 10)
		m.question.Width = max(msg.Width-6, 10)
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil

	case treeLoadedMsg:
		if errors.Is(msg.err, categorytree.ErrStale) {
			return m, nil
		}
		m.treeLoading = false
		m.treeErr = ""
		m.rebuildTree()
		if msg.err != nil {
			text := effortapi.UserMessage(msg.err, "Categories could not be loaded.")
			if !m.tree.Loaded() {
				m.treeErr = text
			}
			return m, m.setFlash(text, true)
		}
		return m, nil

	case pageLoadedMsg:
		return m.applyPage(msg.view, msg.err, msg.skipped)

	case recordChangedMsg:
		m.listLoading = false
		if errors.Is(msg.err, pagination.ErrStale) {
			return m, nil
		}
		m.listView = msg.view
		m.listCursor = min(m.listCursor, max(len(msg.view.Records)-1, 0))
		if msg.err != nil {
			return m, m.setFlash(effortapi.UserMessage(msg.err, "The record could not be changed."), true)
		}
		return m, m.setFlash(msg.done, false)

	case statsLoadedMsg:
		if msg.err != nil {
			text := effortapi.UserMessage(msg.err, "Statistics could not be loaded.")
			if m.weeks == nil {
				m.statsErr = text
			}
			return m, m.setFlash(text, true)
		}
		m.statsErr = ""
		m.weeks = msg.weeks
		if m.weeks == nil {
			m.weeks = []model.WeeklyRatio{}
		}
		return m, nil

	case askDoneMsg:
		m.asking = false
		if errors.Is(msg.err, qa.ErrEmptyQuestion) {
			return m, m.setFlash("Type a question first.", true)
		}
		return m, nil

	case feedbackDoneMsg:
		m.asking = false
		switch {
		case msg.err == nil:
			return m, m.setFlash("Thanks for the feedback.", false)
		case errors.Is(msg.err, qa.ErrFeedbackClosed):
			return m, nil
		case errors.Is(msg.err, qa.ErrMissingAnswer):
			return m, m.setFlash("The answer could not be found.", true)
		}
		return m, m.setFlash(effortapi.UserMessage(msg.err, "Feedback failed."), true)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m appModel) applyPage(v pagination.View, err error, skipped bool) (tea.Model, tea.Cmd) {
	if skipped && err == nil {
		return m, nil
	}
	if errors.Is(err, pagination.ErrStale) {
		return m, nil
	}
	m.listLoading = false
	m.listView = v
	m.listCursor = min(m.listCursor, max(len(v.Records)-1, 0))
	if err != nil {
		text := effortapi.UserMessage(err, "Estimations could not be loaded.")
		if !v.Loaded {
			m.listErr = text
		}
		return m, m.setFlash(text, true)
	}
	m.listErr = ""
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}

	// Text inputs swallow plain keys.
	if m.tab == tabList && m.searching {
		return m.updateSearch(msg)
	}
	if m.tab == tabAsk {
		return m.updateAsk(msg)
	}

	switch k {
	case "q":
		return m, tea.Quit
	case "tab":
		return m.switchTab((m.tab + 1) % tabCount)
	case "shift+tab":
		return m.switchTab((m.tab + tabCount - 1) % tabCount)
	case "1":
		return m.switchTab(tabTree)
	case "2":
		return m.switchTab(tabList)
	case "3":
		return m.switchTab(tabAsk)
	case "4":
		return m.switchTab(tabStats)
	}

	switch m.tab {
	case tabTree:
		return m.updateTree(k)
	case tabList:
		return m.updateList(k)
	case tabStats:
		if k == "r" {
			return m, m.statsCmd()
		}
	}
	return m, nil
}

// switchTab activates t. The list loads page 1 on its first activation.
func (m appModel) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.tab = t
	m.confirmDelete = ""
	switch t {
	case tabList:
		if !m.listRequested {
			m.listRequested = true
			m.listLoading = true
			return m, m.loadPageCmd(1)
		}
	case tabAsk:
		return m, m.question.Focus()
	case tabStats:
		if !m.statsRequested {
			m.statsRequested = true
			m.question.Blur()
			return m, m.statsCmd()
		}
	}
	m.question.Blur()
	return m, nil
}

func (m appModel) updateTree(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "up", "k":
		m.treeCursor = max(m.treeCursor-1, 0)
	case "down", "j":
		m.treeCursor = min(m.treeCursor+1, max(len(m.treeRows)-1, 0))
	case "home", "g":
		m.treeCursor = 0
	case "end", "G":
		m.treeCursor = max(len(m.treeRows)-1, 0)
	case "enter", " ", "right", "l", "left", "h":
		if m.treeCursor >= len(m.treeRows) {
			return m, nil
		}
		n := m.treeRows[m.treeCursor].node
		if n.Kind == categorytree.KindSub {
			return m, nil
		}
		// left only collapses, right only expands.
		if (k == "left" || k == "h") && !n.Expanded || (k == "right" || k == "l") && n.Expanded {
			return m, nil
		}
		if _, err := m.tree.Apply(n.Toggle()); err != nil {
			return m, m.setFlash(err.Error(), true)
		}
		m.rebuildTree()
	case "r":
		m.treeLoading = true
		return m, m.loadTreeCmd()
	}
	return m, nil
}

func (m appModel) updateList(k string) (tea.Model, tea.Cmd) {
	if m.confirmDelete != "" {
		ticket := m.confirmDelete
		m.confirmDelete = ""
		if k == "y" {
			m.listLoading = true
			return m, m.deleteCmd(ticket)
		}
		return m, m.setFlash("Delete cancelled.", false)
	}
	if !m.listView.Loaded {
		if k == "r" {
			m.listLoading = true
			return m, m.loadPageCmd(1)
		}
		return m, nil
	}
	switch k {
	case "up", "k":
		m.listCursor = max(m.listCursor-1, 0)
	case "down", "j":
		m.listCursor = min(m.listCursor+1, max(len(m.listView.Records)-1, 0))
	case "n", "right", "pgdown":
		return m, m.stepCmd(1)
	case "p", "left", "pgup":
		return m, m.stepCmd(-1)
	case "g", "home":
		return m, m.gotoCmd(1)
	case "G", "end":
		return m, m.gotoCmd(m.listView.TotalPages)
	case "/":
		m.searching = true
		m.search.SetValue(m.listView.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "c":
		m.search.SetValue("")
		return m, m.listCmd(func(ctx context.Context, c *pagination.Controller) (pagination.View, error) {
			return c.ClearSearch(ctx)
		})
	case "r":
		return m, m.reloadCmd()
	case "x", "delete":
		if m.listCursor < len(m.listView.Records) {
			m.confirmDelete = m.listView.Records[m.listCursor].JiraTicket
		}
	}
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.listLoading = true
		m.listCursor = 0
		return m, m.searchCmd(m.search.Value())
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m appModel) updateAsk(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.question.Blur()
		return m.switchTab(tabStats)
	case "shift+tab":
		m.question.Blur()
		return m.switchTab(tabList)
	case "esc":
		m.question.SetValue("")
		return m, nil
	case "enter":
		if m.asking {
			return m, nil
		}
		q := strings.TrimSpace(m.question.Value())
		if q == "" {
			return m, m.setFlash("Type a question first.", true)
		}
		m.asking = true
		m.question.SetValue("")
		return m, m.askCmd(q)
	case "ctrl+y":
		if b, ok := m.pendingBubble(); ok {
			return m, m.acceptCmd(b.ID)
		}
		return m, nil
	case "ctrl+r":
		if b, ok := m.pendingBubble(); ok {
			m.asking = true
			return m, m.rejectCmd(b.ID)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	return m, cmd
}
