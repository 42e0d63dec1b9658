package tui

import (
	"context"
	"time"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/model"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const defaultFlashFor = 3 * time.Second

type appModel struct {
	ctx context.Context
	log *zap.Logger

	tree *categorytree.Tree
	list *pagination.Controller
	qa   *qa.Session

	tab    tab
	width  int
	height int

	treeRows    []treeRow
	treeCursor  int
	treeErr     string
	treeLoading bool

	listView      pagination.View
	listCursor    int
	listErr       string
	listLoading   bool
	listRequested bool
	search        textinput.Model
	searching     bool
	confirmDelete string

	question textinput.Model
	asking   bool

	stats          func(context.Context) ([]model.WeeklyRatio, error)
	weeks          []model.WeeklyRatio
	statsErr       string
	statsRequested bool

	flash    string
	flashErr bool
	flashSeq int
	flashFor time.Duration
}

func newAppModel(ctx context.Context, opts Options) appModel {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	search := textinput.New()
	search.Placeholder = "search ticket, title or member"
	search.Prompt = "/ "
	search.CharLimit = 200

	question := textinput.New()
	question.Placeholder = "ask about past estimations"
	question.Prompt = "? "
	question.CharLimit = 1000

	t := categorytree.New(opts.Backend, log)
	t.ResetExpansion()

	return appModel{
		ctx:         ctx,
		log:         log,
		tree:        t,
		list:        pagination.New(opts.Backend, opts.PageSize, log),
		qa:          qa.NewSession(opts.Backend, log),
		tab:         tabTree,
		width:       100,
		height:      30,
		search:      search,
		question:    question,
		stats:       opts.Backend.WeeklyPositiveRatio,
		flashFor:    defaultFlashFor,
		treeLoading: true,
	}
}

func (m appModel) Init() tea.Cmd {
	return m.loadTreeCmd()
}

func (m appModel) loadTreeCmd() tea.Cmd {
	ctx, t := m.ctx, m.tree
	return func() tea.Msg {
		_, err := t.Load(ctx)
		return treeLoadedMsg{err: err}
	}
}

func (m appModel) listCmd(load func(context.Context, *pagination.Controller) (pagination.View, error)) tea.Cmd {
	ctx, c := m.ctx, m.list
	return func() tea.Msg {
		v, err := load(ctx, c)
		return pageLoadedMsg{view: v, err: err}
	}
}

func (m appModel) loadPageCmd(page int) tea.Cmd {
	return m.listCmd(func(ctx context.Context, c *pagination.Controller) (pagination.View, error) {
		return c.LoadPage(ctx, page)
	})
}

func (m appModel) searchCmd(term string) tea.Cmd {
	return m.listCmd(func(ctx context.Context, c *pagination.Controller) (pagination.View, error) {
		return c.Search(ctx, term)
	})
}

func (m appModel) reloadCmd() tea.Cmd {
	return m.listCmd(func(ctx context.Context, c *pagination.Controller) (pagination.View, error) {
		return c.Reload(ctx)
	})
}

func (m appModel) gotoCmd(page int) tea.Cmd {
	ctx, c := m.ctx, m.list
	return func() tea.Msg {
		v, ok, err := c.GoToPage(ctx, page)
		return pageLoadedMsg{view: v, err: err, skipped: !ok}
	}
}

func (m appModel) stepCmd(delta int) tea.Cmd {
	ctx, c := m.ctx, m.list
	return func() tea.Msg {
		v, ok, err := c.Step(ctx, delta)
		return pageLoadedMsg{view: v, err: err, skipped: !ok}
	}
}

func (m appModel) statsCmd() tea.Cmd {
	ctx, load := m.ctx, m.stats
	return func() tea.Msg {
		weeks, err := load(ctx)
		return statsLoadedMsg{weeks: weeks, err: err}
	}
}

func (m appModel) deleteCmd(ticket string) tea.Cmd {
	ctx, c := m.ctx, m.list
	return func() tea.Msg {
		v, err := c.Delete(ctx, ticket)
		return recordChangedMsg{view: v, ticket: ticket, done: "Deleted " + ticket + ".", err: err}
	}
}

func (m appModel) askCmd(question string) tea.Cmd {
	ctx, s := m.ctx, m.qa
	return func() tea.Msg {
		bs, err := s.Ask(ctx, question)
		return askDoneMsg{bubbles: bs, err: err}
	}
}

func (m appModel) acceptCmd(id int) tea.Cmd {
	ctx, s := m.ctx, m.qa
	return func() tea.Msg {
		_, err := s.Accept(ctx, id)
		return feedbackDoneMsg{id: id, err: err}
	}
}

func (m appModel) rejectCmd(id int) tea.Cmd {
	ctx, s := m.ctx, m.qa
	return func() tea.Msg {
		_, err := s.Reject(ctx, id)
		return feedbackDoneMsg{id: id, err: err}
	}
}

// setFlash shows a status line message that clears itself after flashFor.
func (m *appModel) setFlash(msg string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = msg
	m.flashErr = isErr
	if m.flashFor <= 0 {
		return nil
	}
	seq := m.flashSeq
	return tea.Tick(m.flashFor, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

// rebuildTree flattens the visible nodes, keeping the cursor on the same key.
func (m *appModel) rebuildTree() {
	key := ""
	if m.treeCursor >= 0 && m.treeCursor < len(m.treeRows) {
		key = m.treeRows[m.treeCursor].node.Key
	}
	var rows []treeRow
	categorytree.Walk(m.tree.Nodes(), func(n categorytree.Node, depth int) {
		rows = append(rows, treeRow{node: n, depth: depth})
	})
	m.treeRows = rows
	m.treeCursor = 0
	for i, r := range rows {
		if r.node.Key == key {
			m.treeCursor = i
			break
		}
	}
}

// pendingBubble is the newest answer still waiting for feedback.
func (m appModel) pendingBubble() (qa.Bubble, bool) {
	bs := m.qa.Transcript()
	for i := len(bs) - 1; i >= 0; i-- {
		if bs[i].Pending() {
			return bs[i], true
		}
	}
	return qa.Bubble{}, false
}
