package tui

import (
	"fmt"
	"strconv"
	"strings"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/pagination"
	"effort-ui/internal/qa"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	header := m.viewTabs()
	footer := m.viewFooter()
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch m.tab {
	case tabTree:
		body = m.viewTree(bodyH)
	case tabList:
		body = m.viewList(bodyH)
	case tabAsk:
		body = m.viewAsk(bodyH)
	case tabStats:
		body = m.viewStats()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, normalizePane(body, m.width, bodyH), footer)
}

func (m appModel) viewTabs() string {
	parts := make([]string, 0, tabCount)
	for t := tab(0); t < tabCount; t++ {
		parts = append(parts, styleTab(t == m.tab).Render(strconv.Itoa(int(t)+1)+" "+t.title()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n"
}

func (m appModel) viewFooter() string {
	var help string
	switch {
	case m.tab == tabList && m.searching:
		help = "enter search · esc cancel"
	case m.tab == tabList && m.confirmDelete != "":
		help = "delete " + m.confirmDelete + "? y to confirm, any key to cancel"
	case m.tab == tabTree:
		help = "↑/↓ move · enter toggle · r reload · tab switch · q quit"
	case m.tab == tabList:
		help = "↑/↓ move · n/p page · g/G first/last · / search · c clear · x delete · tab switch · q quit"
	case m.tab == tabAsk:
		help = "enter ask · ctrl+y helpful · ctrl+r search again · tab switch · ctrl+c quit"
	case m.tab == tabStats:
		help = "r reload · tab switch · q quit"
	}
	line := styleMuted().Render(help)
	if m.flash != "" {
		st := styleSuccess()
		if m.flashErr {
			st = styleError()
		}
		line = st.Render(m.flash) + "  " + line
	}
	return "\n" + line
}

func (m appModel) viewTree(height int) string {
	switch {
	case m.treeErr != "":
		return styleError().Render(m.treeErr)
	case m.treeLoading && len(m.treeRows) == 0:
		return styleMuted().Render("Loading categories" + glyphEllipsis())
	case len(m.treeRows) == 0:
		return styleMuted().Render("No categories yet.")
	}
	start, end := scrollWindow(len(m.treeRows), m.treeCursor, height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.treeLine(m.treeRows[i], i == m.treeCursor))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) treeLine(r treeRow, selected bool) string {
	n := r.node
	indent := strings.Repeat("  ", r.depth)
	var ln string
	switch n.Kind {
	case categorytree.KindSub:
		ln = indent + "  " + glyphBullet() + " " + n.Label
	default:
		twisty := glyphTwistyCollapsed()
		if n.Expanded {
			twisty = glyphTwistyExpanded()
		}
		ln = indent + twisty + " " + n.Label + styleMuted().Render(" ("+strconv.Itoa(n.Count())+")")
	}
	if selected {
		return styleSelected().Render(ln)
	}
	return ln
}

func (m appModel) viewList(height int) string {
	var b strings.Builder
	if m.searching {
		b.WriteString(m.search.View() + "\n")
	} else if m.listView.Search != "" {
		b.WriteString(styleMuted().Render("search: "+m.listView.Search) + "\n")
	}
	switch {
	case m.listErr != "":
		b.WriteString(styleError().Render(m.listErr))
		return b.String()
	case !m.listView.Loaded:
		b.WriteString(styleMuted().Render("Loading estimations" + glyphEllipsis()))
		return b.String()
	case m.listView.Empty():
		b.WriteString(styleMuted().Render("No estimations found."))
		b.WriteString("\n\n" + m.viewStrip())
		return b.String()
	}

	rows := pagination.Rows(m.listView)
	tableH := max(height-4, 1)
	start, end := scrollWindow(len(rows), m.listCursor, tableH)
	b.WriteString(styleMuted().Render(fmt.Sprintf("%-5s %-12s %-40s %6s  %-14s %-10s %s", "#", "TICKET", "TITLE", "POINTS", "MEMBER", "CREATED", "CATEGORY")) + "\n")
	for i := start; i < end; i++ {
		r := rows[i]
		cat := r.Category
		if r.Uncategorized {
			cat = styleCallToAction().Render(cat)
		}
		ln := fmt.Sprintf("%-5s %-12s %-40s %6s  %-14s %-10s ", r.Seq, clip(r.Ticket, 12), clip(r.Title, 40), r.Points, clip(r.Member, 14), r.Created)
		if i == m.listCursor {
			ln = styleSelected().Render(ln)
		}
		b.WriteString(ln + cat + "\n")
	}
	b.WriteString("\n" + m.viewStrip())
	return b.String()
}

// viewStrip renders the pager. The current page is bracketed; ellipses mark
// skipped ranges.
func (m appModel) viewStrip() string {
	v := m.listView
	if len(v.Strip) == 0 {
		return ""
	}
	parts := []string{pagerEnd("‹ prev", v.PrevDisabled())}
	for _, it := range v.Strip {
		switch {
		case it.Ellipsis:
			parts = append(parts, styleMuted().Render(glyphEllipsis()))
		case it.Active:
			parts = append(parts, styleSelected().Render("["+it.Label()+"]"))
		default:
			parts = append(parts, it.Label())
		}
	}
	parts = append(parts, pagerEnd("next ›", v.NextDisabled()))
	summary := styleMuted().Render(fmt.Sprintf("  %d records, page %d of %d", v.TotalCount, v.Page, v.TotalPages))
	return strings.Join(parts, " ") + summary
}

func pagerEnd(label string, disabled bool) string {
	if disabled {
		return styleMuted().Render(label)
	}
	return label
}

func (m appModel) viewAsk(height int) string {
	width := max(m.width-2, 20)
	var blocks []string
	for _, b := range m.qa.Transcript() {
		blocks = append(blocks, bubbleView(b, width))
	}
	if m.asking {
		blocks = append(blocks, styleMuted().Render("Searching"+glyphEllipsis()))
	}
	transcript := strings.Join(blocks, "\n\n")
	// Keep the newest lines in view above the input.
	lines := strings.Split(transcript, "\n")
	if room := max(height-2, 1); len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return strings.Join(lines, "\n") + "\n\n" + m.question.View()
}

func bubbleView(b qa.Bubble, width int) string {
	switch b.Role {
	case qa.RoleUser:
		return styleUser().Render("You: ") + b.Text
	case qa.RoleError:
		return styleError().Render("Error: " + b.Text)
	}
	var out []string
	if b.Answer.IsFromFeedback {
		out = append(out, styleSuccess().Render("Verified answer from earlier feedback"))
	}
	if b.Research {
		out = append(out, styleCallToAction().Render(fmt.Sprintf("Searched again without %d earlier sources", b.Excluded)))
	}
	out = append(out, renderMarkdown(b.Text, width))
	switch {
	case b.Pending():
		out = append(out, styleMuted().Render("Helpful? ctrl+y yes · ctrl+r search again"))
	case b.Feedback == qa.FeedbackAccepted && b.Saved:
		out = append(out, styleSuccess().Render("Thanks for the feedback. The answer was saved."))
	case b.Feedback == qa.FeedbackAccepted:
		out = append(out, styleSuccess().Render("Thanks for the feedback."))
	}
	if b.Note != "" {
		out = append(out, styleError().Render(b.Note))
	}
	return strings.Join(out, "\n")
}

func (m appModel) viewStats() string {
	switch {
	case m.statsErr != "":
		return styleError().Render(m.statsErr)
	case m.weeks == nil:
		return styleMuted().Render("Loading statistics" + glyphEllipsis())
	case len(m.weeks) == 0:
		return styleMuted().Render("No feedback recorded yet.")
	}
	barW := max(m.width-30, 10)
	lines := []string{styleMuted().Render("Weekly positive feedback")}
	for _, w := range m.weeks {
		n := int(w.Width() * float64(barW) / 100)
		bar := lipgloss.NewStyle().Foreground(ratioColor(w.Level())).Render(strings.Repeat(glyphBar(), n))
		lines = append(lines, fmt.Sprintf("%-12s %s %5.1f%%", clip(w.Week, 12), bar+strings.Repeat(" ", barW-n), w.PositiveRatio))
	}
	return strings.Join(lines, "\n")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
