package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"effort-ui/internal/model"
)

const uncategorizedLabel = "Set category"

// Row is a display-ready record. Text fields are raw; surfaces escape them.
type Row struct {
	Seq           string
	Ticket        string
	TicketURL     string
	Title         string
	Points        string
	Member        string
	Category      string
	Path          model.CategoryPath
	Uncategorized bool
	Created       string
}

func Rows(v View) []Row {
	out := make([]Row, 0, len(v.Records))
	for _, r := range v.Records {
		row := Row{
			Ticket:    r.JiraTicket,
			TicketURL: TicketURL(v.JiraURL, r.JiraTicket),
			Title:     r.Title,
			Points:    strconv.FormatFloat(r.StoryPoints, 'f', -1, 64),
			Member:    r.Member(),
		}
		if r.SequenceNumber > 0 {
			row.Seq = strconv.Itoa(r.SequenceNumber)
		}
		if row.Member == "" {
			row.Member = "N/A"
		}
		if p, ok := r.Category(); ok {
			row.Path = p
			row.Category = p.String()
		} else {
			row.Path = p
			row.Category = uncategorizedLabel
			row.Uncategorized = true
		}
		if t, ok := r.CreatedAt(); ok {
			row.Created = t.Format("2006-01-02")
		} else {
			row.Created = strings.TrimSpace(r.CreatedDate)
		}
		out = append(out, row)
	}
	return out
}

// TicketURL links a ticket into the issue tracker, or returns "" when the
// backend did not report a tracker URL.
func TicketURL(base, ticket string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	ticket = strings.TrimSpace(ticket)
	if base == "" || ticket == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return base + "/browse/" + url.PathEscape(ticket)
}
