package pagination

import "strconv"

// Radius is how many pages either side of the current one stay visible.
const Radius = 2

// Item is one entry of the page strip. Ellipses are inert.
type Item struct {
	Page     int
	Ellipsis bool
	Active   bool
}

func (i Item) Label() string {
	if i.Ellipsis {
		return "…"
	}
	return strconv.Itoa(i.Page)
}

// Strip lays out page links around current: the visible window, plus the
// first and last pages with an ellipsis wherever pages are skipped.
func Strip(current, total, radius int) []Item {
	if total <= 0 {
		return nil
	}
	current = min(max(current, 1), total)
	start := max(1, current-radius)
	end := min(total, current+radius)

	out := make([]Item, 0, end-start+5)
	if start > 1 {
		out = append(out, Item{Page: 1})
		if start > 2 {
			out = append(out, Item{Ellipsis: true})
		}
	}
	for p := start; p <= end; p++ {
		out = append(out, Item{Page: p, Active: p == current})
	}
	if end < total {
		if end < total-1 {
			out = append(out, Item{Ellipsis: true})
		}
		out = append(out, Item{Page: total})
	}
	return out
}
