package categorytree

import (
	"errors"
	"fmt"
	"strings"

	"effort-ui/internal/model"
)

type Kind string

const (
	KindMajor Kind = "major"
	KindMinor Kind = "minor"
	KindSub   Kind = "sub"
)

// Node is one rendered row of the tree. Sub nodes are leaf labels and never
// expand.
type Node struct {
	Kind     Kind
	Key      string
	Label    string
	Major    string
	Minor    string
	Expanded bool
	Children []Node
}

// Count is the number of direct children, shown next to the header.
func (n Node) Count() int { return len(n.Children) }

func (n Node) Toggle() Action {
	switch n.Kind {
	case KindMajor:
		return Action{Kind: ActionToggleMajor, Major: n.Major}
	case KindMinor:
		return Action{Kind: ActionToggleMinor, Major: n.Major, Minor: n.Minor}
	}
	return Action{}
}

// Build turns a category map into nodes, in payload order. Headers whose key
// is recorded in exp render expanded.
func Build(m model.CategoryMap, exp *Expansion) []Node {
	out := make([]Node, 0, len(m.Majors))
	for _, major := range m.Majors {
		mn := Node{
			Kind:     KindMajor,
			Key:      major.Name,
			Label:    major.Name,
			Major:    major.Name,
			Expanded: exp.IsMajorOpen(major.Name),
			Children: make([]Node, 0, len(major.Minors)),
		}
		for _, minor := range major.Minors {
			n := Node{
				Kind:     KindMinor,
				Key:      MinorKey(major.Name, minor.Name),
				Label:    minor.Name,
				Major:    major.Name,
				Minor:    minor.Name,
				Expanded: exp.IsMinorOpen(major.Name, minor.Name),
				Children: make([]Node, 0, len(minor.Subs)),
			}
			for _, sub := range minor.Subs {
				n.Children = append(n.Children, Node{
					Kind:  KindSub,
					Key:   n.Key + "-" + sub,
					Label: sub,
					Major: major.Name,
					Minor: minor.Name,
				})
			}
			mn.Children = append(mn.Children, n)
		}
		out = append(out, mn)
	}
	return out
}

type ActionKind string

const (
	ActionToggleMajor ActionKind = "toggle-major"
	ActionToggleMinor ActionKind = "toggle-minor"
)

// Action is a header activation. It is decoded from browser signals and TUI
// keys alike.
type Action struct {
	Kind  ActionKind `json:"action"`
	Major string     `json:"major"`
	Minor string     `json:"minor,omitempty"`
}

var (
	ErrUnknownAction = errors.New("unknown tree action")
	ErrUnknownNode   = errors.New("no such category")
)

func (a Action) Validate() error {
	switch a.Kind {
	case ActionToggleMajor:
		if strings.TrimSpace(a.Major) == "" {
			return fmt.Errorf("%s: major is required", a.Kind)
		}
	case ActionToggleMinor:
		if strings.TrimSpace(a.Major) == "" || strings.TrimSpace(a.Minor) == "" {
			return fmt.Errorf("%s: major and minor are required", a.Kind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
	return nil
}

// Apply flips the header named by a and reports its new state.
func Apply(exp *Expansion, a Action) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	if a.Kind == ActionToggleMajor {
		open := !exp.IsMajorOpen(a.Major)
		exp.SetMajor(a.Major, open)
		return open, nil
	}
	open := !exp.IsMinorOpen(a.Major, a.Minor)
	exp.SetMinor(a.Major, a.Minor, open)
	return open, nil
}

// Walk visits nodes depth first, skipping the children of collapsed headers.
// depth starts at 0.
func Walk(nodes []Node, fn func(n Node, depth int)) {
	var walk func(ns []Node, depth int)
	walk = func(ns []Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			if n.Kind == KindSub || !n.Expanded {
				continue
			}
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
