package categorytree

import (
	"sort"
	"strings"
)

// MinorKey is the expansion key of a minor category.
func MinorKey(major, minor string) string {
	return major + "-" + minor
}

// Expansion records which headers are open. The zero value is not usable;
// call NewExpansion.
type Expansion struct {
	majors map[string]bool
	minors map[string]bool
}

func NewExpansion() *Expansion {
	return &Expansion{majors: map[string]bool{}, minors: map[string]bool{}}
}

func (e *Expansion) Reset() {
	clear(e.majors)
	clear(e.minors)
}

func (e *Expansion) IsMajorOpen(major string) bool { return e != nil && e.majors[major] }

func (e *Expansion) IsMinorOpen(major, minor string) bool {
	return e != nil && e.minors[MinorKey(major, minor)]
}

func (e *Expansion) SetMajor(major string, open bool) {
	if open {
		e.majors[major] = true
		return
	}
	delete(e.majors, major)
}

func (e *Expansion) SetMinor(major, minor string, open bool) {
	k := MinorKey(major, minor)
	if open {
		e.minors[k] = true
		return
	}
	delete(e.minors, k)
}

// Keys returns the open keys, sorted, for logging and tests.
func (e *Expansion) Keys() (majors, minors []string) {
	for k := range e.majors {
		majors = append(majors, k)
	}
	for k := range e.minors {
		minors = append(minors, k)
	}
	sort.Strings(majors)
	sort.Strings(minors)
	return majors, minors
}

func (e *Expansion) Empty() bool {
	return len(e.majors) == 0 && len(e.minors) == 0
}

func (e *Expansion) String() string {
	majors, minors := e.Keys()
	return "majors=[" + strings.Join(majors, ",") + "] minors=[" + strings.Join(minors, ",") + "]"
}
