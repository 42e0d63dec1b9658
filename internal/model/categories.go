package model

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// CategoryMap is the major > minor > sub hierarchy in the order the backend
// sent it.
type CategoryMap struct {
	Majors []MajorCategory
}

type MajorCategory struct {
	Name   string
	Minors []MinorCategory
}

type MinorCategory struct {
	Name string
	Subs []string
}

var ErrCategoryMapShape = errors.New("category map: expected object of objects of string arrays")

// ParseCategoryMap decodes `{"major": {"minor": ["sub", ...]}}` keeping key
// order. Duplicate keys keep their first position and the last value.
func ParseCategoryMap(b []byte) (CategoryMap, error) {
	if !gjson.ValidBytes(b) {
		return CategoryMap{}, ErrCategoryMapShape
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return CategoryMap{}, ErrCategoryMapShape
	}

	var out CategoryMap
	majorIdx := map[string]int{}
	var shapeErr error
	root.ForEach(func(mk, mv gjson.Result) bool {
		if !mv.IsObject() {
			shapeErr = ErrCategoryMapShape
			return false
		}
		major := MajorCategory{Name: mk.String()}
		minorIdx := map[string]int{}
		mv.ForEach(func(nk, nv gjson.Result) bool {
			if !nv.IsArray() {
				shapeErr = ErrCategoryMapShape
				return false
			}
			minor := MinorCategory{Name: nk.String(), Subs: []string{}}
			for _, sv := range nv.Array() {
				if sv.Type != gjson.String {
					shapeErr = ErrCategoryMapShape
					return false
				}
				minor.Subs = append(minor.Subs, sv.String())
			}
			if i, ok := minorIdx[minor.Name]; ok {
				major.Minors[i] = minor
				return true
			}
			minorIdx[minor.Name] = len(major.Minors)
			major.Minors = append(major.Minors, minor)
			return true
		})
		if shapeErr != nil {
			return false
		}
		if i, ok := majorIdx[major.Name]; ok {
			out.Majors[i] = major
			return true
		}
		majorIdx[major.Name] = len(out.Majors)
		out.Majors = append(out.Majors, major)
		return true
	})
	if shapeErr != nil {
		return CategoryMap{}, shapeErr
	}
	return out, nil
}

func (m CategoryMap) Empty() bool { return len(m.Majors) == 0 }

func (m CategoryMap) MajorNames() []string {
	out := make([]string, 0, len(m.Majors))
	for _, mj := range m.Majors {
		out = append(out, mj.Name)
	}
	return out
}

func (m CategoryMap) Major(name string) (MajorCategory, bool) {
	for _, mj := range m.Majors {
		if mj.Name == name {
			return mj, true
		}
	}
	return MajorCategory{}, false
}

// Contains reports whether the full path exists in the map.
func (m CategoryMap) Contains(p CategoryPath) bool {
	mj, ok := m.Major(p.Major)
	if !ok {
		return false
	}
	for _, mn := range mj.Minors {
		if mn.Name != p.Minor {
			continue
		}
		for _, s := range mn.Subs {
			if s == p.Sub {
				return true
			}
		}
	}
	return false
}

// MarshalJSON writes the map back as a JSON object, preserving order.
func (m CategoryMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, mj := range m.Majors {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeJSONString(&b, mj.Name); err != nil {
			return nil, err
		}
		b.WriteString(":{")
		for j, mn := range mj.Minors {
			if j > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONString(&b, mn.Name); err != nil {
				return nil, err
			}
			b.WriteByte(':')
			subs := mn.Subs
			if subs == nil {
				subs = []string{}
			}
			sb, err := json.Marshal(subs)
			if err != nil {
				return nil, err
			}
			b.Write(sb)
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (m *CategoryMap) UnmarshalJSON(b []byte) error {
	parsed, err := ParseCategoryMap(b)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func writeJSONString(b *bytes.Buffer, s string) error {
	enc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b.Write(enc)
	return nil
}
