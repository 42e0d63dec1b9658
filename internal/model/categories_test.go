package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCategoryMap_PreservesPayloadOrder(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"Zeta": {"b-minor": ["s2", "s1"], "a-minor": []},
		"Alpha": {"only": ["x"]}
	}`)
	got, err := ParseCategoryMap(raw)
	if err != nil {
		t.Fatalf("ParseCategoryMap: %v", err)
	}
	want := CategoryMap{Majors: []MajorCategory{
		{Name: "Zeta", Minors: []MinorCategory{
			{Name: "b-minor", Subs: []string{"s2", "s1"}},
			{Name: "a-minor", Subs: []string{}},
		}},
		{Name: "Alpha", Minors: []MinorCategory{
			{Name: "only", Subs: []string{"x"}},
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("category map mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCategoryMap_Empty(t *testing.T) {
	t.Parallel()

	got, err := ParseCategoryMap([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseCategoryMap: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty map, got %+v", got)
	}
}

func TestParseCategoryMap_RejectsBadShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{"a":`},
		{name: "array root", raw: `["a"]`},
		{name: "minor not object", raw: `{"a": ["x"]}`},
		{name: "subs not array", raw: `{"a": {"b": "c"}}`},
		{name: "sub not string", raw: `{"a": {"b": [1]}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseCategoryMap([]byte(tt.raw))
			if !errors.Is(err, ErrCategoryMapShape) {
				t.Fatalf("expected ErrCategoryMapShape, got %v", err)
			}
		})
	}
}

func TestCategoryMap_MarshalJSONRoundTripsOrder(t *testing.T) {
	t.Parallel()

	raw := `{"B":{"m2":["z","a"],"m1":[]},"A":{"m":["x y"]}}`
	m, err := ParseCategoryMap([]byte(raw))
	if err != nil {
		t.Fatalf("ParseCategoryMap: %v", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"B":{"m2":["z","a"],"m1":[]},"A":{"m":["x y"]}}`
	if string(b) != want {
		t.Fatalf("marshal:\n got: %s\nwant: %s", b, want)
	}
}

func TestCategoryMap_Contains(t *testing.T) {
	t.Parallel()

	m, err := ParseCategoryMap([]byte(`{"A":{"a1":["x","y"]}}`))
	if err != nil {
		t.Fatalf("ParseCategoryMap: %v", err)
	}
	if !m.Contains(CategoryPath{Major: "A", Minor: "a1", Sub: "y"}) {
		t.Fatalf("expected A>a1>y present")
	}
	if m.Contains(CategoryPath{Major: "A", Minor: "a1", Sub: "z"}) {
		t.Fatalf("expected A>a1>z absent")
	}
}

func TestEstimationRecord_Category(t *testing.T) {
	t.Parallel()

	major, minor := "Backend", "API"
	r := EstimationRecord{MajorCategory: &major, MinorCategory: &minor}
	if _, ok := r.Category(); ok {
		t.Fatalf("expected incomplete category without sub")
	}
	sub := "Auth"
	r.SubCategory = &sub
	p, ok := r.Category()
	if !ok || p.String() != "Backend > API > Auth" {
		t.Fatalf("unexpected category: %q ok=%v", p.String(), ok)
	}
}

func TestSource_KeepsRawObject(t *testing.T) {
	t.Parallel()

	var srcs []Source
	if err := json.Unmarshal([]byte(`[{"source":"doc-1","score":0.9},"doc-2"]`), &srcs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(srcs) != 2 || srcs[0].Source != "doc-1" || srcs[1].Source != "doc-2" {
		t.Fatalf("unexpected sources: %+v", srcs)
	}
	b, err := json.Marshal(srcs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `[{"source":"doc-1","score":0.9},{"source":"doc-2"}]` {
		t.Fatalf("unexpected re-encoding: %s", b)
	}
}

func TestWeeklyRatio_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ratio float64
		want  RatioLevel
	}{
		{ratio: 100, want: RatioGood},
		{ratio: 80, want: RatioGood},
		{ratio: 79.9, want: RatioFair},
		{ratio: 60, want: RatioFair},
		{ratio: 59.99, want: RatioPoor},
		{ratio: 0, want: RatioPoor},
	}
	for _, tt := range tests {
		if got := (WeeklyRatio{PositiveRatio: tt.ratio}).Level(); got != tt.want {
			t.Fatalf("Level(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
	if w := (WeeklyRatio{PositiveRatio: 140}).Width(); w != 100 {
		t.Fatalf("Width clamp = %v", w)
	}
}
