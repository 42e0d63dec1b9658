package categorytree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"go.uber.org/zap"
)

// Source is the slice of the backend the tree needs. *effortapi.Client
// satisfies it.
type Source interface {
	Categories(ctx context.Context) (model.CategoryMap, error)
	EditCategory(ctx context.Context, e effortapi.CategoryEdit) error
	MajorCategories(ctx context.Context) ([]string, error)
	MinorCategories(ctx context.Context, major string) ([]string, error)
	SubCategories(ctx context.Context, major, minor string) ([]string, error)
	UploadCategories(ctx context.Context, filename string, r io.Reader) error
	DownloadCategories(ctx context.Context) (model.Spreadsheet, error)
}

// ErrStale is returned by a category load that was overtaken by a newer one.
// Its map has been dropped.
var ErrStale = errors.New("category load superseded")

// Tree owns the category map of one page view and its expansion state.
type Tree struct {
	src Source
	log *zap.Logger

	mu     sync.Mutex
	cats   model.CategoryMap
	loaded bool
	gen    uint64
	exp    *Expansion
}

func New(src Source, log *zap.Logger) *Tree {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tree{src: src, log: log, exp: NewExpansion()}
}

// Load fetches the category map and rebuilds the nodes. On failure the last
// good map is kept.
func (t *Tree) Load(ctx context.Context) ([]Node, error) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	m, err := t.src.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		t.log.Debug("dropping superseded category load", zap.Uint64("gen", gen), zap.Uint64("latest", t.gen))
		return Build(t.cats, t.exp), ErrStale
	}
	t.cats = m
	t.loaded = true
	return Build(t.cats, t.exp), nil
}

// reload runs Load after a successful change. A newer load already carries
// the change, so being superseded is not a failure here.
func (t *Tree) reload(ctx context.Context) ([]Node, error) {
	nodes, err := t.Load(ctx)
	if errors.Is(err, ErrStale) {
		return nodes, nil
	}
	return nodes, err
}

func (t *Tree) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

func (t *Tree) Nodes() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Build(t.cats, t.exp)
}

func (t *Tree) Map() model.CategoryMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cats
}

// Apply runs a toggle action against the loaded map.
func (t *Tree) Apply(a Action) ([]Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	major, ok := t.cats.Major(a.Major)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, a.Major)
	}
	if a.Kind == ActionToggleMinor && !hasMinor(major, a.Minor) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, MinorKey(a.Major, a.Minor))
	}
	if _, err := Apply(t.exp, a); err != nil {
		return nil, err
	}
	return Build(t.cats, t.exp), nil
}

func hasMinor(m model.MajorCategory, name string) bool {
	for _, mi := range m.Minors {
		if mi.Name == name {
			return true
		}
	}
	return false
}

// ResetExpansion closes every header. It runs once per page view.
func (t *Tree) ResetExpansion() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exp.Reset()
}

// ExpandAll opens every major and minor header of the loaded map.
func (t *Tree) ExpandAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, major := range t.cats.Majors {
		t.exp.SetMajor(major.Name, true)
		for _, minor := range major.Minors {
			t.exp.SetMinor(major.Name, minor.Name, true)
		}
	}
}

func (t *Tree) Expansion() (majors, minors []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exp.Keys()
}

// Edit renames a category path and reloads the tree, keeping open headers
// open by key. Once a map is loaded the old path must be in it.
func (t *Tree) Edit(ctx context.Context, e effortapi.CategoryEdit) ([]Node, error) {
	t.mu.Lock()
	missing := t.loaded && e.Old.Complete() && !t.cats.Contains(e.Old)
	t.mu.Unlock()
	if missing {
		return nil, &effortapi.ValidationError{Msg: fmt.Sprintf("category %s does not exist", e.Old)}
	}
	if err := t.src.EditCategory(ctx, e); err != nil {
		return nil, fmt.Errorf("edit category: %w", err)
	}
	t.log.Info("category edited",
		zap.String("old", e.Old.String()),
		zap.String("new", e.New.String()),
	)
	return t.reload(ctx)
}

func (t *Tree) Majors(ctx context.Context) ([]string, error) {
	return t.src.MajorCategories(ctx)
}

func (t *Tree) Minors(ctx context.Context, major string) ([]string, error) {
	return t.src.MinorCategories(ctx, major)
}

func (t *Tree) Subs(ctx context.Context, major, minor string) ([]string, error) {
	return t.src.SubCategories(ctx, major, minor)
}

// Import uploads a spreadsheet and reloads the tree.
func (t *Tree) Import(ctx context.Context, filename string, r io.Reader) ([]Node, error) {
	if err := t.src.UploadCategories(ctx, filename, r); err != nil {
		return nil, fmt.Errorf("import categories: %w", err)
	}
	t.log.Info("categories imported", zap.String("file", filename))
	return t.reload(ctx)
}

func (t *Tree) Export(ctx context.Context) (model.Spreadsheet, error) {
	s, err := t.src.DownloadCategories(ctx)
	if err != nil {
		return model.Spreadsheet{}, fmt.Errorf("export categories: %w", err)
	}
	return s, nil
}
