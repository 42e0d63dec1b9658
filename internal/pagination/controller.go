package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"go.uber.org/zap"
)

const DefaultPageSize = 100

// ErrStale is returned by a load that was overtaken by a newer one. Its
// result has been dropped.
var ErrStale = errors.New("page load superseded")

// Fetcher is the slice of the backend the list needs. *effortapi.Client
// satisfies it.
type Fetcher interface {
	ListEstimations(ctx context.Context, q effortapi.ListQuery) (model.EstimationPage, error)
	UpdateRecordCategory(ctx context.Context, ticket string, p model.CategoryPath) error
	DeleteRecord(ctx context.Context, ticket string) error
}

// State is the paging position of one list view.
type State struct {
	Page        int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
	Search      string
}

// View is everything a surface needs to draw the list.
type View struct {
	State
	Loaded  bool
	Records []model.EstimationRecord
	JiraURL string
	Strip   []Item
}

func (v View) PrevDisabled() bool { return !v.HasPrevious }
func (v View) NextDisabled() bool { return !v.HasNext }
func (v View) Empty() bool        { return len(v.Records) == 0 }

// Controller owns one list view. Loads never hold the lock across the
// network call; a generation counter drops responses that arrive after a
// newer load was issued.
type Controller struct {
	src Fetcher
	log *zap.Logger

	mu      sync.Mutex
	gen     uint64
	state   State
	loaded  bool
	records []model.EstimationRecord
	jiraURL string
}

func New(src Fetcher, pageSize int, log *zap.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		src:   src,
		log:   log,
		state: State{Page: 1, PageSize: pageSize},
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		State:   c.state,
		Loaded:  c.loaded,
		Records: c.records,
		JiraURL: c.jiraURL,
	}
	if c.loaded {
		v.Strip = Strip(c.state.Page, c.state.TotalPages, Radius)
	}
	return v
}

// LoadPage fetches page with the current search term. On failure the last
// good page stays in place.
func (c *Controller) LoadPage(ctx context.Context, page int) (View, error) {
	c.mu.Lock()
	search := c.state.Search
	c.mu.Unlock()
	return c.load(ctx, page, search)
}

// load fetches page filtered by search. The term becomes part of the state
// only once the backend has answered.
func (c *Controller) load(ctx context.Context, page int, search string) (View, error) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.gen++
	gen := c.gen
	q := effortapi.ListQuery{Page: page, PageSize: c.state.PageSize, Search: search}
	c.mu.Unlock()

	res, err := c.src.ListEstimations(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("dropping superseded page load", zap.Int("page", page), zap.Uint64("gen", gen), zap.Uint64("latest", c.gen))
		return c.viewLocked(), ErrStale
	}
	if err != nil {
		return c.viewLocked(), fmt.Errorf("load page %d: %w", page, err)
	}
	c.apply(q, res)
	return c.viewLocked(), nil
}

func (c *Controller) apply(q effortapi.ListQuery, res model.EstimationPage) {
	c.records = res.Estimations
	c.jiraURL = strings.TrimRight(strings.TrimSpace(res.JiraURL), "/")
	c.loaded = true
	c.state.Search = q.Search

	p := res.Pagination
	if p == nil {
		// Older backends omit pagination; treat the response as the only page.
		c.state.Page = 1
		c.state.TotalCount = len(res.Estimations)
		c.state.TotalPages = 0
		if len(res.Estimations) > 0 {
			c.state.TotalPages = 1
		}
		c.state.HasPrevious = false
		c.state.HasNext = false
		return
	}
	c.state.Page = p.CurrentPage
	if c.state.Page < 1 {
		c.state.Page = q.Page
	}
	if p.PageSize > 0 {
		c.state.PageSize = p.PageSize
	}
	c.state.TotalCount = p.TotalCount
	c.state.TotalPages = p.TotalPages
	c.state.HasPrevious = p.HasPrevious
	c.state.HasNext = p.HasNext
}

// Search reloads from page 1 filtered by term. A failed search keeps the
// previous term and page.
func (c *Controller) Search(ctx context.Context, term string) (View, error) {
	return c.load(ctx, 1, strings.TrimSpace(term))
}

func (c *Controller) ClearSearch(ctx context.Context) (View, error) {
	return c.Search(ctx, "")
}

// GoToPage loads page n. Pages outside 1..TotalPages are ignored: nothing is
// fetched and ok is false.
func (c *Controller) GoToPage(ctx context.Context, n int) (v View, ok bool, err error) {
	c.mu.Lock()
	inRange := c.loaded && n >= 1 && n <= c.state.TotalPages
	if !inRange {
		v = c.viewLocked()
		c.mu.Unlock()
		return v, false, nil
	}
	c.mu.Unlock()
	v, err = c.LoadPage(ctx, n)
	return v, true, err
}

// Step moves delta pages from the current one, under the same bounds as
// GoToPage.
func (c *Controller) Step(ctx context.Context, delta int) (View, bool, error) {
	c.mu.Lock()
	n := c.state.Page + delta
	c.mu.Unlock()
	return c.GoToPage(ctx, n)
}

func (c *Controller) Reload(ctx context.Context) (View, error) {
	c.mu.Lock()
	page := c.state.Page
	c.mu.Unlock()
	return c.LoadPage(ctx, page)
}

// UpdateCategory sets a record's category and reloads the current page.
func (c *Controller) UpdateCategory(ctx context.Context, ticket string, p model.CategoryPath) (View, error) {
	if err := c.src.UpdateRecordCategory(ctx, ticket, p); err != nil {
		return c.View(), fmt.Errorf("update category of %s: %w", ticket, err)
	}
	c.log.Info("record category updated", zap.String("ticket", ticket), zap.String("category", p.String()))
	return c.Reload(ctx)
}

// Delete removes a record and goes back to page 1.
func (c *Controller) Delete(ctx context.Context, ticket string) (View, error) {
	if err := c.src.DeleteRecord(ctx, ticket); err != nil {
		return c.View(), fmt.Errorf("delete %s: %w", ticket, err)
	}
	c.log.Info("record deleted", zap.String("ticket", ticket))
	return c.LoadPage(ctx, 1)
}
