package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	cats     model.CategoryMap
	catsErr  error
	pages    int
	queries  []effortapi.ListQuery
	deleted  []string
	updated  map[string]model.CategoryPath
	uploaded []string
	feedback []effortapi.Feedback
	excluded [][]string
	weeks    []model.WeeklyRatio
}

func newFakeBackend(t *testing.T, catsJSON string) *fakeBackend {
	t.Helper()
	m, err := model.ParseCategoryMap([]byte(catsJSON))
	require.NoError(t, err)
	return &fakeBackend{cats: m, pages: 3, updated: map[string]model.CategoryPath{}}
}

func (f *fakeBackend) Categories(context.Context) (model.CategoryMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cats, f.catsErr
}

func (f *fakeBackend) EditCategory(_ context.Context, e effortapi.CategoryEdit) error {
	if !e.Old.Complete() || !e.New.Complete() {
		return &effortapi.ValidationError{Msg: "all six category fields are required"}
	}
	return nil
}

func (f *fakeBackend) MajorCategories(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cats.MajorNames(), nil
}

func (f *fakeBackend) MinorCategories(_ context.Context, major string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := f.cats.Major(major)
	var out []string
	for _, mi := range m.Minors {
		out = append(out, mi.Name)
	}
	return out, nil
}

func (f *fakeBackend) SubCategories(_ context.Context, major, minor string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := f.cats.Major(major)
	for _, mi := range m.Minors {
		if mi.Name == minor {
			return mi.Subs, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) UploadCategories(_ context.Context, filename string, r io.Reader) error {
	if !effortapi.SpreadsheetExt(filename) {
		return &effortapi.ValidationError{Msg: "only spreadsheet files (.xlsx, .xls) can be uploaded"}
	}
	b, _ := io.ReadAll(r)
	f.mu.Lock()
	f.uploaded = append(f.uploaded, filename+":"+string(b))
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) DownloadCategories(context.Context) (model.Spreadsheet, error) {
	return model.Spreadsheet{Filename: "cats.xlsx", ContentType: "application/vnd.ms-excel", Data: []byte("PK-sheet")}, nil
}

func (f *fakeBackend) ListEstimations(_ context.Context, q effortapi.ListQuery) (model.EstimationPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	major, minor, sub := "Dev", "Backend", "API"
	return model.EstimationPage{
		Estimations: []model.EstimationRecord{
			{JiraTicket: "ABC-1", Title: "Login <form>", StoryPoints: 3, SequenceNumber: 1, CreatedDate: "2024-05-01T10:00:00",
				MajorCategory: &major, MinorCategory: &minor, SubCategory: &sub},
			{JiraTicket: "ABC-2", Title: "Logout", StoryPoints: 1.5, SequenceNumber: 2},
		},
		Pagination: &model.Pagination{
			CurrentPage: q.Page, PageSize: q.PageSize, TotalCount: 250, TotalPages: f.pages,
			HasPrevious: q.Page > 1, HasNext: q.Page < f.pages,
		},
		JiraURL: "https://jira.example.com",
	}, nil
}

func (f *fakeBackend) UpdateRecordCategory(_ context.Context, ticket string, p model.CategoryPath) error {
	f.mu.Lock()
	f.updated[ticket] = p
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) DeleteRecord(_ context.Context, ticket string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, ticket)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Ask(_ context.Context, q string) (model.Answer, error) {
	return model.Answer{
		Answer:          "Use **three** points for " + q,
		Sources:         []model.Source{{Source: "doc-1"}},
		FeedbackEnabled: true,
	}, nil
}

func (f *fakeBackend) AskExcluding(_ context.Context, q string, excluded []string) (model.Answer, error) {
	f.mu.Lock()
	f.excluded = append(f.excluded, excluded)
	f.mu.Unlock()
	return model.Answer{Answer: "Another answer for " + q, FeedbackEnabled: true}, nil
}

func (f *fakeBackend) SendFeedback(_ context.Context, fb effortapi.Feedback) (bool, error) {
	f.mu.Lock()
	f.feedback = append(f.feedback, fb)
	f.mu.Unlock()
	return true, nil
}

func (f *fakeBackend) AddEstimation(_ context.Context, e model.NewEstimation) (string, error) {
	if e.JiraTicket == "" || e.Title == "" || e.StoryPoints <= 0 {
		return "", &effortapi.ValidationError{Msg: "ticket, title and story points are required"}
	}
	return "Added " + e.JiraTicket, nil
}

func (f *fakeBackend) SyncTicket(_ context.Context, ticket string, _ model.CategoryPath) (model.SyncResult, error) {
	return model.SyncResult{}, &effortapi.StatusError{Op: "sync ticket", StatusCode: 404, Message: "ticket " + ticket + " not found"}
}

func (f *fakeBackend) SyncEpic(context.Context, string) (model.EpicSyncResult, error) {
	return model.EpicSyncResult{TotalTasks: 5, AddedTasks: 3, UpdatedTasks: 1, SkippedTasks: 1}, nil
}

func (f *fakeBackend) AutoClassify(context.Context) (model.AutoClassifyResult, error) {
	return model.AutoClassifyResult{ClassifiedCount: 4, AverageConfidence: 0.42}, nil
}

func (f *fakeBackend) WeeklyPositiveRatio(context.Context) ([]model.WeeklyRatio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weeks, nil
}

const sampleCats = `{"Dev":{"Backend":["API","DB"],"Frontend":["UI"]},"Ops":{"Infra":["K8s"]}}`

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
	view string
}

func setupServer(t *testing.T, b *fakeBackend) *testClient {
	t.Helper()
	s, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", PageSize: 50, Backend: b, BackendURL: "http://backend.test"})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

var viewSignal = regexp.MustCompile(`view: &#39;([0-9a-f-]{36})&#39;|view: '([0-9a-f-]{36})'`)

// open loads the page shell and remembers the view id it was given.
func (c *testClient) open() string {
	c.t.Helper()
	res, err := c.http.Get(c.base + "/")
	require.NoError(c.t, err)
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	require.Equal(c.t, http.StatusOK, res.StatusCode)
	m := viewSignal.FindStringSubmatch(string(b))
	require.NotNil(c.t, m, "page should declare the view signal")
	c.view = m[1] + m[2]
	return string(b)
}

func (c *testClient) sse(method, path string, signals map[string]any) string {
	c.t.Helper()
	if signals == nil {
		signals = map[string]any{}
	}
	if _, ok := signals["view"]; !ok {
		signals["view"] = c.view
	}
	raw, err := json.Marshal(signals)
	require.NoError(c.t, err)

	var req *http.Request
	if method == http.MethodGet {
		req, err = http.NewRequest(method, c.base+path+"?datastar="+url.QueryEscape(string(raw)), nil)
	} else {
		req, err = http.NewRequest(method, c.base+path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	require.NoError(c.t, err)
	req.Header.Set("Datastar-Request", "true")

	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	require.Equal(c.t, http.StatusOK, res.StatusCode, string(b))
	return string(b)
}

// =============================================================================
// Page shell
// =============================================================================

func TestHomePage(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	body := c.open()

	for _, want := range []string{
		"<!doctype html>",
		"data-signals",
		"data-init",
		"/ui/stats",
		`id="category-tree"`,
		`id="estimation-list"`,
		"http://backend.test",
	} {
		assert.Contains(t, body, want)
	}
}

func TestHealth(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	res, err := c.http.Get(c.base + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok\n", string(b))
}

func TestStaticAssets(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	for path, ct := range map[string]string{
		"/static/app.css": "text/css",
		"/static/app.js":  "text/javascript",
	} {
		res, err := c.http.Get(c.base + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.Contains(t, res.Header.Get("Content-Type"), ct, path)
	}
}

// =============================================================================
// Category tree
// =============================================================================

func TestTree_LoadsCollapsed(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodGet, "/ui/categories", nil)
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "Dev")
	assert.Contains(t, body, "Ops")
	assert.Contains(t, body, "toggle-major")
	assert.NotContains(t, body, "Backend", "minors stay hidden until the major is opened")
}

func TestTree_ToggleMajorThenMinor(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()
	c.sse(http.MethodGet, "/ui/categories", nil)

	body := c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-major", "treeMajor": "Dev", "treeMinor": "",
	})
	assert.Contains(t, body, "Backend")
	assert.Contains(t, body, "Frontend")
	assert.NotContains(t, body, "API")
	assert.NotContains(t, body, "Infra")

	body = c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-minor", "treeMajor": "Dev", "treeMinor": "Backend",
	})
	assert.Contains(t, body, "<li>API</li>")
	assert.Contains(t, body, "<li>DB</li>")
	assert.NotContains(t, body, "<li>UI</li>")

	body = c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-major", "treeMajor": "Dev",
	})
	assert.NotContains(t, body, "Backend", "closing the major hides its minors")
}

func TestTree_ReloadResetsExpansion(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()
	c.sse(http.MethodGet, "/ui/categories", nil)
	c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{"treeAction": "toggle-major", "treeMajor": "Dev"})

	c.open()
	body := c.sse(http.MethodGet, "/ui/categories", nil)
	assert.NotContains(t, body, "Backend")
}

func TestTree_EscapesCategoryNames(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, `{"<script>alert(1)</script>":{"x\"y":["<b>bold</b>"]}}`))
	c.open()
	c.sse(http.MethodGet, "/ui/categories", nil)

	body := c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-major", "treeMajor": "<script>alert(1)</script>",
	})
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")

	body = c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-minor", "treeMajor": "<script>alert(1)</script>", "treeMinor": `x"y`,
	})
	assert.NotContains(t, body, "<b>bold</b>")
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestTree_UnknownToggleShowsToast(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()
	c.sse(http.MethodGet, "/ui/categories", nil)

	body := c.sse(http.MethodPost, "/ui/categories/toggle", map[string]any{
		"treeAction": "toggle-major", "treeMajor": "Nope",
	})
	assert.Contains(t, body, "toast error")
	assert.Contains(t, body, "no longer available")
}

func TestTree_LoadFailureShowsPlaceholder(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	b.catsErr = &effortapi.StatusError{Op: "get categories", StatusCode: 500, Message: "db offline"}
	c := setupServer(t, b)
	c.open()

	body := c.sse(http.MethodGet, "/ui/categories", nil)
	assert.Contains(t, body, "db offline")
	assert.Contains(t, body, "panel-error")
}

func TestExpiredViewReloads(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodGet, "/ui/categories", map[string]any{"view": "00000000-0000-0000-0000-000000000000"})
	assert.Contains(t, body, "expired")
	assert.Contains(t, body, "window.location.assign")
}

func TestViewerCookie_WorksOverPlainHTTP(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))

	res, err := c.http.Get(c.base + "/")
	require.NoError(t, err)
	res.Body.Close()
	cookies := res.Cookies()
	require.NotEmpty(t, cookies)
	for _, ck := range cookies {
		assert.False(t, ck.Secure, "cookie %s must come back over http", ck.Name)
	}

	c.open()
	body := c.sse(http.MethodGet, "/ui/categories", nil)
	assert.NotContains(t, body, "window.location.assign")
	assert.Contains(t, body, "Dev")
}

func TestViewerCookie_SecureOverTLS(t *testing.T) {
	s, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Backend: newFakeBackend(t, sampleCats)})
	require.NoError(t, err)
	ts := httptest.NewTLSServer(s.Handler())
	t.Cleanup(ts.Close)

	res, err := ts.Client().Get(ts.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	cookies := res.Cookies()
	require.NotEmpty(t, cookies)
	for _, ck := range cookies {
		assert.True(t, ck.Secure, "cookie %s", ck.Name)
	}
}

func TestViewBelongsToItsBrowser(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()

	jar, _ := cookiejar.New(nil)
	other := &testClient{t: t, base: c.base, http: &http.Client{Jar: jar}, view: c.view}
	body := other.sse(http.MethodGet, "/ui/categories", nil)
	assert.Contains(t, body, "window.location.assign")
}

func TestTree_Export(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	res, err := c.http.Get(c.base + "/ui/categories/export?view=" + c.view)
	require.NoError(t, err)
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "attachment; filename=cats.xlsx", res.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.ms-excel", res.Header.Get("Content-Type"))
	assert.Equal(t, "PK-sheet", string(b))
}

func TestTree_ExportNeedsView(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	res, err := c.http.Get(c.base + "/ui/categories/export?view=bogus")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusGone, res.StatusCode)
}

func TestTree_Edit(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodPost, "/ui/categories/edit", map[string]any{
		"editOldMajor": "Dev", "editOldMinor": "Backend", "editOldSub": "API",
		"editNewMajor": "Dev", "editNewMinor": "Backend", "editNewSub": "REST",
	})
	assert.Contains(t, body, "Category updated.")
	assert.Contains(t, body, "datastar-patch-signals")

	body = c.sse(http.MethodPost, "/ui/categories/edit", map[string]any{"editOldMajor": "Dev"})
	assert.Contains(t, body, "all six category fields are required")
}

// =============================================================================
// Pickers
// =============================================================================

func TestPicker_CascadesKnownSelection(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodGet, "/ui/pickers/rec/majors", map[string]any{
		"recMajor": "Dev", "recMinor": "Backend", "recSub": "DB",
	})
	assert.Contains(t, body, "#rec-majors")
	assert.Contains(t, body, "#rec-minors")
	assert.Contains(t, body, "#rec-subs")
	assert.Contains(t, body, `<option value="Dev" selected>Dev</option>`)
	assert.Contains(t, body, `<option value="Backend" selected>Backend</option>`)
	assert.Contains(t, body, `<option value="DB" selected>DB</option>`)
}

func TestPicker_ClearsStaleSelection(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodGet, "/ui/pickers/add/minors", map[string]any{
		"addMajor": "Ops", "addMinor": "Backend",
	})
	assert.Contains(t, body, `<option value="Infra">Infra</option>`)
	assert.Contains(t, body, "addMinor")
	assert.Contains(t, body, "#add-subs")
}

// =============================================================================
// Effort list
// =============================================================================

func TestList_FirstLoadAndStrip(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	b.pages = 10
	c := setupServer(t, b)
	c.open()

	body := c.sse(http.MethodGet, "/ui/list", nil)
	assert.Contains(t, body, "page 1 of 10")
	assert.Contains(t, body, "Login &lt;form&gt;")
	assert.Contains(t, body, "https://jira.example.com/browse/ABC-1")
	assert.Contains(t, body, "Dev &gt; Backend &gt; API")
	assert.Contains(t, body, "Set category")
	assert.Contains(t, body, `class="ellipsis"`)
	assert.Contains(t, body, "2024-05-01")

	body = c.sse(http.MethodPost, "/ui/list/page", map[string]any{"page": 5})
	assert.Contains(t, body, "page 5 of 10")

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.queries, 2)
	assert.Equal(t, effortapi.ListQuery{Page: 1, PageSize: 50}, b.queries[0])
	assert.Equal(t, effortapi.ListQuery{Page: 5, PageSize: 50}, b.queries[1])
}

func TestList_OutOfRangePageIsIgnored(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()
	c.sse(http.MethodGet, "/ui/list", nil)

	body := c.sse(http.MethodPost, "/ui/list/page", map[string]any{"page": 99})
	assert.NotContains(t, body, "datastar-patch-elements")
	body = c.sse(http.MethodPost, "/ui/list/prev", nil)
	assert.NotContains(t, body, "datastar-patch-elements")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.queries, 1)
}

func TestList_SearchResetsToFirstPage(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()
	c.sse(http.MethodGet, "/ui/list", nil)
	c.sse(http.MethodPost, "/ui/list/next", nil)

	body := c.sse(http.MethodPost, "/ui/list/search", map[string]any{"search": "  login "})
	assert.Contains(t, body, "page 1 of 3")
	assert.Contains(t, body, "matching “login”")

	c.sse(http.MethodPost, "/ui/list/clear", nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.queries, 4)
	assert.Equal(t, 2, b.queries[1].Page)
	assert.Equal(t, effortapi.ListQuery{Page: 1, PageSize: 50, Search: "login"}, b.queries[2])
	assert.Equal(t, effortapi.ListQuery{Page: 1, PageSize: 50}, b.queries[3])
}

func TestRecords_DeleteAndCategory(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()
	c.sse(http.MethodGet, "/ui/list", nil)
	c.sse(http.MethodPost, "/ui/list/next", nil)

	body := c.sse(http.MethodPost, "/ui/records/category", map[string]any{
		"recTicket": "ABC-2", "recMajor": "Ops", "recMinor": "Infra", "recSub": "K8s",
	})
	assert.Contains(t, body, "Category updated for ABC-2.")
	assert.Contains(t, body, "page 2 of 3", "category change keeps the current page")

	body = c.sse(http.MethodPost, "/ui/records/delete", map[string]any{"ticket": "ABC-1"})
	assert.Contains(t, body, "Deleted ABC-1.")
	assert.Contains(t, body, "page 1 of 3", "delete returns to the first page")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"ABC-1"}, b.deleted)
	assert.Equal(t, model.CategoryPath{Major: "Ops", Minor: "Infra", Sub: "K8s"}, b.updated["ABC-2"])
}

func TestRecords_CategoryNeedsFullPath(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()

	body := c.sse(http.MethodPost, "/ui/records/category", map[string]any{"recTicket": "ABC-2", "recMajor": "Ops"})
	assert.Contains(t, body, "toast error")
	assert.Empty(t, b.updated)
}

func TestRecords_Add(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodPost, "/ui/records/add", map[string]any{"addTicket": "ABC-9", "addTitle": "New", "addPoints": "abc"})
	assert.Contains(t, body, "Story points must be a positive number.")

	body = c.sse(http.MethodPost, "/ui/records/add", map[string]any{"addTicket": "ABC-9", "addTitle": "New", "addPoints": "2.5"})
	assert.Contains(t, body, "Added ABC-9")
	assert.NotContains(t, body, "estimation-list", "the list was never opened, so it is not reloaded")
}

// =============================================================================
// Sync and stats
// =============================================================================

func TestSync_BackendErrorIsShown(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodPost, "/ui/sync/ticket", map[string]any{"syncTicket": "ABC-404"})
	assert.Contains(t, body, "ticket ABC-404 not found")
}

func TestSync_EpicAndClassify(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodPost, "/ui/sync/epic", map[string]any{"syncEpic": "EP-1"})
	assert.Contains(t, body, "Epic synced.")
	assert.Contains(t, body, "<dt>Added</dt><dd>3</dd>")

	body = c.sse(http.MethodPost, "/ui/sync/classify", nil)
	assert.Contains(t, body, "Classified 4 records.")
	assert.Contains(t, body, "42%")
}

func TestStats_Bars(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	b.weeks = []model.WeeklyRatio{{Week: "2024-W01", PositiveRatio: 85}, {Week: "2024-W02", PositiveRatio: 65}, {Week: "2024-W03", PositiveRatio: 10}}
	c := setupServer(t, b)
	c.open()

	body := c.sse(http.MethodGet, "/ui/stats", nil)
	assert.Contains(t, body, "bar good")
	assert.Contains(t, body, "bar fair")
	assert.Contains(t, body, "bar poor")
	assert.Contains(t, body, "85.0%")
}

// =============================================================================
// Q&A
// =============================================================================

func TestAsk_AcceptAndReject(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()

	body := c.sse(http.MethodPost, "/ui/ask", map[string]any{"question": "login <page>"})
	assert.Contains(t, body, "bubble-1")
	assert.Contains(t, body, "bubble-2")
	assert.Contains(t, body, "login &lt;page&gt;")
	assert.Contains(t, body, "<strong>three</strong>")
	assert.Contains(t, body, "/ui/ask/accept")

	body = c.sse(http.MethodPost, "/ui/ask/reject", map[string]any{"bubble": 2})
	assert.Contains(t, body, "bubble-3")
	assert.Contains(t, body, "Searched again without 1 earlier sources")

	body = c.sse(http.MethodPost, "/ui/ask/accept", map[string]any{"bubble": 3})
	assert.Contains(t, body, "Thanks for the feedback.")
	assert.Contains(t, body, "The answer was saved.")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, [][]string{{"doc-1"}}, b.excluded)
	require.Len(t, b.feedback, 1)
	assert.Equal(t, "positive", b.feedback[0].Type)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	c := setupServer(t, newFakeBackend(t, sampleCats))
	c.open()

	body := c.sse(http.MethodPost, "/ui/ask", map[string]any{"question": "   "})
	assert.Contains(t, body, "Type a question first.")
	assert.NotContains(t, body, "bubble-")
}

// =============================================================================
// View store
// =============================================================================

func TestViewStore_OwnerAndTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newViewStore(time.Hour)
	s.now = func() time.Time { return now }

	s.add(&viewSession{id: "v1", owner: "alice"})
	s.add(&viewSession{id: "v2", owner: "bob"})

	_, ok := s.get("v1", "bob")
	assert.False(t, ok, "views are private to their browser")
	_, ok = s.get("v1", "alice")
	assert.True(t, ok)

	now = now.Add(45 * time.Minute)
	_, ok = s.get("v1", "alice")
	assert.True(t, ok, "access refreshes the idle timer")

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, s.sweep(), "v2 has been idle for 75 minutes")
	assert.Equal(t, 1, s.len())

	now = now.Add(2 * time.Hour)
	_, ok = s.get("v1", "alice")
	assert.False(t, ok)
	assert.Equal(t, 0, s.len())
}

func TestNewServer_Validates(t *testing.T) {
	_, err := NewServer(ServerConfig{Backend: &fakeBackend{}})
	assert.Error(t, err)
	_, err = NewServer(ServerConfig{Addr: "127.0.0.1:0"})
	assert.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Backend: newFakeBackend(t, sampleCats)})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	res, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	res.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestImport_Multipart(t *testing.T) {
	b := newFakeBackend(t, sampleCats)
	c := setupServer(t, b)
	c.open()

	post := func(filename string) string {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("view", c.view))
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("sheet-bytes"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, c.base+"/ui/categories/import", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		res, err := c.http.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		out, _ := io.ReadAll(res.Body)
		require.Equal(t, http.StatusOK, res.StatusCode)
		return string(out)
	}

	body := post("notes.txt")
	assert.Contains(t, body, "only spreadsheet files")

	body = post("cats.xlsx")
	assert.Contains(t, body, "Imported cats.xlsx.")
	assert.Contains(t, body, "category-tree")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"cats.xlsx:sheet-bytes"}, b.uploaded)
}
