package web

import (
	"context"
	"errors"
	"net/http"

	"effort-ui/internal/pagination"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"
)

type listVM struct {
	pagination.View
	Rows  []pagination.Row
	Error string
}

// showList patches the list panel after a load. Superseded loads patch
// nothing; failures keep the last good page and only show a toast, unless
// no page was ever loaded.
func (s *Server) showList(sse *sseWriter, view pagination.View, err error) {
	if errors.Is(err, pagination.ErrStale) {
		return
	}
	vm := listVM{View: view, Rows: pagination.Rows(view)}
	if err != nil {
		msg := s.fail(sse, "load estimations", err, "Estimations could not be loaded.")
		if view.Loaded {
			return
		}
		vm.Error = msg
	}
	s.patch(sse, "estimation_list", vm, "#estimation-list", datastar.ElementPatchModeOuter)
	s.patchSignals(sse, map[string]any{"page": view.Page})
}

// loadOrReload shows the first page on first use and the current page after.
func loadOrReload(ctx context.Context, c *pagination.Controller) (pagination.View, error) {
	if !c.View().Loaded {
		return c.LoadPage(ctx, 1)
	}
	return c.Reload(ctx)
}

func (s *Server) handleListLoad(w http.ResponseWriter, r *http.Request) {
	sse, v, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	view, err := loadOrReload(r.Context(), v.list)
	s.showList(sse, view, err)
}

func (s *Server) handleListSearch(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	view, err := v.list.Search(r.Context(), sig.Search)
	s.showList(sse, view, err)
}

func (s *Server) handleListClear(w http.ResponseWriter, r *http.Request) {
	sse, v, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	s.patchSignals(sse, map[string]any{"search": ""})
	view, err := v.list.ClearSearch(r.Context())
	s.showList(sse, view, err)
}

func (s *Server) handleListPage(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	view, moved, err := v.list.GoToPage(r.Context(), sig.Page)
	if !moved && err == nil {
		return
	}
	s.showList(sse, view, err)
}

func (s *Server) handleListStep(w http.ResponseWriter, r *http.Request) {
	sse, v, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	delta := 1
	if chi.URLParam(r, "dir") == "prev" {
		delta = -1
	}
	view, moved, err := v.list.Step(r.Context(), delta)
	if !moved && err == nil {
		return
	}
	s.showList(sse, view, err)
}
