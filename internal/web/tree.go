package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"effort-ui/internal/categorytree"
	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

type treeVM struct {
	Nodes []categorytree.Node
	Empty bool
	Error string
}

func (s *Server) patchTree(sse *sseWriter, v *viewSession, errMsg string) {
	vm := treeVM{Nodes: v.tree.Nodes()}
	if !v.tree.Loaded() {
		vm.Error = errMsg
		if vm.Error == "" {
			vm.Error = "Categories are not loaded yet."
		}
	}
	vm.Empty = v.tree.Loaded() && len(vm.Nodes) == 0
	s.patch(sse, "category_tree", vm, "#category-tree", datastar.ElementPatchModeOuter)
}

func (s *Server) handleTreeLoad(w http.ResponseWriter, r *http.Request) {
	sse, v, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	msg := ""
	if _, err := v.tree.Load(r.Context()); errors.Is(err, categorytree.ErrStale) {
		return
	} else if err != nil {
		msg = s.fail(sse, "load categories", err, "Categories could not be loaded.")
	}
	s.patchTree(sse, v, msg)
}

func (s *Server) handleTreeToggle(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	a := categorytree.Action{
		Kind:  categorytree.ActionKind(sig.TreeAction),
		Major: sig.TreeMajor,
		Minor: sig.TreeMinor,
	}
	if _, err := v.tree.Apply(a); err != nil {
		s.log.Debug("toggle rejected", zap.String("action", sig.TreeAction), zap.Error(err))
		s.toast(sse, toastError, "That category is no longer available.")
	}
	s.patchTree(sse, v, "")
}

func (s *Server) handleTreeEdit(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	e := effortapi.CategoryEdit{
		Old: model.CategoryPath{Major: strings.TrimSpace(sig.EditOldMajor), Minor: strings.TrimSpace(sig.EditOldMinor), Sub: strings.TrimSpace(sig.EditOldSub)},
		New: model.CategoryPath{Major: strings.TrimSpace(sig.EditNewMajor), Minor: strings.TrimSpace(sig.EditNewMinor), Sub: strings.TrimSpace(sig.EditNewSub)},
	}
	if _, err := v.tree.Edit(r.Context(), e); err != nil {
		s.fail(sse, "edit category", err, "The category could not be updated.")
		return
	}
	s.toast(sse, toastSuccess, "Category updated.")
	s.patchSignals(sse, map[string]any{
		"editOpen":     false,
		"editOldMajor": "", "editOldMinor": "", "editOldSub": "",
		"editNewMajor": "", "editNewMinor": "", "editNewSub": "",
	})
	s.patchTree(sse, v, "")
}

// handleTreeExport streams the category spreadsheet as a download.
func (s *Server) handleTreeExport(w http.ResponseWriter, r *http.Request) {
	owner := s.viewer(w, r, false)
	v, ok := s.views.get(r.URL.Query().Get("view"), owner)
	if !ok {
		http.Error(w, "this page has expired, reload it", http.StatusGone)
		return
	}
	sheet, err := v.tree.Export(r.Context())
	if err != nil {
		s.log.Warn("export categories failed", zap.Error(err))
		http.Error(w, effortapi.UserMessage(err, "The spreadsheet could not be downloaded."), http.StatusBadGateway)
		return
	}
	name := sheet.Filename
	if name == "" {
		name = effortapi.DefaultExportFilename
	}
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(sheet.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sheet.Data)
}

const maxUploadBytes = 32 << 20

type uploadVM struct {
	OK      bool
	Message string
}

func (s *Server) handleTreeImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "bad upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	sse, v, _, ok := s.beginView(w, r, r.FormValue("view"), pageSignals{})
	if !ok {
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.toast(sse, toastError, "Choose a file to upload.")
		return
	}
	defer file.Close()

	if _, err := v.tree.Import(r.Context(), hdr.Filename, file); err != nil {
		msg := s.fail(sse, "import categories", err, "The upload failed.")
		s.patch(sse, "upload_result", uploadVM{Message: msg}, "#upload-result", datastar.ElementPatchModeInner)
		return
	}
	msg := fmt.Sprintf("Imported %s.", hdr.Filename)
	s.toast(sse, toastSuccess, msg)
	s.patch(sse, "upload_result", uploadVM{OK: true, Message: msg}, "#upload-result", datastar.ElementPatchModeInner)
	s.patchTree(sse, v, "")
}

type optionsVM struct {
	Placeholder string
	Options     []string
	Selected    string
}

var errBadPicker = errors.New("unknown picker")

// handlePicker fills one level of a cascading major/minor/sub picker. A
// current selection is kept when the new options still contain it, and the
// next level is filled in the same response.
func (s *Server) handlePicker(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	form := chi.URLParam(r, "form")
	major, minor, sub, known := sig.picker(form)
	if !known {
		_ = sse.ConsoleError(fmt.Errorf("%w: %s", errBadPicker, form))
		return
	}

	ctx := r.Context()
	reset := map[string]any{}
	level := chi.URLParam(r, "level")
	for {
		var opts []string
		var err error
		var selected *string
		switch level {
		case "majors":
			opts, err = v.tree.Majors(ctx)
			selected = &major
		case "minors":
			if major != "" {
				opts, err = v.tree.Minors(ctx, major)
			}
			selected = &minor
		case "subs":
			if major != "" && minor != "" {
				opts, err = v.tree.Subs(ctx, major, minor)
			}
			selected = &sub
		default:
			_ = sse.ConsoleError(fmt.Errorf("%w level: %s", errBadPicker, level))
			return
		}
		if err != nil {
			s.fail(sse, "load "+level, err, "Categories could not be loaded.")
			return
		}
		if *selected != "" && !slices.Contains(opts, *selected) {
			*selected = ""
			reset[form+pickerSignal(level)] = ""
		}
		s.patch(sse, "options", optionsVM{Placeholder: pickerPlaceholder(level), Options: opts, Selected: *selected},
			"#"+form+"-"+level, datastar.ElementPatchModeInner)

		next := nextLevel(level)
		if next == "" {
			break
		}
		if *selected == "" {
			// Nothing chosen: the levels below only offer their placeholder.
			for l := next; l != ""; l = nextLevel(l) {
				s.patch(sse, "options", optionsVM{Placeholder: pickerPlaceholder(l)}, "#"+form+"-"+l, datastar.ElementPatchModeInner)
				reset[form+pickerSignal(l)] = ""
			}
			break
		}
		level = next
	}
	if len(reset) > 0 {
		s.patchSignals(sse, reset)
	}
}

func nextLevel(level string) string {
	switch level {
	case "majors":
		return "minors"
	case "minors":
		return "subs"
	}
	return ""
}

func pickerSignal(level string) string {
	switch level {
	case "majors":
		return "Major"
	case "minors":
		return "Minor"
	}
	return "Sub"
}

func pickerPlaceholder(level string) string {
	switch level {
	case "majors":
		return "Select major"
	case "minors":
		return "Select minor"
	}
	return "Select sub"
}
