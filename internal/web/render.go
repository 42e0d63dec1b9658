package web

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"effort-ui/internal/effortapi"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

var templateFuncs = template.FuncMap{
	"trim":     strings.TrimSpace,
	"markdown": renderMarkdownHTML,
	"pct": func(f float64) string {
		return strconv.FormatFloat(f, 'f', 1, 64)
	},
	"confidence": func(f float64) string {
		return strconv.FormatFloat(f*100, 'f', 0, 64) + "%"
	},
}

// pageSignals is the Datastar signal set declared on the page root. Every
// request carries all of it; handlers read the fields they need.
type pageSignals struct {
	View string `json:"view"`

	Search string `json:"search"`
	Page   int    `json:"page"`
	Ticket string `json:"ticket"`

	TreeAction string `json:"treeAction"`
	TreeMajor  string `json:"treeMajor"`
	TreeMinor  string `json:"treeMinor"`

	EditOldMajor string `json:"editOldMajor"`
	EditOldMinor string `json:"editOldMinor"`
	EditOldSub   string `json:"editOldSub"`
	EditNewMajor string `json:"editNewMajor"`
	EditNewMinor string `json:"editNewMinor"`
	EditNewSub   string `json:"editNewSub"`

	AddTicket string `json:"addTicket"`
	AddTitle  string `json:"addTitle"`
	AddPoints string `json:"addPoints"`
	AddMember string `json:"addMember"`
	AddReason string `json:"addReason"`
	AddMajor  string `json:"addMajor"`
	AddMinor  string `json:"addMinor"`
	AddSub    string `json:"addSub"`

	SyncTicket string `json:"syncTicket"`
	SyncEpic   string `json:"syncEpic"`
	SyncMajor  string `json:"syncMajor"`
	SyncMinor  string `json:"syncMinor"`
	SyncSub    string `json:"syncSub"`

	RecTicket string `json:"recTicket"`
	RecMajor  string `json:"recMajor"`
	RecMinor  string `json:"recMinor"`
	RecSub    string `json:"recSub"`

	Question string `json:"question"`
	Bubble   int    `json:"bubble"`
}

// picker returns the major/minor/sub selection of a cascading picker form.
func (p pageSignals) picker(form string) (major, minor, sub string, ok bool) {
	switch form {
	case "add":
		return p.AddMajor, p.AddMinor, p.AddSub, true
	case "sync":
		return p.SyncMajor, p.SyncMinor, p.SyncSub, true
	case "rec":
		return p.RecMajor, p.RecMinor, p.RecSub, true
	}
	return "", "", "", false
}

type sseWriter = datastar.ServerSentEventGenerator

// begin reads the signals, resolves the page view and opens the event
// stream. Signals must be read before the stream is opened. When ok is
// false the response has already been written.
func (s *Server) begin(w http.ResponseWriter, r *http.Request) (sse *sseWriter, v *viewSession, sig pageSignals, ok bool) {
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, "bad signals: "+err.Error(), http.StatusBadRequest)
		return nil, nil, sig, false
	}
	return s.beginView(w, r, sig.View, sig)
}

func (s *Server) beginView(w http.ResponseWriter, r *http.Request, viewID string, sig pageSignals) (*sseWriter, *viewSession, pageSignals, bool) {
	owner := s.viewer(w, r, false)
	v, found := s.views.get(viewID, owner)
	sse := datastar.NewSSE(w, r)
	if !found {
		s.toast(sse, toastError, "This page has expired. Reloading.")
		_ = sse.ExecuteScript("window.location.assign('/')")
		return nil, nil, sig, false
	}
	return sse, v, sig, true
}

func (s *Server) patch(sse *sseWriter, name string, data any, selector string, mode datastar.ElementPatchMode) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.log.Error("render failed", zap.String("template", name), zap.Error(err))
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElements(html, datastar.WithSelector(selector), datastar.WithMode(mode))
}

func (s *Server) patchSignals(sse *sseWriter, sig map[string]any) {
	if err := sse.MarshalAndPatchSignals(sig); err != nil {
		s.log.Warn("patch signals failed", zap.Error(err))
	}
}

const (
	toastSuccess = "success"
	toastError   = "error"
)

type toastVM struct {
	Kind    string
	Message string
}

func (s *Server) toast(sse *sseWriter, kind, msg string) {
	s.patch(sse, "toast", toastVM{Kind: kind, Message: msg}, "#toasts", datastar.ElementPatchModeAppend)
}

// fail logs err and reports it to the user. Backend-provided messages are
// shown as is; everything else collapses to fallback.
func (s *Server) fail(sse *sseWriter, op string, err error, fallback string) string {
	msg := effortapi.UserMessage(err, fallback)
	var ve *effortapi.ValidationError
	if errors.As(err, &ve) {
		s.log.Debug(op+" rejected", zap.Error(err))
	} else {
		s.log.Warn(op+" failed", zap.Error(err))
	}
	s.toast(sse, toastError, msg)
	return msg
}
