package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"effort-ui/internal/model"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

// refreshList reloads the list after a mutation, but only when the list tab
// was already opened in this view.
func (s *Server) refreshList(ctx context.Context, sse *sseWriter, v *viewSession) {
	if !v.list.View().Loaded {
		return
	}
	view, err := v.list.Reload(ctx)
	s.showList(sse, view, err)
}

func (s *Server) handleRecordAdd(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	points, err := strconv.ParseFloat(strings.TrimSpace(sig.AddPoints), 64)
	if err != nil || points <= 0 {
		s.toast(sse, toastError, "Story points must be a positive number.")
		return
	}
	e := model.NewEstimation{
		JiraTicket:       sig.AddTicket,
		Title:            sig.AddTitle,
		StoryPoints:      points,
		TeamMember:       sig.AddMember,
		EstimationReason: sig.AddReason,
		Category:         model.CategoryPath{Major: sig.AddMajor, Minor: sig.AddMinor, Sub: sig.AddSub},
	}
	msg, err := s.backend().AddEstimation(r.Context(), e)
	if err != nil {
		s.fail(sse, "add estimation", err, "The estimation could not be added.")
		return
	}
	if msg == "" {
		msg = "Estimation added."
	}
	s.log.Info("estimation added", zap.String("ticket", strings.TrimSpace(e.JiraTicket)))
	s.toast(sse, toastSuccess, msg)
	s.patchSignals(sse, map[string]any{
		"addTicket": "", "addTitle": "", "addPoints": "", "addMember": "", "addReason": "",
	})
	s.refreshList(r.Context(), sse, v)
}

func (s *Server) handleRecordCategory(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	p := model.CategoryPath{Major: sig.RecMajor, Minor: sig.RecMinor, Sub: sig.RecSub}
	if strings.TrimSpace(sig.RecTicket) == "" || !p.Complete() {
		s.toast(sse, toastError, "Choose a major, minor and sub category.")
		return
	}
	view, err := v.list.UpdateCategory(r.Context(), sig.RecTicket, p)
	if err != nil {
		s.showList(sse, view, err)
		return
	}
	s.toast(sse, toastSuccess, "Category updated for "+sig.RecTicket+".")
	s.patchSignals(sse, map[string]any{"recOpen": false, "recTicket": ""})
	s.showList(sse, view, nil)
}

func (s *Server) handleRecordDelete(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	ticket := strings.TrimSpace(sig.Ticket)
	if ticket == "" {
		s.toast(sse, toastError, "No record selected.")
		return
	}
	view, err := v.list.Delete(r.Context(), ticket)
	if err != nil {
		s.showList(sse, view, err)
		return
	}
	s.toast(sse, toastSuccess, "Deleted "+ticket+".")
	s.patchSignals(sse, map[string]any{"ticket": ""})
	s.showList(sse, view, nil)
}

type syncVM struct {
	Message  string
	Epic     *model.EpicSyncResult
	Classify *model.AutoClassifyResult
}

func (s *Server) showSyncResult(sse *sseWriter, vm syncVM) {
	s.patch(sse, "sync_result", vm, "#sync-result", datastar.ElementPatchModeInner)
}

func (s *Server) handleSyncTicket(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	p := model.CategoryPath{Major: sig.SyncMajor, Minor: sig.SyncMinor, Sub: sig.SyncSub}
	res, err := s.backend().SyncTicket(r.Context(), sig.SyncTicket, p)
	if err != nil {
		s.fail(sse, "sync ticket", err, "The ticket could not be synced.")
		return
	}
	msg := res.Message
	if msg == "" {
		msg = "Synced " + strings.TrimSpace(sig.SyncTicket) + "."
	}
	s.toast(sse, toastSuccess, msg)
	s.showSyncResult(sse, syncVM{Message: msg})
	s.patchSignals(sse, map[string]any{"syncTicket": ""})
	s.refreshList(r.Context(), sse, v)
}

func (s *Server) handleSyncEpic(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	res, err := s.backend().SyncEpic(r.Context(), sig.SyncEpic)
	if err != nil {
		s.fail(sse, "sync epic", err, "The epic could not be synced.")
		return
	}
	s.log.Info("epic synced",
		zap.String("epic", strings.TrimSpace(sig.SyncEpic)),
		zap.Int("added", res.AddedTasks),
		zap.Int("updated", res.UpdatedTasks),
	)
	s.toast(sse, toastSuccess, "Epic synced.")
	s.showSyncResult(sse, syncVM{Epic: &res})
	s.refreshList(r.Context(), sse, v)
}

func (s *Server) handleSyncClassify(w http.ResponseWriter, r *http.Request) {
	sse, v, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	res, err := s.backend().AutoClassify(r.Context())
	if err != nil {
		s.fail(sse, "auto classify", err, "Auto-classification failed.")
		return
	}
	s.toast(sse, toastSuccess, "Classified "+strconv.Itoa(res.ClassifiedCount)+" records.")
	s.showSyncResult(sse, syncVM{Classify: &res})
	s.refreshList(r.Context(), sse, v)
}

type statsVM struct {
	Weeks []model.WeeklyRatio
	Error string
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sse, _, _, ok := s.begin(w, r)
	if !ok {
		return
	}
	weeks, err := s.backend().WeeklyPositiveRatio(r.Context())
	vm := statsVM{Weeks: weeks}
	if err != nil {
		vm.Error = s.fail(sse, "weekly ratio", err, "Statistics could not be loaded.")
	}
	s.patch(sse, "stats_panel", vm, "#stats-panel", datastar.ElementPatchModeInner)
}
