package web

import (
	"errors"
	"net/http"
	"strconv"

	"effort-ui/internal/qa"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

const scrollChat = "document.getElementById('chat-box')?.scrollTo(0, 1e9)"

func (s *Server) appendBubbles(sse *sseWriter, bs ...qa.Bubble) {
	for _, b := range bs {
		s.patch(sse, "bubble", b, "#chat-box", datastar.ElementPatchModeAppend)
	}
	_ = sse.ExecuteScript(scrollChat)
}

func (s *Server) replaceBubble(sse *sseWriter, b qa.Bubble) {
	s.patch(sse, "bubble", b, "#bubble-"+strconv.Itoa(b.ID), datastar.ElementPatchModeOuter)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	bubbles, err := v.qa.Ask(r.Context(), sig.Question)
	if errors.Is(err, qa.ErrEmptyQuestion) {
		s.toast(sse, toastError, "Type a question first.")
		return
	}
	s.patchSignals(sse, map[string]any{"question": ""})
	s.appendBubbles(sse, bubbles...)
}

func (s *Server) handleAskAccept(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	b, err := v.qa.Accept(r.Context(), sig.Bubble)
	switch {
	case errors.Is(err, qa.ErrNoSuchBubble):
		s.toast(sse, toastError, "That answer is no longer available.")
		return
	case errors.Is(err, qa.ErrFeedbackClosed):
		return
	case err != nil && !errors.Is(err, qa.ErrMissingAnswer):
		s.log.Debug("accept feedback not stored", zap.Int("bubble", sig.Bubble), zap.Error(err))
	}
	s.replaceBubble(sse, b)
}

func (s *Server) handleAskReject(w http.ResponseWriter, r *http.Request) {
	sse, v, sig, ok := s.begin(w, r)
	if !ok {
		return
	}
	next, err := v.qa.Reject(r.Context(), sig.Bubble)
	switch {
	case errors.Is(err, qa.ErrNoSuchBubble):
		s.toast(sse, toastError, "That answer is no longer available.")
		return
	case errors.Is(err, qa.ErrFeedbackClosed):
		return
	}
	if old, found := v.qa.Lookup(sig.Bubble); found {
		s.replaceBubble(sse, old)
	}
	if err != nil {
		s.fail(sse, "ask again", err, "Searching again failed.")
		return
	}
	s.appendBubbles(sse, next)
}
