package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/editor"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/store"
	"github.com/sells-group/invoice-agent/internal/suggest"
)

// sessionView is the JSON shape of an open session.
type sessionView struct {
	ID              string          `json:"id"`
	Identity        editor.Identity `json:"identity"`
	Grid            editor.Grid     `json:"grid"`
	SuggestionState string          `json:"suggestion_state"`
	Suggestions     *suggest.Result `json:"suggestions,omitempty"`
	SuggestionError string          `json:"suggestion_error,omitempty"`
}

func viewOf(id string, sess *editor.Session) sessionView {
	v := sessionView{
		ID:              id,
		Identity:        sess.Identity(),
		Grid:            sess.Grid(),
		SuggestionState: sess.SuggestionState().String(),
		Suggestions:     sess.Suggestions(),
	}
	if err := sess.SuggestionError(); err != nil {
		v.SuggestionError = apperr.Message(err)
	}
	return v
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *editor.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, r, err)
		return "", nil, false
	}
	return id, sess, true
}

type openSessionRequest struct {
	VendorCode string `json:"vendor_code"`
	VersionID  string `json:"version_id"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := editor.Open(r.Context(), s.provider, req.VendorCode, req.VersionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := s.sessions.Add(sess)
	zap.L().Info("server: session opened",
		zap.String("session_id", id),
		zap.String("vendor_code", req.VendorCode),
		zap.String("version_id", req.VersionID),
	)
	writeJSON(w, http.StatusCreated, viewOf(id, sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type identityRequest struct {
	VendorCode *string `json:"vendor_code"`
	VendorName *string `json:"vendor_name"`
	VersionID  *string `json:"version_id"`
}

func (s *Server) handleSetIdentity(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req identityRequest
	if !decode(w, r, &req) {
		return
	}

	err := sess.UpdateIdentity(func(next *editor.Identity) {
		if req.VendorCode != nil {
			next.VendorCode = *req.VendorCode
		}
		if req.VendorName != nil {
			next.VendorName = *req.VendorName
		}
		if req.VersionID != nil {
			next.VersionID = *req.VersionID
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

// cellRequest addresses a cell by row index or by rate type.
type cellRequest struct {
	Vehicle  string `json:"vehicle"`
	Row      *int   `json:"row,omitempty"`
	RateType string `json:"rate_type,omitempty"`
	Value    string `json:"value"`
}

func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req cellRequest
	if !decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Row != nil:
		err = sess.EditCell(req.Vehicle, *req.Row, req.Value)
	case req.RateType != "":
		err = sess.EditRate(req.Vehicle, req.RateType, req.Value)
	default:
		writeBadRequest(w, "row or rate_type is required")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

type suggestRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) handleRequestSuggestions(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.suggester == nil {
		writeError(w, r, apperr.New(apperr.KindUpstream, "AI assistant is not configured"))
		return
	}
	var req suggestRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if s.opts.SuggestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SuggestTimeout)
		defer cancel()
	}

	res, err := sess.RequestSuggestions(ctx, s.suggester, req.Instruction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDismissSuggestions(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.DismissSuggestions()
	writeJSON(w, http.StatusOK, viewOf(id, sess))
}

type applyResponse struct {
	Report  suggest.MergeReport `json:"report"`
	Session sessionView         `json:"session"`
}

func (s *Server) handleApplySuggestions(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	report, err := sess.ApplySuggestions()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if report.Skipped == nil {
		report.Skipped = []suggest.ProposedChange{}
	}
	writeJSON(w, http.StatusOK, applyResponse{Report: report, Session: viewOf(id, sess)})
}

type saveResponse struct {
	ID      string                 `json:"id"`
	RuleSet ratecard.CustomRuleSet `json:"rule_set"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sid, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rs, id, err := sess.Save(r.Context(), s.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = s.sessions.Remove(sid)
	writeJSON(w, http.StatusCreated, saveResponse{ID: id, RuleSet: rs})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RuleSetFilter{
		VendorCode: q.Get("vendor"),
		VersionID:  q.Get("version"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid "+name)
			return
		}
		*dst = n
	}

	rules, err := s.store.ListRuleSets(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rules == nil {
		rules = []store.RuleSet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule_sets": rules})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rs, err := s.store.GetRuleSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRuleSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
