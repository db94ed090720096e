package api

import (
	"net/http"
	"strings"

	"jobmate/tracker-service/internal/advisor"
	"jobmate/tracker-service/internal/kanban"
)

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.Apps.List(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, apps)
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	var in kanban.Input
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := s.Apps.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, a)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	a, err := s.Apps.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, a)
}

func (s *Server) updateApplication(w http.ResponseWriter, r *http.Request) {
	var p kanban.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := s.Apps.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, a)
}

func (s *Server) deleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := s.Apps.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveCard accepts {"status": ...}; the older {"newStatus": ...} body is
// still understood.
func (s *Server) moveCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status    string `json:"status"`
		NewStatus string `json:"newStatus"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		status = strings.TrimSpace(body.NewStatus)
	}
	if status == "" {
		writeError(w, r, &kanban.ValidationError{Field: "status", Msg: "status is required"})
		return
	}

	a, err := s.Apps.Move(r.Context(), userID(r), r.PathValue("id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, a)
}

func (s *Server) recordFollowUp(w http.ResponseWriter, r *http.Request) {
	a, err := s.Apps.RecordFollowUp(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, a)
}

func (s *Server) followUpTiming(w http.ResponseWriter, r *http.Request) {
	a, err := s.Apps.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, advisor.RecommendFollowUpTiming(*a, s.Apps.Today(), s.Rules))
}
