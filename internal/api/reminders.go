package api

import "net/http"

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	due, err := s.Reminders.Due(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, due)
}

func (s *Server) dismissReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.Reminders.Dismiss(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetDismissals(w http.ResponseWriter, r *http.Request) {
	if err := s.Reminders.ResetDismissals(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
