package api

import (
	"net/http"

	"jobmate/tracker-service/internal/coverletter"
)

func (s *Server) coverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverletter.Request
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	letter, err := s.CoverLetter.Write(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, map[string]string{"cover_letter": letter})
}

func (s *Server) ingestEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmailText string `json:"email_text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := s.Ingester.Ingest(r.Context(), userID(r), body.EmailText)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, a)
}
