package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/kanban"
)

// maxBodyBytes caps request bodies; pasted e-mails are the largest payload.
const maxBodyBytes = 1 << 20

func jsonOK(w http.ResponseWriter, v any) { jsonStatus(w, http.StatusOK, v) }

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("encode response")
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *kanban.ValidationError
		ave *auth.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		jsonStatus(w, http.StatusBadRequest, map[string]string{"error": ve.Msg, "field": ve.Field})
	case errors.As(err, &ave):
		jsonStatus(w, http.StatusBadRequest, map[string]string{"error": ave.Msg, "field": ave.Field})
	case errors.Is(err, kanban.ErrConflict):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, kanban.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		jsonError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, auth.ErrEmailTaken):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}
