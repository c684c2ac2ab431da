package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/postservice"
)

type errResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}

// writeFailure maps a service error onto a response. Anything unrecognised is
// logged and reported as a 500 without details.
func writeFailure(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case apperr.IsEmptyCorpus(err):
		writeError(w, http.StatusNotFound, err.Error())
	case apperr.IsParse(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, postservice.ErrBooksDisabled):
		writeError(w, http.StatusNotImplemented, "book building is disabled")
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.Error(op+" failed", attrs...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
