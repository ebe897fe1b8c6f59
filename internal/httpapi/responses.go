package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finbook/ledger/internal/domain"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // headers already sent
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Message: msg})
}

// writeDomainError maps ledger errors to HTTP statuses. The mapping is the
// edge's concern only; the domain package knows nothing about HTTP.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrMissingDestination):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInactiveAccount):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// Includes exhausted reference retries: internal, never the caller's
		// fault.
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
