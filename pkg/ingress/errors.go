package ingress

import (
	"encoding/json"
	"net/http"

	"github.com/manik3160/NeverDown/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, aerr *apperrors.AppError) {
	writeJSON(w, aerr.StatusCode, aerr.ToEnvelope())
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, apperrors.New(apperrors.ErrIncidentNotFound, message))
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, apperrors.New(apperrors.ErrValidation, message))
}
