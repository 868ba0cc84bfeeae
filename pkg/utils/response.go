package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"carwash-backend/internal/apperr"
)

// JSON writes data with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorBody is the envelope of every failed response
type ErrorBody struct {
	Error   string         `json:"error"`
	Kind    apperr.Kind    `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindReference, apperr.KindPolicy:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err. Unclassified errors never leak their cause.
func WriteError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Store(err)
	}
	JSON(w, StatusFor(ae.Kind), ErrorBody{Error: ae.Message, Kind: ae.Kind, Details: ae.Details})
}

// BadRequest reports a malformed body or parameter
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Kind: apperr.KindValidation})
}
