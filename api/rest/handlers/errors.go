package handlers

import (
	"encoding/json"
	"net/http"

	"batch-size-optimizer/core/optimizer"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON error envelope returned to callers
type ErrorResponse struct {
	Error *optimizer.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the optimizer error taxonomy onto HTTP statuses and
// passes the structured error through to the caller verbatim.
func writeError(w http.ResponseWriter, err error) {
	optErr, ok := optimizer.AsError(err)
	if !ok {
		logrus.WithError(err).Error("Internal error handling request")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: optimizer.NewError("internal", "", "", "internal server error"),
		})
		return
	}

	writeJSON(w, statusForCode(optErr.Code), ErrorResponse{Error: optErr})
}

func statusForCode(code optimizer.ErrorCode) int {
	switch code {
	case optimizer.CodeInvalidConfig, optimizer.CodeInvalidArm:
		return http.StatusBadRequest
	case optimizer.CodeUnknownJob:
		return http.StatusNotFound
	case optimizer.CodeAlreadyExists, optimizer.CodeJobAlreadyTerminal,
		optimizer.CodeSequenceGap, optimizer.CodeDuplicateMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
