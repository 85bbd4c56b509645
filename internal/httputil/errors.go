package httputil

import (
	"log"
	"net/http"

	"github.com/selfhosted/crate/internal/apperr"
)

// WriteAppError centralizes kind → status mapping the way the teacher's
// respondError/WriteError pair does for a single ErrorBody shape.
func WriteAppError(w http.ResponseWriter, err error) {
	ae := apperr.As(err)

	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch ae.Kind {
	case apperr.Validation:
		status, code = http.StatusBadRequest, "VALIDATION"
	case apperr.NotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case apperr.Conflict:
		status, code = http.StatusConflict, "CONFLICT"
	case apperr.UpstreamTimeout:
		status, code = http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"
	case apperr.UpstreamHTTP:
		status, code = http.StatusBadGateway, "UPSTREAM_HTTP"
	case apperr.Internal:
		status, code = http.StatusInternalServerError, "INTERNAL"
		log.Printf("[api] internal error: %v", ae)
	}

	if ae.Kind == apperr.UpstreamHTTP || ae.Kind == apperr.UpstreamTimeout {
		WriteErrorDetails(w, status, code, ae.Message, map[string]interface{}{
			"upstreamStatus": ae.UpstreamStatus,
			"body":           ae.Body,
		})
		return
	}

	WriteError(w, status, code, ae.Message)
}

// WriteErrorDetails is WriteError plus a details payload, for upstream
// failures where the caller's log benefits from the status/body pair.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := Response{
		Status: "error",
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
		Data: map[string]interface{}{"details": details},
	}
	writeJSONResponse(w, resp)
}
