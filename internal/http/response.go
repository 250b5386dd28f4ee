package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/middleware/trace"
)

// errBadRequest marks request decoding problems.
var errBadRequest = errors.New("bad request")

// errSheetsDisabled is returned by the publish route when no writer is set.
var errSheetsDisabled = errors.New("sheets publishing is not configured")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrUnknownAccount),
		errors.Is(err, core.ErrInvalidTemplateItem):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, errSheetsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and hides their detail from the
// caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.writeErrorStatus(w, r, op, statusFor(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, op string, status int, err error) {
	ctx := r.Context()
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithMonth(chi.URLParam(r, "key")))
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(ctx)})
}
