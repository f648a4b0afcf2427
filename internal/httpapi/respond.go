package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ianzepp/monk-api/internal/apperr"
)

// envelope is the wire response shape every handler writes through
// (spec.md §6: "{ success, data?, error?, error_code? }").
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// RespondOK writes a successful envelope with data in the data field.
func RespondOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// RespondErr translates err into the error envelope: any error wrapping
// context.DeadlineExceeded (including one wrapped in a *apperr.Error)
// becomes TIMEOUT/504; otherwise a *apperr.Error is surfaced verbatim
// (its code and status preserved, spec.md §7's propagation policy);
// anything else is logged with full context and masked to
// INTERNAL_ERROR.
func RespondErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, envelope{
			Success: false, Error: "request exceeded the adapter timeout", ErrorCode: string(apperr.CodeTimeout),
		})
		return
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		writeJSON(w, ae.Status, envelope{Success: false, Error: ae.Message, ErrorCode: string(ae.Code)})
		return
	}
	if logger != nil {
		logger.Error("unhandled internal error", "error", err)
	}
	writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false, Error: "an internal error occurred", ErrorCode: string(apperr.CodeInternal),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
