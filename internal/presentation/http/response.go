package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindUnauthorized:      http.StatusForbidden,
	apperr.KindGateway:           http.StatusBadGateway,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInternal:          http.StatusInternalServerError,
}

func statusFor(kind apperr.Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// writeError maps err's kind onto a status. Internal causes are logged, not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	if kind == apperr.KindInternal {
		logctx.FromOr(r.Context(), observability.NopLogger()).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.Err(err),
		)
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), envelope{Success: false, Message: msg, Kind: kind})
}

func missingParam(name string) error {
	return apperr.Validation(fmt.Sprintf("%s is required", name))
}
