package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shadowcc/keyshop/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeInvalidKeyEntry      = "invalid_key_entry"
	codeUnknownProduct       = "unknown_product"
	codeOutOfStock           = "out_of_stock"
	codeOrderNotFound        = "order_not_found"
	codeNotificationFailed   = "notification_failed"
	codeStoreUnavailable     = "store_unavailable"
	codeSourceUnavailable    = "source_unavailable"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto the error envelope. Unknown
// errors never leak their text.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingRequiredField):
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, "missing required fields")
	case errors.Is(err, domain.ErrInvalidOrderID):
		writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidOrderID.Error())
	case errors.Is(err, domain.ErrInvalidKeyEntry):
		writeError(w, http.StatusBadRequest, codeInvalidKeyEntry, err.Error())
	case errors.Is(err, domain.ErrUnknownProduct):
		writeError(w, http.StatusBadRequest, codeUnknownProduct, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, domain.ErrOrderNotFound.Error())
	case errors.Is(err, domain.ErrNotificationFailed):
		writeError(w, http.StatusInternalServerError, codeNotificationFailed, "failed to send confirmation email")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "store unavailable")
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeSourceUnavailable, "key source unavailable")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
