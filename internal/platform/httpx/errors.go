package httpx

import (
	"net/http"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

// ErrorBody is the failure envelope every endpoint returns.
type ErrorBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Kind    shared.Kind `json:"kind"`
	Code    string      `json:"code"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusUnprocessableEntity
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindClosedPeriod:
		return http.StatusLocked
	case shared.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case shared.KindStateConflict:
		return http.StatusConflict
	case shared.KindConcurrencyConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as {success:false, message, kind, code}. Internal
// failures never leak their message.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	body := ErrorBody{Kind: kind, Code: shared.CodeOf(err), Message: err.Error()}
	if kind == shared.KindInternal {
		body.Code = "internal"
		body.Message = "internal error"
	}
	JSON(w, StatusFor(kind), body)
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Kind: shared.KindValidation, Code: "badRequest", Message: message})
}
