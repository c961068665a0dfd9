// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
// Validation failures map to 400, conflicts to 409, missing resources to 404,
// and lifecycle violations to 422.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrInvalidParent),
		errors.Is(err, shared.ErrAccountNotPostable),
		errors.Is(err, shared.ErrDateOutOfRange),
		errors.Is(err, shared.ErrPeriodOverlap):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrDuplicateCode),
		errors.Is(err, shared.ErrAlreadyPosted),
		errors.Is(err, shared.ErrAlreadyReversed),
		errors.Is(err, shared.ErrPeriodClosed),
		errors.Is(err, shared.ErrPeriodHasDrafts),
		errors.Is(err, shared.ErrAccountInUse),
		errors.Is(err, shared.ErrSourceAlreadyLinked):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrJournalNotFound),
		errors.Is(err, shared.ErrPeriodNotFound),
		errors.Is(err, shared.ErrReportNotFound),
		errors.Is(err, shared.ErrMappingNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrNotPosted),
		errors.Is(err, shared.ErrNotDraft):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
