package httpx

import (
	"errors"
	"net/http"

	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

// RespondError maps domain errors onto failure envelopes. Domain errors wrap
// the shared sentinels; anything unrecognised is reported generically so
// internals never leak past the boundary.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrStateConflict):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
