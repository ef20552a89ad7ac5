package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Domain packages wrap these so that
// RespondError can map any error chain to a status code.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
