package api

import (
	"errors"
	"net/http"

	"dynatable/internal/domain"
	"dynatable/internal/qb"
	"dynatable/internal/token"
)

// httpStatusFromError maps domain and verification errors to HTTP status
// codes. Unknown errors map to 500.
func httpStatusFromError(err error) int {
	var (
		notFound     *domain.NotFoundError
		accessDenied *domain.AccessDeniedError
		validation   *domain.ValidationError
		conflict     *domain.ConflictError
		catalogErr   *domain.CatalogError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation),
		errors.Is(err, qb.ErrInvalidColumnSet),
		errors.Is(err, qb.ErrEmptyWriteSet):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.Is(err, token.ErrSignatureInvalid),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrNotYetValid),
		errors.Is(err, token.ErrAudienceMismatch),
		errors.Is(err, token.ErrIssuerMismatch),
		errors.Is(err, token.ErrMalformed):
		return http.StatusUnauthorized
	case errors.As(err, &catalogErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
