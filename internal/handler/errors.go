package handler

import (
	"errors"
	"net/http"

	"stemportal/internal/apperr"
	"stemportal/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps the service error taxonomy onto HTTP status codes and the
// standard error envelope.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var validation *apperr.ValidationError
	var notFound *apperr.NotFoundError
	var transition *apperr.InvalidStateTransitionError
	var auth *apperr.AuthError
	var store *apperr.StoreUnavailableError

	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &transition):
		status = http.StatusConflict
	case errors.As(err, &auth):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.As(err, &store):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response.Error(status, err.Error()))
}
