// Package server provides the HTTP REST API for the creative composer.
package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/layout"
	"github.com/jonathan/creative-composer/internal/pipeline"
	"github.com/jonathan/creative-composer/internal/review"
	"github.com/jonathan/creative-composer/internal/validation"
)

// HTTPStatus maps domain errors onto HTTP status codes.
func HTTPStatus(err error) int {
	var (
		inputErr    *pipeline.InputError
		validateErr *validation.Error
		conflictErr *layout.ConflictError
		stateErr    *pipeline.StateError
		gateErr     *review.StateError
		authErr     *pipeline.AuthorizationError
	)

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &validateErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &stateErr), errors.As(err, &gateErr):
		return http.StatusConflict
	case errors.As(err, &authErr):
		return http.StatusForbidden
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrStaleRun):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
