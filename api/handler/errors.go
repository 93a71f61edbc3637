package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/maxpoletaev/memdisco/api/model"
	"github.com/maxpoletaev/memdisco/backend"
	"github.com/maxpoletaev/memdisco/discovery"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, backend.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, discovery.ErrDiscovery):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, model.ErrorResponse{Error: err.Error()})
}
