package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/maxpoletaev/memdisco/api/handler"
)

func CreateRouter(cache handler.Cache) *chi.Mux {
	r := chi.NewRouter()

	handler.NewKeyValueHandler(cache).Register(r)
	handler.NewNodesHandler(cache).Register(r)

	return r
}
