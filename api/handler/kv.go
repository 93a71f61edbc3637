package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/memdisco/api/model"
)

type KeyValueHandler struct {
	cache Cache
}

func NewKeyValueHandler(cache Cache) *KeyValueHandler {
	return &KeyValueHandler{cache: cache}
}

func (api *KeyValueHandler) Register(r chi.Router) {
	r.Get("/kv/{key}", api.getKey)
	r.Put("/kv/{key}", api.putKey)
	r.Delete("/kv/{key}", api.deleteKey)
	r.Post("/kv/{key}/incr", api.incrKey)
	r.Post("/kv/{key}/decr", api.decrKey)
	r.Post("/kv", api.setMany)
	r.Post("/kv/_get", api.getMany)
	r.Post("/kv/_delete", api.deleteMany)
}

func (api *KeyValueHandler) getKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, found, err := api.cache.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.JSON(w, r, model.GetKeyResponse{
		Exists: found,
		Value:  value,
	})
}

func (api *KeyValueHandler) putKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var params model.PutKeyParams
	if err := render.DecodeJSON(r.Body, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	value, err := decodeValue(params.Value)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	timeout := timeoutFromSeconds(params.Timeout)

	if params.OnlyIfMissing {
		stored, err := api.cache.Add(r.Context(), key, value, timeout)
		if err != nil {
			writeError(w, r, errorStatus(err), err)
			return
		}

		if !stored {
			render.Status(r, http.StatusConflict)
		}

		render.JSON(w, r, model.PutKeyResponse{Stored: stored})

		return
	}

	if err := api.cache.Set(r.Context(), key, value, timeout); err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.JSON(w, r, model.PutKeyResponse{Stored: true})
}

func (api *KeyValueHandler) deleteKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	deleted, err := api.cache.Delete(r.Context(), key)
	if err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.JSON(w, r, model.DeleteKeyResponse{Deleted: deleted})
}

func (api *KeyValueHandler) incrKey(w http.ResponseWriter, r *http.Request) {
	api.updateCounter(w, r, true)
}

func (api *KeyValueHandler) decrKey(w http.ResponseWriter, r *http.Request) {
	api.updateCounter(w, r, false)
}

func (api *KeyValueHandler) updateCounter(w http.ResponseWriter, r *http.Request, incr bool) {
	key := chi.URLParam(r, "key")

	// The body is optional, the delta defaults to one.
	var params model.CounterParams
	if err := render.DecodeJSON(r.Body, &params); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	delta := int64(1)
	if params.Delta != nil {
		delta = *params.Delta
	}

	var (
		value int64
		err   error
	)

	if incr {
		value, err = api.cache.Incr(r.Context(), key, delta)
	} else {
		value, err = api.cache.Decr(r.Context(), key, delta)
	}

	if err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.JSON(w, r, model.CounterResponse{Value: value})
}

func (api *KeyValueHandler) getMany(w http.ResponseWriter, r *http.Request) {
	var params model.GetManyParams
	if err := render.DecodeJSON(r.Body, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	values, err := api.cache.GetMany(r.Context(), params.Keys)
	if err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.JSON(w, r, model.GetManyResponse{Values: values})
}

func (api *KeyValueHandler) setMany(w http.ResponseWriter, r *http.Request) {
	var params model.SetManyParams
	if err := render.DecodeJSON(r.Body, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	values := make(map[string]any, len(params.Values))

	for key, raw := range params.Values {
		value, err := decodeValue(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}

		values[key] = value
	}

	failed, err := api.cache.SetMany(r.Context(), values, timeoutFromSeconds(params.Timeout))
	if err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	if failed == nil {
		failed = []string{}
	}

	render.JSON(w, r, model.SetManyResponse{Failed: failed})
}

func (api *KeyValueHandler) deleteMany(w http.ResponseWriter, r *http.Request) {
	var params model.DeleteManyParams
	if err := render.DecodeJSON(r.Body, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := api.cache.DeleteMany(r.Context(), params.Keys); err != nil {
		writeError(w, r, errorStatus(err), err)
		return
	}

	render.NoContent(w, r)
}
