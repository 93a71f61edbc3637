package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/memdisco/api/model"
)

type NodesHandler struct {
	cache Cache
}

func NewNodesHandler(cache Cache) *NodesHandler {
	return &NodesHandler{
		cache: cache,
	}
}

func (api *NodesHandler) Register(r chi.Router) {
	r.Get("/nodes", api.getNodes)
}

func (api *NodesHandler) getNodes(w http.ResponseWriter, r *http.Request) {
	nodes := api.cache.Nodes(r.Context())
	respNodes := make([]model.Node, len(nodes))

	for i, node := range nodes {
		respNodes[i] = model.Node{
			Host: node.Host,
			IP:   node.IP,
			Port: node.Port,
			Addr: node.Addr(),
		}
	}

	render.JSON(w, r, model.GetNodesResponse{
		Nodes: respNodes,
	})
}
