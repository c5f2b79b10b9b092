package flows

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/live"
)

// RegisterRoutes mounts flow, node, and connection endpoints on the given
// router. Successful mutations are broadcast on the hub; a nil hub
// disables broadcasting.
func RegisterRoutes(r chi.Router, store *Store, hub *live.Hub) {
	r.Get("/api/flows", listFlowsHandler(store))
	r.Post("/api/flows", createFlowHandler(store))
	r.Get("/api/flows/{id}", getFlowHandler(store))
	r.Put("/api/flows/{id}", replaceFlowHandler(store, hub))
	r.Delete("/api/flows/{id}", deleteFlowHandler(store))

	r.Post("/api/flows/{id}/nodes", createNodeHandler(store, hub))
	r.Put("/api/nodes/{id}", updateNodeHandler(store, hub))
	r.Delete("/api/nodes/{id}", deleteNodeHandler(store, hub))

	r.Post("/api/nodes/{id}/connections", createConnectionHandler(store, hub))
	r.Delete("/api/connections/{id}", deleteConnectionHandler(store, hub))

	if hub != nil {
		r.Get("/api/flows/{id}/live", func(w http.ResponseWriter, r *http.Request) {
			hub.ServeFlow(chi.URLParam(r, "id"), w, r)
		})
	}
}

func broadcast(hub *live.Hub, ev live.Event) {
	if hub != nil {
		hub.Broadcast(ev)
	}
}

func listFlowsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := store.ListFlows(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if result == nil {
			result = []Summary{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func getFlowHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := store.GetFlow(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, flow)
	}
}

type createFlowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func createFlowHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createFlowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		flow, err := store.CreateFlow(r.Context(), req.Name, req.Description)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, flow)
	}
}

func replaceFlowHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f graph.Flow
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		f.ID = chi.URLParam(r, "id")
		if err := store.ReplaceFlow(r.Context(), &f); err != nil {
			if errors.Is(err, ErrSelfLoop) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		broadcast(hub, live.Event{Type: live.EventFlowUpdated, FlowID: f.ID})
		writeJSON(w, http.StatusOK, f)
	}
}

func deleteFlowHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteFlow(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createNodeRequest struct {
	Type     graph.NodeType `json:"type"`
	Position geometry.Point `json:"position"`
	Config   map[string]any `json:"config"`
}

func createNodeHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID := chi.URLParam(r, "id")
		var req createNodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !req.Type.Valid() {
			http.Error(w, "invalid node type", http.StatusBadRequest)
			return
		}
		node, err := store.CreateNode(r.Context(), flowID, req.Type, req.Position, req.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		broadcast(hub, live.Event{Type: live.EventNodeCreated, FlowID: flowID, Node: node})
		writeJSON(w, http.StatusCreated, node)
	}
}

func updateNodeHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var n graph.Node
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		n.ID = id
		if err := store.UpdateNode(r.Context(), n); err != nil {
			http.Error(w, "node not found", http.StatusNotFound)
			return
		}
		if flowID, err := store.NodeFlowID(r.Context(), id); err == nil {
			broadcast(hub, live.Event{Type: live.EventNodeUpdated, FlowID: flowID, Node: &n})
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func deleteNodeHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		flowID, err := store.NodeFlowID(r.Context(), id)
		if err != nil {
			http.Error(w, "node not found", http.StatusNotFound)
			return
		}
		if err := store.DeleteNode(r.Context(), id); err != nil {
			http.Error(w, "node not found", http.StatusNotFound)
			return
		}
		broadcast(hub, live.Event{Type: live.EventNodeDeleted, FlowID: flowID, DeletedID: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

type createConnectionRequest struct {
	TargetID string `json:"target_id"`
}

func createConnectionHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := chi.URLParam(r, "id")
		var req createConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.TargetID == "" {
			http.Error(w, "target_id is required", http.StatusBadRequest)
			return
		}
		conn, err := store.CreateConnection(r.Context(), sourceID, req.TargetID)
		if err != nil {
			if errors.Is(err, ErrSelfLoop) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if flowID, err := store.ConnectionFlowID(r.Context(), conn.ID); err == nil {
			broadcast(hub, live.Event{Type: live.EventConnectionCreated, FlowID: flowID, Connection: conn})
		}
		writeJSON(w, http.StatusCreated, conn)
	}
}

func deleteConnectionHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		flowID, err := store.ConnectionFlowID(r.Context(), id)
		if err != nil {
			http.Error(w, "connection not found", http.StatusNotFound)
			return
		}
		if err := store.DeleteConnection(r.Context(), id); err != nil {
			http.Error(w, "connection not found", http.StatusNotFound)
			return
		}
		broadcast(hub, live.Event{Type: live.EventConnectionDeleted, FlowID: flowID, DeletedID: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
