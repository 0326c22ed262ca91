package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/levelgrid/internal/api/request"
	"github.com/mcoot/levelgrid/internal/api/response"
	"github.com/mcoot/levelgrid/internal/services/levels"
)

// LevelHandler handles level storage endpoints
type LevelHandler struct {
	service *levels.Service
}

// NewLevelHandler creates a new level handler
func NewLevelHandler(service *levels.Service) *LevelHandler {
	return &LevelHandler{
		service: service,
	}
}

// Get handles GET /api/v1/levels/{name}
func (h *LevelHandler) Get(w http.ResponseWriter, r *http.Request) {
	level, err := h.service.GetLevel(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LevelFromModel(level))
}

// Put handles PUT /api/v1/levels/{name}
func (h *LevelHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req request.SaveLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if len(req.Data) == 0 {
		WriteError(w, NewInvalidRequestError("data is required"))
		return
	}

	level, err := h.service.SaveLevel(r.Context(), mux.Vars(r)["name"], req.Owner, req.Data)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LevelFromModel(level))
}

// Delete handles DELETE /api/v1/levels/{name}
func (h *LevelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLevel(r.Context(), mux.Vars(r)["name"]); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// List handles GET /api/v1/levels?owner=<key>
func (h *LevelHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		WriteError(w, NewInvalidRequestError("owner is required"))
		return
	}

	names, err := h.service.ListLevelsByOwner(r.Context(), owner)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LevelList{Owner: owner, Levels: names})
}
