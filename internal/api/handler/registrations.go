package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/levelgrid/internal/api/request"
	"github.com/mcoot/levelgrid/internal/api/response"
	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
)

// RegistrationHandler handles deletion check registration endpoints
type RegistrationHandler struct {
	service *deletecheck.Service
	clock   clock.Clock
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(service *deletecheck.Service, clock clock.Clock) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		clock:   clock,
	}
}

// Register handles POST /api/v1/deletecheck/registrations
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Key == "" {
		WriteError(w, NewInvalidRequestError("key is required"))
		return
	}

	if err := h.service.RegisterUserForDeleteCheck(r.Context(), req.Key); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Unregister handles DELETE /api/v1/deletecheck/registrations/{key}
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if err := h.service.UnregisterUserForDeleteCheck(r.Context(), key); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// List handles GET /api/v1/deletecheck/registrations?stale_before=<ms>
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	staleBefore := h.clock.Now()
	if raw := r.URL.Query().Get("stale_before"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteError(w, NewInvalidRequestError("stale_before must be milliseconds since epoch"))
			return
		}
		staleBefore = time.UnixMilli(ms).UTC()
	}

	entries, err := h.service.ListRegistrations(r.Context(), staleBefore)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RegistrationListFromModel(staleBefore, entries))
}
