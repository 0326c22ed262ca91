package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/levelgrid/internal/api/response"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
)

// SchedulerHandler serves the endpoint hit by the external cron dispatcher.
// It reports in the dispatcher's {status, message} shape rather than the API error envelope.
type SchedulerHandler struct {
	service *deletecheck.Service
	logger  *slog.Logger
}

// NewSchedulerHandler creates a new scheduler trigger handler
func NewSchedulerHandler(service *deletecheck.Service, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		service: service,
		logger:  logger,
	}
}

// DeleteCheck handles POST /internal/scheduler/delete-check
func (h *SchedulerHandler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.RunOnce(r.Context())
	switch {
	case errors.Is(err, model.ErrRunInProgress):
		response.JSON(w, http.StatusOK, response.TriggerResponse{Status: response.TriggerStatusSkipped})
	case err != nil:
		h.logger.Error("triggered deletion check failed", slog.String("error", err.Error()))
		WriteTriggerError(w, err.Error())
	default:
		response.JSON(w, http.StatusOK, response.TriggerResponse{
			Status:  response.TriggerStatusComplete,
			Summary: response.RunSummaryFromModel(summary),
		})
	}
}

// WriteTriggerError writes a failed trigger response
func WriteTriggerError(w http.ResponseWriter, message string) {
	response.JSON(w, http.StatusInternalServerError, response.TriggerResponse{
		Status:  response.TriggerStatusError,
		Message: message,
	})
}
