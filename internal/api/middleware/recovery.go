package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/levelgrid/internal/api/apierr"
	"github.com/mcoot/levelgrid/internal/api/response"
	"github.com/mcoot/levelgrid/internal/middleware"
)

// Recovery creates panic recovery middleware for the API
// Returns JSON error responses on panic
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

// TriggerRecovery is Recovery for the scheduler endpoint, answering in the trigger's shape
func TriggerRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, triggerPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func triggerPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	response.JSON(w, http.StatusInternalServerError, response.TriggerResponse{
		Status:  response.TriggerStatusError,
		Message: "internal server error",
	})
}
