package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/levelgrid/internal/api/response"
)

// SchedulerSecretHeader carries the shared secret of the external scheduler
const SchedulerSecretHeader = "X-Scheduler-Secret"

// SchedulerSecret rejects requests whose X-Scheduler-Secret does not match the
// bcrypt hash. An empty hash disables the check, for local development.
func SchedulerSecret(hash []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(hash) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(SchedulerSecretHeader)
			if secret == "" || bcrypt.CompareHashAndPassword(hash, []byte(secret)) != nil {
				logger.Warn("rejected scheduler trigger", slog.String("remote_addr", r.RemoteAddr))
				response.JSON(w, http.StatusUnauthorized, response.TriggerResponse{
					Status:  response.TriggerStatusError,
					Message: "unauthorized",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
