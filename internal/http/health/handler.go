package health

import (
	"encoding/json"
	"net/http"

	applog "github.com/janisto/cloudrun-psitron/internal/platform/logging"
)

// StatusHealthy is the only status the service reports.
const StatusHealthy = "healthy"

// Response is the payload for the health endpoint.
type Response struct {
	Status string `json:"status"`
}

// Handler is a plain HTTP handler for the liveness check. It stays outside the
// huma API so the body is exactly {"status":"healthy"} regardless of Accept.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Response{Status: StatusHealthy}); err != nil {
		applog.LogWarn(r.Context(), "health response write failed")
	}
}
