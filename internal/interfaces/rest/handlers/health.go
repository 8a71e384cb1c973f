package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest"
)

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := api.Health{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			body.Checks[name] = "down"
			body.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		body.Checks[name] = "up"
	}

	rest.WriteJSON(w, code, body)
}
