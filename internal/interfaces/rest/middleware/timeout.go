package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
)

// Timeout bounds each request. Status queries made on behalf of the request
// see the deadline through the context.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(api.ErrorResponse{
		Error: api.ErrorDetail{Code: application.ErrCodeTimeout, Message: "Request timeout"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
