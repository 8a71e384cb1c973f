package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
)

// WriteError maps application errors to HTTP responses. Internal details are
// logged, never sent.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			"code", errorCode,
			"category", application.CategorizeError(err),
			"error", err,
		)
	}

	WriteJSON(w, statusCode, api.ErrorResponse{
		Success: false,
		Error: api.ErrorDetail{
			Code:    errorCode,
			Message: application.PublicMessage(err),
		},
	})
}

// WriteData writes a success envelope.
func WriteData[T any](w http.ResponseWriter, statusCode int, data T) {
	WriteJSON(w, statusCode, api.Envelope[T]{Success: true, Data: data})
}

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
