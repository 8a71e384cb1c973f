package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "service error",
			err:        application.NewForbiddenError(),
			wantStatus: http.StatusForbidden,
			wantCode:   application.ErrCodeForbidden,
			wantMsg:    "Invalid access key",
		},
		{
			name:       "order not found",
			err:        application.NewOrderNotFoundError(7),
			wantStatus: http.StatusNotFound,
			wantCode:   application.ErrCodeOrderNotFound,
			wantMsg:    "Order not found.",
		},
		{
			name:       "provider not configured",
			err:        &application.ProviderError{Code: domain.ErrCodeConfigurationMissing, Op: "authorize"},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   domain.ErrCodeConfigurationMissing,
			wantMsg:    "An internal error occurred",
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("connection refused to 10.0.0.3"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   application.ErrCodeInternal,
			wantMsg:    "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err, logger)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body api.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, api.Health{Status: "ok"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())
}
