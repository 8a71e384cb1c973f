package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_PollsUntilCompleted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/42/payment-status", r.URL.Path)
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"success":true,"data":{"pending":true,"raw_status":"PENDING","retry_after_seconds":0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"completed":true,"redirect_url":"https://shop.example/done"}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	w := &watcher{baseURL: srv.URL, client: srv.Client(), out: &out, minWait: time.Millisecond}

	status, err := w.Watch(context.Background(), 42, "k1")
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, out.String(), "completed, redirect to https://shop.example/done")
}

func TestWatcher_StopsAtPollWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"pending":true,"poll_until":"2020-01-01T00:00:00Z"}}`))
	}))
	defer srv.Close()

	w := &watcher{baseURL: srv.URL, client: srv.Client(), out: &bytes.Buffer{}}

	_, err := w.Watch(context.Background(), 1, "k")
	assert.ErrorContains(t, err, "poll window closed")
}

func TestWatcher_SurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"FORBIDDEN","message":"Invalid access key"}}`))
	}))
	defer srv.Close()

	w := &watcher{baseURL: srv.URL, client: srv.Client(), out: &bytes.Buffer{}}

	_, err := w.Watch(context.Background(), 1, "bad")
	assert.EqualError(t, err, "status 403: Invalid access key")
}
