package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/config"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/paytoday"
	"github.com/stretchr/testify/require"
)

// FakePayToday serves the three PayToday endpoints the gateway calls. Each
// intent gets a token derived from its payment URL.
type FakePayToday struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	statuses map[string]string
	seq      atomic.Int64
	lookups  atomic.Int32
}

func NewFakePayToday(t *testing.T) *FakePayToday {
	f := &FakePayToday{t: t, statuses: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /web/configuration/intent/", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusCreated, map[string]any{
			"data": map[string]any{"authorization": map[string]any{"access_token": "AUTH-E2E"}},
		})
	})
	mux.HandleFunc("POST /web/create/payment/intent/", func(w http.ResponseWriter, r *http.Request) {
		token := fmt.Sprintf("tok%d", f.seq.Add(1))
		f.SetStatus(token, "pending")
		f.write(w, http.StatusCreated, map[string]any{
			"data": map[string]any{"payment_url": f.server.URL + "/pay/" + token},
		})
	})
	mux.HandleFunc("GET /web/payment/lookup/{token}/", func(w http.ResponseWriter, r *http.Request) {
		f.lookups.Add(1)
		if r.Header.Get("Authorization") != "Bearer AUTH-E2E" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		status, ok := f.statuses[r.PathValue("token")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.write(w, http.StatusOK, map[string]any{
			"data": map[string]any{"intent": map[string]any{"transaction_status": status}},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakePayToday) URL() string {
	return f.server.URL
}

func (f *FakePayToday) SetStatus(token, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[token] = status
}

func (f *FakePayToday) Lookups() int {
	return int(f.lookups.Load())
}

func (f *FakePayToday) write(w http.ResponseWriter, status int, payload any) {
	token, err := paytoday.EncodeEnvelope(payload)
	require.NoError(f.t, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// TestConfig is a memory-backed configuration pointed at the fake.
func TestConfig(paytodayURL string) *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:             "0",
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			IdleTimeout:      time.Minute,
			ValidateRequests: true,
			AdminToken:       "admin-secret",
		},
		Store: config.StoreConfig{Driver: "memory"},
		PayToday: config.PayTodayConfig{
			Environment:     config.EnvironmentSandbox,
			Handle:          "shop",
			Key:             "secret",
			SandboxURL:      paytodayURL,
			LiveURL:         "https://live.invalid",
			Timeout:         5 * time.Second,
			ProtocolVersion: "12.12.2024",
			UserAgent:       "paytoday-gateway-e2e",
		},
		Retry: config.RetryConfig{BaseDelay: 10 * time.Millisecond, MaxRetries: 1},
		Polling: config.PollingConfig{
			InitialDelay:      time.Hour,
			Interval:          time.Hour,
			ClientInterval:    15 * time.Second,
			ClientMaxDuration: 30 * time.Minute,
			ResyncInterval:    time.Hour,
			ResyncBatchSize:   100,
		},
		Reconciler: config.ReconcilerConfig{AllowRedirectRecovery: true},
		Storefront: config.StorefrontConfig{
			ReturnURL:        "https://shop.example/paytoday/return",
			OrderReceivedURL: "https://shop.example/checkout/order-received/{order_id}",
			CheckoutURL:      "https://shop.example/checkout",
		},
		Outbox:    config.OutboxConfig{Interval: time.Hour, BatchSize: 100},
		Telemetry: config.TelemetryConfig{ServiceName: "paytoday-gateway-e2e"},
		Logger:    config.LoggerConfig{Level: "error", Format: "text"},
	}
}

// TestClient wraps HTTP calls to the gateway.
type TestClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *TestClient) Checkout(t *testing.T, req api.CheckoutRequest) (*api.CheckoutResult, int) {
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest(http.MethodPost, c.baseURL+"/checkout", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")

	var out api.Envelope[api.CheckoutResult]
	code := c.do(t, httpReq, &out)
	return &out.Data, code
}

func (c *TestClient) PaymentStatus(t *testing.T, orderID int64, key string) (*api.PaymentStatus, int) {
	target := fmt.Sprintf("%s/orders/%d/payment-status?key=%s", c.baseURL, orderID, url.QueryEscape(key))
	httpReq, _ := http.NewRequest(http.MethodGet, target, nil)

	var out api.Envelope[api.PaymentStatus]
	code := c.do(t, httpReq, &out)
	return &out.Data, code
}

// Return follows the PayToday redirect and reports where the payer lands.
func (c *TestClient) Return(t *testing.T, query url.Values) (string, int) {
	resp, err := c.httpClient.Get(c.baseURL + "/paytoday/return?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.Header.Get("Location"), resp.StatusCode
}

func (c *TestClient) AdminCheck(t *testing.T, orderID int64, token string) (*api.CheckResult, int) {
	httpReq, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/admin/orders/%d/check", c.baseURL, orderID), nil)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	var out api.Envelope[api.CheckResult]
	code := c.do(t, httpReq, &out)
	return &out.Data, code
}

func (c *TestClient) do(t *testing.T, req *http.Request, out any) int {
	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}
