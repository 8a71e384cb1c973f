package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/app"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type E2ETestSuite struct {
	suite.Suite
	paytoday *FakePayToday
	gateway  *app.App
	server   *httptest.Server
	client   *TestClient
	nextID   int64
}

func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}

func (s *E2ETestSuite) SetupTest() {
	s.paytoday = NewFakePayToday(s.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw, err := app.New(context.Background(), TestConfig(s.paytoday.URL()), logger)
	s.Require().NoError(err)
	s.gateway = gw

	s.server = httptest.NewServer(gw.Handler)
	s.client = NewTestClient(s.server.URL)
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
	s.gateway.Close()
}

func (s *E2ETestSuite) checkout() (int64, *api.CheckoutResult) {
	s.nextID++
	orderID := 1000 + s.nextID
	res, code := s.client.Checkout(s.T(), api.CheckoutRequest{
		OrderID: orderID,
		Amount:  "249.99",
		Customer: api.Customer{
			FirstName: "Ada",
			LastName:  "Nangolo",
			Email:     "ada@example.com",
		},
	})
	s.Require().Equal(http.StatusCreated, code)
	return orderID, res
}

func (s *E2ETestSuite) tokenFor(res *api.CheckoutResult) string {
	return res.RedirectURL[strings.LastIndex(res.RedirectURL, "/")+1:]
}

func (s *E2ETestSuite) TestCheckout_ReturnsRedirectAndSchedules() {
	orderID, res := s.checkout()

	s.True(strings.HasPrefix(res.RedirectURL, s.paytoday.URL()+"/pay/"))
	s.Equal(string(domain.DerivedFromURL), res.TokenProvenance)
	s.NotEmpty(res.AccessKey)
	s.Equal(15, res.PollIntervalSeconds)
	s.Equal(1800, res.PollTimeoutSeconds)
	s.True(s.gateway.Scheduler.Scheduled(orderID))
}

func (s *E2ETestSuite) TestShortPoll_PendingThenCompleted() {
	orderID, res := s.checkout()

	status, code := s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
	s.Equal(http.StatusOK, code)
	s.True(status.Pending)
	s.Equal(15, status.RetryAfterSeconds)

	s.paytoday.SetStatus(s.tokenFor(res), "success")

	status, code = s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
	s.Equal(http.StatusOK, code)
	s.True(status.Completed)
	s.Equal("https://shop.example/checkout/order-received/"+strconv.FormatInt(orderID, 10), status.RedirectURL)
	s.False(s.gateway.Scheduler.Scheduled(orderID))

	lookups := s.paytoday.Lookups()
	status, _ = s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
	s.True(status.Completed)
	s.Equal(lookups, s.paytoday.Lookups(), "settled orders are answered locally")
}

func (s *E2ETestSuite) TestShortPoll_RejectsWrongKey() {
	orderID, _ := s.checkout()

	_, code := s.client.PaymentStatus(s.T(), orderID, "not-the-key")
	s.Equal(http.StatusForbidden, code)
}

func (s *E2ETestSuite) TestShortPoll_CancelledPayment() {
	orderID, res := s.checkout()
	s.paytoday.SetStatus(s.tokenFor(res), "cancelled")

	status, code := s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
	s.Equal(http.StatusOK, code)
	s.True(status.Failed)
}

func (s *E2ETestSuite) TestReturn_SuccessRedirectsToOrderReceived() {
	orderID, res := s.checkout()

	location, code := s.client.Return(s.T(), url.Values{
		"invoice_number": {strconv.FormatInt(orderID, 10)},
		"status":         {"success"},
		"reference":      {"REF-9"},
	})
	s.Equal(http.StatusFound, code)
	s.Equal("https://shop.example/checkout/order-received/"+strconv.FormatInt(orderID, 10), location)

	status, _ := s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
	s.True(status.Completed)
}

func (s *E2ETestSuite) TestReturn_FailureRedirectsToCheckout() {
	orderID, _ := s.checkout()

	location, code := s.client.Return(s.T(), url.Values{
		"invoice_number": {strconv.FormatInt(orderID, 10)},
		"status":         {"cancelled"},
	})
	s.Equal(http.StatusFound, code)
	s.Equal("https://shop.example/checkout", location)
}

func (s *E2ETestSuite) TestReturn_Errors() {
	_, code := s.client.Return(s.T(), url.Values{"status": {"success"}})
	s.Equal(http.StatusBadRequest, code)

	_, code = s.client.Return(s.T(), url.Values{"invoice_number": {"999999"}, "status": {"success"}})
	s.Equal(http.StatusNotFound, code)
}

func (s *E2ETestSuite) TestAdminCheck() {
	orderID, res := s.checkout()

	_, code := s.client.AdminCheck(s.T(), orderID, "")
	s.Equal(http.StatusUnauthorized, code)

	s.paytoday.SetStatus(s.tokenFor(res), "success")
	result, code := s.client.AdminCheck(s.T(), orderID, "admin-secret")
	s.Equal(http.StatusOK, code)
	s.Equal("completed", result.Outcome)
	s.True(result.Applied)
}

func (s *E2ETestSuite) TestConcurrentDriversSettleOnce() {
	orderID, res := s.checkout()
	s.paytoday.SetStatus(s.tokenFor(res), "success")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.client.PaymentStatus(s.T(), orderID, res.AccessKey)
		}()
		go func() {
			defer wg.Done()
			s.client.Return(s.T(), url.Values{
				"invoice_number": {strconv.FormatInt(orderID, 10)},
				"status":         {"success"},
				"reference":      {"REF-1"},
			})
		}()
	}
	wg.Wait()

	ctx := context.Background()
	order, err := s.gateway.Store.Orders().FindOrder(ctx, orderID)
	s.Require().NoError(err)
	s.Equal(domain.OrderCompleted, order.Status)

	n, err := s.gateway.Store.Outbox().CountEvents(ctx, orderID)
	s.Require().NoError(err)
	s.Equal(1, n, "exactly one settlement event")
}

func (s *E2ETestSuite) TestDocsAndMetrics() {
	resp, err := http.Get(s.server.URL + "/docs/openapi.json")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Contains(string(body), "paytoday_gateway_http_requests_total")
}

// The scheduled driver settles an order nobody is polling.
func TestScheduledDriver(t *testing.T) {
	fake := NewFakePayToday(t)
	cfg := TestConfig(fake.URL())
	cfg.Polling.InitialDelay = 50 * time.Millisecond
	cfg.Polling.Interval = 50 * time.Millisecond

	gw, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer gw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	workers := gw.StartWorkers(ctx)
	defer func() {
		cancel()
		workers.Wait()
	}()

	srv := httptest.NewServer(gw.Handler)
	defer srv.Close()
	client := NewTestClient(srv.URL)

	res, code := client.Checkout(t, api.CheckoutRequest{OrderID: 77, Amount: "10.00"})
	require.Equal(t, http.StatusCreated, code)
	fake.SetStatus(res.RedirectURL[strings.LastIndex(res.RedirectURL, "/")+1:], "success")

	assert.Eventually(t, func() bool {
		order, err := gw.Store.Orders().FindOrder(context.Background(), 77)
		return err == nil && order.Status == domain.OrderCompleted
	}, 3*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !gw.Scheduler.Scheduled(77)
	}, time.Second, 20*time.Millisecond)
}
