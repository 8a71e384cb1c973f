// Package paytoday is the HTTP client for the PayToday payment API.
package paytoday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/config"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

const (
	authorizePath = "/web/configuration/intent/"
	intentPath    = "/web/create/payment/intent/"
	lookupPath    = "/web/payment/lookup/%s/"

	maxBodyBytes   = 1 << 20
	maxErrorDetail = 512
)

// Payment token fields, in order of preference.
var tokenFields = []string{"payment_token", "token", "id", "payment_id"}

// collectionSegment is the trailing path segment of a payment URL that names
// the collection rather than a payment.
const collectionSegment = "payments"

type Client struct {
	cfg        config.PayTodayConfig
	baseURL    string
	httpClient *http.Client
	verifier   Verifier
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client; its timeout is kept as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithVerifier(v Verifier) Option {
	return func(c *Client) { c.verifier = v }
}

func NewClient(cfg config.PayTodayConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL(), "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ application.PaymentProvider = (*Client)(nil)

func (c *Client) Authorize(ctx context.Context) (string, error) {
	const op = "authorize"

	if c.cfg.Handle == "" || c.cfg.Key == "" {
		return "", &application.ProviderError{
			Code: domain.ErrCodeConfigurationMissing,
			Op:   op,
			Err:  errors.New("shop handle and shop key must be configured"),
		}
	}

	req := authorizeRequest{
		Version: c.cfg.ProtocolVersion,
		Handle:  c.cfg.Handle,
		Key:     c.cfg.Key,
	}

	resp, err := sendRequest[authorizeRequest, envelopeResponse](ctx, c, http.MethodPost, c.baseURL+authorizePath, &req, "")
	if err != nil {
		return "", transportError(op, err)
	}

	if !resp.ok() {
		provErr := &application.ProviderError{
			Code:       domain.ErrCodeAuthorizationRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       resp.detail(),
		}
		if msg := c.errorEnvelopeMessage(resp); msg != "" {
			provErr.Err = errors.New(msg)
		}
		return "", provErr
	}

	payload, err := c.decode(op, resp)
	if err != nil {
		return "", err
	}

	token := payload.String("data", "authorization", "access_token")
	if token == "" {
		return "", malformed(op, resp, "no data.authorization.access_token in envelope")
	}

	return token, nil
}

func (c *Client) CreateIntent(ctx context.Context, authToken string, in application.IntentRequest) (*application.Intent, error) {
	const op = "create_intent"

	req := intentRequest{
		Version:         c.cfg.ProtocolVersion,
		Handle:          c.cfg.Handle,
		Amount:          in.Amount.StringFixed(2),
		InvoiceNumber:   in.InvoiceNumber,
		UserFirstName:   in.Customer.FirstName,
		UserLastName:    in.Customer.LastName,
		UserEmail:       in.Customer.Email,
		UserPhoneNumber: in.Customer.Phone,
		ReturnURL:       in.ReturnURL,
	}

	resp, err := sendRequest[intentRequest, envelopeResponse](ctx, c, http.MethodPost, c.baseURL+intentPath, &req, authToken)
	if err != nil {
		return nil, transportError(op, err)
	}

	if !resp.ok() {
		return nil, &application.ProviderError{
			Code:       domain.ErrCodeIntentRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       resp.detail(),
		}
	}

	payload, err := c.decode(op, resp)
	if err != nil {
		return nil, err
	}

	if _, ok := payload.Lookup("data"); !ok {
		return nil, malformed(op, resp, "no data in envelope")
	}

	paymentURL := payload.String("data", "payment_url")
	if paymentURL == "" {
		return nil, malformed(op, resp, "no data.payment_url in envelope")
	}

	token := ExtractPaymentToken(payload, paymentURL)
	if token.IsZero() {
		c.logger.Warn("no payment token in intent response",
			"invoice_number", in.InvoiceNumber,
			"payment_url", paymentURL,
		)
	}

	return &application.Intent{
		PaymentURL: paymentURL,
		Token:      token,
	}, nil
}

func (c *Client) QueryStatus(ctx context.Context, paymentToken, authToken string) (*application.StatusResult, error) {
	const op = "query_status"

	endpoint := c.baseURL + fmt.Sprintf(lookupPath, url.PathEscape(paymentToken))

	resp, err := sendRequest[any, envelopeResponse](ctx, c, http.MethodGet, endpoint, nil, authToken)
	if err != nil {
		return nil, &application.ProviderError{Code: domain.ErrCodeQuery, Op: op, Err: err}
	}

	if !resp.ok() {
		return nil, &application.ProviderError{
			Code:       domain.ErrCodeQuery,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       resp.detail(),
		}
	}

	if resp.Data == nil || resp.Data.Token == "" {
		return nil, &application.ProviderError{
			Code:       domain.ErrCodeQuery,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New("no token in response"),
		}
	}

	payload, err := DecodeEnvelope(resp.Data.Token, c.verifier)
	if err != nil {
		return nil, &application.ProviderError{Code: domain.ErrCodeQuery, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	raw := payload.String("data", "intent", "transaction_status")
	return &application.StatusResult{
		Status:    domain.ParseTransactionStatus(raw),
		RawStatus: raw,
		Payload:   payload,
	}, nil
}

// ExtractPaymentToken applies the field fallback chain and, failing that,
// derives a token from the payment URL.
func ExtractPaymentToken(payload Payload, paymentURL string) domain.PaymentToken {
	for _, field := range tokenFields {
		if v := payload.String("data", field); v != "" {
			return domain.PaymentToken{Value: v, Provenance: domain.ExplicitToken}
		}
	}

	if v, ok := DeriveTokenFromURL(paymentURL); ok {
		return domain.PaymentToken{Value: v, Provenance: domain.DerivedFromURL}
	}

	return domain.PaymentToken{}
}

// DeriveTokenFromURL returns the last non-empty path segment of a payment URL.
func DeriveTokenFromURL(paymentURL string) (string, bool) {
	u, err := url.Parse(paymentURL)
	if err != nil || u.Path == "" {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" || last == collectionSegment {
		return "", false
	}
	return last, true
}

func (c *Client) decode(op string, resp *response[envelopeResponse]) (Payload, error) {
	if resp.Data == nil || resp.Data.Token == "" {
		return nil, malformed(op, resp, "no token in response")
	}
	payload, err := DecodeEnvelope(resp.Data.Token, c.verifier)
	if err != nil {
		return nil, &application.ProviderError{
			Code:       domain.ErrCodeMalformedResponse,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return payload, nil
}

// errorEnvelopeMessage best-effort decodes an envelope sent with an error status.
func (c *Client) errorEnvelopeMessage(resp *response[envelopeResponse]) string {
	if resp.Data == nil {
		return ""
	}
	if resp.Data.Token != "" {
		payload, err := DecodeEnvelope(resp.Data.Token, nil)
		if err != nil {
			c.logger.Debug("undecodable error envelope", "error", err)
			return ""
		}
		if msg := payload.String("message"); msg != "" {
			return msg
		}
		return payload.String("data", "message")
	}
	if resp.Data.Message != "" {
		return resp.Data.Message
	}
	return resp.Data.Error
}

type response[Resp any] struct {
	StatusCode int
	Body       []byte
	// Data is nil when the body is not JSON.
	Data *Resp
}

func (r *response[Resp]) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *response[Resp]) detail() string {
	if len(r.Body) > maxErrorDetail {
		return string(r.Body[:maxErrorDetail])
	}
	return string(r.Body)
}

func sendRequest[Req any, Resp any](ctx context.Context, c *Client, method, endpoint string, reqBody *Req, bearer string) (*response[Resp], error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	out := &response[Resp]{StatusCode: resp.StatusCode, Body: body}

	var data Resp
	if err := json.Unmarshal(body, &data); err == nil {
		out.Data = &data
	} else {
		c.logger.Debug("non-json response from paytoday", "status", resp.StatusCode, "url", endpoint)
	}

	return out, nil
}

func transportError(op string, err error) error {
	return &application.ProviderError{Code: domain.ErrCodeTransport, Op: op, Err: err}
}

func malformed(op string, resp *response[envelopeResponse], reason string) error {
	return &application.ProviderError{
		Code:       domain.ErrCodeMalformedResponse,
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        errors.New(reason),
	}
}
