package backend

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
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	Logger             *slog.Logger
	// Transport overrides the underlying round tripper; tests use it.
	Transport http.RoundTripper
}

// Client talks to the platform's order endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker[*rawResponse]
	log     *slog.Logger
}

type rawResponse struct {
	status int
	body   []byte
}

// envelope covers both the success and the error payload of the order API.
type envelope struct {
	Success *bool         `json:"success"`
	Order   *domain.Order `json:"order"`
	Message string        `json:"message"`
	Error   string        `json:"error"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func NewClient(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: circuitbreaker.New[*rawResponse](circuitbreaker.Settings{
			Name:        "order-service",
			MaxFailures: opts.BreakerMaxFailures,
			OpenTimeout: opts.BreakerOpenTimeout,
			IsFailure: func(err error) bool {
				return errors.Is(err, ErrUnavailable)
			},
			Logger: log,
		}),
		log: log,
	}
}

// CreateOrder posts the order and returns the id the backend assigned.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	var body bytes.Buffer
	contentType, err := WriteOrderForm(&body, req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", &body)
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if req.Draft.ID != "" {
		httpReq.Header.Set("Idempotency-Key", req.Draft.ID)
	}
	setBearer(httpReq, req.Identity)

	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.body, &env)

	if resp.status >= 400 {
		return "", c.statusError(resp, env)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return "", &RejectedError{StatusCode: resp.status, Message: orDefault(env.message(), "order was not accepted")}
	}
	if env.Order == nil || env.Order.ID == "" {
		return "", fmt.Errorf("%w: missing order id", ErrMalformedReply)
	}
	return env.Order.ID, nil
}

// GetOrder loads a persisted order. The endpoint requires a bearer identity.
func (c *Client) GetOrder(ctx context.Context, orderID string, identity domain.Identity) (*domain.Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("build order lookup: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	setBearer(httpReq, identity)

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.body, &env)
	if resp.status >= 400 {
		return nil, c.statusError(resp, env)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, decodeErr)
	}
	if env.Order != nil {
		return env.Order, nil
	}

	// some deployments return the bare order
	var order domain.Order
	if err := json.Unmarshal(resp.body, &order); err != nil || order.ID == "" {
		return nil, fmt.Errorf("%w: missing order", ErrMalformedReply)
	}
	return &order, nil
}

func (c *Client) do(req *http.Request) (*rawResponse, error) {
	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}
		raw := &rawResponse{status: httpResp.StatusCode, body: body}
		if httpResp.StatusCode >= 500 {
			return raw, fmt.Errorf("%w: status %d", ErrUnavailable, httpResp.StatusCode)
		}
		return raw, nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.log.WarnContext(req.Context(), "order service call short-circuited", "method", req.Method, "path", req.URL.Path)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) statusError(resp *rawResponse, env envelope) error {
	switch resp.status {
	case http.StatusNotFound:
		return ErrOrderNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return &RejectedError{StatusCode: resp.status, Message: orDefault(env.message(), http.StatusText(resp.status))}
	}
}

func setBearer(req *http.Request, identity domain.Identity) {
	if identity.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+identity.Token)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
