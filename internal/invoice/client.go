package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/darzi-studio/api/internal/domain"
)

const (
	// DefaultTimeout bounds a single invoice fetch including the
	// generate fallback.
	DefaultTimeout = 30 * time.Second

	maxInvoiceBytes = 8 << 20
)

// ErrUnavailable indicates the invoice could not be fetched or generated.
var ErrUnavailable = errors.New("invoice: unavailable")

// Client fetches rendered invoice documents from the order API.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout overrides the fetch deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger for fetch telemetry.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs an invoice client rooted at the given API base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("invoice: base URL is required")
	}
	c := &Client{
		baseURL: baseURL,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Fetch returns the rendered invoice body. A missing document is
// regenerated server-side via the POST endpoint before giving up.
func (c *Client) Fetch(ctx context.Context, orderID string, kind domain.InvoiceKind) ([]byte, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("invoice: order id is required")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invoice: unknown kind %q", kind)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.documentURL(orderID, kind)

	body, status, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		return body, nil
	}
	if status != http.StatusNotFound {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	c.logger.Info("invoice not generated yet, requesting render",
		zap.String("order_id", orderID),
		zap.String("kind", string(kind)))

	body, status, err = c.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: generate returned status %d", ErrUnavailable, status)
	}
	return body, nil
}

func (c *Client) documentURL(orderID string, kind domain.InvoiceKind) string {
	return fmt.Sprintf("%s/api/v1/orders/%s/invoice/%s",
		c.baseURL, url.PathEscape(orderID), url.PathEscape(string(kind)))
}

func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInvoiceBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return body, resp.StatusCode, nil
}
