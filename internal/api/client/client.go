package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	apihttp "github.com/GriffinCanCode/rdesk/internal/api/http"
)

// ErrUnhealthy is returned when the server answers but its desktop loop does not
var ErrUnhealthy = errors.New("server unhealthy")

// Config configures the client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// DefaultConfig targets a local server
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:3389",
		Timeout: 5 * time.Second,
		Retries: 2,
	}
}

// Health is the body of the health endpoint
type Health struct {
	Status string `json:"status"`
	Peers  int    `json:"peers"`
	Frame  uint64 `json:"frame"`
	Error  string `json:"error,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client queries the operational endpoints of a running server
type Client struct {
	resty *resty.Client
}

// New creates a client
func New(cfg Config) *Client {
	if !strings.Contains(cfg.BaseURL, "://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}
	// resty owns the retries; the pooled transport comes from retryablehttp
	pooled := retryablehttp.NewClient()
	pooled.Logger = nil

	r := resty.New().
		SetTransport(pooled.HTTPClient.Transport).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "rdesk-cli").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusBadGateway || code == http.StatusGatewayTimeout
		})
	return &Client{resty: r}
}

// Health checks the server. A reachable server with a stopped desktop loop
// yields ErrUnhealthy along with the body.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&h).
		SetError(&h).
		Get("/health")
	if err != nil {
		return Health{}, fmt.Errorf("health request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusServiceUnavailable {
		return h, fmt.Errorf("%w: %s", ErrUnhealthy, h.Error)
	}
	if resp.IsError() {
		return Health{}, fmt.Errorf("health request failed: %s", resp.Status())
	}
	return h, nil
}

// Status fetches the desktop layout, viewers and traffic counters
func (c *Client) Status(ctx context.Context) (*apihttp.StatusResponse, error) {
	var (
		st     apihttp.StatusResponse
		failed apiError
	)
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&st).
		SetError(&failed).
		Get("/status")
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	if resp.IsError() {
		if failed.Error != "" {
			return nil, fmt.Errorf("status request failed: %s: %s", resp.Status(), failed.Error)
		}
		return nil, fmt.Errorf("status request failed: %s", resp.Status())
	}
	return &st, nil
}
