package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/ppiankov/uscensus/internal/worker"
)

const provider = "census"

// Fetcher retrieves JSON from a dataset-scoped route.
// A nil result with a nil error means the upstream had no content.
type Fetcher interface {
	Get(ctx context.Context, route string, params url.Values) (json.RawMessage, error)
}

// Client fetches JSON from api.census.gov for one dataset
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataset    model.Dataset
	apiKey     string
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	logger     *log.Logger
}

// NewHTTPClient creates the http.Client shared by the API clients
func NewHTTPClient(cfg model.HTTPConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: proxyFunc(cfg),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}

// NewClient creates a Census client. limiter and logger may be nil.
func NewClient(cfg *model.Config, limiter *worker.Limiter, logger *log.Logger) *Client {
	if logger == nil {
		logger = NewLogger(false)
	}
	return &Client{
		httpClient: NewHTTPClient(cfg.HTTP),
		baseURL:    strings.TrimRight(cfg.HTTP.BaseURL, "/"),
		dataset:    cfg.Dataset,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.HTTP.UserAgent,
		maxBytes:   cfg.HTTP.MaxBodyBytes,
		limiter:    limiter,
		logger:     logger,
	}
}

// Dataset returns the dataset identity the client is scoped to
func (c *Client) Dataset() model.Dataset {
	return c.dataset
}

// Get requests {base}/{year}/{dataset}/{survey}{route}?params&key=...
func (c *Client) Get(ctx context.Context, route string, params url.Values) (json.RawMessage, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	LogRequest(c.logger, provider, http.MethodGet, route, query)
	query.Set("key", c.apiKey)

	fullURL := fmt.Sprintf("%s/%s%s?%s", c.baseURL, c.dataset, route, query.Encode())
	return Do(ctx, c.httpClient, c.limiter, c.logger, provider, route, fullURL, c.userAgent, c.maxBytes, nil)
}

// Do executes one GET and returns the JSON body.
// 204 and empty bodies yield nil; non-2xx statuses yield *StatusError.
func Do(ctx context.Context, httpClient *http.Client, limiter *worker.Limiter, logger *log.Logger,
	providerName, route, fullURL, userAgent string, maxBytes int64, header http.Header) (json.RawMessage, error) {
	if limiter != nil && !limiter.Allow(fullURL) {
		LogThrottled(logger, providerName, route)
		if err := limiter.Wait(ctx, fullURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		LogError(logger, providerName, "fetch", err)
		return nil, fmt.Errorf("fetch %s: %w", route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		LogResponse(logger, providerName, resp.StatusCode, time.Since(start), 0)
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &StatusError{Provider: providerName, Route: route, StatusCode: resp.StatusCode}
		LogError(logger, providerName, "fetch", err)
		return nil, err
	}

	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	LogResponse(logger, providerName, resp.StatusCode, time.Since(start), len(body))

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		// the Census API answers some bad queries with 200 and a plain-text message
		return nil, fmt.Errorf("%s %s: invalid JSON response: %.200s", providerName, route, body)
	}

	return json.RawMessage(body), nil
}
