package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"corePools/internal/model"
)

const maxErrorBody = 512

// StatusError is returned for non-2xx subgraph responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("subgraph %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// DecodeError is returned when the response body is not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("subgraph %s: decode response: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Config controls the subgraph client.
type Config struct {
	Filter       Filter
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Result is the outcome of a pools query.
type Result struct {
	Pools []model.PoolRecord
	// Found is false when the response carried no data.pools path.
	Found bool
	// Errors holds GraphQL error messages reported alongside the response.
	Errors []string
	// Skipped counts returned pools that carried no id.
	Skipped int
}

// Client queries Balancer subgraphs for core pools.
type Client struct {
	cfg    Config
	http   *http.Client
	query  string
	logger *zap.Logger
}

type queryRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type poolsResponse struct {
	Data *struct {
		Pools *[]model.PoolRecord `json:"pools"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// NewClient builds a Client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if err := cfg.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		query:  cfg.Filter.Query(),
		logger: logger,
	}, nil
}

// Query returns the GraphQL query sent to every endpoint.
func (c *Client) Query() string {
	return c.query
}

// FetchPools posts the core pools query to endpoint.
func (c *Client) FetchPools(ctx context.Context, endpoint string) (Result, error) {
	var res Result
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, isRetryable, func(ctx context.Context) error {
		var err error
		res, err = c.fetchOnce(ctx, endpoint)
		if err != nil && c.cfg.MaxRetries > 0 {
			c.logger.Warn("subgraph query failed", zap.Error(err), zap.String("url", endpoint))
		}
		return err
	})
	return res, err
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) (Result, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(queryRequest{Query: c.query})
	if err != nil {
		return Result{}, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}

	return parsePools(endpoint, data)
}

func parsePools(endpoint string, data []byte) (Result, error) {
	var parsed poolsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Result{}, &DecodeError{URL: endpoint, Err: err}
	}

	var res Result
	for _, e := range parsed.Errors {
		res.Errors = append(res.Errors, e.Message)
	}
	if parsed.Data == nil || parsed.Data.Pools == nil {
		return res, nil
	}

	res.Found = true
	res.Pools = make([]model.PoolRecord, 0, len(*parsed.Data.Pools))
	for _, pool := range *parsed.Data.Pools {
		if pool.ID == "" {
			res.Skipped++
			continue
		}
		res.Pools = append(res.Pools, pool)
	}
	return res, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
