package wallhaven

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/wallter/wallter/internal/domain"
)

const (
	defaultBaseURL = "https://wallhaven.cc/api/v1"
	defaultTimeout = 30 * time.Second
	userAgent      = "Wallter/1.0"

	// maxImageBytes caps a single download; anything larger is treated
	// as a bad response rather than buffered into memory.
	maxImageBytes = 128 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client implements domain.Source for the Wallhaven v1 API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Wallhaven API client. An empty apiKey is
// valid; the API then serves SFW results only.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string { return "wallhaven" }

// Search queries /search and returns the mapped candidate list in the
// API's ranking order. Each call issues a fresh request.
func (c *Client) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Candidate, error) {
	query := url.Values{}
	setIf := func(key, val string) {
		if val != "" {
			query.Set(key, val)
		}
	}
	setIf("q", criteria.Query)
	setIf("categories", criteria.Categories)
	setIf("purity", criteria.Purity)
	setIf("sorting", string(criteria.Sorting))
	setIf("order", criteria.Order)
	setIf("topRange", criteria.TopRange)
	setIf("atleast", criteria.AtLeast)
	setIf("resolutions", criteria.Resolutions)
	setIf("ratios", criteria.Ratios)
	setIf("colors", criteria.Colors)
	if criteria.Page > 0 {
		query.Set("page", strconv.Itoa(criteria.Page))
	}
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	body, err := c.doRequest(ctx, c.baseURL+"/search?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("wallhaven response parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}

	candidates := mapCandidates(resp.Data)
	c.logger.Debug("wallhaven search",
		"results", len(candidates), "page", resp.Meta.CurrentPage, "total", resp.Meta.Total)
	return candidates, nil
}

// Fetch downloads the candidate's image bytes.
func (c *Client) Fetch(ctx context.Context, candidate domain.Candidate) ([]byte, error) {
	if candidate.URL == "" {
		return nil, fmt.Errorf("%w: candidate %s has no file url", domain.ErrInvalidResponse, candidate.ID)
	}
	return c.doRequest(ctx, candidate.URL)
}

// doRequest performs a GET and classifies failures into the source
// error taxonomy: network problems are unreachable, 429 is rate
// limited (with Retry-After when present), other non-2xx statuses are
// unreachable for server faults and invalid for client faults.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, image/*")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("wallhaven request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("wallhaven request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &domain.RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnreachable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", domain.ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreachable, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", domain.ErrInvalidResponse, maxImageBytes)
	}
	return body, nil
}

// parseRetryAfter handles the delay-seconds form of the header. The
// HTTP-date form is rare on this API and falls back to no hint.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
