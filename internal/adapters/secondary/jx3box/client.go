package jx3box

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/metrics"
	"github.com/vibin/jx3-item-bot/internal/tracing"
)

const (
	// successCode is the body level code JX3Box uses for a good answer
	successCode = 200

	// perPage is the page size requested from the API
	perPage = 5

	// maxBodyBytes bounds how much of a response we are willing to read
	maxBodyBytes = 1 << 20

	unknownAPIError = "未知错误"
)

// searchResponse mirrors the JX3Box wiki search payload
type searchResponse struct {
	Code *int        `json:"code"`
	Msg  string      `json:"msg"`
	Data *searchData `json:"data"`
}

type searchData struct {
	List *[]domain.Item `json:"list"`
}

// Client implements ports.ItemSearchPort against the JX3Box wiki API
type Client struct {
	searchURL  string
	logger     logger.Logger
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a new JX3Box search client
func NewClient(cfg *config.ItemSearchConfig, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		searchURL: cfg.SearchURL,
		logger:    log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchItems queries the first page of matches for keyword
func (c *Client) SearchItems(ctx context.Context, keyword string) domain.SearchOutcome {
	ctx, span := tracing.StartSpan(ctx, "jx3box.search")
	defer span.End()

	start := time.Now()
	outcome := c.search(ctx, keyword)

	results := -1
	if outcome.OK() {
		results = len(outcome.Items)
	}
	metrics.RecordSearch(string(outcome.Kind), time.Since(start).Seconds(), results)
	tracing.AddSearchAttributes(span, keyword, string(outcome.Kind), max(results, 0))
	tracing.RecordError(span, outcome.Err)

	return outcome
}

func (c *Client) search(ctx context.Context, keyword string) domain.SearchOutcome {
	searchURL, err := url.Parse(c.searchURL)
	if err != nil {
		return domain.UnexpectedFailure(fmt.Errorf("invalid search URL: %w", err))
	}

	q := searchURL.Query()
	q.Set("keyword", keyword)
	q.Set("page", "1")
	q.Set("per", strconv.Itoa(perPage))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return domain.UnexpectedFailure(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jx3-item-bot/1.0")

	c.logger.Debug("Sending JX3Box search request", "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NetworkFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.logger.Debug("JX3Box returned non-success status", "status", resp.StatusCode, "body", string(snippet))
		return domain.NetworkFailure(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.NetworkFailure(fmt.Errorf("failed to read response: %w", err))
	}

	return decodeSearchResponse(body)
}

// decodeSearchResponse turns a 2xx body into an outcome
func decodeSearchResponse(body []byte) domain.SearchOutcome {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.UnexpectedFailure(fmt.Errorf("failed to parse response: %w", err))
	}

	if parsed.Code == nil {
		return domain.UnexpectedFailure(errors.New("response has no code field"))
	}

	if *parsed.Code != successCode {
		msg := parsed.Msg
		if msg == "" {
			msg = unknownAPIError
		}
		return domain.APIFailure(msg)
	}

	if parsed.Data == nil {
		return domain.UnexpectedFailure(errors.New("response has no data field"))
	}
	if parsed.Data.List == nil {
		return domain.UnexpectedFailure(errors.New("response data has no list field"))
	}

	return domain.Success(*parsed.Data.List)
}
