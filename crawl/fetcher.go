// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/ratelimit"
	"github.com/poiesic/ragbase/retry"
)

const (
	// DefaultUserAgent identifies the crawler to origin servers.
	DefaultUserAgent = "ragbase-crawler/1.0"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 10 << 20

	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable classifies fetch errors for backoff purposes. Rate-limit
// responses (429) and server errors (5xx) are transient; other HTTP
// statuses, oversized bodies, and context errors are not. Anything
// else is assumed to be a network fault and retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrContentTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// Fetcher downloads pages over HTTP. Requests to the same host are
// throttled through the limiter keyed by hostname, and transient
// failures are retried with exponential backoff.
type Fetcher struct {
	client      *http.Client
	validator   *Validator
	limiter     *ratelimit.Limiter
	exec        *retry.Executor
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) error {
		f.client = client
		return nil
	}
}

// WithValidator replaces the default URL validator.
func WithValidator(v *Validator) FetcherOption {
	return func(f *Fetcher) error {
		f.validator = v
		return nil
	}
}

// WithLimiter throttles requests per host through the given limiter.
func WithLimiter(l *ratelimit.Limiter) FetcherOption {
	return func(f *Fetcher) error {
		f.limiter = l
		return nil
	}
}

// WithRetryPolicy replaces the default backoff policy.
func WithRetryPolicy(policy retry.Policy) FetcherOption {
	return func(f *Fetcher) error {
		exec, err := retry.New(policy, retry.WithClassifier(Retryable))
		if err != nil {
			return err
		}
		f.exec = exec
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) error {
		f.userAgent = ua
		return nil
	}
}

// WithMaxBodySize overrides the response body cap in bytes.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) error {
		f.maxBodySize = n
		return nil
	}
}

// WithFetcherLogger attaches a structured logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) error {
		f.logger = logger.With("component", "fetcher")
		return nil
	}
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	exec, err := retry.New(retry.DefaultPolicy(), retry.WithClassifier(Retryable))
	if err != nil {
		return nil, err
	}
	f := &Fetcher{
		client:      &http.Client{Timeout: DefaultRequestTimeout},
		validator:   NewValidator(),
		exec:        exec,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default().With("component", "fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Fetch downloads a single URL and reports the outcome as a
// CrawlResult. Validation failures and exhausted retries are recorded
// on the result rather than returned; Fetch never returns an error for
// a page that simply could not be crawled.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *core.CrawlResult {
	started := time.Now()
	result := &core.CrawlResult{
		URL:       rawURL,
		CrawledAt: started.UTC(),
	}

	info, err := f.validator.Validate(rawURL)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}
	result.URL = info.Normalized

	var (
		body        []byte
		statusCode  int
		contentType string
		language    string
		redirects   []string
	)

	err = f.exec.Do(ctx, func(ctx context.Context) error {
		if f.limiter != nil {
			if err := f.limiter.Acquire(ctx, info.Domain, 1); err != nil {
				return err
			}
		}

		redirects = redirects[:0]
		client := *f.client
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			redirects = append(redirects, req.URL.String())
			return nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.Normalized, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
		if err != nil {
			return err
		}
		if int64(len(data)) > f.maxBodySize {
			return fmt.Errorf("%w: limit %d bytes", ErrContentTooLarge, f.maxBodySize)
		}

		body = data
		contentType = resp.Header.Get("Content-Type")
		language = resp.Header.Get("Content-Language")
		return nil
	})

	result.ResponseTime = time.Since(started)
	result.StatusCode = statusCode
	result.RedirectChain = redirects

	if err != nil {
		result.ErrorMessage = err.Error()
		f.logger.Warn("fetch failed", "url", info.Normalized, "error", err)
		return result
	}

	content := string(body)
	now := time.Now().UTC()
	result.Success = true
	result.Document = &core.Document{
		Id:          core.IDFromContent(info.Normalized),
		URL:         info.Normalized,
		Title:       extractTitle(content),
		Content:     content,
		ContentType: contentType,
		Language:    language,
		Status:      core.DocumentStatusPending,
		Checksum:    core.IDFromContent(content),
		CrawledAt:   now,
	}

	f.logger.Debug("fetched",
		"url", info.Normalized,
		"status", statusCode,
		"bytes", len(body),
		"elapsed", result.ResponseTime)
	return result
}

// FetchAll downloads each URL in order and returns one result per
// input. Crawling stops early only when ctx is cancelled.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []*core.CrawlResult {
	results := make([]*core.CrawlResult, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		results = append(results, f.Fetch(ctx, u))
	}
	return results
}

// RobotsTxt retrieves the robots.txt body for a site. A 404 yields an
// empty string and no error.
func (f *Fetcher) RobotsTxt(ctx context.Context, baseURL string) (string, error) {
	info, err := f.validator.Validate(baseURL)
	if err != nil {
		return "", err
	}

	robotsURL := info.Scheme + "://" + info.Domain + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractTitle(content string) string {
	m := titlePattern.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
