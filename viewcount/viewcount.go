// Package viewcount fetches per-post view counters from the site's analytics API.
package viewcount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single fetch. There are no retries.
const DefaultTimeout = 3 * time.Second

// Path is the endpoint queried for a slug's view count.
const Path = "/api/umami/blogviews"

// maxBody caps how much of a response is read.
const maxBody = 64 << 10

// ErrUnavailable wraps every reason a count could not be obtained.
var ErrUnavailable = errors.New("viewcount: unavailable")

// Response is the body returned by the view-count endpoint.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    int    `json:"data"`
}

// Result is the outcome of one fetch. When OK is false, Err says why and
// Value is zero.
type Result struct {
	OK    bool
	Value int
	Err   error
}

// Success returns a successful Result.
func Success(v int) Result {
	return Result{OK: true, Value: v}
}

// Failure returns a failed Result wrapping err in ErrUnavailable.
func Failure(err error) Result {
	if err == nil {
		err = ErrUnavailable
	} else if !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Result{Err: err}
}

// Views collapses the result to a count, substituting zero on failure.
func (r Result) Views() int {
	if !r.OK {
		return 0
	}
	return r.Value
}

// Client queries the view-count endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New returns a Client for the site at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the site root the client queries.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the request URL for slug.
func (c *Client) URL(slug string) string {
	return c.baseURL + Path + "?slug=" + url.QueryEscape(slug)
}

// Fetch requests the view count for slug. It never returns an error; every
// failure is reported through the Result.
func (c *Client) Fetch(ctx context.Context, slug string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(slug), nil)
	if err != nil {
		return Failure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return Failure(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Failure(fmt.Errorf("read body: %w", err))
	}
	return Decode(body)
}

// Decode parses a response body. The data field must be a present,
// non-negative JSON number with an integral value; 42.0 and 4.2e1 count as 42.
func Decode(body []byte) Result {
	var raw struct {
		Status  bool             `json:"status"`
		Message string           `json:"message"`
		Data    *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Failure(fmt.Errorf("decode body: %w", err))
	}
	if raw.Data == nil {
		return Failure(errors.New("response has no data field"))
	}
	n, err := integralNumber(*raw.Data)
	if err != nil {
		return Failure(err)
	}
	if n < 0 {
		return Failure(fmt.Errorf("negative view count %d", n))
	}
	return Success(n)
}

func integralNumber(data json.RawMessage) (int, error) {
	if len(data) == 0 || data[0] == '"' {
		return 0, fmt.Errorf("data is not a number: %s", data)
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return 0, fmt.Errorf("data is not a number: %w", err)
	}
	if n, err := strconv.ParseInt(num.String(), 10, 0); err == nil {
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("data is not a number: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("data %s is not a whole view count", num)
	}
	return int(f), nil
}
