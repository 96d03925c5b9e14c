// Package blip fetches event-track records from the BLiP analytics commands API.
package blip

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
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/tidwall/gjson"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/timeutil"
)

const (
	DefaultEndpoint   = "https://http.msging.net/commands"
	AnalyticsAddress  = "postmaster@analytics.msging.net"
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 800 * time.Millisecond
	DefaultTimeout    = 45 * time.Second

	maxErrorBody = 1024
)

// StopReason explains why a fetch loop ended.
type StopReason string

const (
	StopEmptyPage        StopReason = "empty-page"
	StopMaxEvents        StopReason = "max-events"
	StopUnauthorized     StopReason = "unauthorized"
	StopRetriesExhausted StopReason = "retries-exhausted"
	StopError            StopReason = "error"
	StopCanceled         StopReason = "canceled"
)

// Options configures a Client. Zero values select the defaults; a negative
// MaxRetries disables retries.
type Options struct {
	Endpoint   string
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
	Logger     *slog.Logger
}

// Client talks to the commands endpoint with a single API key.
type Client struct {
	apiKey     string
	endpoint   string
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger
}

// NewClient builds a Client for apiKey.
func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   opts.Endpoint,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		httpClient: opts.HTTPClient,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	switch {
	case opts.MaxRetries == 0:
		c.maxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		c.maxRetries = 0
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Query selects the events of one flow action within [Start, End].
// MaxEvents <= 0 disables the cap.
type Query struct {
	Action    string
	Start     time.Time
	End       time.Time
	Take      int
	MaxEvents int
}

// Result holds everything collected by FetchEvents. Err is nil when the loop
// ended on an empty page or on the cap.
type Result struct {
	Events   []model.RawEvent
	Requests int
	Backoffs int
	Stop     StopReason
	Err      error
}

type command struct {
	ID     string `json:"id"`
	To     string `json:"to"`
	Method string `json:"method"`
	URI    string `json:"uri"`
}

// FetchEvents pages through the event track of q.Action. Failures never
// escape: the loop stops and returns what it collected so far.
func (c *Client) FetchEvents(ctx context.Context, q Query) Result {
	var res Result
	if q.Take <= 0 {
		res.Stop = StopError
		res.Err = fmt.Errorf("page size must be greater than 0")
		c.observer.Failed(0, res.Err)
		return res
	}

	retries := 0
	for page := 0; ; page++ {
		skip := page * q.Take
		if err := ctx.Err(); err != nil {
			res.Stop, res.Err = StopCanceled, err
			c.observer.Failed(skip, err)
			return res
		}

		body, err := c.fetchPage(ctx, newCommand(q, skip), skip, &retries, &res)
		if err != nil {
			return c.stop(ctx, res, skip, err)
		}
		events, n, err := decodeItems(body)
		if err != nil {
			return c.stop(ctx, res, skip, err)
		}
		if n > len(events) {
			c.logger.Warn("skipped non-object items", "skip", skip, "count", n-len(events))
		}
		res.Events = append(res.Events, events...)
		c.observer.PageFetched(skip, n, len(res.Events))

		if n == 0 {
			res.Stop = StopEmptyPage
			return res
		}
		if q.MaxEvents > 0 && len(res.Events) >= q.MaxEvents {
			res.Events = res.Events[:q.MaxEvents]
			res.Stop = StopMaxEvents
			return res
		}
	}
}

func (c *Client) stop(ctx context.Context, res Result, skip int, err error) Result {
	res.Stop, res.Err = stopReason(ctx, err), err
	c.observer.Failed(skip, err)
	return res
}

func (c *Client) fetchPage(ctx context.Context, cmd command, skip int, retries *int, res *Result) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			res.Requests++
			b, err := c.post(ctx, cmd)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries-*retries)+1),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			delay := c.baseDelay << uint(*retries)
			*retries++
			res.Backoffs++
			c.observer.Backoff(skip, statusCode(err), delay, *retries)
			return delay
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, cmd command) ([]byte, error) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("posting command", "id", cmd.ID, "uri", cmd.URI)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func newCommand(q Query, skip int) command {
	uri := fmt.Sprintf("/event-track/flow/%s?$take=%d&$skip=%d&startDate=%s&endDate=%s",
		url.PathEscape(q.Action),
		q.Take,
		skip,
		timeutil.FormatISOZ(q.Start),
		timeutil.FormatISOZ(q.End),
	)
	return command{
		ID:     fmt.Sprintf("get-events-%s-%d", q.Action, skip),
		To:     AnalyticsAddress,
		Method: "get",
		URI:    uri,
	}
}

// decodeItems returns the object items of resource.items and the raw item
// count. A missing items array is an empty page.
func decodeItems(body []byte) ([]model.RawEvent, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("malformed response body")
	}
	items := gjson.GetBytes(body, "resource.items")
	if !items.IsArray() {
		return nil, 0, nil
	}
	arr := items.Array()
	events := make([]model.RawEvent, 0, len(arr))
	for _, item := range arr {
		if !item.IsObject() {
			continue
		}
		if ev, ok := model.DecodeRawEvent(item.Raw); ok {
			events = append(events, ev)
		}
	}
	return events, len(arr), nil
}

func stopReason(ctx context.Context, err error) StopReason {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return StopUnauthorized
	case ctx.Err() != nil:
		return StopCanceled
	case isTransient(err):
		return StopRetriesExhausted
	default:
		return StopError
	}
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
