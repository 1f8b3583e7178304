package jira

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

const (
	DefaultMaxRetries    = 3
	DefaultMaxRetryDelay = 60 * time.Second
)

// Session sends requests to a Jira server, retrying those which fail transiently.
// Connection errors and responses with status 429, 502, 503 or 504 are retried.
//
// A Session never logs request headers or bodies;
// they usually carry credentials or issue content.
type Session struct {
	Client   *http.Client
	Header   http.Header // sent with every request
	Username string
	Password string

	// MaxRetries is the number of times a failed request is retried.
	MaxRetries int
	// MaxRetryDelay caps the wait between attempts.
	// Zero retries immediately.
	MaxRetryDelay time.Duration

	Logger *log.Logger
}

// NewSession returns a Session using client with the default retry policy.
// If client is nil, http.DefaultClient is used.
func NewSession(client *http.Client) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		Client:        client,
		MaxRetries:    DefaultMaxRetries,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// A Request is replayed verbatim on every attempt.
type Request struct {
	Method string
	URL    string
	Params url.Values
	Header http.Header
	Body   []byte
}

var defaultHeader = http.Header{
	"Cache-Control":     {"no-cache"},
	"Content-Type":      {"application/json"},
	"Accept":            {"application/json"},
	"X-Atlassian-Token": {"no-check"},
}

func (s *Session) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

// Do sends req, retrying as needed.
// Responses with status 400 or higher are returned as an *Error
// with the response body consumed and closed.
// Otherwise the caller must close the response body.
func (s *Session) Do(ctx context.Context, req *Request) (*http.Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			for i := range v {
				q.Add(k, v[i])
			}
		}
		u.RawQuery = q.Encode()
	}
	logger := s.logger()
	redacted := u.Redacted()

	policy := &retryPolicy{limit: s.MaxRetryDelay}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(s.MaxRetries, 0))), ctx)
	attempt := func() (*http.Response, error) {
		hreq, err := s.newRequest(ctx, req, u)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := s.Client.Do(hreq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			policy.header = nil
			return nil, fmt.Errorf("%s %s: %w", req.Method, redacted, unwrapURLError(err))
		}
		logger.Debug("response", "method", req.Method, "url", redacted, "status", resp.StatusCode)
		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}
		policy.header = resp.Header
		err = responseError(req.Method, redacted, resp)
		if !recoverable(resp.StatusCode) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("request failed, retrying", "method", req.Method, "url", redacted, "err", err, "attempt", policy.retry, "delay", delay)
	}
	return backoff.RetryNotifyWithData(attempt, b, notify)
}

// retryPolicy paces retries with retryDelay,
// using the headers of the last response if there was one.
type retryPolicy struct {
	header http.Header
	retry  int
	limit  time.Duration
}

func (p *retryPolicy) NextBackOff() time.Duration {
	p.retry++
	// a negative delay would stop retrying altogether
	return max(retryDelay(p.header, p.retry, p.limit), 0)
}

func (p *retryPolicy) Reset() {
	p.header = nil
	p.retry = 0
}

func (s *Session) newRequest(ctx context.Context, req *Request, u *url.URL) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for _, h := range []http.Header{defaultHeader, s.Header, req.Header} {
		for k, v := range h {
			hreq.Header[http.CanonicalHeaderKey(k)] = v
		}
	}
	if s.Username != "" {
		hreq.SetBasicAuth(s.Username, s.Password)
	}
	return hreq, nil
}

func responseError(method, u string, resp *http.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return &Error{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        u,
		Messages:   parseErrors(b),
		Text:       string(b),
	}
}

func recoverable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryDelay returns how long to wait before the given retry (starting at 1).
// A delay suggested by the server wins over exponential backoff,
// and one already passed means retrying at once.
// Either is capped at limit.
func retryDelay(header http.Header, retry int, limit time.Duration) time.Duration {
	if d, ok := suggestedDelay(header); ok {
		return min(max(d, 0), limit)
	}
	d := 10 * time.Second
	for i := 0; i < retry && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

func suggestedDelay(header http.Header) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	if s := header.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, true
		}
		if t, err := http.ParseTime(s); err == nil {
			return time.Until(t), true
		}
	}
	interval, err1 := strconv.ParseFloat(header.Get("X-RateLimit-Interval-Seconds"), 64)
	fill, err2 := strconv.ParseFloat(header.Get("X-RateLimit-FillRate"), 64)
	if err1 == nil && err2 == nil && fill > 0 {
		return time.Duration(interval / fill * float64(time.Second)), true
	}
	return 0, false
}

// unwrapURLError strips the method and URL from err;
// callers add their own redacted copy.
func unwrapURLError(err error) error {
	if uerr, ok := err.(*url.Error); ok {
		return uerr.Err
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
