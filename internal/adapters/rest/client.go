// Package rest is the resilient JSON-over-HTTP client shared by forge adapters
// token rotation, backoff on transient and rate limited responses, status mapping
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUA        = "activitymirror"
	defaultMaxRetry  = 4
	defaultRetryBase = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
	maxBody          = 4 << 20
)

// Options configures the Client
type Options struct {
	// Name labels logs and errors, e.g. "github" or "gitea"
	Name      string
	BaseURL   string
	UserAgent string
	Accept    string
	Timeout   time.Duration

	// Comma separated tokens; requests rotate through them
	// Empty means anonymous requests
	TokensCSV string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// HTTPClient overrides the transport, tests pass httptest clients here
	HTTPClient *http.Client
}

// Client issues authenticated requests with retries
type Client struct {
	http   *http.Client
	opts   Options
	tokens []string
	cur    atomic.Int32
	log    logger.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// New creates a Client with defaults applied
func New(o Options) *Client {
	if o.Name == "" {
		o.Name = "rest"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Accept == "" {
		o.Accept = "application/json"
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	var toks []string
	for t := range strings.SplitSeq(o.TokensCSV, ",") {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		http:   hc,
		opts:   o,
		tokens: toks,
		log:    *logger.Named(o.Name),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string { return c.opts.BaseURL }

func (c *Client) token() string {
	if len(c.tokens) == 0 {
		return ""
	}
	n := int(c.cur.Add(1))
	return c.tokens[n%len(c.tokens)]
}

// Do sends method path with an optional JSON body and returns a 2xx response
// non-2xx responses come back as perr errors wrapping *StatusError
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "%s encode %s body", c.opts.Name, path)
		}
		payload = b
	}

	url := c.opts.BaseURL + path
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rdr)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s new request", c.opts.Name)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", c.opts.Accept)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "token "+tok)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil || attempt >= c.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s %s %s", c.opts.Name, method, path)
			}
			back := c.backoff(attempt)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempt).Msg("transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			continue
		}

		rl := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Int("rate_remaining", rl.remaining).
			Msg("http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case rl.limited(resp.StatusCode):
			if attempt >= c.opts.MaxRetries {
				return nil, c.statusErr(method, path, resp)
			}
			wait := rl.wait(c.now())
			if wait <= 0 {
				wait = c.backoff(attempt)
			}
			_ = drainAndClose(resp.Body)
			c.log.Warn().Dur("sleep", wait).Msg("rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}

		case transient(resp.StatusCode):
			if attempt >= c.opts.MaxRetries {
				return nil, c.statusErr(method, path, resp)
			}
			back := c.backoff(attempt)
			_ = drainAndClose(resp.Body)
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Int("attempt", attempt).Msg("transient error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}

		default:
			return nil, c.statusErr(method, path, resp)
		}
	}
}

// JSON sends the request and decodes a 2xx body into out when out is non-nil
func (c *Client) JSON(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("close body failed")
		}
	}()
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return resp.Header, nil
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s read %s", c.opts.Name, path)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "%s decode %s", c.opts.Name, path)
	}
	return resp.Header, nil
}

// Get is JSON with GET and no body
func (c *Client) Get(ctx context.Context, path string, out any) error {
	_, err := c.JSON(ctx, http.MethodGet, path, nil, out)
	return err
}

// Post is JSON with POST
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.JSON(ctx, http.MethodPost, path, body, out)
	return err
}

func (c *Client) statusErr(method, path string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	se := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	return perr.Wrapf(se, codeFor(resp.StatusCode), "%s %s %s", c.opts.Name, method, path)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
