package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "activitymirror/internal/platform/errors"
)

// StatusError is a non-2xx response
type StatusError struct {
	Status int
	Body   string
}

// Error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// HTTPStatus returns the response status
func (e *StatusError) HTTPStatus() int { return e.Status }

// StatusOf returns the response status carried by err, 0 when none
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func codeFor(status int) perr.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return perr.ErrorCodeNotFound
	case http.StatusUnauthorized:
		return perr.ErrorCodeUnauthorized
	case http.StatusForbidden:
		return perr.ErrorCodeForbidden
	case http.StatusConflict:
		return perr.ErrorCodeConflict
	case http.StatusUnprocessableEntity:
		return perr.ErrorCodeInvalidArgument
	case http.StatusTooManyRequests:
		return perr.ErrorCodeTooManyRequests
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return perr.ErrorCodeUnavailable
	default:
		return perr.ErrorCodeRemote
	}
}

func transient(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// rateLimit is what a response says about quota
type rateLimit struct {
	remaining  int
	hasQuota   bool
	reset      time.Time
	retryAfter int
}

func parseRateHeaders(h http.Header) rateLimit {
	var rl rateLimit
	if s := h.Get("X-RateLimit-Remaining"); s != "" {
		rl.remaining, rl.hasQuota = atoi(s), true
	}
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		rl.reset = time.Unix(int64(sec), 0).UTC()
	}
	rl.retryAfter = atoi(h.Get("Retry-After"))
	return rl
}

// limited: 429 always, 403 only when it is the primary or secondary rate limit
func (rl rateLimit) limited(status int) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return rl.retryAfter > 0 || (rl.hasQuota && rl.remaining <= 0)
	}
	return false
}

// wait decides how long to wait based on headers
func (rl rateLimit) wait(now time.Time) time.Duration {
	if rl.retryAfter > 0 {
		return time.Duration(rl.retryAfter) * time.Second
	}
	if rl.hasQuota && rl.remaining <= 0 && rl.reset.After(now) {
		return rl.reset.Sub(now)
	}
	return 0
}

func atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
