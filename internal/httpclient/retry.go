package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls when DoWithRetry re-issues a request. Manifest fetches
// use it; probes never retry, their outcome is the data.
type RetryPolicy struct {
	Retry429   bool          // honor Retry-After on 429 and retry once
	Max429Wait time.Duration // cap on the 429 wait
	Retry5xx   bool          // back off and retry once on any 5xx
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (Retry-After capped at 60s) and 5xx (1s).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 60 * time.Second,
	Retry5xx:   true,
	Backoff5xx: time.Second,
}

// DoWithRetry performs req, retrying at most once on 429 or 5xx per policy.
// Other 4xx responses are returned as-is; the caller inspects the status and
// must close resp.Body when err == nil. The request is re-issued without a
// body, which is fine for the GET/HEAD traffic this package serves.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		wait, retry := retryWait(resp, policy)
		if !retry || attempt > 0 {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		next, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
		if err != nil {
			return nil, err
		}
		next.Header = req.Header.Clone()
		req = next
	}
}

// retryWait decides whether resp warrants a retry and how long to wait first.
func retryWait(resp *http.Response, policy RetryPolicy) (time.Duration, bool) {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests && policy.Retry429:
		return parseRetryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait), true
	case resp.StatusCode >= 500 && policy.Retry5xx:
		return policy.Backoff5xx, true
	}
	return 0, false
}

// parseRetryAfter parses a Retry-After header value, either delta-seconds or
// an HTTP-date, capped at max. Unparseable values wait one second.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		return capWait(time.Duration(sec)*time.Second, max)
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	return capWait(until, max)
}

func capWait(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
