package telegram

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/menacebot/core/telegram/netutil"
)

const (
	// responseMargin is added to the long poll hold time before a request is
	// considered stuck.
	responseMargin       = 15 * time.Second
	defaultResendRetries = 3
	defaultResendBackoff = 2 * time.Second
)

// HTTPClientOptions tune the client used for Bot API calls. Zero values get
// defaults.
type HTTPClientOptions struct {
	// PollTimeout is how long getUpdates may hold a request open.
	PollTimeout time.Duration
	// Retries bounds how often a request that never reached Telegram is resent.
	Retries int
	Backoff time.Duration
}

// NewHTTPClient returns a client whose deadlines leave room for a long poll.
// Only requests that failed before reaching the server are resent: a timed
// out sendMessage may already have been delivered.
func NewHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultLongPollTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultResendRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultResendBackoff
	}
	wait := opts.PollTimeout + responseMargin
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       wait,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: wait,
	}
	return &http.Client{
		Timeout:   wait + 5*time.Second,
		Transport: &resendUnsent{base: transport, retries: opts.Retries, backoff: opts.Backoff},
	}
}

// resendUnsent repeats requests that failed with netutil.NotSent.
type resendUnsent struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *resendUnsent) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.NotSent(err); attempt++ {
		if req.Body != nil && req.GetBody == nil {
			break
		}
		if werr := sleep(req.Context(), t.backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
