package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestResendUnsentRetriesDialFailures(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	base := &scriptedTransport{errs: []error{dial, dial}}
	rt := &resendUnsent{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot/sendMessage", strings.NewReader(`{"chat_id":1}`))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d", base.calls)
	}
}

func TestResendUnsentKeepsDeliveredFailures(t *testing.T) {
	read := &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}
	base := &scriptedTransport{errs: []error{read}}
	rt := &resendUnsent{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot/sendMessage", strings.NewReader(`{}`))
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d", base.calls)
	}
}

func TestNewHTTPClientCoversPollTimeout(t *testing.T) {
	c := NewHTTPClient(HTTPClientOptions{PollTimeout: 50 * time.Second})
	if c.Timeout <= 50*time.Second {
		t.Fatalf("timeout = %s", c.Timeout)
	}
	tr := c.Transport.(*resendUnsent).base.(*http.Transport)
	if tr.ResponseHeaderTimeout <= 50*time.Second {
		t.Fatalf("header timeout = %s", tr.ResponseHeaderTimeout)
	}
}
