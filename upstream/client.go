// Package upstream performs the outbound call to the casino wallet
// endpoint. One attempt, hard deadline, no retries; retry policy belongs
// to the caller.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// SignatureHeader carries the hex HMAC of the request body.
const SignatureHeader = "X-REQUEST-SIGN"

var (
	// ErrTimeout: the deadline expired or the transport aborted mid-call.
	ErrTimeout = errors.New("upstream not responding")
	// ErrEmptyResponse: the wallet answered 2xx with no body, which the
	// protocol treats as a violation rather than success.
	ErrEmptyResponse = errors.New("upstream returned empty response")
)

type Client struct {
	http    *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Forward POSTs body to url with the signature header and returns the
// response body verbatim. Non-2xx responses with a body are still
// returned: the bridge is a pass-through and the upstream's error shape
// belongs to the game engine, not to us.
func (c *Client) Forward(ctx context.Context, url string, body []byte, contentType, signature string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SignatureHeader, signature)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("upstream transport: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("upstream read: %w", err)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, ErrEmptyResponse
	}
	return respBody, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
